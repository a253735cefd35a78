package ensemble

import "sort"

// FieldConsensus is the reconciled answer for one field.
type FieldConsensus struct {
	Field                string   `json:"field"`
	Value                string   `json:"value"`
	NormalizedValue      string   `json:"normalized_value"`
	AggregatedConfidence float64  `json:"aggregated_confidence"`
	AgreementLevel       float64  `json:"agreement_level"`
	ContributingModels   []string `json:"contributing_models"`
	DissentingModels     []string `json:"dissenting_models,omitempty"`
	DistinctValues       int      `json:"distinct_values"`
}

// ConsensusConfig holds the knobs the consensus engine needs.
type ConsensusConfig struct {
	// MinModelAgreement is the number of distinct models that must back the
	// winning value for its confidence to stand uncapped when disagreement
	// existed.
	MinModelAgreement int

	// LowAgreementCeiling caps aggregated confidence when the winning group
	// is thinner than MinModelAgreement and more than one model responded.
	LowAgreementCeiling float64

	// ModelPriority is the static tie-break order, most trusted first.
	ModelPriority []string
}

// ConsensusEngine reconciles the per-field candidates of several model
// responses into one winning value per field. Pure and deterministic:
// the same responses always produce the same result.
type ConsensusEngine struct {
	cfg      ConsensusConfig
	priority map[string]int
}

// NewConsensusEngine creates a ConsensusEngine.
func NewConsensusEngine(cfg ConsensusConfig) *ConsensusEngine {
	priority := make(map[string]int, len(cfg.ModelPriority))
	for i, name := range cfg.ModelPriority {
		priority[name] = i
	}
	return &ConsensusEngine{cfg: cfg, priority: priority}
}

type candidate struct {
	value      string
	normalized string
	confidence float64
	model      string
	weight     float64
}

type valueGroup struct {
	normalized string
	support    float64
	maxConf    float64
	candidates []candidate
	models     map[string]bool
}

// Reconcile computes per-field consensus across all responses. Fields no
// model extracted are absent from the result map.
func (e *ConsensusEngine) Reconcile(responses []ModelResult) map[string]FieldConsensus {
	byField := make(map[string][]candidate)
	for _, resp := range responses {
		if resp.Response == nil {
			continue
		}
		for field, fc := range resp.Response.Fields {
			normalize := NormalizerFor(field)
			byField[field] = append(byField[field], candidate{
				value:      fc.Value,
				normalized: normalize(fc.Value),
				confidence: fc.Confidence,
				model:      resp.Model,
				weight:     resp.Weight,
			})
		}
	}

	out := make(map[string]FieldConsensus, len(byField))
	for field, candidates := range byField {
		out[field] = e.reconcileField(field, candidates)
	}
	return out
}

func (e *ConsensusEngine) reconcileField(field string, candidates []candidate) FieldConsensus {
	groups := make(map[string]*valueGroup)
	responders := make(map[string]bool)
	totalSupport := 0.0

	for _, c := range candidates {
		responders[c.model] = true
		g, ok := groups[c.normalized]
		if !ok {
			g = &valueGroup{normalized: c.normalized, models: make(map[string]bool)}
			groups[c.normalized] = g
		}
		effective := c.weight * c.confidence
		g.support += effective
		totalSupport += effective
		if c.confidence > g.maxConf {
			g.maxConf = c.confidence
		}
		g.candidates = append(g.candidates, c)
		g.models[c.model] = true
	}

	ordered := make([]*valueGroup, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.support != b.support {
			return a.support > b.support
		}
		if a.maxConf != b.maxConf {
			return a.maxConf > b.maxConf
		}
		if pa, pb := e.bestPriority(a), e.bestPriority(b); pa != pb {
			return pa < pb
		}
		return a.normalized < b.normalized
	})
	winner := ordered[0]

	aggregated := 0.0
	if totalSupport > 0 {
		aggregated = winner.support / totalSupport
	}
	agreement := float64(len(winner.models)) / float64(len(responders))

	// Thin agreement under disagreement never counts as high confidence.
	if len(winner.models) < e.cfg.MinModelAgreement && len(responders) > 1 &&
		aggregated > e.cfg.LowAgreementCeiling {
		aggregated = e.cfg.LowAgreementCeiling
	}

	var contributing, dissenting []string
	for m := range responders {
		if winner.models[m] {
			contributing = append(contributing, m)
		} else {
			dissenting = append(dissenting, m)
		}
	}
	e.sortModels(contributing)
	e.sortModels(dissenting)

	return FieldConsensus{
		Field:                field,
		Value:                bestRawValue(winner),
		NormalizedValue:      winner.normalized,
		AggregatedConfidence: aggregated,
		AgreementLevel:       agreement,
		ContributingModels:   contributing,
		DissentingModels:     dissenting,
		DistinctValues:       len(groups),
	}
}

// bestRawValue picks the raw spelling reported with the highest confidence
// within the winning group.
func bestRawValue(g *valueGroup) string {
	best := g.candidates[0]
	for _, c := range g.candidates[1:] {
		if c.confidence > best.confidence {
			best = c
		}
	}
	return best.value
}

func (e *ConsensusEngine) bestPriority(g *valueGroup) int {
	best := len(e.cfg.ModelPriority) + 1
	for m := range g.models {
		if p, ok := e.priority[m]; ok && p < best {
			best = p
		}
	}
	return best
}

func (e *ConsensusEngine) sortModels(models []string) {
	sort.Slice(models, func(i, j int) bool {
		pi, iok := e.priority[models[i]]
		pj, jok := e.priority[models[j]]
		if iok && jok && pi != pj {
			return pi < pj
		}
		if iok != jok {
			return iok
		}
		return models[i] < models[j]
	})
}

// SoftwareDetected picks the garage software name reported by the highest
// priority model that reported one.
func (e *ConsensusEngine) SoftwareDetected(responses []ModelResult) string {
	best := ""
	bestPriority := len(e.cfg.ModelPriority) + 1
	for _, resp := range responses {
		if resp.Response == nil || resp.Response.SoftwareDetected == "" {
			continue
		}
		p, ok := e.priority[resp.Model]
		if !ok {
			p = len(e.cfg.ModelPriority)
		}
		if best == "" || p < bestPriority {
			best = resp.Response.SoftwareDetected
			bestPriority = p
		}
	}
	return best
}
