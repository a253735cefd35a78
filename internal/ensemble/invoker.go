package ensemble

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"motscan/internal/domain"
	"motscan/internal/port"
)

// ModelResult pairs one model's parsed response with its identity and
// static weight. Produced by the invoker, consumed by the consensus
// engine, never mutated.
type ModelResult struct {
	Model    string
	Weight   float64
	Response *port.ModelResponse
}

// ModelFailure records one model call that did not produce a usable
// response.
type ModelFailure struct {
	Model string           `json:"model"`
	Kind  domain.ErrorKind `json:"kind"`
	Error string           `json:"error,omitempty"`
}

// FanOutResult is everything the invoker learned from one fan-out.
type FanOutResult struct {
	Responses []ModelResult
	Failures  []ModelFailure
}

// ModelsUsed lists the models that responded, in completion order.
func (r *FanOutResult) ModelsUsed() []string {
	out := make([]string, 0, len(r.Responses))
	for _, resp := range r.Responses {
		out = append(out, resp.Model)
	}
	return out
}

// Invoker fans an extraction out to every configured vision model
// concurrently. Individual failures are isolated; the fan-out only fails
// as a whole when fewer than the required minimum of models respond.
type Invoker struct {
	clients        []port.VisionModel
	overallTimeout time.Duration
	minRequired    int
}

// NewInvoker creates an Invoker over the given clients.
func NewInvoker(clients []port.VisionModel, overallTimeout time.Duration, minRequired int) *Invoker {
	return &Invoker{
		clients:        clients,
		overallTimeout: overallTimeout,
		minRequired:    minRequired,
	}
}

type callOutcome struct {
	model    string
	weight   float64
	response *port.ModelResponse
	err      error
}

// Invoke calls every client concurrently and waits until all calls settle
// or the overall timeout fires, whichever comes first. Calls still
// outstanding at the deadline are recorded as timeout failures. Returns
// domain.ErrInsufficientModels when fewer than the configured minimum of
// models responded; partial failures otherwise degrade gracefully.
func (inv *Invoker) Invoke(ctx context.Context, input port.ExtractInput) (*FanOutResult, error) {
	overallCtx, cancel := context.WithTimeout(ctx, inv.overallTimeout)
	defer cancel()

	outcomes := make(chan callOutcome, len(inv.clients))
	var wg sync.WaitGroup
	for _, client := range inv.clients {
		wg.Add(1)
		go func(c port.VisionModel) {
			defer wg.Done()
			callCtx, callCancel := context.WithTimeout(overallCtx, c.Timeout())
			defer callCancel()
			resp, err := c.Extract(callCtx, input)
			outcomes <- callOutcome{model: c.Name(), weight: c.Weight(), response: resp, err: err}
		}(client)
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := &FanOutResult{}
	settled := make(map[string]bool, len(inv.clients))

collect:
	for settledCount := 0; settledCount < len(inv.clients); settledCount++ {
		select {
		case outcome, ok := <-outcomes:
			if !ok {
				break collect
			}
			record(result, settled, outcome)
		case <-overallCtx.Done():
			break collect
		}
	}

	// The deadline can race a call that settled just before it; select may
	// pick Done even while an outcome sits buffered. Take whatever already
	// arrived so it counts toward the minimum.
drain:
	for {
		select {
		case outcome, ok := <-outcomes:
			if !ok {
				break drain
			}
			record(result, settled, outcome)
		default:
			break drain
		}
	}

	// Anything not settled by the overall deadline counts as a timeout.
	for _, client := range inv.clients {
		if !settled[client.Name()] {
			log.Printf("ensemble.Invoker: model %s did not settle before overall timeout", client.Name())
			result.Failures = append(result.Failures, ModelFailure{
				Model: client.Name(),
				Kind:  domain.ErrorKindTimeout,
				Error: "overall timeout elapsed",
			})
		}
	}

	if len(result.Responses) < inv.minRequired {
		return result, fmt.Errorf("%d of %d models responded, need %d: %w",
			len(result.Responses), len(inv.clients), inv.minRequired, domain.ErrInsufficientModels)
	}
	return result, nil
}

func record(result *FanOutResult, settled map[string]bool, outcome callOutcome) {
	settled[outcome.model] = true
	if outcome.err != nil {
		kind := classifyModelError(outcome.err)
		log.Printf("ensemble.Invoker: model %s failed (%s): %v", outcome.model, kind, outcome.err)
		result.Failures = append(result.Failures, ModelFailure{
			Model: outcome.model,
			Kind:  kind,
			Error: outcome.err.Error(),
		})
		return
	}
	result.Responses = append(result.Responses, ModelResult{
		Model:    outcome.model,
		Weight:   outcome.weight,
		Response: outcome.response,
	})
}

func classifyModelError(err error) domain.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrorKindTimeout
	}
	return domain.ErrorKindModelUnavailable
}
