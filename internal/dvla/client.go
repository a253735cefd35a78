// Package dvla implements a client for the DVLA Vehicle Enquiry Service.
package dvla

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"motscan/internal/config"
	"motscan/internal/domain"
	"motscan/internal/port"
	"motscan/internal/validation"
)

const apiURL = "https://driver-vehicle-licensing.api.gov.uk/vehicle-enquiry/v1/vehicles"

// Client implements port.VehicleRegistry against the DVLA Vehicle Enquiry
// Service. Outbound calls are rate limited to stay inside the service's
// quota.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a DVLA client from configuration.
func NewClient(cfg config.DVLAConfig) *Client {
	endpoint := cfg.APIURL
	if endpoint == "" {
		endpoint = apiURL
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 5
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = int(limit)
	}
	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(limit), burst),
	}
}

// vehicleResponse models the Vehicle Enquiry Service response body.
type vehicleResponse struct {
	RegistrationNumber string `json:"registrationNumber"`
	Make               string `json:"make"`
	Colour             string `json:"colour"`
	FuelType           string `json:"fuelType"`
	MOTStatus          string `json:"motStatus"`
	MOTExpiryDate      string `json:"motExpiryDate"`
	YearOfManufacture  int    `json:"yearOfManufacture"`
}

// Lookup fetches the registry record for a registration. Returns
// domain.ErrNotFound when DVLA has no record, and wraps
// domain.ErrRegistryUnavailable on transport failures and server errors.
func (c *Client) Lookup(ctx context.Context, registration string) (*port.RegistryRecord, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("dvla api key not configured: %w", domain.ErrRegistryUnavailable)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	payload, err := json.Marshal(map[string]string{
		"registrationNumber": validation.NormalizeRegistration(registration),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling dvla API: %v: %w", err, domain.ErrRegistryUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("dvla rejected registration: %s", string(body))
	default:
		return nil, fmt.Errorf("dvla API error (status %d): %s: %w",
			resp.StatusCode, string(body), domain.ErrRegistryUnavailable)
	}

	var vehicle vehicleResponse
	if err := json.Unmarshal(body, &vehicle); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	return &port.RegistryRecord{
		Registration:      vehicle.RegistrationNumber,
		Make:              vehicle.Make,
		Colour:            vehicle.Colour,
		FuelType:          vehicle.FuelType,
		MOTStatus:         vehicle.MOTStatus,
		MOTExpiry:         vehicle.MOTExpiryDate,
		YearOfManufacture: vehicle.YearOfManufacture,
	}, nil
}
