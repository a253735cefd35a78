package port

import "context"

// RegistryRecord is the authoritative vehicle record returned by the
// national registry for a registration.
type RegistryRecord struct {
	Registration      string `json:"registration"`
	Make              string `json:"make,omitempty"`
	Model             string `json:"model,omitempty"`
	Colour            string `json:"colour,omitempty"`
	FuelType          string `json:"fuel_type,omitempty"`
	MOTStatus         string `json:"mot_status,omitempty"`
	MOTExpiry         string `json:"mot_expiry,omitempty"`
	YearOfManufacture int    `json:"year_of_manufacture,omitempty"`
}

// VehicleRegistry looks up vehicles by registration in an external
// authority (DVLA Vehicle Enquiry Service in production).
//
// Lookup returns domain.ErrNotFound when the registry has no record for
// the registration, and domain.ErrRegistryUnavailable (possibly wrapped)
// when the registry cannot be reached. Callers must treat the two cases
// differently: a missing record is a mismatch signal, an unreachable
// registry is not.
type VehicleRegistry interface {
	Lookup(ctx context.Context, registration string) (*RegistryRecord, error)
}
