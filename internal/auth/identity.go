package auth

import (
	"fmt"
	"strings"
)

// Role is the single authorization axis of a session. Wire values are lower-case.
type Role string

const (
	RoleHospital  Role = "hospital"
	RoleInsurance Role = "insurance"
	RolePatient   Role = "patient"
)

// Roles lists every role in display order.
var Roles = []Role{RoleHospital, RoleInsurance, RolePatient}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleHospital, RoleInsurance, RolePatient:
		return true
	}
	return false
}

// ParseRole normalizes a role string and rejects unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return r, nil
}

// Identity is the acting party supplied by the session provider.
// PatientID is only meaningful for RolePatient.
type Identity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Role      Role   `json:"role"`
	PatientID string `json:"patient_id,omitempty"`
}

// Validate checks the identity is usable as an actor.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: identity id is required", ErrInvalidInput)
	}
	if !i.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, i.Role)
	}
	if i.Role == RolePatient && strings.TrimSpace(i.PatientID) == "" {
		return fmt.Errorf("%w: patient identity requires patient_id", ErrInvalidInput)
	}
	return nil
}

// DisplayName falls back to the id when no name is set.
func (i Identity) DisplayName() string {
	if n := strings.TrimSpace(i.Name); n != "" {
		return n
	}
	return i.ID
}
