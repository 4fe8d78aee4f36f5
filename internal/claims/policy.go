package claims

import (
	"fmt"

	"medclaim.org/internal/auth"
)

// Action is something an identity may try to do with claims.
type Action string

const (
	ActionView           Action = "claims.view"
	ActionCreate         Action = "claims.create"
	ActionTransition     Action = "claims.transition"
	ActionAttachDocument Action = "claims.document.attach"
	ActionAddNote        Action = "claims.note.add"
	ActionAnalytics      Action = "claims.analytics"
)

// policy is the role -> permitted actions matrix.
// Hospitals see every claim: a deployment serves a single hospital.
var policy = map[auth.Role]map[Action]bool{
	auth.RoleHospital: {
		ActionView:      true,
		ActionCreate:    true,
		ActionAnalytics: true,
	},
	auth.RoleInsurance: {
		ActionView:       true,
		ActionTransition: true,
		ActionAddNote:    true,
		ActionAnalytics:  true,
	},
	auth.RolePatient: {
		ActionView:           true,
		ActionAttachDocument: true,
		ActionAnalytics:      true,
	},
}

// Allowed reports whether role may perform action at all.
func Allowed(role auth.Role, action Action) bool {
	return policy[role][action]
}

// Authorize checks the role-level part of the matrix.
func Authorize(id auth.Identity, action Action) error {
	if err := id.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !Allowed(id.Role, action) {
		return fmt.Errorf("%w: %s may not %s", ErrUnauthorized, id.Role, action)
	}
	return nil
}

// AuthorizeClaim checks the role-level matrix plus per-record ownership.
// Another patient's claim is an authorization failure, not a not-found:
// claim ids are sequential CLM codes, so their existence is not hidden.
func AuthorizeClaim(id auth.Identity, action Action, c Claim) error {
	if err := Authorize(id, action); err != nil {
		return err
	}
	if !VisibleTo(id, c.PatientID) {
		return fmt.Errorf("%w: claim %s belongs to another patient", ErrUnauthorized, c.ID)
	}
	return nil
}

// VisibleTo reports whether a claim for patientID may be seen by id.
func VisibleTo(id auth.Identity, patientID string) bool {
	switch id.Role {
	case auth.RoleHospital, auth.RoleInsurance:
		return true
	case auth.RolePatient:
		return id.PatientID != "" && id.PatientID == patientID
	default:
		return false
	}
}

// Visible filters cs down to what id may see, keeping order.
func Visible(id auth.Identity, cs []Claim) []Claim {
	out := make([]Claim, 0, len(cs))
	for _, c := range cs {
		if VisibleTo(id, c.PatientID) {
			out = append(out, c)
		}
	}
	return out
}
