package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"medclaim.org/internal/auth"
	"medclaim.org/internal/claims"
)

const recentClaimsLimit = 5

// Dashboard is the role-specific landing view. The concrete type is decided
// by the caller's role and tagged with it on the wire.
type Dashboard interface {
	dashboardRole() auth.Role
}

// HospitalDashboard shows submission totals and the latest submissions.
type HospitalDashboard struct {
	Role    auth.Role      `json:"role"`
	Summary claims.Summary `json:"summary"`
	Recent  []claims.Claim `json:"recent_claims"`
}

// InsuranceDashboard shows the review queue and approved claims awaiting payment.
type InsuranceDashboard struct {
	Role            auth.Role      `json:"role"`
	Summary         claims.Summary `json:"summary"`
	ReviewQueue     []claims.Claim `json:"review_queue"`
	AwaitingPayment []claims.Claim `json:"awaiting_payment"`
}

// PatientDashboard shows the patient's own claims with their progress.
type PatientDashboard struct {
	Role    auth.Role       `json:"role"`
	Summary claims.Summary  `json:"summary"`
	Claims  []claimResponse `json:"claims"`
}

func (HospitalDashboard) dashboardRole() auth.Role  { return auth.RoleHospital }
func (InsuranceDashboard) dashboardRole() auth.Role { return auth.RoleInsurance }
func (PatientDashboard) dashboardRole() auth.Role   { return auth.RolePatient }

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	d, err := buildDashboard(r.Context(), a.engine, id)
	if err != nil {
		handleClaimError(w, r, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func buildDashboard(ctx context.Context, e *claims.Engine, id auth.Identity) (Dashboard, error) {
	visible, err := e.List(ctx, id, claims.Query{})
	if err != nil {
		return nil, err
	}
	summary := claims.Summarize(visible)

	switch id.Role {
	case auth.RoleHospital:
		recent := claims.Query{Sort: claims.SortSubmittedDate, Desc: true}.Apply(visible)
		if len(recent) > recentClaimsLimit {
			recent = recent[:recentClaimsLimit]
		}
		return HospitalDashboard{Role: id.Role, Summary: summary, Recent: recent}, nil
	case auth.RoleInsurance:
		d := InsuranceDashboard{
			Role:            id.Role,
			Summary:         summary,
			ReviewQueue:     []claims.Claim{},
			AwaitingPayment: []claims.Claim{},
		}
		oldestFirst := claims.Query{Sort: claims.SortSubmittedDate}
		for _, c := range oldestFirst.Apply(visible) {
			switch {
			case c.Status.IsPending():
				d.ReviewQueue = append(d.ReviewQueue, c)
			case c.Status == claims.StatusApproved:
				d.AwaitingPayment = append(d.AwaitingPayment, c)
			}
		}
		return d, nil
	case auth.RolePatient:
		d := PatientDashboard{Role: id.Role, Summary: summary, Claims: make([]claimResponse, 0, len(visible))}
		for _, c := range visible {
			d.Claims = append(d.Claims, newClaimResponse(id, c))
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: no dashboard for role %q", claims.ErrUnauthorized, id.Role)
	}
}
