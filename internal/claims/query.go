package claims

import (
	"fmt"
	"sort"
	"strings"
)

// SortKey orders claim listings.
type SortKey string

const (
	SortNone          SortKey = ""
	SortID            SortKey = "id"
	SortSubmittedDate SortKey = "submitted_date"
	SortClaimAmount   SortKey = "claim_amount"
	SortPatientName   SortKey = "patient_name"
	SortHospitalName  SortKey = "hospital_name"
	SortStatus        SortKey = "status"
)

// Query narrows a claim listing. The zero value returns everything in insertion order.
type Query struct {
	Status Status
	Search string
	Sort   SortKey
	Desc   bool
}

// Validate rejects unknown filter values.
func (q Query) Validate() error {
	if q.Status != "" && !q.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, q.Status)
	}
	switch q.Sort {
	case SortNone, SortID, SortSubmittedDate, SortClaimAmount, SortPatientName, SortHospitalName, SortStatus:
	default:
		return fmt.Errorf("%w: unknown sort key %q", ErrValidation, q.Sort)
	}
	return nil
}

// Apply filters and sorts cs. The input slice is not modified.
func (q Query) Apply(cs []Claim) []Claim {
	term := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Claim, 0, len(cs))
	for _, c := range cs {
		if q.Status != "" && c.Status != q.Status {
			continue
		}
		if term != "" && !matches(c, term) {
			continue
		}
		out = append(out, c)
	}
	if q.Sort == SortNone {
		if q.Desc {
			for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
				out[i], out[j] = out[j], out[i]
			}
		}
		return out
	}
	less := lessFor(q.Sort)
	sort.SliceStable(out, func(i, j int) bool {
		if q.Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func matches(c Claim, term string) bool {
	for _, field := range []string{c.ID, c.PatientName, c.HospitalName, c.Diagnosis} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func lessFor(key SortKey) func(a, b Claim) bool {
	switch key {
	case SortSubmittedDate:
		return func(a, b Claim) bool { return a.SubmittedDate.Before(b.SubmittedDate.Time) }
	case SortClaimAmount:
		return func(a, b Claim) bool { return a.ClaimAmount < b.ClaimAmount }
	case SortPatientName:
		return func(a, b Claim) bool { return strings.ToLower(a.PatientName) < strings.ToLower(b.PatientName) }
	case SortHospitalName:
		return func(a, b Claim) bool { return strings.ToLower(a.HospitalName) < strings.ToLower(b.HospitalName) }
	case SortStatus:
		return func(a, b Claim) bool { return a.Status < b.Status }
	default:
		// Claim codes share a prefix, so compare by length first to keep CLM1000 after CLM999.
		return func(a, b Claim) bool {
			if len(a.ID) != len(b.ID) {
				return len(a.ID) < len(b.ID)
			}
			return a.ID < b.ID
		}
	}
}
