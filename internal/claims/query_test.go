package claims

import (
	"errors"
	"testing"
)

func queryFixture() []Claim {
	return []Claim{
		{ID: "CLM002", PatientName: "Jane Smith", HospitalName: "City General Hospital", Diagnosis: "Diabetes Management", SubmittedDate: MustDate("2024-11-29"), ClaimAmount: 4500000, Status: StatusUnderReview},
		{ID: "CLM010", PatientName: "robert johnson", HospitalName: "City General Hospital", Diagnosis: "Fractured Leg", SubmittedDate: MustDate("2024-12-02"), ClaimAmount: 8500000, Status: StatusSubmitted},
		{ID: "CLM001", PatientName: "John Doe", HospitalName: "Mercy Hospital", Diagnosis: "Acute Appendicitis", SubmittedDate: MustDate("2024-11-26"), ClaimAmount: 12500000, Status: StatusApproved},
		{ID: "CLM1000", PatientName: "Emily Davis", HospitalName: "Mercy Hospital", Diagnosis: "Cardiac Check-up", SubmittedDate: MustDate("2024-11-21"), ClaimAmount: 3500000, Status: StatusPaid},
	}
}

func claimIDs(cs []Claim) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQueryApply(t *testing.T) {
	cases := []struct {
		name string
		q    Query
		want []string
	}{
		{"zero value keeps order", Query{}, []string{"CLM002", "CLM010", "CLM001", "CLM1000"}},
		{"reverse insertion", Query{Desc: true}, []string{"CLM1000", "CLM001", "CLM010", "CLM002"}},
		{"status filter", Query{Status: StatusSubmitted}, []string{"CLM010"}},
		{"search patient case-insensitive", Query{Search: "ROBERT"}, []string{"CLM010"}},
		{"search hospital", Query{Search: "mercy"}, []string{"CLM001", "CLM1000"}},
		{"search diagnosis", Query{Search: "cardiac"}, []string{"CLM1000"}},
		{"search id", Query{Search: "clm00"}, []string{"CLM002", "CLM001"}},
		{"sort id", Query{Sort: SortID}, []string{"CLM001", "CLM002", "CLM010", "CLM1000"}},
		{"sort amount desc", Query{Sort: SortClaimAmount, Desc: true}, []string{"CLM001", "CLM010", "CLM002", "CLM1000"}},
		{"sort submitted", Query{Sort: SortSubmittedDate}, []string{"CLM1000", "CLM001", "CLM002", "CLM010"}},
		{"sort patient", Query{Sort: SortPatientName}, []string{"CLM1000", "CLM002", "CLM001", "CLM010"}},
		{"filter and sort", Query{Search: "city", Sort: SortClaimAmount}, []string{"CLM002", "CLM010"}},
		{"no match", Query{Search: "dental"}, []string{}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			in := queryFixture()
			got := claimIDs(tc.q.Apply(in))
			if !equalIDs(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			if !equalIDs(claimIDs(in), claimIDs(queryFixture())) {
				t.Fatalf("input slice reordered")
			}
		})
	}
}

func TestQueryValidate(t *testing.T) {
	if err := (Query{Status: "archived"}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for status, got %v", err)
	}
	if err := (Query{Sort: "diagnosis"}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for sort, got %v", err)
	}
	if err := (Query{Status: StatusPaid, Sort: SortStatus}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
