package claims

import (
	"context"
	"fmt"
	"time"

	"medclaim.org/internal/ids"
)

type seedClaim struct {
	patientName, patientID, hospital, diagnosis string
	treatment, submitted                        string
	amount                                      Amount
	approved                                    *Amount
	status                                      Status
	documents                                   []string
}

// demoClaims are amounts in rupees; Seed converts them to paise.
var demoClaims = []seedClaim{
	{"John Doe", "PAT123", "City General Hospital", "Acute Appendicitis", "2024-11-25", "2024-11-26", 125000, AmountPtr(125000), StatusApproved, []string{"Medical Bill", "Discharge Summary", "Lab Reports"}},
	{"Jane Smith", "PAT124", "City General Hospital", "Diabetes Management", "2024-11-28", "2024-11-29", 45000, nil, StatusUnderReview, []string{"Medical Bill", "Prescription"}},
	{"Robert Johnson", "PAT125", "City General Hospital", "Fractured Leg", "2024-12-01", "2024-12-02", 85000, nil, StatusSubmitted, []string{"Medical Bill", "X-Ray Reports"}},
	{"Emily Davis", "PAT126", "Mercy Hospital", "Cardiac Check-up", "2024-11-20", "2024-11-21", 35000, AmountPtr(30000), StatusPaid, []string{"Medical Bill", "ECG Report"}},
}

// Seed loads the demo claims into an empty store. A store that already holds
// claims is left alone.
func Seed(ctx context.Context, store Store, insurer string) (int, error) {
	existing, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: list: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	if insurer == "" {
		insurer = "HealthGuard Insurance"
	}
	for _, s := range demoClaims {
		c := s.build(insurer)
		if err := c.CheckInvariants(); err != nil {
			return 0, fmt.Errorf("seed: %w", err)
		}
		if _, err := store.Create(ctx, c); err != nil {
			return 0, fmt.Errorf("seed: create: %w", err)
		}
	}
	return len(demoClaims), nil
}

func (s seedClaim) build(insurer string) Claim {
	submitted := MustDate(s.submitted)
	at := submitted.Time.Add(9 * time.Hour)
	day := func(n int) *Date { return DateOf(submitted.AddDate(0, 0, n)).Ptr() }
	stamp := func(n int) *time.Time { t := at.AddDate(0, 0, n); return &t }

	c := Claim{
		PatientName:      s.patientName,
		PatientID:        s.patientID,
		HospitalName:     s.hospital,
		Diagnosis:        s.diagnosis,
		TreatmentDate:    MustDate(s.treatment),
		SubmittedDate:    submitted,
		ClaimAmount:      s.amount * 100,
		Currency:         defaultCurrency,
		Status:           s.status,
		InsuranceCompany: insurer,
		Timeline: []TimelineEvent{
			{Event: EventSubmitted, Date: submitted.Ptr(), At: stamp(0), Completed: true},
			{Event: EventDocumentsUpload, Date: submitted.Ptr(), At: stamp(0), Completed: true},
		},
		Notes: []Note{
			{AuthorID: "1", Author: "Hospital Admin", Date: submitted, Text: "Claim submitted with all required documents."},
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
	if s.approved != nil {
		c.ApprovedAmount = AmountPtr(*s.approved * 100)
	}
	for _, name := range s.documents {
		c.Documents = append(c.Documents, Document{ID: ids.New(), Name: name, Type: DocOther, UploadedAt: at, UploadedBy: "1"})
	}
	if s.status != StatusSubmitted {
		c.Timeline = append(c.Timeline, TimelineEvent{Event: EventUnderReview, Date: day(1), At: stamp(1), Completed: true})
		c.Notes = append(c.Notes, Note{AuthorID: "2", Author: "Insurance Reviewer", Date: *day(1), Text: "Started document verification."})
	}
	if s.status.IsApproved() {
		c.Timeline = append(c.Timeline, TimelineEvent{Event: EventApproved, Date: day(3), At: stamp(3), Completed: true})
	}
	if s.status == StatusPaid {
		c.Timeline = append(c.Timeline, TimelineEvent{Event: EventPaymentProcessed, Date: day(5), At: stamp(5), Completed: true})
	}
	c.UpdatedAt = *c.Timeline[len(c.Timeline)-1].At
	return c
}
