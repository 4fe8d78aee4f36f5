package claims

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a claim. The string values are the wire form.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusPaid        Status = "paid"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusPaid}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusPaid
}

// IsPending reports the statuses still awaiting a decision.
func (s Status) IsPending() bool {
	return s == StatusSubmitted || s == StatusUnderReview
}

// IsApproved reports the statuses that carry an approved amount.
func (s Status) IsApproved() bool {
	return s == StatusApproved || s == StatusPaid
}

// Label is the human-readable form used in timelines and dashboards.
func (s Status) Label() string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusSubmitted:
		return "Submitted"
	case StatusUnderReview:
		return "Under Review"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	case StatusPaid:
		return "Paid"
	default:
		return string(s)
	}
}

// ParseStatus normalizes and validates a wire status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
	}
	return s, nil
}

// Timeline labels.
const (
	EventSubmitted        = "Claim Submitted"
	EventDocumentsUpload  = "Documents Uploaded"
	EventUnderReview      = "Under Review"
	EventApproved         = "Approved"
	EventRejected         = "Rejected"
	EventPaymentProcessed = "Payment Processed"
	EventDocumentUploaded = "Document Uploaded"
)

// TimelineEvent marks one lifecycle milestone. At is the instant it was
// recorded; Date is the calendar day shown to users.
type TimelineEvent struct {
	Event     string     `json:"event"`
	Date      *Date      `json:"date"`
	At        *time.Time `json:"at,omitempty"`
	Completed bool       `json:"completed"`
}

// Note is a free-text annotation left by a reviewer.
type Note struct {
	AuthorID string `json:"author_id"`
	Author   string `json:"user"`
	Date     Date   `json:"date"`
	Text     string `json:"note"`
}

// DocumentType classifies an attached document.
type DocumentType string

const (
	DocMedicalBill      DocumentType = "medical_bill"
	DocPrescription     DocumentType = "prescription"
	DocLabReport        DocumentType = "lab_report"
	DocDischargeSummary DocumentType = "discharge_summary"
	DocIDProof          DocumentType = "id_proof"
	DocInsuranceCard    DocumentType = "insurance_card"
	DocOther            DocumentType = "other"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocMedicalBill, DocPrescription, DocLabReport, DocDischargeSummary, DocIDProof, DocInsuranceCard, DocOther:
		return true
	}
	return false
}

// Document is a reference to an uploaded file. File bytes are never held here.
type Document struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Type       DocumentType `json:"type"`
	SizeBytes  int64        `json:"size_bytes,omitempty"`
	UploadedAt time.Time    `json:"uploaded_at"`
	UploadedBy string       `json:"uploaded_by,omitempty"`
}

// Claim is a reimbursement request submitted by a hospital on behalf of a patient.
type Claim struct {
	ID               string          `json:"id"`
	PatientName      string          `json:"patient_name"`
	PatientID        string          `json:"patient_id"`
	HospitalName     string          `json:"hospital_name"`
	Diagnosis        string          `json:"diagnosis"`
	TreatmentDate    Date            `json:"treatment_date"`
	SubmittedDate    Date            `json:"submitted_date"`
	ClaimAmount      Amount          `json:"claim_amount"`
	ApprovedAmount   *Amount         `json:"approved_amount"`
	Currency         string          `json:"currency"`
	Status           Status          `json:"status"`
	InsuranceCompany string          `json:"insurance_company"`
	Documents        []Document      `json:"documents"`
	Timeline         []TimelineEvent `json:"timeline"`
	Notes            []Note          `json:"notes"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Clone returns a deep copy so callers never share slices with the store.
func (c Claim) Clone() Claim {
	out := c
	if c.ApprovedAmount != nil {
		v := *c.ApprovedAmount
		out.ApprovedAmount = &v
	}
	out.Documents = append([]Document(nil), c.Documents...)
	out.Notes = append([]Note(nil), c.Notes...)
	out.Timeline = make([]TimelineEvent, len(c.Timeline))
	for i, ev := range c.Timeline {
		if ev.Date != nil {
			d := *ev.Date
			ev.Date = &d
		}
		if ev.At != nil {
			at := *ev.At
			ev.At = &at
		}
		out.Timeline[i] = ev
	}
	return out
}

// CheckInvariants verifies the approved-amount rules tied to the status.
func (c Claim) CheckInvariants() error {
	if c.ClaimAmount <= 0 {
		return fmt.Errorf("%w: claim %s has non-positive claim amount", ErrValidation, c.ID)
	}
	switch {
	case c.Status.IsApproved():
		if c.ApprovedAmount == nil {
			return fmt.Errorf("%w: claim %s is %s without approved amount", ErrValidation, c.ID, c.Status)
		}
		if *c.ApprovedAmount <= 0 || *c.ApprovedAmount > c.ClaimAmount {
			return fmt.Errorf("%w: claim %s approved amount out of range", ErrValidation, c.ID)
		}
	case c.ApprovedAmount != nil:
		return fmt.Errorf("%w: claim %s is %s but carries an approved amount", ErrValidation, c.ID, c.Status)
	}
	return nil
}

// ApprovedAt returns when the claim was approved, read from its timeline.
// Timelines recorded without instants fall back to UpdatedAt.
func (c Claim) ApprovedAt() (time.Time, bool) {
	if !c.Status.IsApproved() {
		return time.Time{}, false
	}
	for i := len(c.Timeline) - 1; i >= 0; i-- {
		if ev := c.Timeline[i]; ev.Event == EventApproved && ev.At != nil {
			return ev.At.UTC(), true
		}
	}
	return c.UpdatedAt, true
}

// ClaimInput carries the fields a hospital supplies when submitting a claim.
type ClaimInput struct {
	PatientName      string
	PatientID        string
	HospitalName     string
	Diagnosis        string
	TreatmentDate    Date
	ClaimAmount      Amount
	Currency         string
	InsuranceCompany string
	Documents        []string
}

// TransitionRequest asks the engine to move a claim to a new status.
type TransitionRequest struct {
	To             Status
	ApprovedAmount *Amount
	Reason         string
	Note           string
}

// DocumentInput describes a file the patient attaches to a claim.
type DocumentInput struct {
	Name      string
	Type      DocumentType
	SizeBytes int64
}
