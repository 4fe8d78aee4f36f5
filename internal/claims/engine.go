package claims

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medclaim.org/internal/auth"
	"medclaim.org/internal/ids"
)

const (
	defaultCurrency = "INR"
	maxNoteLength   = 2000

	// SystemActorID is recorded for transitions fired by the payment trigger.
	SystemActorID = "system"
)

// EventType names a change the engine made to a claim.
type EventType string

const (
	EventCreated          EventType = "claim.created"
	EventTransitioned     EventType = "claim.transitioned"
	EventDocumentAttached EventType = "claim.document_attached"
	EventNoteAdded        EventType = "claim.note_added"
)

// Event describes one successful mutation. Claim is the record after it.
type Event struct {
	Type      EventType
	ClaimID   string
	PatientID string
	From      Status
	To        Status
	ActorID   string
	ActorRole string
	At        time.Time
	Claim     Claim
}

// Listener observes successful mutations. It runs synchronously after the
// store has committed and must not call back into the engine for the same claim.
type Listener func(ctx context.Context, ev Event)

// Engine owns the claim lifecycle: it checks the access policy, validates
// transitions and appends timeline entries.
type Engine struct {
	store     Store
	now       func() time.Time
	insurer   string
	currency  string
	listeners []Listener
}

// Option configures Engine.
type Option func(*Engine)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

// WithDefaultInsurer sets the insurer recorded when the input names none.
func WithDefaultInsurer(name string) Option {
	return func(e *Engine) {
		if name = strings.TrimSpace(name); name != "" {
			e.insurer = name
		}
	}
}

// WithCurrency sets the currency recorded when the input names none.
func WithCurrency(code string) Option {
	return func(e *Engine) {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			e.currency = code
		}
	}
}

// WithListener registers l for every successful mutation.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

// NewEngine wires an engine on top of store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		now:      time.Now,
		currency: defaultCurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying store, e.g. for readiness probes.
func (e *Engine) Store() Store { return e.store }

// Create submits a new claim on behalf of a hospital.
func (e *Engine) Create(ctx context.Context, actor auth.Identity, in ClaimInput) (Claim, error) {
	if err := Authorize(actor, ActionCreate); err != nil {
		return Claim{}, err
	}
	now := e.now().UTC()
	c, err := e.newClaim(in, actor, now)
	if err != nil {
		return Claim{}, err
	}
	created, err := e.store.Create(ctx, c)
	if err != nil {
		return Claim{}, fmt.Errorf("create claim: %w", err)
	}
	e.emit(ctx, Event{
		Type:      EventCreated,
		ClaimID:   created.ID,
		PatientID: created.PatientID,
		To:        created.Status,
		ActorID:   actor.ID,
		ActorRole: string(actor.Role),
		At:        now,
		Claim:     created,
	})
	return created, nil
}

func (e *Engine) newClaim(in ClaimInput, actor auth.Identity, now time.Time) (Claim, error) {
	fields := []struct {
		name  string
		value *string
	}{
		{"patient_name", &in.PatientName},
		{"patient_id", &in.PatientID},
		{"hospital_name", &in.HospitalName},
		{"diagnosis", &in.Diagnosis},
	}
	for _, f := range fields {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			return Claim{}, fmt.Errorf("%w: %s is required", ErrValidation, f.name)
		}
	}
	if in.TreatmentDate.IsZero() {
		return Claim{}, fmt.Errorf("%w: treatment_date is required", ErrValidation)
	}
	today := DateOf(now)
	if in.TreatmentDate.After(today.Time) {
		return Claim{}, fmt.Errorf("%w: treatment_date %s is in the future", ErrValidation, in.TreatmentDate)
	}
	if !in.ClaimAmount.IsPositive() {
		return Claim{}, fmt.Errorf("%w: claim_amount must be > 0", ErrValidation)
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = e.currency
	}
	if len(currency) != 3 {
		return Claim{}, fmt.Errorf("%w: currency must be a 3-letter code", ErrValidation)
	}
	insurer := strings.TrimSpace(in.InsuranceCompany)
	if insurer == "" {
		insurer = e.insurer
	}

	docs := make([]Document, 0, len(in.Documents))
	for _, name := range in.Documents {
		name = strings.TrimSpace(name)
		if name == "" {
			return Claim{}, fmt.Errorf("%w: document names must not be empty", ErrValidation)
		}
		docs = append(docs, Document{
			ID:         ids.New(),
			Name:       name,
			Type:       DocOther,
			UploadedAt: now,
			UploadedBy: actor.ID,
		})
	}

	return Claim{
		PatientName:      in.PatientName,
		PatientID:        in.PatientID,
		HospitalName:     in.HospitalName,
		Diagnosis:        in.Diagnosis,
		TreatmentDate:    in.TreatmentDate,
		SubmittedDate:    today,
		ClaimAmount:      in.ClaimAmount,
		Currency:         currency,
		Status:           StatusSubmitted,
		InsuranceCompany: insurer,
		Documents:        docs,
		Timeline: []TimelineEvent{
			{Event: EventSubmitted, Date: today.Ptr(), At: &now, Completed: true},
			{Event: EventDocumentsUpload, Date: today.Ptr(), At: &now, Completed: true},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Get returns one claim if actor may see it.
func (e *Engine) Get(ctx context.Context, actor auth.Identity, id string) (Claim, error) {
	if err := Authorize(actor, ActionView); err != nil {
		return Claim{}, err
	}
	c, err := e.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return Claim{}, err
	}
	if err := AuthorizeClaim(actor, ActionView, c); err != nil {
		return Claim{}, err
	}
	return c, nil
}

// List returns the claims visible to actor, filtered and sorted by q.
func (e *Engine) List(ctx context.Context, actor auth.Identity, q Query) ([]Claim, error) {
	if err := Authorize(actor, ActionView); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	all, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return q.Apply(Visible(actor, all)), nil
}

// ApplyTransition moves a claim along the state machine on behalf of actor.
func (e *Engine) ApplyTransition(ctx context.Context, actor auth.Identity, id string, req TransitionRequest) (Claim, error) {
	if !req.To.Valid() {
		return Claim{}, fmt.Errorf("%w: unknown status %q", ErrValidation, req.To)
	}
	if err := Authorize(actor, ActionTransition); err != nil {
		return Claim{}, err
	}
	by := author{id: actor.ID, name: actor.DisplayName()}
	return e.transition(ctx, id, req, by, string(actor.Role), func(c Claim) error {
		return AuthorizeClaim(actor, ActionTransition, c)
	})
}

// ProcessPayment is the automated payment trigger: approved -> paid.
func (e *Engine) ProcessPayment(ctx context.Context, id string) (Claim, error) {
	by := author{id: SystemActorID, name: "Automated Payment"}
	return e.transition(ctx, id, TransitionRequest{To: StatusPaid}, by, SystemActorID, nil)
}

func (e *Engine) transition(ctx context.Context, id string, req TransitionRequest, by author, role string, check func(Claim) error) (Claim, error) {
	now := e.now().UTC()
	var from Status
	updated, err := e.store.Mutate(ctx, strings.TrimSpace(id), func(c *Claim) error {
		if check != nil {
			if err := check(*c); err != nil {
				return err
			}
		}
		from = c.Status
		return applyTransition(c, req, by, now)
	})
	if err != nil {
		return Claim{}, err
	}
	e.emit(ctx, Event{
		Type:      EventTransitioned,
		ClaimID:   updated.ID,
		PatientID: updated.PatientID,
		From:      from,
		To:        updated.Status,
		ActorID:   by.id,
		ActorRole: role,
		At:        now,
		Claim:     updated,
	})
	return updated, nil
}

// AttachDocument appends a document reference to the patient's own claim.
func (e *Engine) AttachDocument(ctx context.Context, actor auth.Identity, id string, in DocumentInput) (Document, error) {
	if err := Authorize(actor, ActionAttachDocument); err != nil {
		return Document{}, err
	}
	now := e.now().UTC()
	var doc Document
	updated, err := e.store.Mutate(ctx, strings.TrimSpace(id), func(c *Claim) error {
		if err := AuthorizeClaim(actor, ActionAttachDocument, *c); err != nil {
			return err
		}
		normalized, err := ValidateDocument(in)
		if err != nil {
			return err
		}
		doc = Document{
			ID:         ids.New(),
			Name:       normalized.Name,
			Type:       normalized.Type,
			SizeBytes:  normalized.SizeBytes,
			UploadedAt: now,
			UploadedBy: actor.ID,
		}
		c.Documents = append(c.Documents, doc)
		c.Timeline = append(c.Timeline, TimelineEvent{Event: EventDocumentUploaded, Date: DateOf(now).Ptr(), At: &now, Completed: true})
		c.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	e.emit(ctx, Event{
		Type:      EventDocumentAttached,
		ClaimID:   updated.ID,
		PatientID: updated.PatientID,
		From:      updated.Status,
		To:        updated.Status,
		ActorID:   actor.ID,
		ActorRole: string(actor.Role),
		At:        now,
		Claim:     updated,
	})
	return doc, nil
}

// AddNote appends a reviewer note.
func (e *Engine) AddNote(ctx context.Context, actor auth.Identity, id, text string) (Claim, error) {
	if err := Authorize(actor, ActionAddNote); err != nil {
		return Claim{}, err
	}
	now := e.now().UTC()
	updated, err := e.store.Mutate(ctx, strings.TrimSpace(id), func(c *Claim) error {
		if err := AuthorizeClaim(actor, ActionAddNote, *c); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return fmt.Errorf("%w: note text is required", ErrValidation)
		}
		if len(text) > maxNoteLength {
			return fmt.Errorf("%w: note exceeds %d characters", ErrValidation, maxNoteLength)
		}
		c.Notes = append(c.Notes, Note{AuthorID: actor.ID, Author: actor.DisplayName(), Date: DateOf(now), Text: text})
		c.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Claim{}, err
	}
	e.emit(ctx, Event{
		Type:      EventNoteAdded,
		ClaimID:   updated.ID,
		PatientID: updated.PatientID,
		From:      updated.Status,
		To:        updated.Status,
		ActorID:   actor.ID,
		ActorRole: string(actor.Role),
		At:        now,
		Claim:     updated,
	})
	return updated, nil
}

// Analytics summarizes the claims visible to actor.
func (e *Engine) Analytics(ctx context.Context, actor auth.Identity) (Summary, error) {
	if err := Authorize(actor, ActionAnalytics); err != nil {
		return Summary{}, err
	}
	all, err := e.store.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list claims: %w", err)
	}
	return Summarize(Visible(actor, all)), nil
}

// Payable lists approved claims whose approval is at least settle old. Notes
// and uploads made after approval do not delay payment.
func (e *Engine) Payable(ctx context.Context, settle time.Duration) ([]string, error) {
	all, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	cutoff := e.now().UTC().Add(-settle)
	var out []string
	for _, c := range all {
		if c.Status != StatusApproved {
			continue
		}
		if at, ok := c.ApprovedAt(); ok && !at.After(cutoff) {
			out = append(out, c.ID)
		}
	}
	return out, nil
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	for _, l := range e.listeners {
		l(ctx, ev)
	}
}
