package claims

import (
	"fmt"
	"strings"
	"time"
)

// transitions is the forward-only edge set of the claim state machine.
// Draft is modelled but has no outgoing edge yet.
var transitions = map[Status][]Status{
	StatusSubmitted:   {StatusUnderReview, StatusApproved, StatusRejected},
	StatusUnderReview: {StatusApproved, StatusRejected},
	StatusApproved:    {StatusPaid},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s Status) []Status {
	return append([]Status(nil), transitions[s]...)
}

// author identifies whoever is recorded on notes produced by a transition.
type author struct {
	id   string
	name string
}

// applyTransition checks req against c and, only if every check passes,
// mutates c. On error c is left exactly as it was.
func applyTransition(c *Claim, req TransitionRequest, by author, now time.Time) error {
	if c.Status.IsTerminal() {
		return fmt.Errorf("%w: claim %s is %s and accepts no further transitions", ErrInvalidTransition, c.ID, c.Status)
	}
	if !CanTransition(c.Status, req.To) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, req.To)
	}

	reason := strings.TrimSpace(req.Reason)
	note := strings.TrimSpace(req.Note)
	if req.To != StatusApproved && req.ApprovedAmount != nil {
		return fmt.Errorf("%w: approved_amount is only accepted when approving", ErrValidation)
	}
	if req.To != StatusRejected && reason != "" {
		return fmt.Errorf("%w: reason is only accepted when rejecting", ErrValidation)
	}

	today := DateOf(now)
	var (
		label    string
		approved *Amount
		notes    []Note
	)
	switch req.To {
	case StatusUnderReview:
		label = EventUnderReview
	case StatusApproved:
		if req.ApprovedAmount == nil {
			return fmt.Errorf("%w: approved_amount is required", ErrValidation)
		}
		amt := *req.ApprovedAmount
		if !amt.IsPositive() {
			return fmt.Errorf("%w: approved_amount must be > 0", ErrValidation)
		}
		if amt > c.ClaimAmount {
			return fmt.Errorf("%w: approved_amount %s exceeds claim amount %s", ErrValidation, amt, c.ClaimAmount)
		}
		approved = &amt
		label = EventApproved
	case StatusRejected:
		if reason == "" {
			return fmt.Errorf("%w: rejection reason is required", ErrValidation)
		}
		label = EventRejected
		notes = append(notes, Note{AuthorID: by.id, Author: by.name, Date: today, Text: "Rejected: " + reason})
	case StatusPaid:
		label = EventPaymentProcessed
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, req.To)
	}
	if note != "" {
		notes = append(notes, Note{AuthorID: by.id, Author: by.name, Date: today, Text: note})
	}

	// All checks passed; mutate.
	c.Status = req.To
	if approved != nil {
		c.ApprovedAmount = approved
	}
	at := now.UTC()
	c.Timeline = append(c.Timeline, TimelineEvent{Event: label, Date: today.Ptr(), At: &at, Completed: true})
	c.Notes = append(c.Notes, notes...)
	c.UpdatedAt = now.UTC()
	return nil
}
