package claims

// milestones are the forward path a claim can still walk, in order.
var milestones = []struct {
	label   string
	reached func(Status) bool
}{
	{EventUnderReview, func(s Status) bool { return s != StatusSubmitted && s != StatusDraft }},
	{EventApproved, Status.IsApproved},
	{EventPaymentProcessed, func(s Status) bool { return s == StatusPaid }},
}

// Progress returns the recorded timeline followed by the milestones not yet
// reached, each pending with no date. A rejected claim has nothing pending.
func Progress(c Claim) []TimelineEvent {
	out := c.Clone().Timeline
	if c.Status.IsTerminal() {
		return out
	}
	seen := make(map[string]bool, len(out))
	for _, ev := range out {
		seen[ev.Event] = true
	}
	for _, m := range milestones {
		if m.reached(c.Status) || seen[m.label] {
			continue
		}
		out = append(out, TimelineEvent{Event: m.label})
	}
	return out
}
