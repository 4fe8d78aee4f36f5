package claims

import "sort"

// Summary is the aggregate view over a claim set.
type Summary struct {
	TotalClaims         int            `json:"total_claims"`
	PendingClaims       int            `json:"pending_claims"`
	ApprovedClaims      int            `json:"approved_claims"`
	RejectedClaims      int            `json:"rejected_claims"`
	TotalClaimAmount    Amount         `json:"total_claim_amount"`
	TotalApprovedAmount Amount         `json:"total_approved_amount"`
	ApprovalRate        float64        `json:"approval_rate"`
	Monthly             []MonthlyTotal `json:"monthly_data"`
}

// MonthlyTotal aggregates claims by submission month.
type MonthlyTotal struct {
	Month  string `json:"month"` // 2006-01
	Label  string `json:"label"` // Jan
	Claims int    `json:"claims"`
	Amount Amount `json:"amount"`
}

// Summarize recomputes the summary from scratch. An empty set yields zeros.
func Summarize(cs []Claim) Summary {
	s := Summary{Monthly: []MonthlyTotal{}}
	byMonth := make(map[string]*MonthlyTotal)
	for _, c := range cs {
		s.TotalClaims++
		switch {
		case c.Status.IsPending():
			s.PendingClaims++
		case c.Status.IsApproved():
			s.ApprovedClaims++
		case c.Status == StatusRejected:
			s.RejectedClaims++
		}
		s.TotalClaimAmount += c.ClaimAmount
		if c.ApprovedAmount != nil {
			s.TotalApprovedAmount += *c.ApprovedAmount
		}

		key := c.SubmittedDate.MonthKey()
		m, ok := byMonth[key]
		if !ok {
			m = &MonthlyTotal{Month: key, Label: c.SubmittedDate.Format("Jan")}
			byMonth[key] = m
		}
		m.Claims++
		m.Amount += c.ClaimAmount
	}
	if s.TotalClaims > 0 {
		s.ApprovalRate = float64(s.ApprovedClaims) / float64(s.TotalClaims)
	}
	for _, m := range byMonth {
		s.Monthly = append(s.Monthly, *m)
	}
	sort.Slice(s.Monthly, func(i, j int) bool { return s.Monthly[i].Month < s.Monthly[j].Month })
	return s
}
