package broadcast

import "github.com/samber/lo"

// Summary is the report of one broadcast.
type Summary struct {
	TotalRecipients int
	DeliveredCount  int
	FailedCount     int
	Outcomes        []Outcome
}

// Aggregate folds outcomes into a Summary. Outcomes are kept in order.
func Aggregate(outcomes []Outcome) Summary {
	delivered := lo.CountBy(outcomes, func(o Outcome) bool { return o.Delivered() })
	return Summary{
		TotalRecipients: len(outcomes),
		DeliveredCount:  delivered,
		FailedCount:     len(outcomes) - delivered,
		Outcomes:        outcomes,
	}
}
