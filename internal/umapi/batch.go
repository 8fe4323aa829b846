package umapi

import (
	"context"
	"sync"
)

// ProvisionUsers creates the given users as independently scheduled
// concurrent operations. Outcomes preserve input order; invalid rows fail
// locally without consuming a network attempt, and one user's failure
// never blocks the rest of the batch.
func (c *Client) ProvisionUsers(ctx context.Context, users []User) []Outcome {
	outcomes := make([]Outcome, len(users))

	var wg sync.WaitGroup
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := c.CreateUser(ctx, &users[i])
			outcomes[i] = Outcome{Index: i, Value: value, Err: err}
		}(i)
	}
	wg.Wait()

	return outcomes
}

// DeprovisionUsers removes the given users from the organization with the
// same batch semantics as ProvisionUsers
func (c *Client) DeprovisionUsers(ctx context.Context, emails []string) []Outcome {
	outcomes := make([]Outcome, len(emails))

	var wg sync.WaitGroup
	for i := range emails {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := c.DeleteUser(ctx, emails[i])
			outcomes[i] = Outcome{Index: i, Value: value, Err: err}
		}(i)
	}
	wg.Wait()

	return outcomes
}

// BatchSummary condenses a list of outcomes for reporting
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Summarize counts successes and failures in a batch result
func Summarize(outcomes []Outcome) BatchSummary {
	summary := BatchSummary{Total: len(outcomes)}
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// OutcomeStatus renders one outcome for audit storage
func OutcomeStatus(outcome Outcome) (status, detail string) {
	if outcome.Err != nil {
		return "failed", outcome.Err.Error()
	}
	return "succeeded", ""
}
