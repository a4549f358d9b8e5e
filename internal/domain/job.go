package domain

import "fmt"

// Action is an operator-triggered batch action.
type Action uint8

const (
	ActionExport Action = iota
	ActionDeposit
	ActionMarkRegistered
	ActionMarkUnregistered
)

func (a Action) String() string {
	switch a {
	case ActionExport:
		return "export"
	case ActionDeposit:
		return "deposit"
	case ActionMarkRegistered:
		return "markRegistered"
	case ActionMarkUnregistered:
		return "markUnregistered"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// BatchJob is one invocation of the pipeline for a set of articles.
type BatchJob struct {
	ID         string
	Journal    Journal
	Action     Action
	ArticleIDs []int64
}

// Outcome is the per-article result of a batch.
type Outcome struct {
	ArticleID int64
	Err       error
}

// BatchReport accumulates outcomes in the order articles were submitted.
type BatchReport struct {
	JobID    string
	Action   Action
	Journal  Journal
	Outcomes []Outcome
}

// Succeeded counts outcomes without an error.
func (r BatchReport) Succeeded() int {
	count := 0
	for _, outcome := range r.Outcomes {
		if outcome.Err == nil {
			count++
		}
	}
	return count
}

// Failed returns the outcomes carrying an error.
func (r BatchReport) Failed() []Outcome {
	var failed []Outcome
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			failed = append(failed, outcome)
		}
	}
	return failed
}
