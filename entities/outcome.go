package entities

// ItemOutcome is the terminal state of one candidate in a batch.
type ItemOutcome int

const (
	OutcomeInvalid ItemOutcome = iota
	OutcomeDuplicate
	OutcomeSaved
	OutcomeFailed
)

func (o ItemOutcome) String() string {
	switch o {
	case OutcomeInvalid:
		return "invalid"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeSaved:
		return "saved"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ItemResult records what happened to a single candidate.
type ItemResult struct {
	Rxcui   string      `json:"rxcui"`
	Outcome ItemOutcome `json:"-"`
	ID      int64       `json:"id,omitempty"`
	Message string      `json:"message,omitempty"`
	Err     error       `json:"-"`
}

// BatchOutcome summarizes a best-effort batch. Success is false only when the
// batch neither saved nor skipped anything.
type BatchOutcome struct {
	Success      bool         `json:"success"`
	SavedCount   int          `json:"savedCount"`
	SkippedCount int          `json:"skippedCount"`
	Errors       []string     `json:"errors"`
	Items        []ItemResult `json:"-"`
}

// Count returns how many items ended in the given state.
func (b BatchOutcome) Count(outcome ItemOutcome) int {
	n := 0
	for _, item := range b.Items {
		if item.Outcome == outcome {
			n++
		}
	}
	return n
}

// SaveResult is the outcome of a single-item save.
type SaveResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	ID      int64       `json:"id,omitempty"`
	Outcome ItemOutcome `json:"-"`
}

// DeleteResult distinguishes a removed record from a missing one.
type DeleteResult struct {
	Removed bool
	ID      int64
}
