package selector

import (
	"fmt"

	"versereel/internal/ledger"
	"versereel/internal/passages"
)

// Candidate is a passage that passed every acceptance rule.
type Candidate struct {
	ledger.Position
	Text      string
	WordCount int
	Duration  float64
	Mode      ledger.Mode
}

// Reference formats the candidate for humans, e.g. "John 3:16".
func (c Candidate) Reference() string {
	return passages.Reference(c.Collection, c.Subunit, c.Item)
}

// NewItem converts the candidate into a ledger insert.
func (c Candidate) NewItem() ledger.NewItem {
	return ledger.NewItem{
		Position:  c.Position,
		Text:      c.Text,
		WordCount: c.WordCount,
		Duration:  c.Duration,
	}
}

// Result is the outcome of Next: either Accepted or Exhausted.
type Result interface {
	isResult()
}

// Accepted carries the chosen candidate.
type Accepted struct {
	Candidate Candidate
}

// Exhausted reports that no candidate was found in this call.
type Exhausted struct {
	Reason     ExhaustReason
	Attempts   int
	Rejections map[RejectReason]int
}

func (Accepted) isResult()  {}
func (Exhausted) isResult() {}

func (e Exhausted) String() string {
	return fmt.Sprintf("%s after %d attempts (%v)", e.Reason, e.Attempts, e.Rejections)
}

// ExhaustReason explains an Exhausted result.
type ExhaustReason string

const (
	// ExhaustAttempts means the per-call attempt bound was reached; calling
	// again may succeed.
	ExhaustAttempts ExhaustReason = "attempts"
	// ExhaustCompleted means sequential mode walked past the last allowed collection.
	ExhaustCompleted ExhaustReason = "completed"
	// ExhaustUnsatisfiable means no passage can meet the constraints.
	ExhaustUnsatisfiable ExhaustReason = "unsatisfiable"
	// ExhaustNoCollections means the allow/deny lists leave nothing to select.
	ExhaustNoCollections ExhaustReason = "no_collections"
)

// RejectReason names the rule a position failed.
type RejectReason string

const (
	RejectMissing   RejectReason = "missing"
	RejectEmpty     RejectReason = "empty"
	RejectWordCount RejectReason = "word_count"
	RejectDuration  RejectReason = "duration"
	RejectDuplicate RejectReason = "duplicate"
)

// evaluation is the per-position verdict: accepted or rejected.
type evaluation interface {
	isEvaluation()
}

type accepted struct {
	candidate Candidate
}

type rejected struct {
	reason RejectReason
}

func (accepted) isEvaluation() {}
func (rejected) isEvaluation() {}
