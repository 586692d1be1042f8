package domain

import (
	"fmt"
	"strings"
	"time"
)

// RunSummary reports what a single pipeline run did.
type RunSummary struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Scanned      int
	FilteredOut  int
	Passed       int
	Skipped      int
	AlreadyDone  int
	Classified   int
	Accepted     int
	Rejected     map[ErrorKind]int
	Examples     int
	Sampled      int
	DatasetBuilt bool
}

// NewRunSummary returns a summary with every rejection kind initialised to zero.
func NewRunSummary(runID string, started time.Time) RunSummary {
	rejected := make(map[ErrorKind]int, len(kinds))
	for _, k := range AllKinds() {
		rejected[k] = 0
	}
	return RunSummary{RunID: runID, StartedAt: started, Rejected: rejected}
}

// TotalRejected sums rejections over all kinds.
func (s RunSummary) TotalRejected() int {
	total := 0
	for _, n := range s.Rejected {
		total += n
	}
	return total
}

// LogArgs flattens the summary into slog key/value pairs.
func (s RunSummary) LogArgs() []any {
	args := []any{
		"run_id", s.RunID,
		"scanned", s.Scanned,
		"filtered_out", s.FilteredOut,
		"passed", s.Passed,
		"skipped", s.Skipped,
		"already_done", s.AlreadyDone,
		"classified", s.Classified,
		"accepted", s.Accepted,
		"rejected", s.TotalRejected(),
	}
	for _, k := range AllKinds() {
		args = append(args, "rejected_"+string(k), s.Rejected[k])
	}
	args = append(args, "examples", s.Examples, "sampled", s.Sampled, "duration", s.FinishedAt.Sub(s.StartedAt).String())
	return args
}

// Message renders the summary as a short Markdown digest.
func (s RunSummary) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "*MIC dataset run* `%s`\n", s.RunID)
	fmt.Fprintf(&b, "Scanned: %d, filtered out: %d, passed: %d\n", s.Scanned, s.FilteredOut, s.Passed)
	fmt.Fprintf(&b, "Skipped: %d, already done: %d, classified: %d\n", s.Skipped, s.AlreadyDone, s.Classified)
	fmt.Fprintf(&b, "Accepted: %d, rejected: %d\n", s.Accepted, s.TotalRejected())
	for _, k := range AllKinds() {
		if n := s.Rejected[k]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", k, n)
		}
	}
	if s.DatasetBuilt {
		fmt.Fprintf(&b, "Examples: %d, sampled: %d\n", s.Examples, s.Sampled)
	}
	return b.String()
}
