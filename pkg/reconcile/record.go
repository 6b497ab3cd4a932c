package reconcile

import "github.com/dfandrich/testclutch-curl-web/pkg/constants"

// Kind identifies the job outcome a Record reports.
type Kind int

const (
	UpdateCompleted Kind = iota
	UpdateAborted
	PRAnalysisCompleted
	CommentTally
)

func (k Kind) String() string {
	switch k {
	case UpdateCompleted:
		return "update-completed"
	case UpdateAborted:
		return "update-aborted"
	case PRAnalysisCompleted:
		return "pr-analysis-completed"
	case CommentTally:
		return "comment-tally"
	default:
		return "unknown"
	}
}

// Record is one reconciled result. Duration and Version are meaningful for
// the three duration kinds, CommentCount for CommentTally only.
type Record struct {
	Kind         Kind
	Timestamp    constants.Seconds
	Duration     constants.Seconds
	Version      string
	CommentCount int
}
