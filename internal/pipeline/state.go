package pipeline

import (
	"github.com/feichai0017/paper-extractor/internal/models"
)

// Stage is the position of a document in the extraction state machine.
type Stage int

const (
	StageScanning Stage = iota
	StageClassifying
	StageSkipping
	StageExtracting
	StageAggregating
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "scanning"
	case StageClassifying:
		return "classifying"
	case StageSkipping:
		return "skipping"
	case StageExtracting:
		return "extracting"
	case StageAggregating:
		return "aggregating"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// DocumentState is owned by a single Process call and never shared.
type DocumentState struct {
	Path      string
	PageCount int
	Stage     Stage
	// Records holds the accepted per-page records in page order.
	Records []models.Record
	// KnownTitle is the first non-sentinel title seen, or empty.
	KnownTitle string
	Pages      []PageOutcome
}

// PageOutcome summarises what happened to one page.
type PageOutcome struct {
	Index    int    `json:"index"`
	Method   string `json:"method"`
	Chars    int    `json:"chars"`
	Relevant bool   `json:"relevant"`
	Attempts int    `json:"attempts"`
	Accepted bool   `json:"accepted"`
	Fault    string `json:"fault,omitempty"`
}

func (s *DocumentState) accept(rec models.Record) {
	s.Records = append(s.Records, rec)
	if s.KnownTitle == "" && rec.HasTitle() {
		s.KnownTitle = rec.Title
	}
}

// Result is the outcome of one document. A nil Record means no page
// yielded a valid record, which is not an error.
type Result struct {
	Path   string
	Record *models.Record
	State  *DocumentState
}

// Empty reports whether the document produced no record.
func (r *Result) Empty() bool {
	return r.Record == nil
}
