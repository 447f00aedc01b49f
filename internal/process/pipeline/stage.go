package pipeline

// Stage is the position of one build in its lifecycle:
// queued → enriching → summarizing → assembling → done | failed.
type Stage string

// Build stages.
const (
	StageQueued      Stage = "queued"
	StageEnriching   Stage = "enriching"
	StageSummarizing Stage = "summarizing"
	StageAssembling  Stage = "assembling"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Terminal reports whether no further transition follows s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}
