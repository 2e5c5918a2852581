package domain

// Units of work outside the per-chunk summaries.
const (
	FetchUnits  = 1
	ReduceUnits = 1
)

// MaxIntermediatePercent is the highest percentage reported before a job
// completes. 100 is reserved for the completion event.
const MaxIntermediatePercent = 99

// ProgressPlan fixes the number of work units of a job once its chunk count
// is known.
type ProgressPlan struct {
	ChunkCount  int
	FetchUnits  int
	ReduceUnits int
}

// NewProgressPlan returns the plan for a document split into chunkCount chunks.
func NewProgressPlan(chunkCount int) ProgressPlan {
	return ProgressPlan{
		ChunkCount:  chunkCount,
		FetchUnits:  FetchUnits,
		ReduceUnits: ReduceUnits,
	}
}

// TotalUnits is chunkCount + fetchUnits + reduceUnits.
func (p ProgressPlan) TotalUnits() int {
	return p.ChunkCount + p.FetchUnits + p.ReduceUnits
}

// Percent returns ceil(completed / total * 100), clamped to
// [0, MaxIntermediatePercent].
func (p ProgressPlan) Percent(completed int) int {
	total := p.TotalUnits()
	if total <= 0 || completed <= 0 {
		return 0
	}
	pct := (completed*100 + total - 1) / total
	if pct > MaxIntermediatePercent {
		return MaxIntermediatePercent
	}
	return pct
}
