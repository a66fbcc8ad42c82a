package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks the progress of a batch of jobs, such as the points of
// a sweep.
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
	Failed     uint64    `json:"failed"`
}

// IncrementInProgress adds to the number of in-progress jobs.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished adds to the number of finished jobs.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished moves jobs from in progress to finished. Failed
// jobs also count as finished.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64, failed bool) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount

	if failed {
		b.Failed += amount
	}
}

// Snapshot returns a copy of the counters that is safe to read.
func (b *ProgressBar) Snapshot() ProgressSnapshot {
	b.Lock()
	defer b.Unlock()

	return ProgressSnapshot{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		InProgress: b.InProgress,
		Failed:     b.Failed,
	}
}

// ProgressSnapshot is a point-in-time copy of a ProgressBar.
type ProgressSnapshot struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
	Failed     uint64    `json:"failed"`
}
