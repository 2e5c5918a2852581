package progress

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/summa/internal/domain"
)

// unplannedPercent is reported for completed work before the plan is known.
const unplannedPercent = 1

// Tracker publishes the progress of one job to its channel. Reported
// percentages never decrease and stay below 100 until Complete. After
// Complete or Fail the tracker publishes nothing more.
//
// Publish errors are logged and swallowed.
type Tracker struct {
	publisher Publisher
	channel   string
	logger    *slog.Logger

	mu        sync.Mutex
	plan      *domain.ProgressPlan
	completed int
	last      int
	finished  bool
}

// NewTracker creates a Tracker publishing to channel.
func NewTracker(publisher Publisher, channel string, logger *slog.Logger) *Tracker {
	return &Tracker{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
	}
}

// SetPlan fixes the job's unit count and reports the current percentage.
func (t *Tracker) SetPlan(ctx context.Context, plan domain.ProgressPlan) {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return
	}
	t.plan = &plan
	pct := t.percentLocked()
	t.mu.Unlock()

	t.publish(ctx, ProgressUpdate(pct, nil))
}

// Advance records units of completed work and reports the new percentage.
func (t *Tracker) Advance(ctx context.Context, units int) {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return
	}
	t.completed += units
	pct := t.percentLocked()
	t.mu.Unlock()

	t.publish(ctx, ProgressUpdate(pct, nil))
}

// Complete publishes the single 100% event with the final bullet points.
func (t *Tracker) Complete(ctx context.Context, bulletPoints []string) {
	if !t.finish() {
		return
	}
	t.publish(ctx, ProgressUpdate(CompletePercent, bulletPoints))
}

// Fail publishes the single failed event.
func (t *Tracker) Fail(ctx context.Context, message string) {
	if !t.finish() {
		return
	}
	t.publish(ctx, Failed(message))
}

// Percent returns the last reported percentage.
func (t *Tracker) Percent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *Tracker) finish() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return false
	}
	t.finished = true
	return true
}

// percentLocked computes the next percentage, never lower than the last one.
func (t *Tracker) percentLocked() int {
	pct := 0
	switch {
	case t.plan != nil:
		pct = t.plan.Percent(t.completed)
	case t.completed > 0:
		pct = unplannedPercent
	}
	if pct < t.last {
		pct = t.last
	}
	t.last = pct
	return pct
}

func (t *Tracker) publish(ctx context.Context, event Event) {
	if err := t.publisher.Publish(ctx, t.channel, event); err != nil {
		t.logger.WarnContext(ctx, "failed to publish progress event",
			"error", err,
			"channel", t.channel,
			"event", event.Name)
	}
}
