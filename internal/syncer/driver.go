package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"listbridge/internal/events"
	"listbridge/internal/platform"
	"listbridge/pkg/models"
)

// State of the driver's current (or most recent) run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// ErrSyncRunning rejects a second concurrent start request. The entry list
// for a run is fixed at start; there is no mid-run insertion.
var ErrSyncRunning = errors.New("a sync run is already in progress")

// DefaultItemDelay is the fixed pause after each mutation, layered on top of
// the per-platform rate limiter to smooth out write bursts.
const DefaultItemDelay = time.Second

// Driver pushes missing entries to a target platform, one at a time, in
// order. Per-item failures are recorded and never abort the run.
type Driver struct {
	mutators  map[models.Platform]platform.Mutator
	bus       *events.Bus
	history   *RunRepo // optional
	itemDelay time.Duration

	mu        sync.Mutex
	state     State
	cancelled bool
	runID     string
}

func NewDriver(mutators map[models.Platform]platform.Mutator, bus *events.Bus, history *RunRepo, itemDelay time.Duration) *Driver {
	if itemDelay <= 0 {
		itemDelay = DefaultItemDelay
	}
	return &Driver{
		mutators:  mutators,
		bus:       bus,
		history:   history,
		itemDelay: itemDelay,
		state:     StateIdle,
	}
}

// State reports the driver's current run state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// RunID reports the identifier of the current or most recent run.
func (d *Driver) RunID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runID
}

// Cancel requests cooperative cancellation. The current entry's mutation is
// allowed to finish; the loop exits before starting the next one.
func (d *Driver) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateRunning {
		d.cancelled = true
	}
}

// SyncToTarget pushes every entry to the target platform and aggregates the
// outcome. Only the illegal-state cases (concurrent run, unknown target)
// return an error; per-item failures land in the outcome instead.
func (d *Driver) SyncToTarget(ctx context.Context, entries []models.Entry, target models.Platform, kind models.Kind) (models.SyncOutcome, error) {
	mut, runID, err := d.begin(target)
	if err != nil {
		return models.SyncOutcome{}, err
	}
	return d.run(ctx, mut, entries, target, kind, runID), nil
}

// Start launches a run in the background and returns its ID immediately.
// Progress is observable through the event bus and run history.
func (d *Driver) Start(ctx context.Context, entries []models.Entry, target models.Platform, kind models.Kind) (string, error) {
	mut, runID, err := d.begin(target)
	if err != nil {
		return "", err
	}
	go d.run(ctx, mut, entries, target, kind, runID)
	return runID, nil
}

// begin reserves the driver for a new run.
func (d *Driver) begin(target models.Platform) (platform.Mutator, string, error) {
	mut, ok := d.mutators[target]
	if !ok {
		return nil, "", fmt.Errorf("no mutator for platform %q", target)
	}

	runID := uuid.NewString()
	d.mu.Lock()
	if d.state == StateRunning {
		d.mu.Unlock()
		return nil, "", ErrSyncRunning
	}
	d.state = StateRunning
	d.cancelled = false
	d.runID = runID
	d.mu.Unlock()
	return mut, runID, nil
}

func (d *Driver) run(ctx context.Context, mut platform.Mutator, entries []models.Entry, target models.Platform, kind models.Kind, runID string) models.SyncOutcome {
	startedAt := time.Now().UTC()
	outcome := models.SyncOutcome{}
	total := len(entries)

	if total == 0 {
		d.publish(events.Event{Type: events.EventStatus, Message: "No items to sync", Progress: 100, RunID: runID})
		d.finish(ctx, StateCompleted, runID, target, kind, startedAt, total, outcome)
		return outcome
	}

	d.publish(events.Event{
		Type:     events.EventStatus,
		Message:  fmt.Sprintf("Starting sync to %s...", target),
		Progress: 0,
		RunID:    runID,
	})

	for i, entry := range entries {
		if d.isCancelled() || ctx.Err() != nil {
			d.publish(events.Event{Type: events.EventCancelled, Message: "Operation cancelled by user", RunID: runID})
			d.finish(ctx, StateCancelled, runID, target, kind, startedAt, total, outcome)
			return outcome
		}

		progress := (i + 1) * 100 / total
		d.publish(events.Event{
			Type:     events.EventItem,
			Message:  fmt.Sprintf("Syncing: %s", entry.Title),
			Title:    entry.Title,
			Current:  i + 1,
			Total:    total,
			Progress: progress,
			RunID:    runID,
		})

		if err := d.pushOne(ctx, mut, entry, kind); err != nil {
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, models.ItemError{Title: entry.Title, Reason: err.Error()})
			d.publish(events.Event{
				Type:     events.EventError,
				Message:  fmt.Sprintf("Failed: %s - %v", entry.Title, err),
				Title:    entry.Title,
				Progress: progress,
				RunID:    runID,
			})
		} else {
			outcome.Succeeded++
			d.publish(events.Event{
				Type:     events.EventSuccess,
				Message:  fmt.Sprintf("Added: %s", entry.Title),
				Title:    entry.Title,
				Progress: progress,
				RunID:    runID,
			})
		}

		// Fixed inter-request delay, independent of the read-path limiter.
		d.pause(ctx)
	}

	d.publish(events.Event{
		Type:     events.EventComplete,
		Message:  fmt.Sprintf("Sync complete: %d successful, %d failed", outcome.Succeeded, outcome.Failed),
		Progress: 100,
		Current:  outcome.Succeeded + outcome.Failed,
		Total:    total,
		RunID:    runID,
	})
	d.finish(ctx, StateCompleted, runID, target, kind, startedAt, total, outcome)
	return outcome
}

// pushOne mutates one entry: direct ID when the entry carries one for the
// target, otherwise title search where the platform supports it.
func (d *Driver) pushOne(ctx context.Context, mut platform.Mutator, entry models.Entry, kind models.Kind) error {
	if id := entry.DirectTargetID(mut.Name()); id != 0 {
		return mut.UpsertEntry(ctx, id, entry, kind)
	}

	if !mut.CanSearch() {
		return platform.ErrSearchUnsupported
	}

	id, err := mut.SearchByTitle(ctx, entry.Title, kind)
	if err != nil {
		return fmt.Errorf("search %q: %w", entry.Title, err)
	}
	return mut.UpsertEntry(ctx, id, entry, kind)
}

func (d *Driver) isCancelled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled
}

func (d *Driver) pause(ctx context.Context) {
	timer := time.NewTimer(d.itemDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (d *Driver) finish(ctx context.Context, final State, runID string, target models.Platform, kind models.Kind, startedAt time.Time, total int, outcome models.SyncOutcome) {
	d.mu.Lock()
	d.state = final
	d.cancelled = false
	d.mu.Unlock()

	if d.history == nil {
		return
	}
	run := Run{
		ID:         runID,
		Target:     target,
		Kind:       kind,
		State:      final,
		Total:      total,
		Succeeded:  outcome.Succeeded,
		Failed:     outcome.Failed,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}
	// Record against a fresh context: the run's own context may already be
	// cancelled and the history row should still be written.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.history.Record(recordCtx, run, outcome.Errors); err != nil {
		d.publish(events.Event{
			Type:    events.EventWarning,
			Message: fmt.Sprintf("Failed to record sync run: %v", err),
			RunID:   runID,
		})
	}
}

func (d *Driver) publish(ev events.Event) {
	if d.bus != nil {
		d.bus.Publish(ev)
	}
}
