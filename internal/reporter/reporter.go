// internal/reporter/reporter.go
package reporter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tamzrod/beacon-guard/internal/clock"
	"github.com/tamzrod/beacon-guard/internal/events"
	"github.com/tamzrod/beacon-guard/internal/reporter/backend"
	"github.com/tamzrod/beacon-guard/internal/status"
)

// Backend is the status side of the web API.
type Backend interface {
	UpdateStatus(ctx context.Context, serial string, stolen bool) error
	LogEvent(ctx context.Context, serial, eventType string) error
}

// Reporter pushes stolen/returned transitions to the backend.
//
// Report is called from the tick loop and never blocks: it records the
// wanted status and hands the serial to a single worker. The worker owns
// all network I/O. reported only changes after a successful status push,
// so a failed push is retried the next time Report sees the same verdict.
type Reporter struct {
	backend Backend
	store   status.Store
	events  events.Publisher
	clock   clock.Clock
	logger  *slog.Logger

	mu       sync.Mutex
	desired  map[string]bool
	reported map[string]bool // missing means "not stolen"
	queued   map[string]bool

	work chan string
}

type Options struct {
	Store  status.Store
	Events events.Publisher
	Clock  clock.Clock
	Logger *slog.Logger

	// Queue bounds pending serials; one slot per asset is enough.
	Queue int
}

func New(b Backend, opts Options) *Reporter {
	if opts.Store == nil {
		opts.Store = status.NewMemoryStore()
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Queue < 1 {
		opts.Queue = 1
	}
	return &Reporter{
		backend:  b,
		store:    opts.Store,
		events:   opts.Events,
		clock:    opts.Clock,
		logger:   opts.Logger,
		desired:  make(map[string]bool),
		reported: make(map[string]bool),
		queued:   make(map[string]bool),
		work:     make(chan string, opts.Queue),
	}
}

// Seed loads previously reported status for serials from the store.
func (r *Reporter) Seed(ctx context.Context, serials []string) error {
	known, err := r.store.Load(ctx, serials)
	if err != nil {
		return err
	}
	r.mu.Lock()
	for serial, stolen := range known {
		r.reported[serial] = stolen
	}
	r.mu.Unlock()
	r.logger.Debug("reported status seeded", "known", len(known))
	return nil
}

// Reported returns the last status the backend confirmed for serial.
func (r *Reporter) Reported(serial string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reported[serial]
}

// Report records the current verdict for serial and schedules a push if
// it differs from what was last reported.
func (r *Reporter) Report(serial string, stolen bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.desired[serial] = stolen
	if r.reported[serial] == stolen || r.queued[serial] {
		return
	}

	select {
	case r.work <- serial:
		r.queued[serial] = true
	default:
		r.logger.Warn("report queue full, deferring to next tick", "serial", serial)
	}
}

// Run delivers queued transitions until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case serial := <-r.work:
			r.deliver(ctx, serial)
		}
	}
}

func (r *Reporter) deliver(ctx context.Context, serial string) {
	r.mu.Lock()
	want := r.desired[serial]
	have := r.reported[serial]
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.queued, serial)
		r.mu.Unlock()
	}()

	if want == have {
		return
	}

	if err := r.backend.UpdateStatus(ctx, serial, want); err != nil {
		r.logger.Warn("status push failed", "serial", serial, "stolen", want, "error", err)
		return
	}

	r.mu.Lock()
	r.reported[serial] = want
	r.mu.Unlock()

	if err := r.store.Save(ctx, serial, want); err != nil {
		r.logger.Warn("persist reported status failed", "serial", serial, "error", err)
	}

	kind := backend.EventReturned
	if want {
		kind = backend.EventStolen
	}
	r.logger.Info("status reported", "serial", serial, "event", kind)

	// the backend already holds the new status; a lost log entry does not
	// reopen the edge
	if err := r.backend.LogEvent(ctx, serial, kind); err != nil {
		r.logger.Warn("event log failed", "serial", serial, "event", kind, "error", err)
	}

	r.events.Publish(events.Event{Type: kind, Serial: serial, At: r.clock.Now()})
}
