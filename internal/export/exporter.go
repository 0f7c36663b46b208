package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ironsheep/minesite-mcp/internal/detection"
)

// State is the lifecycle position of an export job.
type State string

// Job states.
const (
	StateSubmitted State = "submitted"
	StateRunning   State = "running"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

var (
	// ErrQueueFull is returned when the job queue has no room.
	ErrQueueFull = errors.New("export queue is full")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("exporter is closed")
)

// JobHandle identifies a submitted export.
type JobHandle struct {
	ID          string    `json:"id"`
	Format      Format    `json:"format"`
	Description string    `json:"description"`
	Features    int       `json:"features"`
	Submitted   time.Time `json:"submitted"`
}

// JobStatus reports the progress of an export.
type JobStatus struct {
	ID          string     `json:"id"`
	Format      Format     `json:"format"`
	Description string     `json:"description"`
	State       State      `json:"state"`
	Features    int        `json:"features"`
	Error       string     `json:"error,omitempty"`
	Submitted   time.Time  `json:"submitted"`
	Started     *time.Time `json:"started,omitempty"`
	Completed   *time.Time `json:"completed,omitempty"`
}

// Finished reports whether the job reached a terminal state.
func (s JobStatus) Finished() bool {
	return s.State == StateDone || s.State == StateFailed
}

type job struct {
	id   string
	fc   detection.FeatureCollection
	dest Destination
}

// Exporter runs export jobs on a pool of worker goroutines.
type Exporter struct {
	sinks  map[Format]Sink
	ledger *Ledger
	log    zerolog.Logger

	jobs   chan job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	status map[string]*JobStatus
	done   map[string]chan struct{}

	stopOnce sync.Once
}

// NewExporter starts workers goroutines that drain a queue of queueSize
// jobs. The ledger may be nil.
func NewExporter(ledger *Ledger, sinks map[Format]Sink, workers, queueSize int, log zerolog.Logger) *Exporter {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	if sinks == nil {
		sinks = DefaultSinks()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Exporter{
		sinks:  sinks,
		ledger: ledger,
		log:    log.With().Str("component", "export").Logger(),
		jobs:   make(chan job, queueSize),
		ctx:    ctx,
		cancel: cancel,
		status: make(map[string]*JobStatus),
		done:   make(map[string]chan struct{}),
	}
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	return e
}

// Submit queues fc for export to dest and returns immediately.
//
// The destination is validated before the job is queued; write failures are
// only visible through Status.
func (e *Exporter) Submit(fc detection.FeatureCollection, dest Destination) (JobHandle, error) {
	dest = dest.WithDefaults()
	if err := dest.Validate(); err != nil {
		return JobHandle{}, err
	}
	if _, ok := e.sinks[dest.Format]; !ok {
		return JobHandle{}, fmt.Errorf("%w: %q", ErrUnknownFormat, dest.Format)
	}

	st := &JobStatus{
		ID:          uuid.NewString(),
		Format:      dest.Format,
		Description: dest.Description,
		State:       StateSubmitted,
		Features:    fc.Len(),
		Submitted:   time.Now().UTC(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return JobHandle{}, ErrClosed
	}
	select {
	case e.jobs <- job{id: st.ID, fc: fc, dest: dest}:
	default:
		return JobHandle{}, ErrQueueFull
	}
	e.status[st.ID] = st
	e.done[st.ID] = make(chan struct{})
	if err := e.ledger.RecordSubmitted(*st, dest); err != nil {
		e.log.Warn().Err(err).Str("job", st.ID).Msg("failed to record export job")
	}

	e.log.Info().
		Str("job", st.ID).
		Str("format", string(dest.Format)).
		Int("features", st.Features).
		Msg("export submitted")

	return JobHandle{
		ID:          st.ID,
		Format:      st.Format,
		Description: st.Description,
		Features:    st.Features,
		Submitted:   st.Submitted,
	}, nil
}

// Status returns the current status of a job. Jobs from earlier runs are
// looked up in the ledger.
func (e *Exporter) Status(id string) (JobStatus, error) {
	e.mu.Lock()
	st, ok := e.status[id]
	var out JobStatus
	if ok {
		out = *st
	}
	e.mu.Unlock()
	if ok {
		return out, nil
	}
	if e.ledger == nil {
		return JobStatus{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return e.ledger.Job(id)
}

// Wait blocks until the job finishes or ctx is done.
func (e *Exporter) Wait(ctx context.Context, id string) (JobStatus, error) {
	e.mu.Lock()
	ch, ok := e.done[id]
	e.mu.Unlock()
	if !ok {
		return e.Status(id)
	}
	select {
	case <-ch:
		return e.Status(id)
	case <-ctx.Done():
		return JobStatus{}, ctx.Err()
	}
}

// Close stops accepting jobs, finishes the queued ones and waits for the
// workers to exit.
func (e *Exporter) Close() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		close(e.jobs)
		e.mu.Unlock()
		e.wg.Wait()
		e.cancel()
	})
}

func (e *Exporter) worker(id int) {
	defer e.wg.Done()
	for j := range e.jobs {
		start := time.Now().UTC()
		e.update(j.id, func(st *JobStatus) {
			st.State = StateRunning
			st.Started = &start
		})
		if err := e.ledger.RecordStart(j.id, start); err != nil {
			e.log.Warn().Err(err).Str("job", j.id).Msg("failed to record export start")
		}

		err := e.sinks[j.dest.Format].Write(e.ctx, j.fc, j.dest)

		end := time.Now().UTC()
		state := StateDone
		msg := ""
		if err != nil {
			state = StateFailed
			msg = err.Error()
			e.log.Error().Err(err).Str("job", j.id).Int("worker", id).Msg("export failed")
		} else {
			e.log.Info().
				Str("job", j.id).
				Int("worker", id).
				Dur("duration", end.Sub(start)).
				Msg("export complete")
		}
		e.update(j.id, func(st *JobStatus) {
			st.State = state
			st.Error = msg
			st.Completed = &end
		})
		if err := e.ledger.RecordResult(j.id, state, end, msg); err != nil {
			e.log.Warn().Err(err).Str("job", j.id).Msg("failed to record export result")
		}

		e.mu.Lock()
		if ch, ok := e.done[j.id]; ok {
			close(ch)
			delete(e.done, j.id)
		}
		e.mu.Unlock()
	}
}

func (e *Exporter) update(id string, fn func(*JobStatus)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.status[id]; ok {
		fn(st)
	}
}
