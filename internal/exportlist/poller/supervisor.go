// Package poller drives the task-progress polling loop for export records.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/internal/exportlist/store"
	"github.com/grovetools/exports/pkg/exportapi"
	"github.com/grovetools/exports/pkg/models"
	"github.com/sirupsen/logrus"
)

// Options tunes the polling loop.
type Options struct {
	// Interval is the pause between a non-final response and the next poll.
	Interval time.Duration
	// BackoffInitial and BackoffMax bound the retry delay after a transport failure.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// MaxRetries is the number of consecutive failed polls retried before the
	// record is marked Failed.
	MaxRetries int
	// MaxPolls caps the successful responses in one cycle. 0 means no cap.
	MaxPolls int
}

// DefaultOptions returns the stock polling behaviour.
func DefaultOptions() Options {
	return Options{
		Interval:       1500 * time.Millisecond,
		BackoffInitial: 500 * time.Millisecond,
		BackoffMax:     10 * time.Second,
		MaxRetries:     5,
	}
}

// Supervisor keeps at most one polling cycle, and so at most one outstanding
// progress request, per record.
type Supervisor struct {
	store  *store.Store
	client exportapi.Client
	opts   Options
	logger *logrus.Entry

	mu     sync.Mutex
	cycles map[string]*cycle
	polls  map[string]int
	wg     sync.WaitGroup
}

type cycle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Supervisor.
func New(st *store.Store, client exportapi.Client, opts Options, logger *logrus.Entry) *Supervisor {
	def := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = def.BackoffInitial
	}
	if opts.BackoffMax < opts.BackoffInitial {
		opts.BackoffMax = opts.BackoffInitial
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Supervisor{
		store:  st,
		client: client,
		opts:   opts,
		logger: logger,
		cycles: make(map[string]*cycle),
		polls:  make(map[string]int),
	}
}

// Start begins a new generation cycle: the task status is reset to
// in-progress at 0% and polling (re)starts.
func (s *Supervisor) Start(ctx context.Context, id string) error {
	// Let an older cycle finish before resetting, so its last response
	// cannot land on top of the fresh status.
	s.halt(id)
	if err := s.store.SetTaskStatus(id, models.StartedStatus()); err != nil {
		return err
	}
	if err := s.store.SetUpdatingData(id, false); err != nil {
		return err
	}
	s.launch(ctx, id)
	return nil
}

// Resume polls a task that was already running, without resetting its status.
// It is a no-op when a cycle is already running for the record.
func (s *Supervisor) Resume(ctx context.Context, id string) error {
	r, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if !r.HasTask() {
		return errors.NoTask(id)
	}
	if s.Active(id) {
		return nil
	}
	s.launch(ctx, id)
	return nil
}

// Stop cancels the cycle for a record, if any.
func (s *Supervisor) Stop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cycles[id]; ok {
		c.cancel()
	}
}

// halt cancels the cycle for a record and waits for it to exit.
func (s *Supervisor) halt(id string) {
	s.mu.Lock()
	c, ok := s.cycles[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	c.cancel()
	<-c.done
}

// StopAll cancels every running cycle.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cycles {
		c.cancel()
	}
}

// Wait blocks until every cycle has exited.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// Active reports whether a cycle is running for a record.
func (s *Supervisor) Active(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cycles[id]
	return ok
}

// Polls returns the number of progress requests issued for a record.
func (s *Supervisor) Polls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls[id]
}

func (s *Supervisor) launch(parent context.Context, id string) {
	ctx, cancel := context.WithCancel(parent)
	c := &cycle{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.cycles[id]
	if prev != nil {
		prev.cancel()
	}
	s.cycles[id] = c
	s.mu.Unlock()

	gen := s.store.Generation()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(c.done)
		defer cancel()
		defer s.forget(id, c)

		// The previous cycle may still be finishing its request.
		if prev != nil {
			<-prev.done
		}
		s.run(ctx, id, gen)
	}()
}

func (s *Supervisor) forget(id string, c *cycle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cycles[id] == c {
		delete(s.cycles, id)
	}
}

func (s *Supervisor) run(ctx context.Context, id string, gen uint64) {
	logger := s.logger.WithField("export_id", id)
	logger.Debug("Polling started")

	responses := 0
	for {
		if ctx.Err() != nil {
			logger.Debug("Polling cancelled")
			return
		}
		if s.store.Generation() != gen {
			logger.Debug("Store replaced, polling abandoned")
			return
		}
		// Reload the record on every tick rather than trusting captured state.
		rec, err := s.store.Get(id)
		if err != nil || !rec.HasTask() {
			return
		}

		resp, err := s.poll(ctx, rec.ID)
		if ctx.Err() != nil || s.store.Generation() != gen {
			return
		}
		if err != nil {
			logger.WithError(err).Warn("Polling gave up")
			s.fail(id, gen, err)
			return
		}

		status := resp.TaskStatus.Clone()
		if status == nil {
			status = &models.TaskStatus{}
		}
		status.Failed = false
		status.Error = ""

		if status.Success {
			status.InProgress = false
			status.JustFinished = true
			if ok, _ := s.store.SetTaskStatusAt(gen, id, status); ok {
				logger.Info("Export task finished")
			}
			return
		}

		// The first ticks after a start may precede server-side bookkeeping.
		status.InProgress = true
		status.JustFinished = false
		if ok, _ := s.store.SetTaskStatusAt(gen, id, status); !ok {
			return
		}

		responses++
		if s.opts.MaxPolls > 0 && responses >= s.opts.MaxPolls {
			err := errors.PollExhausted(id, responses, nil)
			logger.WithError(err).Warn("Polling limit reached")
			s.fail(id, gen, err)
			return
		}

		t := time.NewTimer(s.opts.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// poll issues one progress request, retrying transport failures with bounded
// exponential backoff. A body that is not a JSON object is not retried.
func (s *Supervisor) poll(ctx context.Context, id string) (exportapi.ProgressResponse, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = s.opts.BackoffInitial
	expBackoff.MaxInterval = s.opts.BackoffMax
	expBackoff.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(s.opts.MaxRetries)), ctx)

	attempts := 0
	var resp exportapi.ProgressResponse
	operation := func() error {
		attempts++
		s.mu.Lock()
		s.polls[id]++
		s.mu.Unlock()

		var err error
		resp, err = s.client.TaskProgress(ctx, id)
		if errors.GetCode(err) == errors.ErrCodeMalformedResponse {
			// Asking again returns the same body.
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		s.logger.WithField("export_id", id).WithError(err).
			Debugf("Progress request failed, retrying in %s", next)
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return exportapi.ProgressResponse{}, errors.PollExhausted(id, attempts, err)
	}
	return resp, nil
}

func (s *Supervisor) fail(id string, gen uint64, cause error) {
	prev, _ := s.store.Get(id)
	pct := 0
	if st := prev.Status(); st != nil {
		pct = st.PercentComplete
	}
	_, _ = s.store.SetTaskStatusAt(gen, id, &models.TaskStatus{
		PercentComplete: pct,
		Failed:          true,
		Error:           cause.Error(),
	})
}
