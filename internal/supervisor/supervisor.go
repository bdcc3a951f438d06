package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mission-planner/internal/config"
	"mission-planner/internal/executor"
	"mission-planner/internal/parser"
	"mission-planner/internal/world"
)

var (
	ErrQueueFull  = errors.New("mission queue is full")
	ErrNotRunning = errors.New("no mission is currently running")
	ErrStopped    = errors.New("supervisor is stopped")
)

type Config struct {
	Executor executor.Config
	// Tick is the simulated seconds per tick.
	Tick     float64
	MaxTicks int
	// TickInterval paces ticks in wall-clock time; zero runs missions as
	// fast as possible.
	TickInterval     time.Duration
	QueueSize        int
	FleetConcurrency int
}

func FromConfig(c *config.Config) Config {
	return Config{
		Executor: executor.Config{
			MaxSpeed:      c.Executor.MaxSpeed,
			ArriveEpsilon: c.Executor.ArriveEpsilon,
		},
		Tick:             c.Executor.Tick,
		MaxTicks:         c.Executor.MaxTicks,
		TickInterval:     c.Supervisor.TickInterval,
		QueueSize:        c.Supervisor.QueueSize,
		FleetConcurrency: c.Supervisor.FleetConcurrency,
	}
}

func (c Config) validate() error {
	if err := c.Executor.Validate(); err != nil {
		return err
	}
	if c.Tick <= 0 {
		return fmt.Errorf("supervisor: tick must be positive, got %v", c.Tick)
	}
	if c.TickInterval < 0 {
		return fmt.Errorf("supervisor: negative tick interval %s", c.TickInterval)
	}
	return nil
}

// Supervisor runs submitted missions one at a time, in submission order,
// against a single rover whose state carries over between missions.
type Supervisor struct {
	cfg     Config
	log     *zap.Logger
	onEvent func(missionID string, e executor.Event)

	queue   chan *Mission
	results chan MissionResult
	wg      sync.WaitGroup

	mu       sync.Mutex
	rover    executor.State
	missions map[string]*Mission
	current  *Mission
	started  bool
	stopped  bool
}

type Option func(*Supervisor)

// WithEventHandler receives executor events of every mission. It runs on the
// supervisor goroutine and must not block.
func WithEventHandler(fn func(missionID string, e executor.Event)) Option {
	return func(s *Supervisor) { s.onEvent = fn }
}

func New(cfg Config, w *world.World, log *zap.Logger, opts ...Option) (*Supervisor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, errors.New("supervisor: world is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	s := &Supervisor{
		cfg:      cfg,
		log:      log.Named("supervisor"),
		queue:    make(chan *Mission, cfg.QueueSize),
		results:  make(chan MissionResult, cfg.QueueSize),
		rover:    w.Start(),
		missions: make(map[string]*Mission),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the mission loop. It stops when ctx is cancelled, after
// which Results is closed and Submit fails.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.shutdown()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-s.queue:
				s.log.Info("Starting mission", zap.String("mission_id", m.ID), zap.String("mission", m.Name))
				s.runMission(ctx, m)
			}
		}
	}()
}

// Wait blocks until the loop started by Start has exited.
func (s *Supervisor) Wait() { s.wg.Wait() }

func (s *Supervisor) shutdown() {
	s.mu.Lock()
	s.stopped = true
	for id := range s.missions {
		delete(s.missions, id)
	}
	s.mu.Unlock()
	close(s.results)
}

func (s *Supervisor) Results() <-chan MissionResult { return s.results }

// Submit only after plan is known & confirmed
func (s *Supervisor) Submit(name string, plan *parser.MissionPlan) (string, error) {
	if plan == nil {
		return "", errors.New("supervisor: plan is nil")
	}
	if strings.TrimSpace(name) == "" {
		name = plan.MissionName
	}
	m := &Mission{
		ID:        uuid.New().String()[:8],
		Name:      name,
		State:     StatusPending,
		Plan:      plan.Clone(),
		Submitted: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return "", ErrStopped
	}
	select {
	case s.queue <- m:
	default:
		return "", ErrQueueFull
	}
	s.missions[m.ID] = m
	return m.ID, nil
}

// Cancel a pending or running mission by ID. An empty ID means the running one.
func (s *Supervisor) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		_, err := s.cancelCurrentLocked()
		return err
	}
	m, ok := s.missions[id]
	if !ok {
		return fmt.Errorf("mission %s is not pending or running", id)
	}
	m.cancelled = true
	if m.runCancel != nil {
		m.runCancel()
	}
	return nil
}

// Cancel the most recent / current mission.
func (s *Supervisor) CancelMostRecent() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelCurrentLocked()
}

func (s *Supervisor) cancelCurrentLocked() (string, error) {
	if s.current == nil || s.current.State != StatusRunning {
		return "", ErrNotRunning
	}
	s.current.cancelled = true
	if s.current.runCancel != nil {
		s.current.runCancel()
	}
	return s.current.ID, nil
}

// Current returns the ID of the running mission.
func (s *Supervisor) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", false
	}
	return s.current.ID, true
}

// Pending returns the IDs of queued missions in no particular order.
func (s *Supervisor) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, m := range s.missions {
		if m.State == StatusPending {
			ids = append(ids, id)
		}
	}
	return ids
}

// Rover returns a copy of the rover state between missions.
func (s *Supervisor) Rover() executor.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rover
}

func (s *Supervisor) runMission(ctx context.Context, m *Mission) {
	log := s.log.With(zap.String("mission_id", m.ID), zap.String("mission", m.Name))
	result := MissionResult{
		MissionID:   m.ID,
		MissionName: m.Name,
		FinalPlan:   m.Plan.JSON(),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if m.cancelled {
		delete(s.missions, m.ID)
		rover := s.rover
		s.mu.Unlock()
		log.Info("Mission cancelled before it started")
		result.Status = StatusCancelled
		result.Error = context.Canceled.Error()
		result.FinalState = rover
		s.publish(ctx, result)
		return
	}
	m.State = StatusRunning
	m.runCancel = cancel
	s.current = m
	rover := s.rover
	s.mu.Unlock()

	ex, err := executor.New(m.Plan, rover, s.cfg.Executor,
		executor.WithMissionID(m.ID),
		executor.WithLogger(s.log),
		executor.WithEventHandler(func(e executor.Event) {
			if s.onEvent != nil {
				s.onEvent(m.ID, e)
			}
		}),
	)
	if err == nil {
		if s.cfg.TickInterval > 0 {
			err = s.runRealTime(runCtx, ex)
		} else {
			_, err = ex.Run(runCtx, s.cfg.Tick, s.cfg.MaxTicks)
		}
		result.Metrics = ex.Metrics()
		result.FinalState = ex.State()
	} else {
		result.FinalState = rover
	}

	switch {
	case err == nil:
		result.Status = StatusSucceeded
		log.Info("Mission SUCCEEDED")
	case errors.Is(err, context.Canceled):
		result.Status = StatusCancelled
		result.Error = err.Error()
		log.Info("Mission CANCELLED")
	default:
		result.Status = StatusFailed
		result.Error = err.Error()
		log.Warn("Mission FAILED", zap.Error(err))
	}

	s.mu.Lock()
	m.State = result.Status
	m.runCancel = nil
	s.rover = result.FinalState
	s.current = nil
	delete(s.missions, m.ID)
	s.mu.Unlock()

	s.publish(ctx, result)
}

// runRealTime paces ticks with a wall-clock ticker. Every tick still advances
// the simulation by the configured Tick so results do not depend on timer
// jitter.
func (s *Supervisor) runRealTime(ctx context.Context, ex *executor.Executor) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for !ex.Done() {
		select {
		case <-ctx.Done():
			err := ctx.Err()
			ex.Abort(err)
			return err
		case <-ticker.C:
			if s.cfg.MaxTicks > 0 && ex.Ticks() >= s.cfg.MaxTicks {
				err := fmt.Errorf("%w: %d ticks", executor.ErrTickBudget, s.cfg.MaxTicks)
				ex.Abort(err)
				return err
			}
			ex.Tick(s.cfg.Tick)
		}
	}
	return nil
}

func (s *Supervisor) publish(ctx context.Context, r MissionResult) {
	select {
	case s.results <- r:
		return
	default:
	}
	select {
	case s.results <- r:
	case <-ctx.Done():
		s.log.Warn("Dropping mission result on shutdown", zap.String("mission_id", r.MissionID))
	}
}
