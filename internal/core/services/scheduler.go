package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driving"
	"github.com/custodia-labs/scenesync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// TaskFunc is the body of a scheduled task.
type TaskFunc func(ctx context.Context) error

// Scheduler runs recurring background tasks such as peer gossip.
// A task never overlaps with itself.
type Scheduler struct {
	resolution time.Duration

	mu      sync.Mutex
	tasks   map[string]*scheduledTask
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

type scheduledTask struct {
	state  domain.ScheduledTask
	fn     TaskFunc
	active bool
}

// NewScheduler creates a scheduler that checks for due tasks every
// resolution.
func NewScheduler(resolution time.Duration) *Scheduler {
	if resolution <= 0 {
		resolution = time.Second
	}
	return &Scheduler{
		resolution: resolution,
		tasks:      make(map[string]*scheduledTask),
	}
}

// Register adds a task. The first run happens on the first check after
// Start. Registering an existing id replaces it.
func (s *Scheduler) Register(id, name string, interval time.Duration, fn TaskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id] = &scheduledTask{
		state: domain.ScheduledTask{ID: id, Name: name, Interval: interval},
		fn:    fn,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			s.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// Stop shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Tasks returns the run state of every task, sorted by id.
func (s *Scheduler) Tasks() []domain.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]domain.ScheduledTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t.state)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	for _, t := range s.tasks {
		if t.active || !t.state.IsDue(now) {
			continue
		}
		t.active = true
		s.runTask(ctx, t)
	}
}

// runTask executes one task in the background. Called with s.mu held.
func (s *Scheduler) runTask(ctx context.Context, t *scheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		started := time.Now()
		err := t.fn(ctx)
		ended := time.Now()
		if err != nil {
			logger.Warn("scheduler: task %s: %v", t.state.ID, err)
		}

		s.mu.Lock()
		t.state.Record(started, ended, err)
		t.active = false
		s.mu.Unlock()
	}()
}
