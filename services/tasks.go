package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	taskstream "github.com/taskstream-ai/taskstream-go"
)

// TaskService is the task CRUD layer. Listing with the same filter twice in
// quick succession cancels the first in-flight request before issuing the
// second, mirroring how the board UI abandons stale fetches while the user
// types into the filter box.
type TaskService struct {
	client *taskstream.Client
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]*inflightCall

	notifier *taskNotifier
}

// inflightCall identifies one in-flight List so a finished call only clears
// its own registry entry.
type inflightCall struct {
	cancel context.CancelFunc
}

// NewTaskService builds a task service over the given client.
func NewTaskService(client *taskstream.Client, opts ...TaskServiceOption) *TaskService {
	s := &TaskService{
		client:   client,
		logger:   slog.Default(),
		inflight: make(map[string]*inflightCall),
		notifier: newTaskNotifier(defaultDebounce),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TaskServiceOption customizes a TaskService.
type TaskServiceOption func(*TaskService)

// WithTaskLogger replaces the default logger.
func WithTaskLogger(l *slog.Logger) TaskServiceOption {
	return func(s *TaskService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDebounce overrides the update-stream debounce interval.
func WithDebounce(d time.Duration) TaskServiceOption {
	return func(s *TaskService) {
		s.notifier = newTaskNotifier(d)
	}
}

// List fetches tasks matching filter. A newer List call with an identical
// filter signature cancels this one; the canceled call returns the context
// error from the underlying request.
func (s *TaskService) List(ctx context.Context, filter TaskFilter) ([]Task, error) {
	sig := filter.signature()

	ctx, cancel := context.WithCancel(ctx)
	call := &inflightCall{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.inflight[sig]; ok {
		s.logger.Debug("canceling stale task fetch", "filter", sig)
		prev.cancel()
	}
	s.inflight[sig] = call
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		// Only clear our own entry; a newer call may have replaced it.
		if s.inflight[sig] == call {
			delete(s.inflight, sig)
		}
		s.mu.Unlock()
		cancel()
	}()

	data, err := s.client.Get(ctx, "/tasks", &taskstream.RequestOptions{Params: filter.params()})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: decode: %w", err)
	}
	return tasks, nil
}

// Get fetches one task by ID.
func (s *TaskService) Get(ctx context.Context, id string) (*Task, error) {
	data, err := s.client.Get(ctx, "/tasks/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("get task %s: decode: %w", id, err)
	}
	return &task, nil
}

// Create posts a new task. Missing status defaults to BACKLOG server-side;
// the client mirrors the default so optimistic UI state matches.
func (s *TaskService) Create(ctx context.Context, input TaskInput) (*Task, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("create task: title is required")
	}
	if input.Status == "" {
		input.Status = StatusBacklog
	}

	data, err := s.client.Post(ctx, "/tasks", &taskstream.RequestOptions{Body: input})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("create task: decode: %w", err)
	}
	s.notifier.publish(TaskEvent{Kind: TaskCreated, Task: task})
	return &task, nil
}

// Update puts changed fields to an existing task.
func (s *TaskService) Update(ctx context.Context, id string, input TaskInput) (*Task, error) {
	data, err := s.client.Put(ctx, "/tasks/"+id, &taskstream.RequestOptions{Body: input})
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("update task %s: decode: %w", id, err)
	}
	s.notifier.publish(TaskEvent{Kind: TaskUpdated, Task: task})
	return &task, nil
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Delete(ctx, "/tasks/"+id, nil); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	s.notifier.publish(TaskEvent{Kind: TaskDeleted, Task: Task{ID: id}})
	return nil
}

// Extract sends free-form text to the NLP endpoint and returns the tasks it
// proposes.
func (s *TaskService) Extract(ctx context.Context, text string) ([]Task, error) {
	if text == "" {
		return nil, fmt.Errorf("extract tasks: text is required")
	}
	data, err := s.client.Post(ctx, "/tasks/extract", &taskstream.RequestOptions{
		Body: map[string]string{"text": text},
	})
	if err != nil {
		return nil, fmt.Errorf("extract tasks: %w", err)
	}
	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("extract tasks: decode: %w", err)
	}
	return tasks, nil
}

// SubscribeUpdates returns a handle delivering debounced task events. The
// caller owns the handle and must Dispose it exactly once when done; Dispose
// is idempotent so lifecycle teardown paths can race safely.
func (s *TaskService) SubscribeUpdates() *Subscription {
	return s.notifier.subscribe()
}

// Close tears down the update notifier and all outstanding subscriptions.
func (s *TaskService) Close() {
	s.notifier.close()
}
