package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"zentari/internal/domain"
)

// MemoryTaskStore is the in-process TaskStore.
type MemoryTaskStore struct {
	mu          sync.Mutex
	now         func() time.Time
	tasks       []*domain.Task
	completions []*domain.TaskCompletion
	nextID      int64
}

func NewMemoryTaskStore(now func() time.Time) *MemoryTaskStore {
	return &MemoryTaskStore{now: now}
}

func (s *MemoryTaskStore) List(ctx context.Context, activeOnly bool) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var out []*domain.Task
	for _, t := range slices.Backward(s.tasks) {
		if activeOnly && !t.Available(now) {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

func (s *MemoryTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			c := *t
			return &c, nil
		}
	}
	return nil, domain.ErrTaskNotFound.With("task_id", id)
}

func (s *MemoryTaskStore) Create(ctx context.Context, t *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	t.CreatedAt = s.now()
	c := *t
	s.tasks = append(s.tasks, &c)
	return nil
}

func (s *MemoryTaskStore) SetActive(ctx context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			t.IsActive = active
			return nil
		}
	}
	return domain.ErrTaskNotFound.With("task_id", id)
}

func (s *MemoryTaskStore) CreateCompletion(ctx context.Context, c *domain.TaskCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.completions {
		if p.TaskID == c.TaskID && p.UserID == c.UserID && !p.Processed {
			return domain.ErrTaskInProgress.With("task_id", c.TaskID)
		}
	}
	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = s.now()
	cp := *c
	s.completions = append(s.completions, &cp)
	return nil
}

func (s *MemoryTaskStore) PendingCompletion(ctx context.Context, taskID int64, userID string) (*domain.TaskCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.completions {
		if p.TaskID == taskID && p.UserID == userID && !p.Processed {
			c := *p
			return &c, nil
		}
	}
	return nil, domain.ErrNoPendingCompletion.With("task_id", taskID)
}

func (s *MemoryTaskStore) MarkProcessed(ctx context.Context, completionID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.completions {
		if p.ID == completionID {
			if p.Processed {
				return false, nil
			}
			p.Processed = true
			return true, nil
		}
	}
	return false, nil
}

// MemoryAuditLog collects audit entries in process.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (l *MemoryAuditLog) Create(ctx context.Context, log *domain.AuditLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := *log
	c.ID = int64(len(l.entries) + 1)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	l.entries = append(l.entries, &c)
	return nil
}

// Entries returns a copy of everything logged so far.
func (l *MemoryAuditLog) Entries() []domain.AuditLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.AuditLog, len(l.entries))
	for i, e := range l.entries {
		out[i] = *e
	}
	return out
}
