package service

import (
	"context"
	"errors"
	"time"

	"zentari/internal/domain"
	"zentari/internal/logger"
	"zentari/internal/repository"
)

// TaskService runs the delayed-completion workflow of rewarded tasks. A user
// starts a task, waits out its completion delay, then checks back; the power
// reward is credited through the Engine exactly once per task.
type TaskService struct {
	tasks  repository.TaskStore
	engine *Engine
}

func NewTaskService(tasks repository.TaskStore, engine *Engine) *TaskService {
	return &TaskService{tasks: tasks, engine: engine}
}

// TaskView is a task as seen by one user.
type TaskView struct {
	*domain.Task
	Completed    bool       `json:"completed"`
	PendingUntil *time.Time `json:"pending_until,omitempty"`
}

// List returns available tasks annotated with the user's progress.
func (s *TaskService) List(ctx context.Context, userID string) ([]TaskView, error) {
	a, err := s.engine.Store().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.List(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		v := TaskView{Task: t, Completed: a.HasCompletedTask(t.ID)}
		if !v.Completed {
			if c, err := s.tasks.PendingCompletion(ctx, t.ID, userID); err == nil {
				v.PendingUntil = &c.CompletionTime
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// Initiate starts the completion timer of a task.
func (s *TaskService) Initiate(ctx context.Context, userID string, taskID int64) (*domain.TaskCompletion, error) {
	now := s.engine.Now()
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Available(now) {
		return nil, domain.ErrTaskUnavailable.With("task_id", taskID)
	}
	a, err := s.engine.Store().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if a.HasCompletedTask(taskID) {
		return nil, domain.ErrTaskAlreadyCompleted.With("task_id", taskID)
	}

	c := &domain.TaskCompletion{
		TaskID:         taskID,
		UserID:         userID,
		CompletionTime: now.Add(time.Duration(task.CompletionDelay) * time.Second),
	}
	if err := s.tasks.CreateCompletion(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CompletionStatus is the state of a pending completion.
type CompletionStatus struct {
	Status           string      `json:"status"`
	CompletionTime   time.Time   `json:"completion_time"`
	SecondsRemaining int64       `json:"seconds_remaining"`
	Reward           *TaskReward `json:"reward,omitempty"`
}

const (
	CompletionPending   = "pending"
	CompletionCompleted = "completed"
)

// CheckCompletion credits the task once its delay has elapsed. The account's
// completed-task list decides who wins when checks race.
func (s *TaskService) CheckCompletion(ctx context.Context, userID string, taskID int64) (*CompletionStatus, error) {
	c, err := s.tasks.PendingCompletion(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	now := s.engine.Now()
	if !c.Ready(now) {
		remaining := c.CompletionTime.Sub(now)
		return &CompletionStatus{
			Status:           CompletionPending,
			CompletionTime:   c.CompletionTime,
			SecondsRemaining: int64((remaining + time.Second - 1) / time.Second),
		}, nil
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	reward, err := s.engine.CompleteTask(ctx, userID, taskID, task.Power)
	if err != nil && !errors.Is(err, domain.ErrTaskAlreadyCompleted) {
		return nil, err
	}
	if _, perr := s.tasks.MarkProcessed(ctx, c.ID); perr != nil {
		logger.Warn("failed to mark task completion processed", "completion_id", c.ID, "error", perr)
	}
	if err != nil {
		return nil, err
	}
	return &CompletionStatus{Status: CompletionCompleted, CompletionTime: c.CompletionTime, Reward: reward}, nil
}
