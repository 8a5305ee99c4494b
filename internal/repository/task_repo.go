package repository

import (
	"context"
	"errors"

	"zentari/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskStore holds rewarded tasks and their delayed completions.
type TaskStore interface {
	List(ctx context.Context, activeOnly bool) ([]*domain.Task, error)
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	Create(ctx context.Context, t *domain.Task) error
	SetActive(ctx context.Context, id int64, active bool) error

	CreateCompletion(ctx context.Context, c *domain.TaskCompletion) error
	PendingCompletion(ctx context.Context, taskID int64, userID string) (*domain.TaskCompletion, error)
	MarkProcessed(ctx context.Context, completionID int64) (bool, error)
}

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, topic, description, image_url, power, is_active, created_at, expires_at, completion_delay, link`

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.Topic, &t.Description, &t.ImageURL, &t.Power, &t.IsActive,
		&t.CreatedAt, &t.ExpiresAt, &t.CompletionDelay, &t.Link)
	return &t, err
}

func (r *TaskRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Task, error) {
	rows, err := r.db.Query(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE (NOT $1::boolean OR (is_active AND (expires_at IS NULL OR expires_at > now())))
		ORDER BY created_at DESC LIMIT 100`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTaskNotFound.With("task_id", id)
	}
	return t, err
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO tasks (topic, description, image_url, power, is_active, expires_at, completion_delay, link)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		t.Topic, t.Description, t.ImageURL, t.Power, t.IsActive, t.ExpiresAt, t.CompletionDelay, t.Link,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *TaskRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE tasks SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound.With("task_id", id)
	}
	return nil
}

// CreateCompletion records a pending completion. A second pending row for the
// same user and task violates idx_task_completions_pending.
func (r *TaskRepository) CreateCompletion(ctx context.Context, c *domain.TaskCompletion) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO task_completions (task_id, user_id, completion_time)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		c.TaskID, c.UserID, c.CompletionTime,
	).Scan(&c.ID, &c.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrTaskInProgress.With("task_id", c.TaskID)
	}
	return err
}

func (r *TaskRepository) PendingCompletion(ctx context.Context, taskID int64, userID string) (*domain.TaskCompletion, error) {
	var c domain.TaskCompletion
	err := r.db.QueryRow(ctx,
		`SELECT id, task_id, user_id, completion_time, processed, created_at
		 FROM task_completions
		 WHERE task_id = $1 AND user_id = $2 AND NOT processed`,
		taskID, userID,
	).Scan(&c.ID, &c.TaskID, &c.UserID, &c.CompletionTime, &c.Processed, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoPendingCompletion.With("task_id", taskID)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkProcessed flips a pending completion; false means another request got
// there first.
func (r *TaskRepository) MarkProcessed(ctx context.Context, completionID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE task_completions SET processed = TRUE WHERE id = $1 AND NOT processed`, completionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
