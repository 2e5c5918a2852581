package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/platform/logger"
	"github.com/phrazzld/summa/internal/store"
	"github.com/phrazzld/summa/internal/task"
)

// jobPayload is the task payload stored with every job row.
type jobPayload struct {
	DocID   domain.DocID `json:"doc_id"`
	Channel string       `json:"channel"`
}

// PostgresJobStore persists summarization jobs and their step checkpoints.
// A job row is also the durable record of the task that runs it, so the
// store implements task.TaskStore as well.
type PostgresJobStore struct {
	db       store.DBTX
	beginner store.Beginner
}

// NewPostgresJobStore creates a job store on db.
func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db, beginner: db}
}

// WithTx returns a store that runs its queries in tx.
func (s *PostgresJobStore) WithTx(tx *sql.Tx) *PostgresJobStore {
	return &PostgresJobStore{db: tx}
}

var (
	_ store.JobStore  = (*PostgresJobStore)(nil)
	_ store.StepStore = (*PostgresJobStore)(nil)
	_ task.TaskStore  = (*PostgresJobStore)(nil)
)

const jobColumns = `id, doc_id, channel, state, created_at, updated_at`

// CreateOrGetActive inserts job unless its document already has a pending or
// processing job, in which case that job is returned with created false. The
// check and insert run under a transaction-scoped advisory lock on the
// document ID.
func (s *PostgresJobStore) CreateOrGetActive(ctx context.Context, job *domain.Job) (*domain.Job, bool, error) {
	var (
		result  *domain.Job
		created bool
	)

	run := func(ctx context.Context, db store.DBTX) error {
		if _, err := db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, job.DocID); err != nil {
			return fmt.Errorf("failed to lock document %s: %w", job.DocID, MapError(err))
		}

		active, err := getActiveJob(ctx, db, job.DocID)
		switch {
		case err == nil:
			result = active
			return nil
		case !errors.Is(err, store.ErrJobNotFound):
			return err
		}

		if err := insertJob(ctx, db, job, task.TaskTypeDocumentSummarization); err != nil {
			return err
		}
		result, created = job, true
		return nil
	}

	var err error
	if s.beginner != nil {
		err = store.RunInTransaction(ctx, s.beginner, func(ctx context.Context, tx *sql.Tx) error {
			return run(ctx, tx)
		})
	} else {
		err = run(ctx, s.db)
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to create or get active job", "doc_id", job.DocID, "error", err)
		return nil, false, err
	}
	return result, created, nil
}

func getActiveJob(ctx context.Context, db store.DBTX, docID domain.DocID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM jobs
		WHERE doc_id = $1 AND status IN ('pending', 'processing')
		ORDER BY created_at DESC
		LIMIT 1`

	job, err := scanJob(db.QueryRowContext(ctx, query, docID))
	if err != nil {
		return nil, err
	}
	return job, nil
}

func insertJob(ctx context.Context, db store.DBTX, job *domain.Job, taskType string) error {
	payload, err := json.Marshal(jobPayload{DocID: job.DocID, Channel: job.Channel})
	if err != nil {
		return fmt.Errorf("%w: encode job payload: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO jobs (id, doc_id, channel, type, payload, status, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = db.ExecContext(ctx, query,
		job.ID,
		job.DocID,
		job.Channel,
		taskType,
		string(payload),
		task.TaskStatusPending,
		job.State,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: document %s: %w", store.ErrActiveJobExists, job.DocID, err)
	}
	if err != nil {
		return store.NewStoreError("job", "create", "insert failed", MapError(err))
	}
	return nil
}

func scanJob(row *sql.Row) (*domain.Job, error) {
	var job domain.Job
	err := row.Scan(&job.ID, &job.DocID, &job.Channel, &job.State, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrJobNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("job", "get", "query failed", MapError(err))
	}
	return &job, nil
}

// GetByID returns the job with the given ID, or store.ErrJobNotFound.
func (s *PostgresJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	return scanJob(s.db.QueryRowContext(ctx, query, id))
}

// UpdateState records the pipeline state of a job and refreshes updated_at,
// which keeps a live job from looking stuck.
func (s *PostgresJobStore) UpdateState(ctx context.Context, id uuid.UUID, state domain.JobState) error {
	if !state.Valid() {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidJobState)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = $1, updated_at = $2 WHERE id = $3`,
		state, time.Now().UTC(), id)
	if err != nil {
		logger.FromContext(ctx).Error("failed to update job state", "job_id", id, "state", state, "error", err)
		return store.NewStoreError("job", "update", "query failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrJobNotFound)
}

// GetStep returns the checkpointed result of a step, or store.ErrStepNotFound.
func (s *PostgresJobStore) GetStep(ctx context.Context, jobID uuid.UUID, name string) ([]byte, error) {
	var result []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM job_steps WHERE job_id = $1 AND step_name = $2`,
		jobID, name).Scan(&result)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrStepNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("job step", "get", "query failed", MapError(err))
	}
	return result, nil
}

// SaveStep stores the result of a step, replacing an earlier checkpoint.
func (s *PostgresJobStore) SaveStep(ctx context.Context, jobID uuid.UUID, name string, result []byte) error {
	if !json.Valid(result) {
		return fmt.Errorf("%w: step %s result is not valid JSON", store.ErrInvalidEntity, name)
	}

	query := `
		INSERT INTO job_steps (job_id, step_name, result, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id, step_name) DO UPDATE
		SET result = EXCLUDED.result, created_at = EXCLUDED.created_at
	`
	if _, err := s.db.ExecContext(ctx, query, jobID, name, string(result), time.Now().UTC()); err != nil {
		logger.FromContext(ctx).Error("failed to save job step", "job_id", jobID, "step", name, "error", err)
		return store.NewStoreError("job step", "save", "query failed", MapError(err))
	}
	return nil
}

// SaveTask persists a task as a job row. A task whose ID already exists,
// such as one created by CreateOrGetActive, is left untouched.
func (s *PostgresJobStore) SaveTask(ctx context.Context, t task.Task) error {
	var payload jobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: task %s payload: %w", store.ErrInvalidEntity, t.ID(), err)
	}
	if payload.DocID == "" {
		return fmt.Errorf("%w: task %s payload has no doc_id", store.ErrInvalidEntity, t.ID())
	}

	query := `
		INSERT INTO jobs (id, doc_id, channel, type, payload, status, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (id) DO NOTHING
	`
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, query,
		t.ID(),
		payload.DocID,
		payload.Channel,
		t.Type(),
		string(t.Payload()),
		t.Status(),
		domain.JobStateCheckCache,
		now,
	)
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: document %s: %w", store.ErrActiveJobExists, payload.DocID, err)
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to save task", "task_id", t.ID(), "task_type", t.Type(), "error", err)
		return fmt.Errorf("failed to save task to database: %w", MapError(err))
	}
	return nil
}

// UpdateTaskStatus updates the task status of a job. Unknown IDs are ignored.
func (s *PostgresJobStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status task.TaskStatus,
	errorMsg string,
) error {
	log := logger.FromContext(ctx)

	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		status, errorMsg, time.Now().UTC(), taskID)
	if err != nil {
		log.Error("failed to update task status", "task_id", taskID, "status", status, "error", err)
		return fmt.Errorf("failed to update task status: %w", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrJobNotFound); errors.Is(err, store.ErrJobNotFound) {
		log.Warn("no task found with ID to update status", "task_id", taskID)
		return nil
	} else if err != nil {
		return err
	}
	return nil
}

// GetPendingTasks retrieves all tasks with "pending" status
func (s *PostgresJobStore) GetPendingTasks(ctx context.Context) ([]task.Record, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks retrieves tasks with "processing" status
func (s *PostgresJobStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Record, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

func (s *PostgresJobStore) getTasksByStatus(
	ctx context.Context,
	status task.TaskStatus,
	olderThan time.Duration,
) ([]task.Record, error) {
	query := `
		SELECT id, type, payload, status, error_message, created_at, updated_at
		FROM jobs
		WHERE status = $1`
	args := []any{status}
	if olderThan > 0 {
		query += ` AND updated_at < $2`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to query tasks by status", "status", status, "error", err)
		return nil, fmt.Errorf("failed to query tasks by status: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []task.Record
	for rows.Next() {
		var rec task.Record
		if err := rows.Scan(
			&rec.ID,
			&rec.Type,
			&rec.Payload,
			&rec.Status,
			&rec.ErrorMessage,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return records, nil
}
