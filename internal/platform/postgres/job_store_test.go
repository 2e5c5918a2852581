package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/store"
	"github.com/phrazzld/summa/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jobRowColumns = []string{"id", "doc_id", "channel", "state", "created_at", "updated_at"}

func newTestJob(t *testing.T, docID domain.DocID) *domain.Job {
	t.Helper()
	job, err := domain.NewJob(docID, "")
	require.NoError(t, err)
	return job
}

func TestPostgresJobStore_CreateOrGetActive(t *testing.T) {
	t.Run("creates job when none is active", func(t *testing.T) {
		db, mock := newMockDB(t)
		job := newTestJob(t, "42")

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).
			WithArgs("42").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("status IN ('pending', 'processing')")).
			WithArgs("42").
			WillReturnRows(sqlmock.NewRows(jobRowColumns))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jobs")).
			WithArgs(job.ID.String(), "42", job.Channel, task.TaskTypeDocumentSummarization,
				sqlmock.AnyArg(), "pending", "CHECK_CACHE", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		got, created, err := NewPostgresJobStore(db).CreateOrGetActive(context.Background(), job)

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, job.ID, got.ID)
	})

	t.Run("joins the active job", func(t *testing.T) {
		db, mock := newMockDB(t)
		existingID := uuid.New()
		job := newTestJob(t, "42")

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FROM jobs")).
			WillReturnRows(sqlmock.NewRows(jobRowColumns).
				AddRow(existingID.String(), "42", "conn-7", "SUMMARIZING", fixedTime, fixedTime))
		mock.ExpectCommit()

		got, created, err := NewPostgresJobStore(db).CreateOrGetActive(context.Background(), job)

		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existingID, got.ID)
		assert.Equal(t, "conn-7", got.Channel)
		assert.Equal(t, domain.JobStateSummarizing, got.State)
	})

	t.Run("unique violation maps to active job exists", func(t *testing.T) {
		db, mock := newMockDB(t)
		job := newTestJob(t, "42")

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FROM jobs")).WillReturnRows(sqlmock.NewRows(jobRowColumns))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jobs")).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "jobs_active_doc_id_idx"})
		mock.ExpectRollback()

		_, _, err := NewPostgresJobStore(db).CreateOrGetActive(context.Background(), job)

		assert.ErrorIs(t, err, store.ErrActiveJobExists)
		assert.True(t, store.IsDuplicateError(err))
	})
}

func TestPostgresJobStore_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	_, err := NewPostgresJobStore(db).GetByID(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrJobNotFound)
}

func TestPostgresJobStore_UpdateState(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET state = $1")).
			WithArgs("REDUCING", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, NewPostgresJobStore(db).UpdateState(context.Background(), uuid.New(), domain.JobStateReducing))
	})

	t.Run("missing job", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET state = $1")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewPostgresJobStore(db).UpdateState(context.Background(), uuid.New(), domain.JobStateDone)
		assert.ErrorIs(t, err, store.ErrJobNotFound)
	})

	t.Run("invalid state", func(t *testing.T) {
		db, _ := newMockDB(t)
		err := NewPostgresJobStore(db).UpdateState(context.Background(), uuid.New(), "SLEEPING")
		assert.ErrorIs(t, err, domain.ErrInvalidJobState)
	})
}

func TestPostgresJobStore_Steps(t *testing.T) {
	jobID := uuid.New()

	t.Run("missing checkpoint", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM job_steps")).
			WillReturnRows(sqlmock.NewRows([]string{"result"}))

		_, err := NewPostgresJobStore(db).GetStep(context.Background(), jobID, "reduce")
		assert.ErrorIs(t, err, store.ErrStepNotFound)
	})

	t.Run("saved checkpoint", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM job_steps")).
			WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow([]byte(`"partial summary"`)))

		result, err := NewPostgresJobStore(db).GetStep(context.Background(), jobID, "summarize-chunk-0")
		require.NoError(t, err)
		assert.JSONEq(t, `"partial summary"`, string(result))
	})

	t.Run("save upserts on job and step", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (job_id, step_name) DO UPDATE")).
			WithArgs(sqlmock.AnyArg(), "reduce", `["a","b","c","d","e"]`, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := NewPostgresJobStore(db).SaveStep(context.Background(), jobID, "reduce", []byte(`["a","b","c","d","e"]`))
		assert.NoError(t, err)
	})

	t.Run("save rejects invalid JSON", func(t *testing.T) {
		db, _ := newMockDB(t)
		err := NewPostgresJobStore(db).SaveStep(context.Background(), jobID, "reduce", []byte(`{`))
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestPostgresJobStore_TaskStore(t *testing.T) {
	payload, err := json.Marshal(map[string]string{"doc_id": "42", "channel": "c-1"})
	require.NoError(t, err)

	t.Run("save task is idempotent on id", func(t *testing.T) {
		db, mock := newMockDB(t)
		tk := task.NewMockTask(uuid.New(), task.TaskTypeDocumentSummarization, payload)
		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO NOTHING")).
			WithArgs(sqlmock.AnyArg(), "42", "c-1", task.TaskTypeDocumentSummarization, string(payload),
				"pending", "CHECK_CACHE", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, NewPostgresJobStore(db).SaveTask(context.Background(), tk))
	})

	t.Run("save task without doc id", func(t *testing.T) {
		db, _ := newMockDB(t)
		tk := task.NewMockTask(uuid.New(), task.TaskTypeDocumentSummarization, []byte(`{}`))

		err := NewPostgresJobStore(db).SaveTask(context.Background(), tk)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("update status of missing task is a no-op", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = $1")).
			WithArgs("failed", "boom", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewPostgresJobStore(db).UpdateTaskStatus(context.Background(), uuid.New(), task.TaskStatusFailed, "boom")
		assert.NoError(t, err)
	})

	t.Run("processing tasks older than cutoff", func(t *testing.T) {
		db, mock := newMockDB(t)
		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("AND updated_at < $2")).
			WithArgs("processing", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "type", "payload", "status", "error_message", "created_at", "updated_at"}).
				AddRow(id.String(), task.TaskTypeDocumentSummarization, payload, "processing", "", fixedTime, fixedTime))

		records, err := NewPostgresJobStore(db).GetProcessingTasks(context.Background(), 30*time.Minute)

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, id, records[0].ID)
		assert.Equal(t, task.TaskStatusProcessing, records[0].Status)
		assert.JSONEq(t, string(payload), string(records[0].Payload))
	})

	t.Run("pending tasks", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC")).
			WithArgs("pending").
			WillReturnRows(sqlmock.NewRows([]string{"id", "type", "payload", "status", "error_message", "created_at", "updated_at"}))

		records, err := NewPostgresJobStore(db).GetPendingTasks(context.Background())
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
