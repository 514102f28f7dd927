package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent-007-kali/intel-agent/internal/intel"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestInitSchemaCreatesBothTables(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS monitoring_jobs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS subscriptions").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.InitSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInitSchemaStopsOnFirstError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS monitoring_jobs").
		WillReturnError(errors.New("permission denied"))

	err := store.InitSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init schema")
}

func TestListActiveJobsFiltersOnSubscriptionStatus(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	checked := time.Unix(1700000000, 0).UTC()

	rows := pgxmock.NewRows([]string{
		"user_email", "url_1", "url_2", "url_3",
		"is_active", "last_content_hash", "latest_report", "last_check_at",
	}).AddRow(
		"a@b.com", "https://rival.example/pricing", "", "",
		true, "cafe1234cafe1234", "old report", &checked,
	)

	mock.ExpectQuery("SELECT").
		WithArgs(intel.SubscriptionActive).
		WillReturnRows(rows)

	jobs, err := store.ListActiveJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "a@b.com", jobs[0].UserEmail)
	assert.Equal(t, []string{"https://rival.example/pricing"}, jobs[0].TargetURLs())
	assert.Equal(t, "cafe1234cafe1234", jobs[0].LastContentHash)
	require.NotNil(t, jobs[0].LastCheckAt)
	assert.Equal(t, checked, *jobs[0].LastCheckAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReportUpdatesAllFieldsTogether(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("UPDATE monitoring_jobs").
		WithArgs("a@b.com", "cafe1234cafe1234", "new report", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.SaveReport(context.Background(), "a@b.com", "cafe1234cafe1234", "new report", now)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReportFailsForMissingJob(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("UPDATE monitoring_jobs").
		WithArgs("ghost@b.com", "hash", "report", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.SaveReport(context.Background(), "ghost@b.com", "hash", "report", now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such job")
}

func TestTouchJobUpdatesTimestampOnly(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("UPDATE monitoring_jobs SET last_check_at").
		WithArgs("a@b.com", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.TouchJob(context.Background(), "a@b.com", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSubscription(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs("a@b.com", "active", "premium_50").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.UpsertSubscription(context.Background(), intel.Subscription{
		UserEmail: "a@b.com",
		Status:    "active",
		Plan:      "premium_50",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateJobLeavesURLsAlone(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO monitoring_jobs").
		WithArgs("a@b.com").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.ActivateJob(context.Background(), "a@b.com"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountJobs(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := store.CountJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestListActiveJobsPropagatesQueryErrors(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").
		WithArgs(intel.SubscriptionActive).
		WillReturnError(errors.New("connection reset"))

	_, err := store.ListActiveJobs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list active jobs")
}

func TestNewStoreWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewStoreWithPool(nil)
	require.Error(t, err)
}
