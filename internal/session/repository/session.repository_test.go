package repository

import (
	"database/sql"
	"database/sql/driver"
	"os"
	"testing"
	"time"

	"sesi/internal/session/model"
	"sesi/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init(true)
	os.Exit(m.Run())
}

func newTestRepo(t *testing.T) (*SessionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSessionRepository(db), mock
}

func row(id, tags string, updatedAt time.Time) []driver.Value {
	return []driver.Value{id, "T", tags, "", "C", "draft", "user1", updatedAt, updatedAt, updatedAt}
}

var cols = []string{"id", "title", "tags", "json_url", "content", "status", "owner_id", "created_at", "updated_at", "last_autosaved_at"}

func TestGetByIDScansTagsArray(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE id =").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(row("s1", "{stress,sleep}", time.Now())...))

	sess, err := repo.GetByID("s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"stress", "sleep"}, sess.Tags)
}

func TestGetByIDSurfacesNoRows(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE id =").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGetByIDEmptyTagsNeverNil(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE id =").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(row("s1", "{}", time.Now())...))

	sess, err := repo.GetByID("s1")
	require.NoError(t, err)
	assert.NotNil(t, sess.Tags)
	assert.Empty(t, sess.Tags)
}

func TestListByOwnerReturnsEmptySliceNotNil(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("FROM sessions WHERE owner_id = (.+) ORDER BY updated_at DESC").
		WithArgs("user1").
		WillReturnRows(sqlmock.NewRows(cols))

	sessions, err := repo.ListByOwner("user1")
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Len(t, sessions, 0)
}

func TestInsertUsesStoreAssignedTimestamps(t *testing.T) {
	repo, mock := newTestRepo(t)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO sessions (.+) VALUES (.+) NOW\\(\\), NOW\\(\\), NOW\\(\\)").
		WithArgs("s1", "T", sqlmock.AnyArg(), "", "C", "draft", "user1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at", "last_autosaved_at"}).AddRow(now, now, now))

	sess := &model.Session{ID: "s1", Title: "T", Tags: []string{}, Content: "C", Status: "draft", OwnerID: "user1"}
	require.NoError(t, repo.Insert(sess))
	assert.Equal(t, now, sess.CreatedAt)
	assert.Equal(t, now, sess.LastAutoSavedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
