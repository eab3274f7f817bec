package repository

import (
	"database/sql"

	"sesi/internal/session/model"
	"sesi/pkg/logger"

	"github.com/lib/pq"
)

const sessionColumns = "id, title, tags, json_url, content, status, owner_id, created_at, updated_at, last_autosaved_at"

type SessionRepository struct {
	DB *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// Insert stores a new session. The timestamps are store-assigned; the
// created row is scanned back into s.
func (r *SessionRepository) Insert(s *model.Session) error {
	err := r.DB.QueryRow(`INSERT INTO sessions (id, title, tags, json_url, content, status, owner_id, created_at, updated_at, last_autosaved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), NOW())
		RETURNING created_at, updated_at, last_autosaved_at`,
		s.ID, s.Title, pq.Array(s.Tags), s.JSONURL, s.Content, s.Status, s.OwnerID,
	).Scan(&s.CreatedAt, &s.UpdatedAt, &s.LastAutoSavedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to insert session %s: %v", s.ID, err)
	}
	return err
}

func (r *SessionRepository) GetByID(id string) (*model.Session, error) {
	row := r.DB.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE id = $1", id)
	s, err := scanSession(row)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get session %s: %v", id, err)
		}
		return nil, err
	}
	return s, nil
}

// Update fully replaces the mutable fields and unconditionally refreshes
// updated_at and last_autosaved_at. Last write wins; there is no version
// token guarding overlapping writers.
func (r *SessionRepository) Update(id string, req model.SaveSessionRequest) (*model.Session, error) {
	row := r.DB.QueryRow(`UPDATE sessions
		SET title = $1, tags = $2, json_url = $3, content = $4, status = $5, updated_at = NOW(), last_autosaved_at = NOW()
		WHERE id = $6
		RETURNING `+sessionColumns,
		req.Title, pq.Array(req.Tags), req.JSONURL, req.Content, req.Status, id)
	s, err := scanSession(row)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to update session %s: %v", id, err)
		}
		return nil, err
	}
	return s, nil
}

func (r *SessionRepository) Delete(id string) error {
	_, err := r.DB.Exec("DELETE FROM sessions WHERE id = $1", id)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete session %s: %v", id, err)
	}
	return err
}

func (r *SessionRepository) ListByOwner(ownerID string) ([]model.Session, error) {
	rows, err := r.DB.Query("SELECT "+sessionColumns+" FROM sessions WHERE owner_id = $1 ORDER BY updated_at DESC", ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list sessions for user %s: %v", ownerID, err)
		return nil, err
	}
	return collectSessions(rows)
}

func (r *SessionRepository) ListPublished() ([]model.Session, error) {
	rows, err := r.DB.Query("SELECT "+sessionColumns+" FROM sessions WHERE status = $1 ORDER BY updated_at DESC", model.StatusPublished)
	if err != nil {
		logger.Sugar.Errorf("Failed to list published sessions: %v", err)
		return nil, err
	}
	return collectSessions(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var s model.Session
	err := row.Scan(&s.ID, &s.Title, pq.Array(&s.Tags), &s.JSONURL, &s.Content, &s.Status,
		&s.OwnerID, &s.CreatedAt, &s.UpdatedAt, &s.LastAutoSavedAt)
	if err != nil {
		return nil, err
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return &s, nil
}

func collectSessions(rows *sql.Rows) ([]model.Session, error) {
	defer rows.Close()

	sessions := []model.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			logger.Sugar.Errorf("Failed to scan session row: %v", err)
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
