package service

import (
	"database/sql"
	"strings"

	"sesi/internal/session/model"
	"sesi/internal/session/repository"
	"sesi/pkg/httpx"
	"sesi/socket"

	"github.com/google/uuid"
)

// SessionService enforces ownership and publication-state rules on top of
// the repository. It never touches credentials; requester identities arrive
// already resolved by the access gate.
type SessionService struct {
	Repo *repository.SessionRepository
	Feed *socket.Hub
}

func NewSessionService(repo *repository.SessionRepository, feed *socket.Hub) *SessionService {
	return &SessionService{Repo: repo, Feed: feed}
}

func (s *SessionService) Create(ownerID string, req model.SaveSessionRequest) (*model.Session, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	sess := &model.Session{
		ID:      uuid.NewString(),
		Title:   req.Title,
		Tags:    req.Tags,
		JSONURL: req.JSONURL,
		Content: req.Content,
		Status:  req.Status,
		OwnerID: ownerID,
	}
	if err := s.Repo.Insert(sess); err != nil {
		return nil, err
	}

	s.publish(sess, socket.EventSaved)
	return sess, nil
}

// Read returns a published session to any requester, including anonymous
// ones. Drafts are visible to their owner only.
func (s *SessionService) Read(id, requesterID string) (*model.Session, error) {
	sess, err := s.Repo.GetByID(id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, httpx.NotFound("Session not found")
		}
		return nil, err
	}

	if sess.Status == model.StatusPublished {
		return sess, nil
	}
	if requesterID == "" {
		return nil, httpx.Unauthenticated("Unauthorized request")
	}
	if sess.OwnerID != requesterID {
		return nil, httpx.Forbidden("You don't have permission to view this session")
	}
	return sess, nil
}

// Update replaces every mutable field. Status transitions are permitted in
// both directions; a published session may be reverted to draft here.
func (s *SessionService) Update(id, requesterID string, req model.SaveSessionRequest) (*model.Session, error) {
	existing, err := s.Repo.GetByID(id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, httpx.NotFound("Session not found")
		}
		return nil, err
	}
	if existing.OwnerID != requesterID {
		return nil, httpx.Forbidden("You don't have permission to update this session")
	}

	req, err = normalize(req)
	if err != nil {
		return nil, err
	}

	updated, err := s.Repo.Update(id, req)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, httpx.NotFound("Session not found")
		}
		return nil, err
	}

	event := socket.EventSaved
	if updated.Status == model.StatusPublished && existing.Status != model.StatusPublished {
		event = socket.EventPublished
	}
	s.publish(updated, event)
	return updated, nil
}

func (s *SessionService) Delete(id, requesterID string) error {
	sess, err := s.Repo.GetByID(id)
	if err != nil {
		if err == sql.ErrNoRows {
			return httpx.NotFound("Session not found")
		}
		return err
	}
	if sess.OwnerID != requesterID {
		return httpx.Forbidden("You don't have permission to delete this session")
	}

	if err := s.Repo.Delete(id); err != nil {
		return err
	}
	s.publish(sess, socket.EventDeleted)
	return nil
}

func (s *SessionService) ListOwned(requesterID string) ([]model.Session, error) {
	return s.Repo.ListByOwner(requesterID)
}

func (s *SessionService) ListPublished() ([]model.Session, error) {
	return s.Repo.ListPublished()
}

func (s *SessionService) publish(sess *model.Session, eventType string) {
	if s.Feed == nil {
		return
	}
	s.Feed.Publish(sess.OwnerID, socket.Event{
		Type:            eventType,
		SessionID:       sess.ID,
		Title:           sess.Title,
		Status:          sess.Status,
		LastAutoSavedAt: sess.LastAutoSavedAt,
	})
}

// normalize trims every field, applies the draft default, and rejects
// empty title or content.
func normalize(req model.SaveSessionRequest) (model.SaveSessionRequest, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.JSONURL = strings.TrimSpace(req.JSONURL)

	if req.Title == "" {
		return req, httpx.Validation("Title is required")
	}
	if req.Content == "" {
		return req, httpx.Validation("Content is required")
	}

	tags := []string{}
	for _, tag := range req.Tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	req.Tags = tags

	if req.Status == "" {
		req.Status = model.StatusDraft
	}
	if req.Status != model.StatusDraft && req.Status != model.StatusPublished {
		return req, httpx.Validation("Status must be draft or published")
	}
	return req, nil
}
