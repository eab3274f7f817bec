package model

import "time"

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Session is the authored document entity. Owner is set at creation and
// never changes. LastAutoSavedAt is refreshed on every successful save,
// manual or automatic; the two paths share the one timestamp.
type Session struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Tags            []string  `json:"tags"`
	JSONURL         string    `json:"jsonUrl,omitempty"`
	Content         string    `json:"content"`
	Status          string    `json:"status"`
	OwnerID         string    `json:"owner"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	LastAutoSavedAt time.Time `json:"lastAutoSavedAt"`
}

// SaveSessionRequest is the body of both POST /sessions and PUT /sessions/{id}.
// An update replaces every mutable field with these values.
type SaveSessionRequest struct {
	Title   string   `json:"title"`
	Tags    []string `json:"tags"`
	JSONURL string   `json:"jsonUrl"`
	Content string   `json:"content"`
	Status  string   `json:"status"`
}
