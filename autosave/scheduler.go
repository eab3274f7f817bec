package autosave

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"sesi/internal/session/model"
	"sesi/pkg/httpx"
	"sesi/pkg/logger"
)

var (
	// ErrPublishedSession is returned by Open: published sessions are
	// treated as read-only by the editor, even though the API itself
	// permits reverting them.
	ErrPublishedSession = errors.New("published sessions cannot be edited")

	ErrStopped = errors.New("scheduler is stopped")
)

// Scheduler owns the autosave loop for a single editing surface. Every
// field edit restarts the debounce window; a periodic ticker bounds the
// staleness of continuous editing. All saves run from the one Run
// goroutine, so at most one persistence call is in flight at a time and a
// later trigger supersedes an earlier one instead of racing it.
type Scheduler struct {
	Client   *Client
	Debounce time.Duration
	Interval time.Duration

	// OnSaved fires after every successful save. OnError surfaces a
	// recoverable failure; the draft stays dirty and the next edit or tick
	// retries. OnAuthExpired means the credential was rejected and the
	// scheduler has shut down.
	OnSaved       func(sess *model.Session)
	OnError       func(err error)
	OnAuthExpired func()

	mu        sync.Mutex
	id        string
	draft     model.SaveSessionRequest
	dirty     bool
	lastSaved time.Time

	edits    chan struct{}
	flushes  chan flushRequest
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type flushRequest struct {
	ctx    context.Context
	status string
	done   chan error
}

func NewScheduler(client *Client) *Scheduler {
	return &Scheduler{
		Client:   client,
		Debounce: 5 * time.Second,
		Interval: 30 * time.Second,
		edits:    make(chan struct{}, 1),
		flushes:  make(chan flushRequest),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Open loads an existing session into the draft. Refuses published
// sessions; the caller should send the user back to their dashboard.
func (s *Scheduler) Open(sess *model.Session) error {
	if sess.Status == model.StatusPublished {
		return ErrPublishedSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = sess.ID
	s.draft = model.SaveSessionRequest{
		Title:   sess.Title,
		Tags:    append([]string{}, sess.Tags...),
		JSONURL: sess.JSONURL,
		Content: sess.Content,
		Status:  sess.Status,
	}
	s.dirty = false
	return nil
}

// Edit applies a mutation to the draft, marks it dirty, and restarts the
// debounce window. Safe to call from any goroutine.
func (s *Scheduler) Edit(mutate func(draft *model.SaveSessionRequest)) {
	s.mu.Lock()
	mutate(&s.draft)
	s.dirty = true
	s.mu.Unlock()

	select {
	case s.edits <- struct{}{}:
	default:
	}
}

// Run drives the autosave loop until Stop is called or the credential
// expires. Both timers funnel into the same save routine.
func (s *Scheduler) Run() {
	defer close(s.done)

	debounce := newDebounceTimer()
	defer debounce.Cancel()
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.edits:
			debounce.Reset(s.Debounce)
		case <-debounce.C():
			s.autoSave()
		case <-ticker.C:
			s.autoSave()
		case req := <-s.flushes:
			req.done <- s.save(req.ctx, req.status, true)
		case <-s.stop:
			return
		}
	}
}

// Save performs an explicit save, forcing the given status when non-empty
// (e.g. "published"). It runs through the scheduler loop so it supersedes
// any pending autosave rather than racing it.
func (s *Scheduler) Save(ctx context.Context, status string) error {
	req := flushRequest{ctx: ctx, status: status, done: make(chan error, 1)}
	select {
	case s.flushes <- req:
	case <-s.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels pending timers without a final flush. Callers wanting the
// leave-confirmation flow check Dirty first and prompt the user.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed once the Run loop has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Scheduler) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// SessionID returns the store-assigned id, empty until the first
// successful create.
func (s *Scheduler) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Scheduler) autoSave() {
	if err := s.save(context.Background(), "", false); err != nil {
		if !httpx.IsUnauthenticated(err) && s.OnError != nil {
			s.OnError(err)
		}
	}
}

func (s *Scheduler) save(ctx context.Context, forceStatus string, manual bool) error {
	s.mu.Lock()
	if !manual && !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.draft
	snapshot.Tags = append([]string{}, s.draft.Tags...)
	if forceStatus != "" {
		snapshot.Status = forceStatus
	}
	id := s.id
	s.mu.Unlock()

	if strings.TrimSpace(snapshot.Title) == "" || strings.TrimSpace(snapshot.Content) == "" {
		if manual {
			return httpx.Validation("Title and content are required")
		}
		// Never autosave an invalid draft.
		return nil
	}

	var sess *model.Session
	var err error
	if id == "" {
		sess, err = s.Client.CreateSession(ctx, snapshot)
	} else {
		sess, err = s.Client.UpdateSession(ctx, id, snapshot)
	}
	if err != nil {
		if httpx.IsUnauthenticated(err) {
			if s.OnAuthExpired != nil {
				s.OnAuthExpired()
			}
			s.Stop()
		}
		return err
	}

	s.mu.Lock()
	s.id = sess.ID
	// Only mark the draft clean if it hasn't changed again since the
	// snapshot was taken.
	if draftFieldsEqual(s.draft, snapshot) {
		s.dirty = false
		s.draft.Status = snapshot.Status
	}
	s.lastSaved = time.Now()
	s.mu.Unlock()

	logger.Sugar.Debugf("Saved session %s", sess.ID)
	if s.OnSaved != nil {
		s.OnSaved(sess)
	}
	return nil
}

// draftFieldsEqual compares the user-editable fields, ignoring status,
// which a manual save may have forced.
func draftFieldsEqual(a, b model.SaveSessionRequest) bool {
	if a.Title != b.Title || a.JSONURL != b.JSONURL || a.Content != b.Content {
		return false
	}
	if len(a.Tags) != len(b.Tags) {
		return false
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return false
		}
	}
	return true
}
