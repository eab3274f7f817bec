package autosave

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"sesi/internal/session/model"
	"sesi/pkg/httpx"
	"sesi/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init(true)
	os.Exit(m.Run())
}

// fakeBackend is a minimal session API for exercising the pipeline.
type fakeBackend struct {
	mu          sync.Mutex
	creates     int
	updates     int
	inFlight    int
	maxInFlight int
	delay       time.Duration
	failWith    *httpx.APIError
	lastBody    model.SaveSessionRequest
}

func (b *fakeBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.inFlight++
		if b.inFlight > b.maxInFlight {
			b.maxInFlight = b.inFlight
		}
		delay := b.delay
		fail := b.failWith
		b.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}

		defer func() {
			b.mu.Lock()
			b.inFlight--
			b.mu.Unlock()
		}()

		if fail != nil {
			httpx.WriteError(w, fail)
			return
		}

		var req model.SaveSessionRequest
		json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		id := "s1"
		statusCode := http.StatusCreated
		if r.Method == http.MethodPut {
			b.updates++
			id = strings.TrimPrefix(r.URL.Path, "/sessions/")
			statusCode = http.StatusOK
		} else {
			b.creates++
		}
		b.lastBody = req
		b.mu.Unlock()

		now := time.Now()
		httpx.JSON(w, statusCode, model.Session{
			ID: id, Title: req.Title, Tags: req.Tags, JSONURL: req.JSONURL,
			Content: req.Content, Status: req.Status, OwnerID: "user1",
			CreatedAt: now, UpdatedAt: now, LastAutoSavedAt: now,
		}, "ok")
	})
}

func (b *fakeBackend) saves() (creates, updates int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.creates, b.updates
}

func (b *fakeBackend) last() model.SaveSessionRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastBody
}

func (b *fakeBackend) setFailure(apiErr *httpx.APIError) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWith = apiErr
}

func newTestScheduler(t *testing.T, backend *fakeBackend, debounce, interval time.Duration) *Scheduler {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	sch := NewScheduler(NewClient(server.URL, "test-token"))
	sch.Debounce = debounce
	sch.Interval = interval
	go sch.Run()
	t.Cleanup(func() {
		sch.Stop()
		<-sch.Done()
	})
	return sch
}

func editDraft(sch *Scheduler, title, content string) {
	sch.Edit(func(draft *model.SaveSessionRequest) {
		draft.Title = title
		draft.Content = content
	})
}

// Editing then pausing past the debounce window triggers exactly one save.
func TestDebounceSavesOnceAfterPause(t *testing.T) {
	backend := &fakeBackend{}
	sch := newTestScheduler(t, backend, 50*time.Millisecond, 10*time.Second)

	editDraft(sch, "T", "C")
	time.Sleep(300 * time.Millisecond)

	creates, updates := backend.saves()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 0, updates)
	assert.Equal(t, "s1", sch.SessionID())
	assert.False(t, sch.Dirty())
	assert.False(t, sch.LastSaved().IsZero())
}

func TestDebounceRestartsOnEachEdit(t *testing.T) {
	backend := &fakeBackend{}
	sch := newTestScheduler(t, backend, 250*time.Millisecond, 10*time.Second)

	editDraft(sch, "T", "C")
	time.Sleep(120 * time.Millisecond)
	editDraft(sch, "T2", "C")

	// 180ms after the second edit the restarted window has not elapsed.
	time.Sleep(180 * time.Millisecond)
	creates, _ := backend.saves()
	assert.Equal(t, 0, creates)

	time.Sleep(250 * time.Millisecond)
	creates, _ = backend.saves()
	assert.Equal(t, 1, creates)
	assert.Equal(t, "T2", backend.last().Title)
}

// Continuous editing keeps resetting the debounce window, but the periodic
// timer still bounds staleness.
func TestPeriodicTimerFlushesContinuousEditing(t *testing.T) {
	backend := &fakeBackend{}
	sch := newTestScheduler(t, backend, 150*time.Millisecond, 300*time.Millisecond)

	deadline := time.Now().Add(700 * time.Millisecond)
	for time.Now().Before(deadline) {
		editDraft(sch, "T", "C")
		time.Sleep(50 * time.Millisecond)
	}

	creates, updates := backend.saves()
	assert.GreaterOrEqual(t, creates+updates, 1, "periodic timer should have flushed during continuous editing")
}

func TestAutosaveSkipsInvalidDraft(t *testing.T) {
	backend := &fakeBackend{}
	sch := newTestScheduler(t, backend, 50*time.Millisecond, 10*time.Second)

	editDraft(sch, "   ", "some content")
	time.Sleep(300 * time.Millisecond)

	creates, updates := backend.saves()
	assert.Equal(t, 0, creates+updates)
	// The work is not lost; it just waits for a valid draft.
	assert.True(t, sch.Dirty())
}

func TestAutosaveCreatesThenUpdates(t *testing.T) {
	backend := &fakeBackend{}
	sch := newTestScheduler(t, backend, 50*time.Millisecond, 10*time.Second)

	editDraft(sch, "T", "C")
	time.Sleep(300 * time.Millisecond)
	editDraft(sch, "T", "C revised")
	time.Sleep(300 * time.Millisecond)

	creates, updates := backend.saves()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, updates)
	assert.Equal(t, "s1", sch.SessionID())
	assert.Equal(t, "C revised", backend.last().Content)
}

func TestManualSaveForcesStatus(t *testing.T) {
	backend := &fakeBackend{}
	sch := newTestScheduler(t, backend, 10*time.Second, 10*time.Second)

	editDraft(sch, "T", "C")
	require.NoError(t, sch.Save(context.Background(), model.StatusPublished))

	creates, _ := backend.saves()
	assert.Equal(t, 1, creates)
	assert.Equal(t, model.StatusPublished, backend.last().Status)
	assert.False(t, sch.Dirty())
}

func TestManualSaveRejectsEmptyDraft(t *testing.T) {
	backend := &fakeBackend{}
	sch := newTestScheduler(t, backend, 10*time.Second, 10*time.Second)

	err := sch.Save(context.Background(), model.StatusDraft)
	var apiErr *httpx.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)

	creates, updates := backend.saves()
	assert.Equal(t, 0, creates+updates)
}

func TestAuthExpiryStopsScheduler(t *testing.T) {
	backend := &fakeBackend{}
	backend.setFailure(httpx.Unauthenticated("Invalid or expired token"))
	sch := newTestScheduler(t, backend, 50*time.Millisecond, 10*time.Second)

	authExpired := make(chan struct{})
	errored := false
	sch.OnAuthExpired = func() { close(authExpired) }
	sch.OnError = func(error) { errored = true }

	editDraft(sch, "T", "C")

	select {
	case <-authExpired:
	case <-time.After(2 * time.Second):
		t.Fatal("OnAuthExpired was not called")
	}
	select {
	case <-sch.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler kept running after credential expiry")
	}
	assert.False(t, errored, "a 401 must not also surface as a recoverable error")
}

func TestRecoverableFailureRetriesOnNextTrigger(t *testing.T) {
	backend := &fakeBackend{}
	backend.setFailure(httpx.Internal("store is down"))
	sch := newTestScheduler(t, backend, 50*time.Millisecond, 10*time.Second)

	errs := make(chan error, 8)
	sch.OnError = func(err error) { errs <- err }

	editDraft(sch, "T", "C")

	select {
	case err := <-errs:
		var apiErr *httpx.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 500, apiErr.StatusCode)
	case <-time.After(2 * time.Second):
		t.Fatal("OnError was not called")
	}
	assert.True(t, sch.Dirty(), "failed save must keep the draft dirty")

	// The next edit retries and succeeds once the backend recovers.
	backend.setFailure(nil)
	editDraft(sch, "T", "C")
	time.Sleep(300 * time.Millisecond)

	creates, _ := backend.saves()
	assert.Equal(t, 1, creates)
	assert.False(t, sch.Dirty())
}

// Every save runs from the scheduler goroutine, so overlapping triggers
// serialize instead of racing.
func TestAtMostOneSaveInFlight(t *testing.T) {
	backend := &fakeBackend{delay: 80 * time.Millisecond}
	sch := newTestScheduler(t, backend, 20*time.Millisecond, 50*time.Millisecond)

	deadline := time.Now().Add(600 * time.Millisecond)
	for time.Now().Before(deadline) {
		editDraft(sch, "T", "C")
		time.Sleep(25 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)

	backend.mu.Lock()
	maxInFlight := backend.maxInFlight
	total := backend.creates + backend.updates
	backend.mu.Unlock()

	assert.GreaterOrEqual(t, total, 2)
	assert.Equal(t, 1, maxInFlight)
}

func TestOpenRefusesPublishedSession(t *testing.T) {
	sch := NewScheduler(NewClient("http://localhost", "tok"))

	err := sch.Open(&model.Session{ID: "s1", Title: "T", Content: "C", Status: model.StatusPublished})
	assert.ErrorIs(t, err, ErrPublishedSession)
}

func TestOpenLoadsDraftClean(t *testing.T) {
	backend := &fakeBackend{}
	sch := newTestScheduler(t, backend, 50*time.Millisecond, 10*time.Second)

	require.NoError(t, sch.Open(&model.Session{
		ID: "s9", Title: "T", Tags: []string{"x"}, Content: "C", Status: model.StatusDraft,
	}))
	assert.False(t, sch.Dirty())
	assert.Equal(t, "s9", sch.SessionID())

	editDraft(sch, "T2", "C")
	time.Sleep(300 * time.Millisecond)

	creates, updates := backend.saves()
	assert.Equal(t, 0, creates)
	assert.Equal(t, 1, updates, "an opened session updates instead of creating")
}

// Leaving without flushing cancels the pending timers; unsaved work is
// dropped by design, guarded only by the caller's confirmation prompt.
func TestStopCancelsPendingSave(t *testing.T) {
	backend := &fakeBackend{}
	sch := newTestScheduler(t, backend, 150*time.Millisecond, 10*time.Second)

	editDraft(sch, "T", "C")
	assert.True(t, sch.Dirty())
	sch.Stop()
	<-sch.Done()

	time.Sleep(300 * time.Millisecond)
	creates, updates := backend.saves()
	assert.Equal(t, 0, creates+updates)
}
