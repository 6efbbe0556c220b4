// Package delivery implements the optimistic send pipeline: a send appears
// in the thread's cached message list immediately, is reconciled in place
// with the persisted record on success, and is rolled back to the pre-send
// snapshot on failure. Concurrent sends into the same thread are serialized;
// sends into different threads proceed independently.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"arenachat/pkg/cache"
	"arenachat/pkg/logger"
	"arenachat/pkg/models"
)

// Backend is the persistence surface the pipeline talks to. Implementations
// return normalized records only.
type Backend interface {
	GetThread(ctx context.Context, id string) (models.Thread, error)
	ListMessages(ctx context.Context, threadID string) ([]models.Message, error)
	InsertMessage(ctx context.Context, m models.Message) (models.Message, error)
}

// Viewer identifies the sending participant.
type Viewer struct {
	ID    string
	Label string
	Kind  models.AuthorKind
}

// ErrEmptyBody rejects whitespace-only sends before anything is cached or
// sent over the wire.
var ErrEmptyBody = errors.New("message body is empty")

// SendDisabledError reports a thread that does not accept messages, carrying
// the display reason the gate produced.
type SendDisabledError struct {
	Reason string
}

func (e *SendDisabledError) Error() string { return e.Reason }

// Sender runs optimistic sends against a backend and a shared message cache.
type Sender struct {
	backend Backend
	cache   *cache.Messages

	// onChange fires after every cache mutation for a thread, with a copy of
	// the thread's current list. Used to push updates to live subscribers.
	onChange func(threadID string, msgs []models.Message)

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	settleTimeout time.Duration
	settles       sync.WaitGroup
}

// Option configures a Sender.
type Option func(*Sender)

// WithChangeHook registers a callback invoked after every cache mutation.
func WithChangeHook(fn func(threadID string, msgs []models.Message)) Option {
	return func(s *Sender) { s.onChange = fn }
}

// WithSettleTimeout bounds the background refresh that runs after each send
// settles. Default 10s.
func WithSettleTimeout(d time.Duration) Option {
	return func(s *Sender) { s.settleTimeout = d }
}

// NewSender builds a pipeline over the given backend and cache.
func NewSender(backend Backend, c *cache.Messages, opts ...Option) *Sender {
	s := &Sender{
		backend:       backend,
		cache:         c,
		locks:         make(map[string]*sync.Mutex),
		settleTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Send runs one optimistic send. On success it returns the persisted record;
// the cached list has already been reconciled. On failure the cached list is
// back at its pre-send state and the error describes what went wrong.
// Validation failures (empty body, send-disabled thread) happen before any
// cache mutation or network traffic.
func (s *Sender) Send(ctx context.Context, threadID string, viewer Viewer, body string) (models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.Message{}, ErrEmptyBody
	}

	th, err := s.backend.GetThread(ctx, threadID)
	if err != nil {
		return models.Message{}, fmt.Errorf("load thread %s: %w", threadID, err)
	}
	if ok, reason := th.AcceptsMessages(); !ok {
		return models.Message{}, &SendDisabledError{Reason: reason}
	}

	lock := s.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	snapshot := s.cache.Snapshot(threadID)

	local := models.Message{
		ID:          newLocalID(),
		Thread:      threadID,
		Body:        body,
		CreatedTS:   time.Now().UnixNano(),
		SenderID:    viewer.ID,
		AuthorLabel: viewer.Label,
		AuthorKind:  viewer.Kind,
		Kind:        models.MessageUser,
		Severity:    models.SeverityInfo,
		Local:       true,
	}
	s.cache.Append(threadID, local)
	s.emit(threadID)

	persisted := local
	persisted.ID = ""
	persisted.Local = false
	saved, err := s.backend.InsertMessage(ctx, persisted)
	if err != nil {
		s.cache.Restore(threadID, snapshot)
		s.emit(threadID)
		logger.Warn("send_rolled_back", "thread", threadID, "error", err)
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}

	if !s.cache.ReplaceByID(threadID, local.ID, saved) {
		// placeholder cannot vanish while the send lock is held, but a plain
		// append still yields a correct list if it somehow does
		s.cache.Append(threadID, saved)
	}
	s.emit(threadID)

	s.settles.Add(1)
	go s.settleRefresh(threadID)

	return saved, nil
}

// Refresh replaces a thread's cached list with the backend's current view.
// It holds the thread's send lock so a refresh can never list the backend
// before an in-flight insert and overwrite the cache after it reconciles.
func (s *Sender) Refresh(ctx context.Context, threadID string) error {
	lock := s.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	msgs, err := s.backend.ListMessages(ctx, threadID)
	if err != nil {
		return fmt.Errorf("list messages %s: %w", threadID, err)
	}
	s.cache.Set(threadID, msgs)
	s.emit(threadID)
	return nil
}

// Wait blocks until all in-flight settle refreshes have finished.
func (s *Sender) Wait() {
	s.settles.Wait()
}

// settleRefresh re-pulls the thread after a settled send so the cache picks
// up anything that landed server-side during the round trip. It runs on a
// detached context: the originating request may be long gone.
func (s *Sender) settleRefresh(threadID string) {
	defer s.settles.Done()
	ctx, cancel := context.WithTimeout(context.Background(), s.settleTimeout)
	defer cancel()
	if err := s.Refresh(ctx, threadID); err != nil {
		// cache keeps the reconciled list; refresh is best-effort
		logger.Debug("settle_refresh_failed", "thread", threadID, "error", err)
	}
}

func (s *Sender) threadLock(threadID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[threadID] = l
	}
	return l
}

func (s *Sender) emit(threadID string) {
	if s.onChange != nil {
		s.onChange(threadID, s.cache.Get(threadID))
	}
}
