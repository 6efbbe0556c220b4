package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arenachat/pkg/cache"
	"arenachat/pkg/models"
)

type fakeBackend struct {
	mu        sync.Mutex
	threads   map[string]models.Thread
	msgs      map[string][]models.Message
	insertErr error
	seq       int
	inserts   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		threads: map[string]models.Thread{
			"t1": {ID: "t1", Kind: models.ThreadKindTournament, Status: models.ThreadStatusOpen, CanSend: models.SendAllowed},
		},
		msgs: make(map[string][]models.Message),
	}
}

func (f *fakeBackend) GetThread(_ context.Context, id string) (models.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	th, ok := f.threads[id]
	if !ok {
		return models.Thread{}, fmt.Errorf("thread %s not found", id)
	}
	return th, nil
}

func (f *fakeBackend) ListMessages(_ context.Context, threadID string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Message, len(f.msgs[threadID]))
	copy(out, f.msgs[threadID])
	return out, nil
}

func (f *fakeBackend) InsertMessage(_ context.Context, m models.Message) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return models.Message{}, f.insertErr
	}
	f.seq++
	m.ID = fmt.Sprintf("srv-%d", f.seq)
	f.msgs[m.Thread] = append(f.msgs[m.Thread], m)
	return m, nil
}

var viewer = Viewer{ID: "user-7", Label: "Team Nova", Kind: models.AuthorTeam}

func TestSendRoundTrip(t *testing.T) {
	be := newFakeBackend()
	c := cache.NewMessages()
	c.Set("t1", []models.Message{{ID: "srv-old", Thread: "t1", Body: "earlier"}})
	be.msgs["t1"] = c.Get("t1")
	be.seq = 1

	s := NewSender(be, c)
	saved, err := s.Send(context.Background(), "t1", viewer, "nice play")
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, "srv-2", saved.ID)
	assert.False(t, saved.Local)
	assert.Equal(t, "user-7", saved.SenderID)
	assert.Equal(t, models.MessageUser, saved.Kind)

	got := c.Get("t1")
	require.Len(t, got, 2)
	for _, m := range got {
		assert.False(t, m.Local)
		assert.False(t, strings.HasPrefix(m.ID, localPrefix))
	}
	assert.Equal(t, "nice play", got[1].Body)
}

func TestSendRollbackRestoresSnapshot(t *testing.T) {
	be := newFakeBackend()
	be.insertErr = errors.New("network down")
	c := cache.NewMessages()
	before := []models.Message{{ID: "srv-1", Thread: "t1", Body: "earlier"}}
	c.Set("t1", before)

	s := NewSender(be, c)
	_, err := s.Send(context.Background(), "t1", viewer, "doomed")
	require.Error(t, err)
	assert.ErrorContains(t, err, "network down")
	s.Wait()

	assert.Equal(t, before, c.Get("t1"))
}

func TestSendEmptyBodyRejectedBeforeNetwork(t *testing.T) {
	be := newFakeBackend()
	c := cache.NewMessages()
	s := NewSender(be, c)

	for _, body := range []string{"", "   ", "\n\t"} {
		_, err := s.Send(context.Background(), "t1", viewer, body)
		assert.ErrorIs(t, err, ErrEmptyBody)
	}
	assert.Zero(t, be.inserts)
	assert.Zero(t, c.Len("t1"))
}

func TestSendGatePrecedence(t *testing.T) {
	be := newFakeBackend()
	c := cache.NewMessages()
	s := NewSender(be, c)
	ctx := context.Background()

	// explicit backend disallow reason wins over everything else
	be.threads["t1"] = models.Thread{
		ID: "t1", Kind: models.ThreadKindSystem, Status: models.ThreadStatusArchived,
		CanSend: models.SendDisallowed, SendDisabledReason: "muted by moderator",
	}
	_, err := s.Send(ctx, "t1", viewer, "hi")
	var sde *SendDisabledError
	require.ErrorAs(t, err, &sde)
	assert.Equal(t, "muted by moderator", sde.Reason)

	// system kind beats archived status
	be.threads["t1"] = models.Thread{
		ID: "t1", Kind: models.ThreadKindSystem, Status: models.ThreadStatusArchived,
		CanSend: models.SendUnknown,
	}
	_, err = s.Send(ctx, "t1", viewer, "hi")
	require.ErrorAs(t, err, &sde)
	assert.Equal(t, "system conversations are read-only", sde.Reason)

	// archived alone
	be.threads["t1"] = models.Thread{
		ID: "t1", Kind: models.ThreadKindTournament, Status: models.ThreadStatusArchived,
	}
	_, err = s.Send(ctx, "t1", viewer, "hi")
	require.ErrorAs(t, err, &sde)
	assert.Equal(t, "this conversation has been archived", sde.Reason)

	assert.Zero(t, be.inserts, "gated sends never reach the backend")
	assert.Zero(t, c.Len("t1"), "gated sends never touch the cache")
}

func TestConcurrentSendsSameThread(t *testing.T) {
	be := newFakeBackend()
	c := cache.NewMessages()
	s := NewSender(be, c)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Send(context.Background(), "t1", viewer, fmt.Sprintf("message %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	s.Wait()

	got := c.Get("t1")
	require.Len(t, got, 2)
	for _, m := range got {
		assert.False(t, m.Local)
	}
	persisted, err := be.ListMessages(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, persisted, 2)
}

func TestChangeHookFires(t *testing.T) {
	be := newFakeBackend()
	c := cache.NewMessages()

	var mu sync.Mutex
	var events int
	s := NewSender(be, c, WithChangeHook(func(threadID string, msgs []models.Message) {
		mu.Lock()
		defer mu.Unlock()
		events++
		assert.Equal(t, "t1", threadID)
	}))

	_, err := s.Send(context.Background(), "t1", viewer, "hello")
	require.NoError(t, err)
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	// optimistic append, reconcile, settle refresh
	assert.GreaterOrEqual(t, events, 3)
}

func TestRefreshReplacesCache(t *testing.T) {
	be := newFakeBackend()
	be.msgs["t1"] = []models.Message{{ID: "srv-1", Thread: "t1", Body: "from server"}}
	c := cache.NewMessages()
	c.Set("t1", []models.Message{{ID: "stale", Thread: "t1"}})

	s := NewSender(be, c)
	require.NoError(t, s.Refresh(context.Background(), "t1"))

	got := c.Get("t1")
	require.Len(t, got, 1)
	assert.Equal(t, "srv-1", got[0].ID)
}

func TestLocalIDShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newLocalID()
		assert.True(t, strings.HasPrefix(id, localPrefix))
		assert.False(t, seen[id], "local ids must not repeat")
		seen[id] = true
	}
}
