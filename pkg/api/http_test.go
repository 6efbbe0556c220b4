package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arenachat/pkg/cache"
	"arenachat/pkg/delivery"
	"arenachat/pkg/models"
	"arenachat/pkg/store"
	"arenachat/pkg/view"
)

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	require.NoError(t, store.Open(filepath.Join(t.TempDir(), "store")))
	t.Cleanup(func() { _ = store.Close() })

	c := cache.NewMessages()
	s := delivery.NewSender(store.Backend{}, c)
	// drain settle refreshes before the store closes
	t.Cleanup(s.Wait)
	hub := NewHub()
	srv := httptest.NewServer(Handler(Deps{Sender: s, Cache: c, Hub: hub, MaxBodyBytes: 1 << 20}))
	t.Cleanup(srv.Close)
	return srv, hub
}

func doJSON(t *testing.T, method, url, role string, body any) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Role-Name", role)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateThreadNormalizesLooseRecord(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/threads", "", map[string]any{
		"kind":     "TOURNAMENT",
		"title":    "Spring Finals",
		"status":   "open",
		"unread":   "7",
		"can_send": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	th := decode[models.Thread](t, resp)
	assert.NotEmpty(t, th.ID)
	assert.Equal(t, models.ThreadKindTournament, th.Kind)
	assert.Equal(t, models.ThreadStatusOpen, th.Status)
	assert.Equal(t, models.SendAllowed, th.CanSend)
	// string unread is not coerced
	assert.Equal(t, 0, th.Unread)
}

func TestCreateThreadRejectsNonObject(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/threads", "", []int{1, 2})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListThreadsGroupsAndFilters(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, rec := range []map[string]any{
		{"id": "t1", "kind": "tournament", "title": "Spring Finals", "status": "open", "updated_ts": 300},
		{"id": "t2", "kind": "support", "title": "Payout question", "status": "open", "updated_ts": 100},
		{"id": "t3", "kind": "system", "title": "Platform notices", "status": "open", "updated_ts": 200},
	} {
		resp := doJSON(t, http.MethodPost, srv.URL+"/v1/threads", "", rec)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	g := decode[view.Grouped](t, doJSON(t, http.MethodGet, srv.URL+"/v1/threads", "", nil))
	require.Len(t, g.Conversations, 2)
	require.Len(t, g.System, 1)
	assert.Equal(t, "t1", g.Conversations[0].ID)
	assert.Equal(t, "t3", g.System[0].ID)

	g = decode[view.Grouped](t, doJSON(t, http.MethodGet, srv.URL+"/v1/threads?kind=support", "", nil))
	require.Len(t, g.Conversations, 1)
	assert.Equal(t, "t2", g.Conversations[0].ID)

	g = decode[view.Grouped](t, doJSON(t, http.MethodGet, srv.URL+"/v1/threads?q=payout", "", nil))
	require.Len(t, g.Conversations, 1)
	assert.Equal(t, "t2", g.Conversations[0].ID)
}

func TestDeleteThreadRequiresBackendRole(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/threads", "", map[string]any{"id": "t1", "title": "x"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, srv.URL+"/v1/threads/t1", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/v1/threads/t1", "backend", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/threads/t1", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type messagesView struct {
	Thread     string      `json:"thread"`
	Items      []view.Item `json:"items"`
	Pinned     []view.Item `json:"pinned"`
	CanCompose bool        `json:"can_compose"`
	Notice     string      `json:"notice"`
}

func TestSendAndViewMessages(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/threads", "", map[string]any{
		"id": "t1", "kind": "tournament", "title": "Finals", "status": "open", "can_send": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/threads/t1/messages", "backend", map[string]any{
		"content": "glhf", "sender": "u1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sent := decode[models.Message](t, resp)
	assert.NotEmpty(t, sent.ID)
	assert.False(t, strings.HasPrefix(sent.ID, "local-"))
	assert.Equal(t, "u1", sent.SenderID)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/threads/t1/messages", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "u1")
	rawResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rawResp.StatusCode)
	mv := decode[messagesView](t, rawResp)
	require.Len(t, mv.Items, 1)
	assert.True(t, mv.Items[0].Mine)
	assert.False(t, mv.Items[0].Institutional)
	assert.True(t, mv.CanCompose)
	assert.Empty(t, mv.Notice)
}

func TestSendRejectedOnArchivedThread(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/threads", "", map[string]any{
		"id": "t1", "title": "Old run", "status": "archived",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/threads/t1/messages", "backend", map[string]any{
		"content": "hello", "sender": "u1",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "this conversation has been archived", body["error"])
}

func TestSendWithoutIdentityRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/threads", "", map[string]any{
		"id": "t1", "title": "Finals", "can_send": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/threads/t1/messages", "", map[string]any{
		"content": "hello",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestImportCountsDroppedRecords(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/import", "backend", map[string]any{
		"threads": []map[string]any{
			{"id": "t1", "kind": "support", "title": "ok"},
			{"title": "no id"},
		},
		"messages": []map[string]any{
			{"id": "m1", "thread": "t1", "body": "hello", "kind": "user", "sender": "u1"},
			{"id": "m2", "body": "orphan"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	counts := decode[map[string]int](t, resp)
	assert.Equal(t, 1, counts["threads"])
	assert.Equal(t, 1, counts["messages"])
	assert.Equal(t, 2, counts["dropped"])
}

func TestSignMintsVerifiableSignature(t *testing.T) {
	srv, _ := newTestServer(t)

	b, err := json.Marshal(map[string]string{"user_id": "u1"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/_sign", bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("X-Role-Name", "backend")
	req.Header.Set("Authorization", "Bearer backend-secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[map[string]string](t, resp)

	mac := hmac.New(sha256.New, []byte("backend-secret"))
	mac.Write([]byte("u1"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), out["signature"])
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/v1/admin/stats", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/admin/stats", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[map[string]any](t, resp)
	assert.Contains(t, stats, "disk_bytes")
	assert.Contains(t, stats, "threads")
}

func TestStreamDeliversBroadcast(t *testing.T) {
	srv, hub := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// subscription is registered synchronously on upgrade, but give the
	// server a beat before broadcasting
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast("t1", []models.Message{{ID: "m1", Thread: "t1", Body: "hi", Kind: models.MessageUser}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Thread   string           `json:"thread"`
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, "t1", ev.Thread)
	require.Len(t, ev.Messages, 1)
	assert.Equal(t, "m1", ev.Messages[0].ID)
}
