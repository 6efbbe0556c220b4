// Package store persists threads and messages in a Pebble database.
// Threads live under `thread:<id>:meta`; messages under
// `thread:<id>:msg:<padded-ts>-<seq>` so a prefix scan yields them in
// insertion order.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"arenachat/pkg/logger"
	"arenachat/pkg/models"
)

var db *pebble.DB
var dbPath string

// seq breaks ties between messages sharing the same nanosecond timestamp.
var seq uint64

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func threadMetaKey(threadID string) []byte {
	return []byte("thread:" + threadID + ":meta")
}

func messagePrefix(threadID string) []byte {
	return []byte("thread:" + threadID + ":msg:")
}

// SaveThread stores thread metadata under its reserved key. An empty ID is
// assigned one.
func SaveThread(th models.Thread) (models.Thread, error) {
	if db == nil {
		return models.Thread{}, fmt.Errorf("pebble not opened; call store.Open first")
	}
	if th.ID == "" {
		th.ID = uuid.NewString()
	}
	if th.UpdatedTS == 0 {
		th.UpdatedTS = time.Now().UTC().UnixNano()
	}
	data, err := json.Marshal(th)
	if err != nil {
		return models.Thread{}, fmt.Errorf("failed to marshal thread: %w", err)
	}
	if err := db.Set(threadMetaKey(th.ID), data, pebble.Sync); err != nil {
		logger.Error("save_thread_failed", "thread", th.ID, "error", err)
		return models.Thread{}, err
	}
	logger.Info("thread_saved", "thread", th.ID)
	return th, nil
}

// GetThread returns the stored thread for a given ID.
func GetThread(threadID string) (models.Thread, error) {
	if db == nil {
		return models.Thread{}, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get(threadMetaKey(threadID))
	if err != nil {
		return models.Thread{}, err
	}
	if closer != nil {
		defer closer.Close()
	}
	var th models.Thread
	if err := json.Unmarshal(v, &th); err != nil {
		return models.Thread{}, fmt.Errorf("invalid thread metadata: %w", err)
	}
	return th, nil
}

// ListThreads returns all saved threads.
func ListThreads() ([]models.Thread, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte("thread:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Thread
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !strings.HasSuffix(string(iter.Key()), ":meta") {
			continue
		}
		var th models.Thread
		if err := json.Unmarshal(iter.Value(), &th); err != nil {
			logger.Warn("list_threads_invalid_meta", "key", string(iter.Key()), "error", err)
			continue
		}
		out = append(out, th)
	}
	return out, iter.Error()
}

// SaveMessage appends a message to its thread under a sortable timestamp
// key. An empty ID is assigned a server id; the persisted record is
// returned.
func SaveMessage(msg models.Message) (models.Message, error) {
	if db == nil {
		return models.Message{}, fmt.Errorf("pebble not opened; call store.Open first")
	}
	if msg.Thread == "" {
		return models.Message{}, fmt.Errorf("message has no thread")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedTS == 0 {
		msg.CreatedTS = time.Now().UTC().UnixNano()
	}
	msg.Local = false

	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1)
	key := fmt.Sprintf("thread:%s:msg:%020d-%06d", msg.Thread, ts, s)

	data, err := json.Marshal(msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("save_message_failed", "thread", msg.Thread, "key", key, "error", err)
		return models.Message{}, err
	}
	logger.Info("message_saved", "thread", msg.Thread, "key", key, "msg_id", msg.ID)

	// bump the thread's activity so list ordering stays fresh
	if th, terr := GetThread(msg.Thread); terr == nil {
		th.LastActivityTS = msg.CreatedTS
		th.UpdatedTS = ts
		th.Preview = previewOf(msg.Body)
		if _, serr := SaveThread(th); serr != nil {
			logger.Warn("bump_thread_activity_failed", "thread", msg.Thread, "error", serr)
		}
	}
	return msg, nil
}

const previewMax = 80

// previewOf truncates on rune boundaries so a multi-byte body never leaves a
// broken character in the stored preview.
func previewOf(body string) string {
	body = strings.TrimSpace(body)
	r := []rune(body)
	if len(r) > previewMax {
		return string(r[:previewMax])
	}
	return body
}

// ListMessages returns all messages for a thread in insertion order. An
// optional limit caps the result.
func ListMessages(threadID string, limit ...int) ([]models.Message, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := messagePrefix(threadID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	max := -1
	if len(limit) > 0 {
		max = limit[0]
	}
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Warn("list_messages_invalid_json", "key", string(iter.Key()), "error", err)
			continue
		}
		out = append(out, m)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, iter.Error()
}

// DeleteThread removes a thread's metadata and all of its messages.
func DeleteThread(threadID string) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if err := db.Delete(threadMetaKey(threadID), pebble.Sync); err != nil {
		logger.Error("delete_thread_failed", "thread", threadID, "error", err)
		return err
	}
	prefix := messagePrefix(threadID)
	// DeleteRange over [prefix, prefix+1) drops every message key at once
	end := append(append([]byte(nil), prefix...), 0xff)
	if err := db.DeleteRange(prefix, end, pebble.Sync); err != nil {
		logger.Error("delete_thread_messages_failed", "thread", threadID, "error", err)
		return err
	}
	logger.Info("thread_deleted", "thread", threadID)
	return nil
}

// ListKeys returns all keys (as strings) that start with the given prefix.
// If prefix is empty it returns all keys in the DB.
func ListKeys(prefix string) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	if prefix == "" {
		for iter.First(); iter.Valid(); iter.Next() {
			out = append(out, string(append([]byte(nil), iter.Key()...)))
		}
		return out, iter.Error()
	}
	pfx := []byte(prefix)
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		out = append(out, string(append([]byte(nil), iter.Key()...)))
	}
	return out, iter.Error()
}

// GetKey returns the raw value for the given key.
func GetKey(key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get([]byte(key))
	if err != nil {
		return "", err
	}
	if closer != nil {
		defer closer.Close()
	}
	return string(v), nil
}
