package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arenachat/pkg/models"
)

func TestGetReturnsCopy(t *testing.T) {
	c := NewMessages()
	c.Set("t1", []models.Message{{ID: "m1", Body: "hello"}})

	got := c.Get("t1")
	got[0].Body = "mutated"

	assert.Equal(t, "hello", c.Get("t1")[0].Body)
}

func TestGetUnknownThread(t *testing.T) {
	c := NewMessages()
	assert.Empty(t, c.Get("nope"))
	assert.Zero(t, c.Len("nope"))
}

func TestSnapshotRestore(t *testing.T) {
	c := NewMessages()
	c.Set("t1", []models.Message{{ID: "m1"}, {ID: "m2"}})

	snap := c.Snapshot("t1")
	c.Append("t1", models.Message{ID: "local-x", Local: true})
	require.Equal(t, 3, c.Len("t1"))

	c.Restore("t1", snap)
	got := c.Get("t1")
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m2", got[1].ID)
}

func TestReplaceByIDPreservesOrder(t *testing.T) {
	c := NewMessages()
	c.Set("t1", []models.Message{{ID: "m1"}, {ID: "local-x", Local: true}, {ID: "m3"}})

	ok := c.ReplaceByID("t1", "local-x", models.Message{ID: "m2"})
	require.True(t, ok)

	got := c.Get("t1")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.False(t, got[1].Local)
}

func TestReplaceByIDMissing(t *testing.T) {
	c := NewMessages()
	c.Set("t1", []models.Message{{ID: "m1"}})
	assert.False(t, c.ReplaceByID("t1", "ghost", models.Message{ID: "m2"}))
}

func TestThreadsAreIndependent(t *testing.T) {
	c := NewMessages()
	c.Set("t1", []models.Message{{ID: "a"}})
	c.Set("t2", []models.Message{{ID: "b"}})

	c.Restore("t1", nil)
	assert.Empty(t, c.Get("t1"))
	assert.Len(t, c.Get("t2"), 1)
}
