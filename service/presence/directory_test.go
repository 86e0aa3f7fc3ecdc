package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestDirectory() (*Directory, *fakeClock) {
	clk := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewDirectoryWithClock(clk.Now), clk
}

func TestAddAndRemoveConnection(t *testing.T) {
	d, _ := newTestDirectory()

	d.AddConnection("alice", "c1", Session{AuthTokenID: "t1"})
	d.AddConnection("alice", "c2", Session{AuthTokenID: "t2"})
	d.AddConnection("bob", "c3", Session{AuthTokenID: "t3"})

	conns := d.Connections("alice")
	require.Len(t, conns, 2)
	assert.Equal(t, "t1", conns["c1"].AuthTokenID)
	assert.Equal(t, "t2", conns["c2"].AuthTokenID)

	d.RemoveConnection("alice", "c1")
	conns = d.Connections("alice")
	require.Len(t, conns, 1)
	_, ok := conns["c2"]
	assert.True(t, ok)

	// removing the last connection removes the user entry entirely
	d.RemoveConnection("alice", "c2")
	snap := d.Snapshot()
	_, ok = snap["alice"]
	assert.False(t, ok, "user key must disappear after last connection closes")
	_, ok = snap["bob"]
	assert.True(t, ok)
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	d, _ := newTestDirectory()

	d.RemoveConnection("ghost", "c1")

	d.AddConnection("alice", "c1", Session{})
	d.RemoveConnection("alice", "nope")
	assert.Len(t, d.Connections("alice"), 1)
}

func TestDuplicateConnectionIDOverwrites(t *testing.T) {
	d, _ := newTestDirectory()

	d.AddConnection("alice", "c1", Session{AuthTokenID: "old"})
	d.AddConnection("alice", "c1", Session{AuthTokenID: "new"})

	conns := d.Connections("alice")
	require.Len(t, conns, 1)
	assert.Equal(t, "new", conns["c1"].AuthTokenID)

	snap := d.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, []string{"c1"}, snap["alice"])
}

func TestConnectionsEmptyForUnknownUser(t *testing.T) {
	d, _ := newTestDirectory()
	conns := d.Connections("nobody")
	require.NotNil(t, conns)
	assert.Empty(t, conns)
}

func TestConnectionIDsOrdering(t *testing.T) {
	d, _ := newTestDirectory()

	d.AddConnection("bob", "b1", Session{})
	d.AddConnection("alice", "a1", Session{})
	d.AddConnection("alice", "a2", Session{})
	d.AddConnection("bob", "b2", Session{})

	got := d.ConnectionIDs([]string{"alice", "nobody", "bob"})
	assert.Equal(t, []string{"a1", "a2", "b1", "b2"}, got)
}

func TestFirstConnectionIDInsertionOrder(t *testing.T) {
	d, _ := newTestDirectory()

	_, ok := d.FirstConnectionID("alice")
	assert.False(t, ok)

	d.AddConnection("alice", "c1", Session{})
	d.AddConnection("alice", "c2", Session{})

	id, ok := d.FirstConnectionID("alice")
	require.True(t, ok)
	assert.Equal(t, "c1", id)

	// oldest drops off, next in insertion order takes over
	d.RemoveConnection("alice", "c1")
	id, ok = d.FirstConnectionID("alice")
	require.True(t, ok)
	assert.Equal(t, "c2", id)
}

func TestActivityMonotonicity(t *testing.T) {
	d, clk := newTestDirectory()

	d.AddConnection("alice", "c1", Session{AuthTokenID: "t1"})
	before, ok := d.LastActivity("alice")
	require.True(t, ok)

	clk.Advance(30 * time.Second)
	d.UpdateActivity("alice", "c1")

	after, ok := d.LastActivity("alice")
	require.True(t, ok)
	assert.True(t, after.After(before))
	assert.Equal(t, clk.Now(), after)

	conns := d.Connections("alice")
	assert.Equal(t, clk.Now(), conns["c1"].LastActivityAt)
}

func TestUserLastActivityCoversAllConnections(t *testing.T) {
	d, clk := newTestDirectory()

	d.AddConnection("alice", "c1", Session{})
	clk.Advance(time.Minute)
	d.AddConnection("alice", "c2", Session{})
	clk.Advance(time.Minute)
	d.UpdateActivity("alice", "c1")

	last, ok := d.LastActivity("alice")
	require.True(t, ok)
	for _, s := range d.Connections("alice") {
		assert.False(t, last.Before(s.LastActivityAt),
			"user-level timestamp must be >= every connection timestamp")
	}
}

func TestUpdateActivityUnknownConnectionIsNoop(t *testing.T) {
	d, clk := newTestDirectory()

	d.AddConnection("alice", "c1", Session{})
	before, _ := d.LastActivity("alice")

	clk.Advance(time.Minute)
	d.UpdateActivity("alice", "nope")
	d.UpdateActivity("ghost", "c1")

	after, _ := d.LastActivity("alice")
	assert.Equal(t, before, after)
}

func TestUpdateActivityByAuthToken(t *testing.T) {
	d, clk := newTestDirectory()

	d.AddConnection("alice", "c1", Session{AuthTokenID: "tokA"})
	d.AddConnection("alice", "c2", Session{AuthTokenID: "tokB"})
	d.AddConnection("alice", "c3", Session{AuthTokenID: "tokA"})

	start := clk.Now()
	clk.Advance(45 * time.Second)
	d.UpdateActivityByAuthToken("alice", "tokA")

	conns := d.Connections("alice")
	assert.Equal(t, clk.Now(), conns["c1"].LastActivityAt)
	assert.Equal(t, start, conns["c2"].LastActivityAt)
	assert.Equal(t, clk.Now(), conns["c3"].LastActivityAt)

	last, ok := d.LastActivity("alice")
	require.True(t, ok)
	assert.Equal(t, clk.Now(), last)
}

func TestLastActivityAbsentAfterDisconnect(t *testing.T) {
	d, _ := newTestDirectory()

	d.AddConnection("alice", "c1", Session{})
	_, ok := d.LastActivity("alice")
	require.True(t, ok)

	d.RemoveConnection("alice", "c1")
	_, ok = d.LastActivity("alice")
	assert.False(t, ok, "no last-seen answer once the user is fully offline")
}
