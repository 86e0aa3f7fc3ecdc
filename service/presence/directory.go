package presence

import (
	"sync"
	"time"

	"YChat/logger"
)

// Session is what the directory keeps per live connection: the auth-session
// id the connection was authenticated with, and when the connection was last
// seen doing anything.
type Session struct {
	AuthTokenID    string
	LastActivityAt time.Time
}

type userEntry struct {
	conns map[string]*Session
	order []string // connection ids in insertion order
	last  time.Time
}

// Directory is the in-memory map of who currently has live connections open.
// It is the only shared mutable state of the realtime core, so every mutation
// runs under the lock and is atomic; readers always observe a fully updated
// directory. Presence is ephemeral: nothing here survives the process, and a
// user entry exists iff it has at least one connection.
type Directory struct {
	mu    sync.RWMutex
	users map[string]*userEntry
	clock func() time.Time
}

func NewDirectory() *Directory {
	return NewDirectoryWithClock(time.Now)
}

// NewDirectoryWithClock injects the timestamp source, for tests.
func NewDirectoryWithClock(clock func() time.Time) *Directory {
	if clock == nil {
		clock = time.Now
	}
	logger.Info("presence directory initialized")
	return &Directory{users: make(map[string]*userEntry), clock: clock}
}

// AddConnection records a live connection for user. Both the connection and
// the user-level activity timestamps are set to now. Re-adding an existing
// connection id overwrites the stale record in place, keeping its position in
// insertion order.
func (d *Directory) AddConnection(userID, connID string, sess Session) {
	if userID == "" || connID == "" {
		return
	}
	now := d.clock()
	sess.LastActivityAt = now

	d.mu.Lock()
	defer d.mu.Unlock()

	u := d.users[userID]
	if u == nil {
		u = &userEntry{conns: make(map[string]*Session)}
		d.users[userID] = u
	}
	if _, exists := u.conns[connID]; !exists {
		u.order = append(u.order, connID)
	}
	s := sess
	u.conns[connID] = &s
	u.last = now

	logger.Infof("presence recorded for %s with id %s", userID, connID)
}

// RemoveConnection drops the connection record; removing the last connection
// removes the user entry entirely. Unknown user or connection is a no-op.
func (d *Directory) RemoveConnection(userID, connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u := d.users[userID]
	if u == nil {
		return
	}
	if _, ok := u.conns[connID]; !ok {
		return
	}
	delete(u.conns, connID)
	for i, id := range u.order {
		if id == connID {
			u.order = append(u.order[:i], u.order[i+1:]...)
			break
		}
	}
	if len(u.conns) == 0 {
		delete(d.users, userID)
	}
	logger.Infof("presence removed for %s with id %s", userID, connID)
}

// Connections returns a copy of the user's live sessions keyed by connection
// id. Empty map when the user has no presence; never nil.
func (d *Directory) Connections(userID string) map[string]Session {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]Session)
	if u := d.users[userID]; u != nil {
		for id, s := range u.conns {
			out[id] = *s
		}
	}
	return out
}

// FirstConnectionID returns the oldest still-live connection id for the user.
// Call signaling routes to this single connection: a user on several devices
// rings on exactly one of them, the oldest.
func (d *Directory) FirstConnectionID(userID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u := d.users[userID]
	if u == nil || len(u.order) == 0 {
		return "", false
	}
	return u.order[0], true
}

// ConnectionIDs returns the union of connection ids across the given users,
// ordered by input-user order then per-user insertion order. Users with no
// presence contribute nothing.
func (d *Directory) ConnectionIDs(userIDs []string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []string
	for _, uid := range userIDs {
		if u := d.users[uid]; u != nil {
			out = append(out, u.order...)
		}
	}
	return out
}

// UpdateActivity refreshes both the connection- and user-level timestamps.
// No-op if the connection is not present.
func (d *Directory) UpdateActivity(userID, connID string) {
	now := d.clock()

	d.mu.Lock()
	defer d.mu.Unlock()

	u := d.users[userID]
	if u == nil {
		return
	}
	s, ok := u.conns[connID]
	if !ok {
		return
	}
	s.LastActivityAt = now
	u.last = now
}

// UpdateActivityByAuthToken refreshes activity on every connection of the
// user whose auth-session id matches. HTTP requests carry the auth session
// but no connection id, so this is how plain API traffic keeps a user's
// presence fresh.
func (d *Directory) UpdateActivityByAuthToken(userID, authTokenID string) {
	if authTokenID == "" {
		return
	}
	now := d.clock()

	d.mu.Lock()
	defer d.mu.Unlock()

	u := d.users[userID]
	if u == nil {
		return
	}
	touched := false
	for _, s := range u.conns {
		if s.AuthTokenID == authTokenID {
			s.LastActivityAt = now
			touched = true
		}
	}
	if touched {
		u.last = now
	}
}

// LastActivity returns the user-level timestamp. ok is false when the user
// currently has no presence entry: once disconnected the directory no longer
// answers with a last-seen time.
func (d *Directory) LastActivity(userID string) (time.Time, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u := d.users[userID]
	if u == nil {
		return time.Time{}, false
	}
	return u.last, true
}

// Users lists every user id that currently has at least one live connection.
func (d *Directory) Users() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.users))
	for uid := range d.users {
		out = append(out, uid)
	}
	return out
}

// Snapshot returns user -> connection ids (insertion order), for the HTTP
// query surface and tests.
func (d *Directory) Snapshot() map[string][]string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string][]string, len(d.users))
	for uid, u := range d.users {
		ids := make([]string, len(u.order))
		copy(ids, u.order)
		out[uid] = ids
	}
	return out
}
