package handler

import (
	"strconv"
	"sync"
	"time"

	"github.com/cikmis/examclient/internal/exam"
)

// registry keeps one exam session per visitor and exam in memory. Sessions
// untouched for longer than ttl are dropped on the next put. The first session
// stored for a key wins; later puts get that session back.
type registry struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*registryEntry
}

type registryEntry struct {
	session *exam.Session
	touched time.Time
}

func newRegistry(ttl time.Duration) *registry {
	return &registry{ttl: ttl, sessions: make(map[string]*registryEntry)}
}

func registryKey(visitor string, examID int64) string {
	return visitor + "/" + strconv.FormatInt(examID, 10)
}

func (g *registry) get(visitor string, examID int64, now time.Time) (*exam.Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.sessions[registryKey(visitor, examID)]
	if !ok {
		return nil, false
	}
	e.touched = now
	return e.session, true
}

// put stores s unless a live session already exists for the key, and returns
// the session callers should use.
func (g *registry) put(visitor string, examID int64, s *exam.Session, now time.Time) *exam.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, e := range g.sessions {
		if now.Sub(e.touched) > g.ttl {
			delete(g.sessions, k)
		}
	}
	key := registryKey(visitor, examID)
	if e, ok := g.sessions[key]; ok {
		e.touched = now
		return e.session
	}
	g.sessions[key] = &registryEntry{session: s, touched: now}
	return s
}

func (g *registry) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}
