package ws

import "sync"

// Presence tracks which users are currently connected. It is best-effort,
// single-node state: reset on process start, last-writer-wins on reconnect
// races, never persisted.
type Presence struct {
	mu     sync.RWMutex
	online map[string]bool
}

// NewPresence creates an empty presence registry
func NewPresence() *Presence {
	return &Presence{online: make(map[string]bool)}
}

// Set records the user's connection state
func (p *Presence) Set(userID string, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = online
}

// IsOnline reports whether the user is connected
func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.online[userID]
}

// Forget drops the user from the registry entirely
func (p *Presence) Forget(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
}
