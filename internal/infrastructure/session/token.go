// Package session exposes the opaque auth token signal the cart engine
// consumes. Authentication itself lives elsewhere; the engine's contract is
// only "no token means treat the cart as empty and skip remote calls".
package session

import (
	"sync"
)

// TokenSource yields the current session token. An empty string means
// unauthenticated.
type TokenSource interface {
	Token() string
}

// Static is a TokenSource with a fixed token
type Static string

// Token implements TokenSource
func (s Static) Token() string {
	return string(s)
}

// Memory is a mutable TokenSource, suitable for login/logout flows where
// the token changes while the store is alive.
type Memory struct {
	mu    sync.RWMutex
	token string
}

// NewMemory creates a Memory token source holding token
func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

// Token implements TokenSource
func (m *Memory) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Set replaces the current token
func (m *Memory) Set(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// Clear removes the current token, i.e. logout
func (m *Memory) Clear() {
	m.Set("")
}
