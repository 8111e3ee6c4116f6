// ABOUTME: Registry of mounted view sessions keyed by id
// ABOUTME: Gives the HTTP API an explicit mount/unmount lifecycle per client view
package view

import (
	"context"
	"errors"
	"sync"
)

var ErrViewNotFound = errors.New("view not found")

type Registry struct {
	src  Source
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(src Source, deps Deps) *Registry {
	return &Registry{src: src, deps: deps.WithWriteGate(), sessions: make(map[string]*Session)}
}

// Open mounts a new session.
func (r *Registry) Open(ctx context.Context) (*Session, error) {
	s, err := Mount(ctx, r.src, r.deps)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrViewNotFound
	}
	return s, nil
}

// Close unmounts and forgets the session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrViewNotFound
	}
	s.Close()
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll unmounts every session, for server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
