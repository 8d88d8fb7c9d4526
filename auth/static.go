package auth

import (
	"context"
	"os"
	"sync"
)

// StaticProvider is a Provider with a programmatically controlled identity.
// It backs tests and the feedwatch CLI, where the identity comes from the
// environment rather than an interactive sign-in.
type StaticProvider struct {
	mu       sync.Mutex
	current  *Identity
	handlers map[int]StateHandler
	nextId   int
}

func NewStaticProvider(identity *Identity) *StaticProvider {
	return &StaticProvider{
		current:  identity,
		handlers: make(map[int]StateHandler),
	}
}

// StaticProviderFromEnv reads LUMORA_UID / LUMORA_DISPLAY_NAME /
// LUMORA_EMAIL / LUMORA_PHOTO_URL. Returns a signed-out provider when no
// uid is configured.
func StaticProviderFromEnv() *StaticProvider {
	uid := os.Getenv("LUMORA_UID")
	if uid == "" {
		return NewStaticProvider(nil)
	}
	return NewStaticProvider(&Identity{
		Id:          uid,
		DisplayName: os.Getenv("LUMORA_DISPLAY_NAME"),
		Email:       os.Getenv("LUMORA_EMAIL"),
		PhotoUrl:    os.Getenv("LUMORA_PHOTO_URL"),
	})
}

func (p *StaticProvider) OnStateChange(handler StateHandler) func() {
	p.mu.Lock()
	id := p.nextId
	p.nextId++
	p.handlers[id] = handler
	current := p.current
	p.mu.Unlock()

	handler(current)
	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

func (p *StaticProvider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *StaticProvider) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	p.mu.Lock()
	if p.current != nil {
		if update.DisplayName != "" {
			p.current.DisplayName = update.DisplayName
		}
		if update.PhotoUrl != "" {
			p.current.PhotoUrl = update.PhotoUrl
		}
	}
	p.mu.Unlock()
	return nil
}

// SignIn swaps the current identity and fans the change out to handlers, in
// the order they registered.
func (p *StaticProvider) SignIn(identity *Identity) {
	p.mu.Lock()
	p.current = identity
	handlers := make([]StateHandler, 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(identity)
	}
}

// SignOut clears the identity.
func (p *StaticProvider) SignOut() {
	p.SignIn(nil)
}
