package auth

import "context"

// Identity is the descriptor the hosted auth provider exposes for a
// signed-in account. DisplayName and PhotoUrl are free-form provider data;
// nothing downstream should trust their structure beyond best-effort parsing.
type Identity struct {
	Id          string
	DisplayName string
	Email       string
	PhotoUrl    string
}

// ProfileUpdate is a partial profile write against the provider.
type ProfileUpdate struct {
	DisplayName string
	PhotoUrl    string
}

// StateHandler receives the current identity on every auth-state change.
// A nil identity means signed out.
type StateHandler func(identity *Identity)

// Provider is the process-wide authenticated-identity source. Its lifecycle
// begins at application start; this module only observes it.
type Provider interface {
	// OnStateChange registers a handler and immediately delivers the current
	// state to it. The returned func unregisters the handler.
	OnStateChange(handler StateHandler) (unsubscribe func())
	Current() *Identity
	UpdateProfile(ctx context.Context, update ProfileUpdate) error
}
