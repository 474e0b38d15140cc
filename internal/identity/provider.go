// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity supplies the current user and a bearer credential on demand.
package identity

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
)

// Error variables for identity lookups.
var (
	// ErrNotAuthenticated indicates there is no signed-in user.
	ErrNotAuthenticated = errors.New("not signed in")

	// ErrUnknownSource indicates an unsupported identity source in config.
	ErrUnknownSource = errors.New("unknown identity source")
)

// User is the signed-in user handle. A nil *User means "not logged in".
type User struct {
	ID          string `toml:"user_id" json:"id"`
	Email       string `toml:"email" json:"email,omitempty"`
	DisplayName string `toml:"display_name" json:"display_name,omitempty"`
}

// Label returns the best human-readable name for the user.
func (u *User) Label() string {
	if u == nil {
		return ""
	}
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}

// Same reports whether a and b refer to the same user. Two nil users are the same.
func Same(a, b *User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

// Provider is the injected credential capability.
//
// Token is called before every authenticated request and must return a fresh,
// possibly upstream-cached credential. Implementations must be safe for
// concurrent use.
type Provider interface {
	// CurrentUser returns the signed-in user, or nil when nobody is signed in.
	CurrentUser(ctx context.Context) (*User, error)

	// Token returns a bearer credential for the current user.
	Token(ctx context.Context) (string, error)
}

// =============================================================================
// STATIC PROVIDER
// =============================================================================

// Static is a fixed user and token, used for tests and the dev backend.
type Static struct {
	mu    sync.RWMutex
	user  *User
	token string
}

// NewStatic creates a provider for user with token. A nil user means signed out.
func NewStatic(user *User, token string) *Static {
	return &Static{user: user, token: token}
}

// CurrentUser implements Provider.
func (s *Static) CurrentUser(ctx context.Context) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, nil
	}
	u := *s.user
	return &u, nil
}

// Token implements Provider.
func (s *Static) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil || s.token == "" {
		return "", ErrNotAuthenticated
	}
	return s.token, nil
}

// Set replaces the user and token.
func (s *Static) Set(user *User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.token = token
}

// =============================================================================
// ENVIRONMENT PROVIDER
// =============================================================================

// Env reads the token from an environment variable on every call, so an
// external refresher can rotate it without restarting the client.
type Env struct {
	Var  string
	User User
}

// NewEnv creates an Env provider. The user is signed in while Var is non-empty.
func NewEnv(name string, user User) *Env {
	return &Env{Var: name, User: user}
}

// CurrentUser implements Provider.
func (e *Env) CurrentUser(ctx context.Context) (*User, error) {
	if e.lookup() == "" {
		return nil, nil
	}
	u := e.User
	return &u, nil
}

// Token implements Provider.
func (e *Env) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok := e.lookup()
	if tok == "" {
		return "", ErrNotAuthenticated
	}
	return tok, nil
}

func (e *Env) lookup() string {
	return strings.TrimSpace(os.Getenv(e.Var))
}
