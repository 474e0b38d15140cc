// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidRoute is returned by ParseRoute for paths outside /chat.
var ErrInvalidRoute = errors.New("invalid chat route")

// Route identifies a chat view. An empty ID is the "new conversation" view.
type Route struct {
	ID string
}

// NewChat returns the route of an empty, unsaved conversation.
func NewChat() Route { return Route{} }

// ChatRoute returns the route of conversation id.
func ChatRoute(id string) Route { return Route{ID: id} }

// IsNew reports whether the route has no conversation id yet.
func (r Route) IsNew() bool { return r.ID == "" }

// Path renders the route as /chat or /chat/{id}.
func (r Route) Path() string {
	if r.ID == "" {
		return "/chat"
	}
	return "/chat/" + url.PathEscape(r.ID)
}

func (r Route) String() string { return r.Path() }

// ParseRoute parses /chat and /chat/{id}. A bare id is accepted too.
func ParseRoute(path string) (Route, error) {
	p := strings.TrimSpace(path)
	if p == "" || p == "/chat" || p == "/chat/" {
		return NewChat(), nil
	}

	if !strings.HasPrefix(p, "/") {
		if strings.Contains(p, "/") {
			return Route{}, fmt.Errorf("%w: %q", ErrInvalidRoute, path)
		}
		return ChatRoute(p), nil
	}

	rest, ok := strings.CutPrefix(p, "/chat/")
	if !ok {
		return Route{}, fmt.Errorf("%w: %q", ErrInvalidRoute, path)
	}
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return Route{}, fmt.Errorf("%w: %q", ErrInvalidRoute, path)
	}
	id, err := url.PathUnescape(rest)
	if err != nil {
		return Route{}, fmt.Errorf("%w: %v", ErrInvalidRoute, err)
	}
	return ChatRoute(id), nil
}
