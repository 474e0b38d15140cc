// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/socratic-tui/internal/util"
)

// Credentials is the on-disk shape of a credentials file:
//
//	token = "eyJhbGciOi..."
//	user_id = "u-123"
//	email = "ada@example.com"
//	display_name = "Ada"
type Credentials struct {
	Token string `toml:"token"`
	User
}

// File reads credentials from a TOML file on every call. A sign-in helper
// outside this program owns the file and rewrites it when the token rotates.
type File struct {
	Path string
}

// NewFile creates a provider backed by the credentials file at path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// CurrentUser implements Provider. A missing file or empty token means signed out.
func (f *File) CurrentUser(ctx context.Context) (*User, error) {
	creds, err := f.read()
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, nil
	}
	u := creds.User
	return &u, nil
}

// Token implements Provider.
func (f *File) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	creds, err := f.read()
	if err != nil {
		return "", err
	}
	if creds == nil {
		return "", ErrNotAuthenticated
	}
	return creds.Token, nil
}

// read returns nil credentials when the file is absent or carries no token.
func (f *File) read() (*Credentials, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if _, err := toml.Decode(string(data), &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials %s: %w", f.Path, err)
	}
	creds.Token = strings.TrimSpace(creds.Token)
	if creds.Token == "" {
		return nil, nil
	}
	if creds.ID == "" {
		creds.ID = creds.Email
	}
	return &creds, nil
}

// WriteCredentials stores creds at path with owner-only permissions.
func WriteCredentials(path string, creds Credentials) error {
	var sb strings.Builder
	sb.WriteString("# socratic credentials\n")
	if err := toml.NewEncoder(&sb).Encode(creds); err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	// SECURITY: 0600 keeps the bearer token private to the owner.
	return util.AtomicWriteFile(path, []byte(sb.String()), 0600)
}
