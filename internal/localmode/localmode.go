// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package localmode restricts network access to loopback hosts.
//
// Local-only mode is used when running the client against a dev backend on
// the same machine. When it is enabled, backend and reply-tier URLs
// must resolve to localhost, and remote reply tiers are disabled.
package localmode

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNonLocalhost is returned for a non-loopback host in local-only mode.
	ErrNonLocalhost = errors.New("only localhost connections are allowed in local-only mode")

	// ErrRemoteBlocked is returned when a remote reply tier is used in local-only mode.
	ErrRemoteBlocked = errors.New("remote services are disabled in local-only mode")

	// ErrInvalidURLScheme is returned when a URL scheme is not http or https.
	ErrInvalidURLScheme = errors.New("only http and https schemes are allowed")

	// ErrInvalidURL is returned when a URL cannot be parsed or has no host.
	ErrInvalidURL = errors.New("invalid URL")
)

// =============================================================================
// MODE MANAGEMENT
// =============================================================================

var (
	enabled bool
	mu      sync.RWMutex
)

// Set enables or disables local-only mode globally.
func Set(on bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = on
}

// Enabled returns true if local-only mode is active.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsLocalhost reports whether host refers to a loopback address.
// Accepts "localhost", any 127.0.0.0/8 address and IPv6 loopback, with or without port.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))

	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// ValidateURL checks that rawURL is an absolute http(s) URL.
// In local-only mode the host must also be loopback.
//
// SECURITY: Scheme validation always runs, regardless of mode.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrInvalidURLScheme
	}
	if parsed.Host == "" {
		return ErrInvalidURL
	}

	if Enabled() && !IsLocalhost(parsed.Hostname()) {
		return ErrNonLocalhost
	}
	return nil
}

// CheckRemoteAllowed returns an error if remote services are disabled.
func CheckRemoteAllowed() error {
	if Enabled() {
		return ErrRemoteBlocked
	}
	return nil
}

// StatusIndicator returns "LOCAL ONLY" when the mode is active.
func StatusIndicator() string {
	if Enabled() {
		return "LOCAL ONLY"
	}
	return ""
}
