// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import "encoding/json"

// =============================================================================
// SERVICE HEALTH
// =============================================================================

// HealthStatus is the tri-state availability of the reply pipeline.
type HealthStatus string

const (
	StatusOnline  HealthStatus = "online"
	StatusSlow    HealthStatus = "slow"
	StatusOffline HealthStatus = "offline"
)

// Service identifiers reported in ServiceHealth.Service.
const (
	ServicePrimary  = "colab_gpu"
	ServiceFallback = "hf_cpu_slow"
	ServiceNone     = "none"
)

// Per-tier states reported in ServiceDetails.
const (
	TierOnline        = "online"
	TierOffline       = "offline"
	TierNotConfigured = "not_configured"
)

// ServiceDetails reports the state of each reply tier.
type ServiceDetails struct {
	Colab       string `json:"colab"`
	HuggingFace string `json:"huggingface"`
}

// ServiceHealth is the body of GET /health.
type ServiceHealth struct {
	Status      HealthStatus    `json:"status"`
	Service     string          `json:"service"`
	ChatEnabled bool            `json:"chat_enabled"`
	Details     *ServiceDetails `json:"services,omitempty"`
}

// OfflineHealth is the value every failed health check collapses to.
func OfflineHealth() ServiceHealth {
	return ServiceHealth{
		Status:      StatusOffline,
		Service:     ServiceNone,
		ChatEnabled: false,
	}
}

// UnmarshalJSON accepts the tier details under either "services" or "details".
func (h *ServiceHealth) UnmarshalJSON(data []byte) error {
	type plain ServiceHealth
	var aux struct {
		plain
		Legacy *ServiceDetails `json:"details"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*h = ServiceHealth(aux.plain)
	if h.Details == nil {
		h.Details = aux.Legacy
	}
	return nil
}

// IsOnline returns true for status "online".
func (h ServiceHealth) IsOnline() bool { return h.Status == StatusOnline }

// IsSlow returns true for status "slow".
func (h ServiceHealth) IsSlow() bool { return h.Status == StatusSlow }

// IsOffline returns true for status "offline" or any unrecognized status.
func (h ServiceHealth) IsOffline() bool {
	return h.Status != StatusOnline && h.Status != StatusSlow
}

// Summary returns the one-line label shown in status bars.
func (h ServiceHealth) Summary() string {
	switch h.Status {
	case StatusOnline:
		return "All Systems Operational"
	case StatusSlow:
		return "Degraded Performance"
	default:
		return "Services Offline"
	}
}

// TierLabel converts a per-tier state into display text.
func TierLabel(state string) string {
	switch state {
	case TierOnline:
		return "Online"
	case TierNotConfigured:
		return "Not Configured"
	default:
		return "Offline"
	}
}
