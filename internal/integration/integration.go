// Copyright 2026 The Clubly Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package integration describes per-tenant external reconciliation
// sources and the closed set of contract statuses they report.
package integration

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var ErrConfigNotFound = errors.New("integration config not found")

// Activation modes. In manual mode operators flip activation flags by
// hand; in integration mode the reconciliation job owns them.
const (
	ModeManual      = "manual"
	ModeIntegration = "integration"
)

// SystemContracts identifies the external contract/customer API.
const SystemContracts = "contracts_api"

// Config describes one tenant's external reconciliation source. At most
// one active config exists per (tenant, system type).
type Config struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	SystemType     string     `json:"system_type"`
	BaseURL        string     `json:"base_url"`
	AuthToken      string     `json:"-"`
	ActivationMode string     `json:"activation_mode"`
	Active         bool       `json:"active"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Repository defines the interface for integration config storage
type Repository interface {
	GetActive(ctx context.Context, tenantID, systemType string) (*Config, error)
	// ListActiveByMode returns every tenant's active config in the given
	// activation mode, across tenants; only the reconciliation job (which
	// runs outside any request) may use it.
	ListActiveByMode(ctx context.Context, systemType, mode string) ([]*Config, error)
	TouchLastSynced(ctx context.Context, configID string, at time.Time) error
}

// ContractStatus is the closed enumeration of statuses the external
// system reports. Anything outside the set maps to StatusUnknown and is
// deliberately a no-op during reconciliation.
type ContractStatus int

const (
	StatusUnknown ContractStatus = iota
	StatusActive
	StatusSuspended
	StatusCanceled
	StatusInactive
)

// ParseContractStatus classifies a raw status string from the external
// system. The source vocabulary is Portuguese; unrecognized values are
// intentionally mapped to StatusUnknown rather than an error so that an
// upstream vocabulary change degrades to "no change" instead of flapping
// activation flags.
func ParseContractStatus(raw string) ContractStatus {
	switch raw {
	case "ATIVO":
		return StatusActive
	case "SUSPENSO":
		return StatusSuspended
	case "CANCELADO":
		return StatusCanceled
	case "INATIVO":
		return StatusInactive
	default:
		return StatusUnknown
	}
}

// String returns the canonical name of a status.
func (s ContractStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusSuspended:
		return "suspended"
	case StatusCanceled:
		return "canceled"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// WantsActive reports the local activation flag this status converges to,
// and whether it implies any change at all.
func (s ContractStatus) WantsActive() (active bool, known bool) {
	switch s {
	case StatusActive:
		return true, true
	case StatusSuspended, StatusCanceled, StatusInactive:
		return false, true
	default:
		return false, false
	}
}
