// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package valuation

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/poolsweep/internal/population"
)

// DefaultStopDuration is used for passengers without an interaction time.
const DefaultStopDuration = population.DefaultInteractionTime

// AttributeSource looks up a person's interaction time.
type AttributeSource interface {
	InteractionTime(id population.PersonID) (float64, bool)
}

// StopDurationProvider is the solver-facing stop duration hook.
type StopDurationProvider interface {
	PickupDuration(passengers []population.PersonID) float64
	DropoffDuration(passengers []population.PersonID) float64
}

// DropoffMode selects how long a vehicle dwells when passengers alight.
type DropoffMode int

const (
	// DropoffZero adds no dwell time at dropoff.
	DropoffZero DropoffMode = iota
	// DropoffSameAsPickup dwells as long at dropoff as at pickup.
	DropoffSameAsPickup
)

func (m DropoffMode) String() string {
	switch m {
	case DropoffZero:
		return "zero"
	case DropoffSameAsPickup:
		return "pickup"
	}
	return fmt.Sprintf("DropoffMode(%d)", int(m))
}

// ParseDropoffMode accepts "zero" or "pickup". An empty string means zero.
func ParseDropoffMode(s string) (DropoffMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return DropoffZero, nil
	case "pickup":
		return DropoffSameAsPickup, nil
	}
	return DropoffZero, fmt.Errorf("invalid dropoff mode %q: must be 'zero' or 'pickup'", s)
}

// StopTimeProvider derives stop durations from person attributes.
type StopTimeProvider struct {
	attrs   AttributeSource
	dropoff DropoffMode
}

// NewStopTimeProvider creates a provider reading from attrs.
func NewStopTimeProvider(attrs AttributeSource, dropoff DropoffMode) *StopTimeProvider {
	return &StopTimeProvider{attrs: attrs, dropoff: dropoff}
}

// StopDuration is the largest interaction time among passengers, or
// DefaultStopDuration when none of them has one.
func (p *StopTimeProvider) StopDuration(passengers []population.PersonID) float64 {
	longest, found := 0.0, false
	for _, id := range passengers {
		t, ok := p.attrs.InteractionTime(id)
		if !ok {
			continue
		}
		if !found || t > longest {
			longest, found = t, true
		}
	}
	if !found {
		return DefaultStopDuration
	}
	return longest
}

// PickupDuration implements StopDurationProvider.
func (p *StopTimeProvider) PickupDuration(passengers []population.PersonID) float64 {
	return p.StopDuration(passengers)
}

// DropoffDuration implements StopDurationProvider.
func (p *StopTimeProvider) DropoffDuration(passengers []population.PersonID) float64 {
	if p.dropoff == DropoffSameAsPickup {
		return p.StopDuration(passengers)
	}
	return 0
}

// DropoffMode reports the configured dropoff behavior.
func (p *StopTimeProvider) DropoffMode() DropoffMode {
	return p.dropoff
}
