// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package population holds the per-person attributes the valuation layer
// reads: the stop interaction time and the prebooking flag.
//
// Attributes are drawn once, when the scenario is built, from an explicit
// seeded generator. Persons are always visited in sorted id order, so the
// same seed yields the same vulnerable set regardless of how the persons
// were loaded.
package population

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
)

const (
	// DefaultInteractionTime is the stop interaction time, in seconds, of a
	// person who is not vulnerable.
	DefaultInteractionTime = 60.0
	// DefaultVulnerableTime is used when no vulnerable time is configured.
	DefaultVulnerableTime = 120.0
)

// ErrConflictingPrebooking is returned when both prebooking modes are set.
var ErrConflictingPrebooking = errors.New("prebooking by vulnerability and by independent probability are mutually exclusive")

// PersonID identifies a simulated person.
type PersonID string

// Person carries the attributes assigned at scenario-build time.
type Person struct {
	ID PersonID
	// InteractionTime is the stop interaction time in seconds. It is only
	// meaningful when HasInteractionTime is set.
	InteractionTime    float64
	HasInteractionTime bool
	Vulnerable         bool
	Prebook            bool
}

// Population is the set of simulated persons. It is not safe for
// concurrent mutation; once attributes are assigned it is read-only.
type Population struct {
	persons map[PersonID]*Person
}

// New creates a population with the given person ids and no attributes.
// Duplicate ids are collapsed.
func New(ids ...PersonID) *Population {
	p := &Population{persons: make(map[PersonID]*Person, len(ids))}
	for _, id := range ids {
		p.persons[id] = &Person{ID: id}
	}
	return p
}

// Len returns the number of persons.
func (p *Population) Len() int {
	return len(p.persons)
}

// IDs returns every person id in sorted order.
func (p *Population) IDs() []PersonID {
	ids := make([]PersonID, 0, len(p.persons))
	for id := range p.persons {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Person returns a copy of the person's attributes.
func (p *Population) Person(id PersonID) (Person, bool) {
	person, ok := p.persons[id]
	if !ok {
		return Person{}, false
	}
	return *person, true
}

// SetInteractionTime assigns an interaction time directly. It is used by
// scenarios that carry explicit attributes.
func (p *Population) SetInteractionTime(id PersonID, seconds float64) error {
	person, ok := p.persons[id]
	if !ok {
		return fmt.Errorf("unknown person %q", id)
	}
	person.InteractionTime = seconds
	person.HasInteractionTime = true
	return nil
}

// InteractionTime returns the person's interaction time, if one was set.
func (p *Population) InteractionTime(id PersonID) (float64, bool) {
	person, ok := p.persons[id]
	if !ok || !person.HasInteractionTime {
		return 0, false
	}
	return person.InteractionTime, true
}

// MinInteractionTime is the smallest interaction time set on any person, or
// DefaultInteractionTime when none is set.
func (p *Population) MinInteractionTime() float64 {
	lowest, found := 0.0, false
	for _, person := range p.persons {
		if !person.HasInteractionTime {
			continue
		}
		if !found || person.InteractionTime < lowest {
			lowest, found = person.InteractionTime, true
		}
	}
	if !found {
		return DefaultInteractionTime
	}
	return lowest
}

// AssignOptions controls attribute assignment.
type AssignOptions struct {
	Seed                  int64
	VulnerableProbability float64
	VulnerableTime        float64
	// PrebookVulnerable makes exactly the vulnerable persons prebook.
	PrebookVulnerable bool
	// PrebookingProbability makes each person prebook independently.
	PrebookingProbability float64
}

// Validate rejects option sets that cannot be honored.
func (o AssignOptions) Validate() error {
	if o.PrebookVulnerable && o.PrebookingProbability > 0 {
		return ErrConflictingPrebooking
	}
	if o.VulnerableProbability < 0 || o.VulnerableProbability > 1 {
		return fmt.Errorf("vulnerable probability %v outside [0, 1]", o.VulnerableProbability)
	}
	if o.PrebookingProbability < 0 || o.PrebookingProbability > 1 {
		return fmt.Errorf("prebooking probability %v outside [0, 1]", o.PrebookingProbability)
	}
	return nil
}

// Summary reports what Assign did.
type Summary struct {
	Persons    int
	Vulnerable int
	Prebooking int
}

// NewRand returns the generator Assign uses for seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Assign draws interaction times and prebooking flags for every person.
// Each person consumes one draw for vulnerability and, with independent
// prebooking, one more for the prebooking decision, in sorted id order.
func (p *Population) Assign(opts AssignOptions) (Summary, error) {
	if err := opts.Validate(); err != nil {
		return Summary{}, err
	}
	vulnerableTime := opts.VulnerableTime
	if vulnerableTime <= 0 {
		vulnerableTime = DefaultVulnerableTime
	}

	rng := NewRand(opts.Seed)
	summary := Summary{Persons: len(p.persons)}
	for _, id := range p.IDs() {
		person := p.persons[id]

		person.Vulnerable = rng.Float64() < opts.VulnerableProbability
		person.InteractionTime = DefaultInteractionTime
		if person.Vulnerable {
			person.InteractionTime = vulnerableTime
			summary.Vulnerable++
		}
		person.HasInteractionTime = true

		switch {
		case opts.PrebookVulnerable:
			person.Prebook = person.Vulnerable
		case opts.PrebookingProbability > 0:
			person.Prebook = rng.Float64() < opts.PrebookingProbability
		default:
			person.Prebook = false
		}
		if person.Prebook {
			summary.Prebooking++
		}
	}
	return summary, nil
}

// Vulnerable returns the ids of vulnerable persons in sorted order.
func (p *Population) Vulnerable() []PersonID {
	var out []PersonID
	for _, id := range p.IDs() {
		if p.persons[id].Vulnerable {
			out = append(out, id)
		}
	}
	return out
}
