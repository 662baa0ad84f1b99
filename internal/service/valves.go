package service

import (
	"fmt"
	"time"

	"reservoir_controller/internal/models"
)

// valveBank tracks valve open state for one reservoir. Toggling is a
// dashboard-level signal only: opening the feed valve here does not
// start a feeding session, the two are related but distinct.
type valveBank struct {
	order  []string
	valves map[string]*models.Valve
	// active is the most recently opened valve, for highlighting.
	active string
}

func newValveBank(configs []models.ValveConfig) *valveBank {
	b := &valveBank{valves: make(map[string]*models.Valve, len(configs))}
	for _, c := range configs {
		b.order = append(b.order, c.ID)
		b.valves[c.ID] = &models.Valve{ID: c.ID, Name: c.Name}
	}
	return b
}

// toggle flips a valve by ID or name and returns the new state.
func (b *valveBank) toggle(nameOrID string, now time.Time) (models.Valve, error) {
	v := b.find(nameOrID)
	if v == nil {
		return models.Valve{}, fmt.Errorf("unknown valve %q", nameOrID)
	}
	v.Open = !v.Open
	v.ChangedAt = now.UTC()
	if v.Open {
		b.active = v.ID
	} else if b.active == v.ID {
		b.active = ""
	}
	return *v, nil
}

// set forces a valve to a known state (used by feeding start/stop).
func (b *valveBank) set(id string, open bool, now time.Time) {
	v := b.find(id)
	if v == nil {
		return
	}
	v.Open = open
	v.ChangedAt = now.UTC()
	if open {
		b.active = v.ID
	} else if b.active == v.ID {
		b.active = ""
	}
}

// activeValve returns the currently highlighted valve, if any.
func (b *valveBank) activeValve() (string, bool) {
	return b.active, b.active != ""
}

func (b *valveBank) find(nameOrID string) *models.Valve {
	if v, ok := b.valves[nameOrID]; ok {
		return v
	}
	for _, v := range b.valves {
		if v.Name == nameOrID {
			return v
		}
	}
	return nil
}

// snapshot returns valve states in config order.
func (b *valveBank) snapshot() []models.Valve {
	out := make([]models.Valve, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.valves[id])
	}
	return out
}
