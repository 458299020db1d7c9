package runtime

import (
	"sync"

	"style-relay/domain"
	"style-relay/errors"
)

// Registry is the authoritative source of who is online. A participant
// exists here iff its connection is active and completed a join. Insertion
// order is preserved because the users-list broadcast must be stable.
type Registry struct {
	mu           sync.RWMutex
	participants map[domain.ConnectionID]*domain.Participant
	order        []domain.ConnectionID
}

func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[domain.ConnectionID]*domain.Participant),
	}
}

// Add registers a participant. Duplicate connection ids are a structural
// defect under correct transport semantics, but guarded anyway.
func (r *Registry) Add(p *domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.participants[p.ConnectionID]; exists {
		return errors.ErrDuplicateConnection
	}
	r.participants[p.ConnectionID] = p
	r.order = append(r.order, p.ConnectionID)
	return nil
}

// Remove deletes and returns the participant, or nil if absent (a
// disconnect after a failed join lands here).
func (r *Registry) Remove(id domain.ConnectionID) *domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.participants[id]
	if !exists {
		return nil
	}
	delete(r.participants, id)
	for i, connID := range r.order {
		if connID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return p
}

func (r *Registry) Get(id domain.ConnectionID) (*domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[id]
	return p, ok
}

// ListAll returns participant copies in insertion order.
func (r *Registry) ListAll() []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Participant, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.participants[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}
