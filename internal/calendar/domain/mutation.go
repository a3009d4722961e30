package domain

// MutationKind identifies the storage operation a mutation requests.
type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

// Mutation is one storage instruction produced by the series editor.
type Mutation struct {
	Kind  MutationKind
	Event Event
	// EventID is set for every kind; for deletes it is the only field.
	EventID string
}

// CreateOf returns a create mutation for ev.
func CreateOf(ev Event) Mutation {
	return Mutation{Kind: MutationCreate, Event: ev, EventID: ev.ID}
}

// UpdateOf returns an update mutation for ev.
func UpdateOf(ev Event) Mutation {
	return Mutation{Kind: MutationUpdate, Event: ev, EventID: ev.ID}
}

// DeleteOf returns a delete mutation for id.
func DeleteOf(id string) Mutation {
	return Mutation{Kind: MutationDelete, EventID: id}
}

// MutationSet is the ordered result of an edit or delete. The caller applies
// it atomically.
type MutationSet struct {
	Scope     EditScope
	Mutations []Mutation
	// Degraded is set when a recurring-only scope was requested for an event
	// without a rule and the request fell back to a plain update or delete.
	Degraded bool
}

// IsEmpty reports whether there is nothing to apply.
func (s MutationSet) IsEmpty() bool {
	return len(s.Mutations) == 0
}

// Created returns the events the set creates.
func (s MutationSet) Created() []Event {
	var out []Event
	for _, m := range s.Mutations {
		if m.Kind == MutationCreate {
			out = append(out, m.Event)
		}
	}
	return out
}
