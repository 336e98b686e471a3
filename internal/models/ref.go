package models

import "github.com/google/uuid"

// Ref is a relationship to another document. The ID is always present;
// Resolved is set only when the related document was loaded with the query.
type Ref[T any] struct {
	ID       uuid.UUID
	Resolved *T
}

// RefOf builds a reference from a foreign key and an optional loaded document.
func RefOf[T any](id uuid.UUID, resolved *T) Ref[T] {
	return Ref[T]{ID: id, Resolved: resolved}
}

// OptionalRef builds a reference from a nullable foreign key. ok is false when
// the key is unset.
func OptionalRef[T any](id *uuid.UUID, resolved *T) (Ref[T], bool) {
	if id == nil || *id == uuid.Nil {
		return Ref[T]{}, false
	}
	return Ref[T]{ID: *id, Resolved: resolved}, true
}

// IsResolved reports whether the referenced document was loaded.
func (r Ref[T]) IsResolved() bool {
	return r.Resolved != nil
}
