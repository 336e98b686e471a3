package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the primary key has not been set yet.
// Postgres could default it with gen_random_uuid(), sqlite cannot.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
