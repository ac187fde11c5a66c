package models

import "github.com/google/uuid"

// ensureID assigns a random UUID when the primary key has not been set.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
