package core

import "github.com/google/uuid"

// GenerateID returns a new unique identifier for an engine-owned object.
// The id is stable for the object's lifetime and shows up in diagnostics.
func GenerateID() string {
	return uuid.New().String()
}
