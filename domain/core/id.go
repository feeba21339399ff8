package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	EntityID    ID
	QueryID     ID
	VariableKey ID
)

// String conversions for domain IDs
func (id EntityID) String() string    { return ID(id).String() }
func (id QueryID) String() string     { return ID(id).String() }
func (id VariableKey) String() string { return ID(id).String() }

// ParseEntityID parses a string into EntityID
func ParseEntityID(s string) (EntityID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("entity ID cannot be empty")
	}
	return EntityID(s), nil
}

// ParseVariableKey parses a string into VariableKey
func ParseVariableKey(s string) (VariableKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("variable key cannot be empty")
	}
	return VariableKey(s), nil
}
