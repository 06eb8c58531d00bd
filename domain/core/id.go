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
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
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
	EntityID      ID
	CorrelationID ID
)

// String conversions for domain IDs
func (id EntityID) String() string      { return ID(id).String() }
func (id CorrelationID) String() string { return ID(id).String() }

// ParseEntityID parses a string into EntityID
func ParseEntityID(s string) (EntityID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("entity ID cannot be empty")
	}
	return EntityID(s), nil
}

// ParseCorrelationID parses a string into CorrelationID
func ParseCorrelationID(s string) (CorrelationID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("correlation ID cannot be empty")
	}
	return CorrelationID(s), nil
}
