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
	KinaseID    ID
	SubstrateID ID
	RunID       ID
)

// String conversions for domain IDs
func (id KinaseID) String() string    { return ID(id).String() }
func (id SubstrateID) String() string { return ID(id).String() }
func (id RunID) String() string       { return ID(id).String() }

// NewRunID creates a time-ordered identifier for one analysis run
func NewRunID() RunID {
	return RunID(NewID())
}

// ParseKinaseID normalizes a kinase name. Kinase names are upper case.
func ParseKinaseID(s string) (KinaseID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("kinase ID cannot be empty")
	}
	return KinaseID(strings.ToUpper(s)), nil
}

// ParseKinaseIDs parses a list of kinase names, skipping blanks
func ParseKinaseIDs(names []string) ([]KinaseID, error) {
	ids := make([]KinaseID, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		id, err := ParseKinaseID(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
