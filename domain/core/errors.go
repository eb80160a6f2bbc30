package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound      = errors.New("resource not found")
	ErrUnknownKinase = fmt.Errorf("%w: kinase", ErrNotFound)

	// Input errors
	ErrTypeMismatch       = errors.New("kinase type incompatible with substrate center residue")
	ErrMalformedSubstrate = errors.New("malformed substrate")
	ErrInvalidMatrix      = errors.New("invalid kinase matrix")
	ErrInvalidBackground  = errors.New("invalid background population")
	ErrInvalidCriterion   = errors.New("invalid match criterion")
	ErrNoEligibleSites    = errors.New("no sites eligible for the requested kinase types")

	// Enrichment errors
	ErrInsufficientPermutations = errors.New("permutation count must be positive")
	ErrEmptyRankedList          = errors.New("ranked list is empty")
	ErrDegenerateStatistic      = errors.New("ranking statistic is uniformly zero")
	ErrInsufficientHits         = errors.New("kinase hit set outside the testable size range")
	ErrEmptyNullPool            = errors.New("null distribution has no samples of the observed sign")

	// Startup errors
	ErrMissingLibrary    = errors.New("matrix library not loaded")
	ErrMissingBackground = errors.New("background index not loaded")
)

// Error constructors with context
func NewUnknownKinaseError(id KinaseID) error {
	return fmt.Errorf("%w %s", ErrUnknownKinase, id)
}

func NewTypeMismatchError(id KinaseID, kinaseType KinaseType, center byte) error {
	return fmt.Errorf("%w: %s is %s, center residue %q", ErrTypeMismatch, id, kinaseType, center)
}

func NewMalformedSubstrateError(id SubstrateID, reason string) error {
	return fmt.Errorf("%w %s: %s", ErrMalformedSubstrate, id, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrMalformedSubstrate) ||
		errors.Is(err, ErrTypeMismatch) ||
		errors.Is(err, ErrInvalidCriterion) ||
		errors.Is(err, ErrNoEligibleSites) ||
		errors.Is(err, ErrInsufficientPermutations) ||
		errors.Is(err, ErrEmptyRankedList) ||
		errors.Is(err, ErrDegenerateStatistic)
}
