package valueobjects

import "github.com/google/uuid"

// IDGenerator produces statistically unique opaque identifiers for new
// records. Implementations are injected; the domain never picks one itself.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a plain function to IDGenerator.
type IDGeneratorFunc func() string

// NewID calls f.
func (f IDGeneratorFunc) NewID() string {
	return f()
}

// UUIDGenerator issues random (version 4) UUIDs.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a UUIDGenerator
func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{}
}

// NewID returns a fresh UUID string
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
