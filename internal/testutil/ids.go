package testutil

// FixedIDGenerator returns the same search id every time.
//
// Search ids end up in CLI output and in scenario logs. Pinning them
// makes golden snapshots byte-identical across runs.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for id.
//
// If id is empty, NewID() returns "test-search-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-search-default"
	}
	return &FixedIDGenerator{id: id}
}

// NewID returns the fixed id.
func (g *FixedIDGenerator) NewID() string {
	return g.id
}
