package schema

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator produces primary key values for fields tagged
// `db:"generator:<name>"`. A generated value is only used when the key
// field is still zero at insert time.
type IDGenerator interface {
	Generate() (any, error)
	Type() string
}

// UUIDGenerator generates random (v4) UUID strings.
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() (any, error) {
	return uuid.NewString(), nil
}

func (UUIDGenerator) Type() string { return "uuid" }

// ULIDGenerator generates lexicographically sortable ULID strings.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ULIDGenerator) Generate() (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

func (g *ULIDGenerator) Type() string { return "ulid" }

var (
	generatorsMu sync.RWMutex
	generators   = map[string]IDGenerator{
		"uuid": UUIDGenerator{},
		"ulid": NewULIDGenerator(),
	}
)

// RegisterGenerator makes a generator available to struct tags by name.
func RegisterGenerator(name string, g IDGenerator) {
	generatorsMu.Lock()
	defer generatorsMu.Unlock()
	generators[name] = g
}

// LookupGenerator returns the generator registered under name.
func LookupGenerator(name string) (IDGenerator, bool) {
	generatorsMu.RLock()
	defer generatorsMu.RUnlock()
	g, ok := generators[name]
	return g, ok
}
