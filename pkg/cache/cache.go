// Package cache provides content-addressed caching for transpiler results.
//
// Three key families cover the pipeline stages: graph keys for parse
// results, document keys for transpile results, and artifact keys for
// rendered previews. Keys embed the options that influence the output, so
// a changed limit or strategy never serves a stale entry.
//
// Backends: FileCache for CLI usage, RedisCache for the server
// deployment, NullCache to disable caching.
package cache

import (
	"context"
	"time"
)

// Default TTLs per key family.
const (
	// TTLGraph is the lifetime of cached parse results.
	TTLGraph = 24 * time.Hour

	// TTLDocument is the lifetime of cached transpile results.
	TTLDocument = 24 * time.Hour

	// TTLArtifact is the lifetime of cached rendered previews.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present; an absent key is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// GraphKeyOpts are the parse options that influence the resulting graph.
type GraphKeyOpts struct {
	ExplosionFactor int
	MaxDepth        int
	MaxNodes        int
}

// DocumentKeyOpts are the transpile options that influence the resulting
// document.
type DocumentKeyOpts struct {
	Strategy         string
	IterationCeiling int
}

// ArtifactKeyOpts are the render options that influence a preview.
type ArtifactKeyOpts struct {
	Format string
}

// Keyer generates cache keys for the pipeline stages.
type Keyer interface {
	// GraphKey keys a parse result by the document's content hash.
	GraphKey(docHash string, opts GraphKeyOpts) string

	// DocumentKey keys a transpile result by the graph's content hash.
	DocumentKey(graphHash string, opts DocumentKeyOpts) string

	// ArtifactKey keys a rendered preview by the graph's content hash.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer generates hashed keys with stable per-family prefixes.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// GraphKey generates a key for parse result caching.
func (k *DefaultKeyer) GraphKey(docHash string, opts GraphKeyOpts) string {
	return hashKey("graph", docHash, opts)
}

// DocumentKey generates a key for transpile result caching.
func (k *DefaultKeyer) DocumentKey(graphHash string, opts DocumentKeyOpts) string {
	return hashKey("document", graphHash, opts)
}

// ArtifactKey generates a key for rendered preview caching.
func (k *DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, opts)
}
