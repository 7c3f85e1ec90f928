package cache

// ScopedKeyer wraps another Keyer and prefixes every key with a scope,
// so multiple deployments can share one backend without colliding.
type ScopedKeyer struct {
	scope string
	inner Keyer
}

// NewScopedKeyer creates a keyer that namespaces keys under scope.
func NewScopedKeyer(scope string, inner Keyer) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{scope: scope, inner: inner}
}

func (k *ScopedKeyer) prefix(key string) string {
	if k.scope == "" {
		return key
	}
	return k.scope + ":" + key
}

// GraphKey generates a scoped key for parse result caching.
func (k *ScopedKeyer) GraphKey(docHash string, opts GraphKeyOpts) string {
	return k.prefix(k.inner.GraphKey(docHash, opts))
}

// DocumentKey generates a scoped key for transpile result caching.
func (k *ScopedKeyer) DocumentKey(graphHash string, opts DocumentKeyOpts) string {
	return k.prefix(k.inner.DocumentKey(graphHash, opts))
}

// ArtifactKey generates a scoped key for rendered preview caching.
func (k *ScopedKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return k.prefix(k.inner.ArtifactKey(graphHash, opts))
}
