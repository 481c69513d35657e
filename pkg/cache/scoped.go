package cache

// ScopedKeyer prefixes every key of an inner Keyer, isolating tenants that
// share one backend. The HTTP server scopes keys per API client:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "client:"+clientID+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner; a nil inner uses DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// LayoutKey returns the prefixed layout key.
func (k *ScopedKeyer) LayoutKey(planHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(planHash, opts)
}

// ArtifactKey returns the prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(resultHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(resultHash, opts)
}
