package cache

// ScopedKeyer namespaces the keys of another Keyer. Set `prefix` under
// [cache] in camml.toml to keep several deployments apart on one Redis
// server.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer prefixes every key produced by inner, or by a DefaultKeyer
// when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ResultKey(datasetHash string, opts ResultKeyOpts) string {
	return k.prefix + k.inner.ResultKey(datasetHash, opts)
}

func (k *ScopedKeyer) ArtifactKey(resultKey string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(resultKey, opts)
}
