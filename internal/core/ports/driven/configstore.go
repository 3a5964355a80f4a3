package driven

// ConfigStore holds raw configuration values under dotted keys such as
// "index.top_k". Values are whatever the backing format decodes to; the
// settings service does all type conversion.
type ConfigStore interface {
	// Get returns the value stored under key.
	Get(key string) (any, bool)

	// Set stores one value and persists it.
	Set(key string, value any) error

	// SetAll stores every value in a single write. When it fails none of
	// the values are kept.
	SetAll(values map[string]any) error
}
