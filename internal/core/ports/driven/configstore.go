package driven

// ConfigStore reads and writes persisted application settings such as
// the OpenAlex contact email, model names and worker counts.
type ConfigStore interface {
	// GetString returns the string value for key, or "" when unset.
	GetString(key string) string

	// GetInt returns the integer value for key, or 0 when unset.
	GetInt(key string) int

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Path returns the location of the backing configuration file.
	Path() string
}
