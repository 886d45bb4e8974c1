package config

// EffectiveConfigResult is the merged view of flags, environment and config
// file that the rest of the server consumes.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	// Source summarizes where values came from ("flags", "env", "config" or
	// a comma-joined combination).
	Source string
}
