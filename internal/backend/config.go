package backend

import (
	"errors"
	"fmt"

	"expensetracker/internal/config"
	"expensetracker/internal/remote/rest"
)

// ForWeb returns the data source of the web front-end: the remote API, or an
// in-process store when DATA_BACKEND=memory.
func ForWeb(appConfig *config.Config, observe rest.Observer) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	t := Type(appConfig.DataBackend)
	if t != RESTBackend && t != MemoryBackend {
		return Config{}, fmt.Errorf("invalid web data backend: %s", appConfig.DataBackend)
	}
	return Config{
		Type:     t,
		BaseURL:  appConfig.APIBaseURL,
		Timeout:  appConfig.APITimeout,
		Observer: observe,
		SeedFile: appConfig.MemorySeedFile,
	}, nil
}

// ForAPIServer returns the store of the development API server.
func ForAPIServer(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	t := Type(appConfig.APIBackend)
	if t != SQLiteBackend && t != MemoryBackend {
		return Config{}, fmt.Errorf("invalid API backend: %s", appConfig.APIBackend)
	}
	return Config{
		Type:         t,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		SeedFile:     appConfig.MemorySeedFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case RESTBackend:
		if c.BaseURL == "" {
			return errors.New("API base URL is required for rest backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		// Seed file is optional
	}

	return nil
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{RESTBackend, SQLiteBackend, MemoryBackend}
}
