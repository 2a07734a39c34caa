package backend

import (
	"fmt"

	"expensetracker/internal/log"
	"expensetracker/internal/remote/memory"
	"expensetracker/internal/remote/rest"
	"expensetracker/internal/storage"
)

// Factory creates backends based on configuration
type Factory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create builds the backend described by config.
func (f *Factory) Create(config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case RESTBackend:
		return f.createRESTBackend(config), nil
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *Factory) createRESTBackend(config Config) *Result {
	var opts []rest.Option
	if config.Timeout > 0 {
		opts = append(opts, rest.WithTimeout(config.Timeout))
	}
	if config.Observer != nil {
		opts = append(opts, rest.WithObserver(config.Observer))
	}
	client := rest.NewClient(config.BaseURL, opts...)

	f.logger.Info("Initialized REST backend", log.FieldBaseURL, client.BaseURL())

	return &Result{API: client}
}

func (f *Factory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{API: repo, Cleanup: repo.Close}, nil
}

func (f *Factory) createMemoryBackend(config Config) *Result {
	store := memory.New()
	if config.SeedFile != "" {
		store = memory.NewFromFile(config.SeedFile)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &Result{API: store}
}
