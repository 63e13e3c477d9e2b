package realm

import (
	"fmt"
)

// RepositoryConfig contains configuration for creating a realm repository
type RepositoryConfig struct {
	// DB is required for PostgreSQL repositories
	DB DBTX
	// DataDir is required for file-based repositories
	DataDir string
	// Seed realms for the in-memory repository
	Seed []Realm
}

// NewRepository creates a new realm repository based on the persistence type
func NewRepository(persistenceType string, config RepositoryConfig) (Repository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.DB == nil {
			return nil, fmt.Errorf("db required for postgres repository")
		}
		return NewPostgresRepository(config.DB), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file repository")
		}
		return NewFileRepository(config.DataDir)
	case "memory", "inmem":
		return NewInMemoryRepository(config.Seed...), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, file, memory)", persistenceType)
	}
}
