package oauthclient

import (
	"fmt"
	"strings"
)

// NewRepository creates the client repository for persistenceType.
// Postgres deployments keep clients in memory until a client table exists.
func NewRepository(persistenceType, dataDir string) (Repository, error) {
	switch strings.ToLower(persistenceType) {
	case "file":
		return NewFileRepository(dataDir)
	case "", "memory", "inmem", "postgres", "postgresql":
		return NewInMemoryRepository()
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", persistenceType)
	}
}
