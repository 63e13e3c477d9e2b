package oauthclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const clientsFile = "clients.json"

// FileRepository implements Repository on a JSON file under dataDir.
type FileRepository struct {
	dataDir string
	clients clientSet
	mutex   sync.RWMutex
}

// NewFileRepository opens or creates dataDir/clients.json.
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository{
		dataDir: dataDir,
		clients: make(clientSet),
	}
	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	return repo, nil
}

func (r *FileRepository) GetClient(ctx context.Context, realmID uuid.UUID, clientID string) (*OAuthClient, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.clients.get(realmID, clientID)
}

func (r *FileRepository) ListClients(ctx context.Context, realmID uuid.UUID) ([]*OAuthClient, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.clients.list(realmID)
}

func (r *FileRepository) CreateClient(ctx context.Context, client *OAuthClient) (*OAuthClient, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	e, err := r.clients.create(client)
	if err != nil {
		return nil, err
	}
	if err := r.save(); err != nil {
		delete(r.clients, keyOf(e))
		return nil, fmt.Errorf("failed to save: %w", err)
	}
	return FromEntity(e)
}

func (r *FileRepository) UpdateClient(ctx context.Context, client *OAuthClient) (*OAuthClient, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var previous ClientEntity
	if client != nil {
		previous = r.clients[keyOf(client.Entity())]
	}
	e, err := r.clients.update(client)
	if err != nil {
		return nil, err
	}
	if err := r.save(); err != nil {
		r.clients[keyOf(e)] = previous
		return nil, fmt.Errorf("failed to save: %w", err)
	}
	return FromEntity(e)
}

func (r *FileRepository) DeleteClient(ctx context.Context, realmID uuid.UUID, clientID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	k := clientKey{realm: realmID, clientID: clientID}
	previous, ok := r.clients[k]
	if !ok {
		return fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}
	delete(r.clients, k)
	if err := r.save(); err != nil {
		r.clients[k] = previous
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

func (r *FileRepository) load() error {
	data, err := os.ReadFile(filepath.Join(r.dataDir, clientsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var entities []ClientEntity
	if err := json.Unmarshal(data, &entities); err != nil {
		return err
	}
	for _, e := range entities {
		r.clients[keyOf(e)] = e
	}
	return nil
}

// save must be called with the write lock held.
func (r *FileRepository) save() error {
	entities := make([]ClientEntity, 0, len(r.clients))
	for _, e := range r.clients {
		entities = append(entities, e)
	}

	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(r.dataDir, clientsFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
