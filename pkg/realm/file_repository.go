package realm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const realmsFile = "realms.json"

// FileRepository implements Repository using a JSON file
type FileRepository struct {
	dataDir string
	realms  map[uuid.UUID]*Realm
	mutex   sync.RWMutex
}

// realmData represents the structure of data stored in the JSON file
type realmData struct {
	Realms []*Realm `json:"realms"`
}

// NewFileRepository creates a new file-based realm repository
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository{
		dataDir: dataDir,
		realms:  make(map[uuid.UUID]*Realm),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

func (r *FileRepository) FindByName(ctx context.Context, name string) (*Realm, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if found := r.byName(name); found != nil {
		return cloneRealm(found), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRealmNotFound, name)
}

func (r *FileRepository) FindByID(ctx context.Context, id uuid.UUID) (*Realm, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	found, ok := r.realms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRealmNotFound, id)
	}
	return cloneRealm(found), nil
}

func (r *FileRepository) List(ctx context.Context) ([]Realm, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return sortedRealms(r.realms), nil
}

func (r *FileRepository) Create(ctx context.Context, realm Realm) (*Realm, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.byName(realm.Name) != nil {
		return nil, fmt.Errorf("%w: %s", ErrRealmExists, realm.Name)
	}

	realm = prepareNew(realm)
	r.realms[realm.ID] = &realm

	if err := r.save(); err != nil {
		delete(r.realms, realm.ID)
		return nil, fmt.Errorf("failed to save: %w", err)
	}
	return cloneRealm(&realm), nil
}

func (r *FileRepository) Update(ctx context.Context, realm Realm) (*Realm, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, ok := r.realms[realm.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRealmNotFound, realm.ID)
	}
	if other := r.byName(realm.Name); other != nil && other.ID != realm.ID {
		return nil, fmt.Errorf("%w: %s", ErrRealmExists, realm.Name)
	}

	realm.CreatedAt = current.CreatedAt
	realm.UpdatedAt = time.Now().UTC()
	r.realms[realm.ID] = &realm

	if err := r.save(); err != nil {
		r.realms[realm.ID] = current
		return nil, fmt.Errorf("failed to save: %w", err)
	}
	return cloneRealm(&realm), nil
}

func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, ok := r.realms[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRealmNotFound, id)
	}
	delete(r.realms, id)

	if err := r.save(); err != nil {
		r.realms[id] = current
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

func (r *FileRepository) byName(name string) *Realm {
	for _, realm := range r.realms {
		if realm.Name == name {
			return realm
		}
	}
	return nil
}

// load reads realm data from file
func (r *FileRepository) load() error {
	filePath := filepath.Join(r.dataDir, realmsFile)

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var stored realmData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.realms = make(map[uuid.UUID]*Realm, len(stored.Realms))
	for _, realm := range stored.Realms {
		r.realms[realm.ID] = realm
	}
	return nil
}

// save writes realm data to file atomically
func (r *FileRepository) save() error {
	data := realmData{Realms: make([]*Realm, 0, len(r.realms))}
	for _, realm := range sortedRealms(r.realms) {
		data.Realms = append(data.Realms, &realm)
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(r.dataDir, realmsFile+".tmp")
	if err := os.WriteFile(tempFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, filepath.Join(r.dataDir, realmsFile)); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
