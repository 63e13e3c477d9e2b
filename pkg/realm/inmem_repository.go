package realm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository using in-memory maps
type InMemoryRepository struct {
	realms map[uuid.UUID]*Realm
	byName map[string]uuid.UUID
	mu     sync.RWMutex
}

// NewInMemoryRepository creates a new in-memory realm repository
func NewInMemoryRepository(realms ...Realm) *InMemoryRepository {
	repo := &InMemoryRepository{
		realms: make(map[uuid.UUID]*Realm),
		byName: make(map[string]uuid.UUID),
	}
	for _, r := range realms {
		r = prepareNew(r)
		repo.realms[r.ID] = &r
		repo.byName[r.Name] = r.ID
	}
	return repo
}

func (r *InMemoryRepository) FindByName(ctx context.Context, name string) (*Realm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRealmNotFound, name)
	}
	return cloneRealm(r.realms[id]), nil
}

func (r *InMemoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*Realm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found, ok := r.realms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRealmNotFound, id)
	}
	return cloneRealm(found), nil
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Realm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedRealms(r.realms), nil
}

func (r *InMemoryRepository) Create(ctx context.Context, realm Realm) (*Realm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[realm.Name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrRealmExists, realm.Name)
	}
	realm = prepareNew(realm)
	r.realms[realm.ID] = &realm
	r.byName[realm.Name] = realm.ID
	return cloneRealm(&realm), nil
}

func (r *InMemoryRepository) Update(ctx context.Context, realm Realm) (*Realm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.realms[realm.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRealmNotFound, realm.ID)
	}
	if id, taken := r.byName[realm.Name]; taken && id != realm.ID {
		return nil, fmt.Errorf("%w: %s", ErrRealmExists, realm.Name)
	}
	delete(r.byName, current.Name)

	realm.CreatedAt = current.CreatedAt
	realm.UpdatedAt = time.Now().UTC()
	r.realms[realm.ID] = &realm
	r.byName[realm.Name] = realm.ID
	return cloneRealm(&realm), nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.realms[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRealmNotFound, id)
	}
	delete(r.byName, current.Name)
	delete(r.realms, id)
	return nil
}

func sortedRealms(m map[uuid.UUID]*Realm) []Realm {
	out := make([]Realm, 0, len(m))
	for _, r := range m {
		out = append(out, *cloneRealm(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
