package oauthclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/realm-console/pkg/errors"
)

// Repository stores OAuth clients per realm. Client ids are unique within
// a realm only.
type Repository interface {
	GetClient(ctx context.Context, realmID uuid.UUID, clientID string) (*OAuthClient, error)
	ListClients(ctx context.Context, realmID uuid.UUID) ([]*OAuthClient, error)
	CreateClient(ctx context.Context, client *OAuthClient) (*OAuthClient, error)
	UpdateClient(ctx context.Context, client *OAuthClient) (*OAuthClient, error)
	DeleteClient(ctx context.Context, realmID uuid.UUID, clientID string) error
}

type clientKey struct {
	realm    uuid.UUID
	clientID string
}

func keyOf(e ClientEntity) clientKey {
	return clientKey{realm: e.RealmID, clientID: e.Name}
}

// clientSet is the map both repositories keep in memory.
type clientSet map[clientKey]ClientEntity

func (s clientSet) get(realmID uuid.UUID, clientID string) (*OAuthClient, error) {
	e, ok := s[clientKey{realm: realmID, clientID: clientID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}
	return FromEntity(e)
}

func (s clientSet) list(realmID uuid.UUID) ([]*OAuthClient, error) {
	out := make([]*OAuthClient, 0)
	for k, e := range s {
		if k.realm != realmID {
			continue
		}
		c, err := FromEntity(e)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID() < out[j].ClientID() })
	return out, nil
}

func validate(c *OAuthClient) error {
	if c == nil || strings.TrimSpace(c.ClientID()) == "" {
		return errors.InvalidInput("clientId", "required")
	}
	if c.RealmID() == uuid.Nil {
		return fmt.Errorf("%w: %s", ErrClientRealmMissing, c.ClientID())
	}
	return nil
}

func (s clientSet) create(c *OAuthClient) (ClientEntity, error) {
	if err := validate(c); err != nil {
		return ClientEntity{}, err
	}
	e := c.Entity()
	if _, ok := s[keyOf(e)]; ok {
		return ClientEntity{}, fmt.Errorf("%w: %s", ErrClientExists, e.Name)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	s[keyOf(e)] = e
	return e, nil
}

func (s clientSet) update(c *OAuthClient) (ClientEntity, error) {
	if err := validate(c); err != nil {
		return ClientEntity{}, err
	}
	e := c.Entity()
	existing, ok := s[keyOf(e)]
	if !ok {
		return ClientEntity{}, fmt.Errorf("%w: %s", ErrClientNotFound, e.Name)
	}
	e.ID = existing.ID
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	s[keyOf(e)] = e
	return e, nil
}

// InMemoryRepository implements Repository in process memory.
type InMemoryRepository struct {
	clients clientSet
	mutex   sync.RWMutex
}

// NewInMemoryRepository creates a repository holding the given clients.
func NewInMemoryRepository(clients ...*OAuthClient) (*InMemoryRepository, error) {
	repo := &InMemoryRepository{clients: make(clientSet)}
	for _, c := range clients {
		if _, err := repo.clients.create(c); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

func (r *InMemoryRepository) GetClient(ctx context.Context, realmID uuid.UUID, clientID string) (*OAuthClient, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.clients.get(realmID, clientID)
}

func (r *InMemoryRepository) ListClients(ctx context.Context, realmID uuid.UUID) ([]*OAuthClient, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.clients.list(realmID)
}

func (r *InMemoryRepository) CreateClient(ctx context.Context, client *OAuthClient) (*OAuthClient, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	e, err := r.clients.create(client)
	if err != nil {
		return nil, err
	}
	return FromEntity(e)
}

func (r *InMemoryRepository) UpdateClient(ctx context.Context, client *OAuthClient) (*OAuthClient, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	e, err := r.clients.update(client)
	if err != nil {
		return nil, err
	}
	return FromEntity(e)
}

func (r *InMemoryRepository) DeleteClient(ctx context.Context, realmID uuid.UUID, clientID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	k := clientKey{realm: realmID, clientID: clientID}
	if _, ok := r.clients[k]; !ok {
		return fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}
	delete(r.clients, k)
	return nil
}
