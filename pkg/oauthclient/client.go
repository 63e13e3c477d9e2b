package oauthclient

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/tendant/realm-console/pkg/errors"
)

// Grant types a client may use.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
	GrantRefreshToken      = "refresh_token"
)

var knownGrants = []string{GrantAuthorizationCode, GrantPassword, GrantClientCredentials, GrantRefreshToken}

// IsKnownGrant reports whether grantType is one of the supported grant types.
func IsKnownGrant(grantType string) bool {
	return slices.Contains(knownGrants, grantType)
}

var (
	ErrClientNotFound     = errors.New(errors.ErrCodeClientNotFound, "client not found")
	ErrClientExists       = errors.New(errors.ErrCodeAlreadyExists, "client already exists")
	ErrClientRealmMissing = errors.New(errors.ErrCodeClientRealmMissing, "client has no realm")
)

// ClientProfile is the view of a client record the console works with.
type ClientProfile interface {
	ClientID() string
	SetClientID(id string)
	IsDirectGrantsOnly() bool
	SetDirectGrantsOnly(flag bool)
	RealmID() uuid.UUID
}

// ClientEntity is the stored form of an OAuth client. The client id is
// kept in Name.
type ClientEntity struct {
	ID               uuid.UUID `json:"id"`
	RealmID          uuid.UUID `json:"realm_id"`
	Name             string    `json:"name"`
	Enabled          bool      `json:"enabled"`
	PublicClient     bool      `json:"public_client"`
	DirectGrantsOnly bool      `json:"direct_grants_only"`
	RedirectURIs     []string  `json:"redirect_uris,omitempty"`
	WebOrigins       []string  `json:"web_origins,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// OAuthClient is a client record of one realm.
type OAuthClient struct {
	entity ClientEntity
}

var _ ClientProfile = (*OAuthClient)(nil)

// NewOAuthClient creates an enabled client in realmID.
func NewOAuthClient(realmID uuid.UUID, clientID string) *OAuthClient {
	return &OAuthClient{entity: ClientEntity{
		ID:      uuid.New(),
		RealmID: realmID,
		Name:    clientID,
		Enabled: true,
	}}
}

// FromEntity maps a stored entity to a client. Slices are not shared with e.
func FromEntity(e ClientEntity) (*OAuthClient, error) {
	c := &OAuthClient{}
	if err := copier.Copy(&c.entity, &e); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to map client entity")
	}
	c.entity.RedirectURIs = slices.Clone(e.RedirectURIs)
	c.entity.WebOrigins = slices.Clone(e.WebOrigins)
	return c, nil
}

// Entity returns a deep copy of the stored form.
func (c *OAuthClient) Entity() ClientEntity {
	e := c.entity
	e.RedirectURIs = slices.Clone(c.entity.RedirectURIs)
	e.WebOrigins = slices.Clone(c.entity.WebOrigins)
	return e
}

func (c *OAuthClient) ID() uuid.UUID                 { return c.entity.ID }
func (c *OAuthClient) ClientID() string              { return c.entity.Name }
func (c *OAuthClient) SetClientID(id string)         { c.entity.Name = id }
func (c *OAuthClient) IsDirectGrantsOnly() bool      { return c.entity.DirectGrantsOnly }
func (c *OAuthClient) SetDirectGrantsOnly(flag bool) { c.entity.DirectGrantsOnly = flag }
func (c *OAuthClient) RealmID() uuid.UUID            { return c.entity.RealmID }
func (c *OAuthClient) IsEnabled() bool               { return c.entity.Enabled }
func (c *OAuthClient) SetEnabled(flag bool)          { c.entity.Enabled = flag }
func (c *OAuthClient) IsPublicClient() bool          { return c.entity.PublicClient }
func (c *OAuthClient) SetPublicClient(flag bool)     { c.entity.PublicClient = flag }
func (c *OAuthClient) RedirectURIs() []string        { return slices.Clone(c.entity.RedirectURIs) }
func (c *OAuthClient) SetRedirectURIs(uris []string) { c.entity.RedirectURIs = slices.Clone(uris) }

// AllowsGrant reports whether the client may use grantType. Direct grants
// only clients are limited to the password grant. Unknown grant types are
// never allowed.
func (c *OAuthClient) AllowsGrant(grantType string) bool {
	if !c.entity.Enabled || !IsKnownGrant(grantType) {
		return false
	}
	if c.entity.DirectGrantsOnly {
		return grantType == GrantPassword || grantType == GrantRefreshToken
	}
	return true
}

// ValidateRedirectURI checks if the provided redirect URI is allowed for this client
func (c *OAuthClient) ValidateRedirectURI(redirectURI string) bool {
	return slices.Contains(c.entity.RedirectURIs, redirectURI)
}

// Representation is the JSON form returned by the console API.
type Representation struct {
	ID               uuid.UUID `json:"id"`
	ClientID         string    `json:"clientId"`
	RealmID          uuid.UUID `json:"realmId"`
	Enabled          bool      `json:"enabled"`
	PublicClient     bool      `json:"publicClient"`
	DirectGrantsOnly bool      `json:"directGrantsOnly"`
	RedirectURIs     []string  `json:"redirectUris"`
	WebOrigins       []string  `json:"webOrigins"`
}

// ToRepresentation maps c for the console API.
func ToRepresentation(c *OAuthClient) (Representation, error) {
	var rep Representation
	e := c.Entity()
	if err := copier.Copy(&rep, &e); err != nil {
		return Representation{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to map client")
	}
	rep.ClientID = e.Name
	if rep.RedirectURIs == nil {
		rep.RedirectURIs = []string{}
	}
	if rep.WebOrigins == nil {
		rep.WebOrigins = []string{}
	}
	return rep, nil
}
