package console

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/tendant/realm-console/pkg/errors"
	"github.com/tendant/realm-console/pkg/oauthclient"
	"github.com/tendant/realm-console/pkg/realm"
)

// Handle serves the realm and client endpoints of the console API.
type Handle struct {
	realms  realm.Repository
	clients oauthclient.Repository
	logger  *slog.Logger
}

func NewHandle(realms realm.Repository, clients oauthclient.Repository, logger *slog.Logger) Handle {
	if logger == nil {
		logger = slog.Default()
	}
	return Handle{
		realms:  realms,
		clients: clients,
		logger:  logger,
	}
}

// RealmResponse is the JSON form of a realm.
type RealmResponse struct {
	ID                          uuid.UUID `json:"id"`
	Name                        string    `json:"realm"`
	DisplayName                 string    `json:"displayName,omitempty"`
	Enabled                     bool      `json:"enabled"`
	LoginTheme                  string    `json:"loginTheme,omitempty"`
	InternationalizationEnabled bool      `json:"internationalizationEnabled"`
	SupportedLocales            []string  `json:"supportedLocales"`
	DefaultLocale               string    `json:"defaultLocale,omitempty"`
}

func toRealmResponse(r *realm.Realm) (RealmResponse, error) {
	var resp RealmResponse
	if err := copier.Copy(&resp, r); err != nil {
		return RealmResponse{}, errors.InternalWrap(err, "failed to map realm")
	}
	if resp.SupportedLocales == nil {
		resp.SupportedLocales = []string{}
	}
	return resp, nil
}

// ClientRequest is the body accepted when creating or updating a client.
type ClientRequest struct {
	ClientID         string   `json:"clientId"`
	Enabled          *bool    `json:"enabled"`
	PublicClient     bool     `json:"publicClient"`
	DirectGrantsOnly bool     `json:"directGrantsOnly"`
	RedirectURIs     []string `json:"redirectUris"`
}

func (req ClientRequest) applyTo(c *oauthclient.OAuthClient) {
	if req.Enabled != nil {
		c.SetEnabled(*req.Enabled)
	}
	c.SetPublicClient(req.PublicClient)
	c.SetDirectGrantsOnly(req.DirectGrantsOnly)
	c.SetRedirectURIs(req.RedirectURIs)
}

// enabledRealm looks up the realm named in the route.
func (h Handle) enabledRealm(ctx context.Context, r *http.Request) (*realm.Realm, error) {
	name := chi.URLParam(r, "realm")
	rm, err := h.realms.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !rm.Enabled {
		return nil, errors.Newf(errors.ErrCodeRealmDisabled, "realm is disabled: %s", name)
	}
	return rm, nil
}

// ListRealms handles GET /realms.
func (h Handle) ListRealms(w http.ResponseWriter, r *http.Request) error {
	realms, err := h.realms.List(r.Context())
	if err != nil {
		return err
	}
	out := make([]RealmResponse, 0, len(realms))
	for i := range realms {
		resp, err := toRealmResponse(&realms[i])
		if err != nil {
			return err
		}
		out = append(out, resp)
	}
	render.JSON(w, r, out)
	return nil
}

// GetRealm handles GET /realms/{realm}.
func (h Handle) GetRealm(w http.ResponseWriter, r *http.Request) error {
	rm, err := h.realms.FindByName(r.Context(), chi.URLParam(r, "realm"))
	if err != nil {
		return err
	}
	resp, err := toRealmResponse(rm)
	if err != nil {
		return err
	}
	render.JSON(w, r, resp)
	return nil
}

// ListClients handles GET /realms/{realm}/clients.
func (h Handle) ListClients(w http.ResponseWriter, r *http.Request) error {
	rm, err := h.enabledRealm(r.Context(), r)
	if err != nil {
		return err
	}
	clients, err := h.clients.ListClients(r.Context(), rm.ID)
	if err != nil {
		return err
	}
	out := make([]oauthclient.Representation, 0, len(clients))
	for _, c := range clients {
		rep, err := oauthclient.ToRepresentation(c)
		if err != nil {
			return err
		}
		out = append(out, rep)
	}
	render.JSON(w, r, out)
	return nil
}

// GetClient handles GET /realms/{realm}/clients/{clientId}.
func (h Handle) GetClient(w http.ResponseWriter, r *http.Request) error {
	rm, err := h.enabledRealm(r.Context(), r)
	if err != nil {
		return err
	}
	c, err := h.clients.GetClient(r.Context(), rm.ID, chi.URLParam(r, "clientId"))
	if err != nil {
		return err
	}
	return h.writeClient(w, r, http.StatusOK, c)
}

// CreateClient handles POST /realms/{realm}/clients.
func (h Handle) CreateClient(w http.ResponseWriter, r *http.Request) error {
	rm, err := h.enabledRealm(r.Context(), r)
	if err != nil {
		return err
	}
	var req ClientRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "unable to parse body")
	}

	c := oauthclient.NewOAuthClient(rm.ID, req.ClientID)
	req.applyTo(c)
	created, err := h.clients.CreateClient(r.Context(), c)
	if err != nil {
		return err
	}
	h.logger.Info("Client created", "realm", rm.Name, "client_id", created.ClientID())
	return h.writeClient(w, r, http.StatusCreated, created)
}

// UpdateClient handles PUT /realms/{realm}/clients/{clientId}.
func (h Handle) UpdateClient(w http.ResponseWriter, r *http.Request) error {
	rm, err := h.enabledRealm(r.Context(), r)
	if err != nil {
		return err
	}
	c, err := h.clients.GetClient(r.Context(), rm.ID, chi.URLParam(r, "clientId"))
	if err != nil {
		return err
	}
	var req ClientRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "unable to parse body")
	}
	if req.ClientID != "" && req.ClientID != c.ClientID() {
		return errors.InvalidInput("clientId", "cannot be changed")
	}

	req.applyTo(c)
	updated, err := h.clients.UpdateClient(r.Context(), c)
	if err != nil {
		return err
	}
	return h.writeClient(w, r, http.StatusOK, updated)
}

// DeleteClient handles DELETE /realms/{realm}/clients/{clientId}.
func (h Handle) DeleteClient(w http.ResponseWriter, r *http.Request) error {
	rm, err := h.enabledRealm(r.Context(), r)
	if err != nil {
		return err
	}
	if err := h.clients.DeleteClient(r.Context(), rm.ID, chi.URLParam(r, "clientId")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// CheckGrant handles GET /realms/{realm}/clients/{clientId}/grants/{grantType}.
// It answers 204 when the client may use the grant.
func (h Handle) CheckGrant(w http.ResponseWriter, r *http.Request) error {
	rm, err := h.enabledRealm(r.Context(), r)
	if err != nil {
		return err
	}
	c, err := h.clients.GetClient(r.Context(), rm.ID, chi.URLParam(r, "clientId"))
	if err != nil {
		return err
	}
	grant := chi.URLParam(r, "grantType")
	switch {
	case !c.IsEnabled():
		return errors.Newf(errors.ErrCodeClientDisabled, "client is disabled: %s", c.ClientID())
	case !oauthclient.IsKnownGrant(grant):
		return errors.Newf(errors.ErrCodeUnsupportedGrant, "unsupported grant: %s", grant)
	case !c.AllowsGrant(grant):
		return errors.Newf(errors.ErrCodeDirectGrantsOnly, "client %s only allows direct grants", c.ClientID())
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// AdminConsole handles GET /admin/console. The static console bundle is
// served by a separate deployment.
func (h Handle) AdminConsole(w http.ResponseWriter, r *http.Request) error {
	return errors.Failure(http.StatusNotFound, "admin console is not installed")
}

func (h Handle) writeClient(w http.ResponseWriter, r *http.Request, status int, c *oauthclient.OAuthClient) error {
	rep, err := oauthclient.ToRepresentation(c)
	if err != nil {
		return err
	}
	render.Status(r, status)
	render.JSON(w, r, rep)
	return nil
}
