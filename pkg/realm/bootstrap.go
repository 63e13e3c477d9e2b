package realm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/realm-console/pkg/errors"
)

// Bootstrap makes sure the administrative realm exists, creating it from
// template when it does not.
func Bootstrap(ctx context.Context, repo Repository, template Realm) (*Realm, error) {
	if template.Name == "" {
		template.Name = DefaultAdminRealm
	}

	existing, err := repo.FindByName(ctx, template.Name)
	if err == nil {
		slog.Debug("Admin realm present", "realm", existing.Name, "id", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, ErrRealmNotFound) {
		return nil, fmt.Errorf("failed to look up admin realm: %w", err)
	}

	template.Enabled = true
	created, err := repo.Create(ctx, template)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin realm: %w", err)
	}
	slog.Info("Created admin realm", "realm", created.Name, "id", created.ID)
	return created, nil
}
