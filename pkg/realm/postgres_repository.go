package realm

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tendant/realm-console/pkg/txn"
)

// Schema creates the realm table.
//
//go:embed schema.sql
var Schema string

const uniqueViolation = "23505"

const realmColumns = `id, name, display_name, display_name_html, enabled, login_theme,
	internationalization_enabled, supported_locales, default_locale, created_at, updated_at`

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// EnsureSchema creates the realm table when it does not exist.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create realm schema: %w", err)
	}
	return nil
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository creates a new PostgreSQL realm repository
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// conn runs queries inside the request's transaction when there is one.
func (r *PostgresRepository) conn(ctx context.Context) DBTX {
	return txn.Querier(ctx, r.db)
}

func (r *PostgresRepository) FindByName(ctx context.Context, name string) (*Realm, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+realmColumns+` FROM realm WHERE name = $1`, name)
	found, err := scanRealm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRealmNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query realm: %w", err)
	}
	return found, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*Realm, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+realmColumns+` FROM realm WHERE id = $1`, id)
	found, err := scanRealm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRealmNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query realm: %w", err)
	}
	return found, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Realm, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+realmColumns+` FROM realm ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list realms: %w", err)
	}
	defer rows.Close()

	var realms []Realm
	for rows.Next() {
		found, err := scanRealm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan realm: %w", err)
		}
		realms = append(realms, *found)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list realms: %w", err)
	}
	return realms, nil
}

func (r *PostgresRepository) Create(ctx context.Context, realm Realm) (*Realm, error) {
	realm = prepareNew(realm)
	_, err := r.conn(ctx).Exec(ctx, `INSERT INTO realm (`+realmColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		realm.ID, realm.Name, realm.DisplayName, realm.DisplayNameHTML, realm.Enabled, realm.LoginTheme,
		realm.InternationalizationEnabled, nonNil(realm.SupportedLocales), realm.DefaultLocale,
		realm.CreatedAt, realm.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s", ErrRealmExists, realm.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert realm: %w", err)
	}
	return &realm, nil
}

func (r *PostgresRepository) Update(ctx context.Context, realm Realm) (*Realm, error) {
	realm.UpdatedAt = time.Now().UTC()
	row := r.conn(ctx).QueryRow(ctx, `UPDATE realm SET name = $2, display_name = $3, display_name_html = $4,
		enabled = $5, login_theme = $6, internationalization_enabled = $7, supported_locales = $8,
		default_locale = $9, updated_at = $10
		WHERE id = $1 RETURNING `+realmColumns,
		realm.ID, realm.Name, realm.DisplayName, realm.DisplayNameHTML, realm.Enabled, realm.LoginTheme,
		realm.InternationalizationEnabled, nonNil(realm.SupportedLocales), realm.DefaultLocale, realm.UpdatedAt)
	updated, err := scanRealm(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("%w: %s", ErrRealmNotFound, realm.ID)
	case isUniqueViolation(err):
		return nil, fmt.Errorf("%w: %s", ErrRealmExists, realm.Name)
	case err != nil:
		return nil, fmt.Errorf("failed to update realm: %w", err)
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM realm WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete realm: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRealmNotFound, id)
	}
	return nil
}

func scanRealm(row pgx.Row) (*Realm, error) {
	var r Realm
	err := row.Scan(&r.ID, &r.Name, &r.DisplayName, &r.DisplayNameHTML, &r.Enabled, &r.LoginTheme,
		&r.InternationalizationEnabled, &r.SupportedLocales, &r.DefaultLocale, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
