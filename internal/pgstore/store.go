package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/permission"
)

// Store serves credential lookups and role grants from one *sql.DB.
type Store struct {
	db *sql.DB
}

var (
	_ goGate.CredentialStore     = (*Store)(nil)
	_ goGate.PasswordHashUpdater = (*Store)(nil)
	_ goGate.PermissionStore     = (*Store)(nil)
)

// ErrAccountNotFound is returned by UpdatePasswordHash when no live account
// has the given id.
var ErrAccountNotFound = errors.New("account not found")

// Open connects through the pgx driver and applies pool defaults.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const findByEmail = `
	select id, email, password, coalesce(role_id, '')
	from users
	where email = $1 and deleted_at is null
`

// FindByIdentifier looks an account up by email. No row is found=false.
func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (goGate.CredentialRecord, bool, error) {
	var rec goGate.CredentialRecord
	err := s.db.QueryRowContext(ctx, findByEmail, identifier).
		Scan(&rec.ID, &rec.Email, &rec.PasswordHash, &rec.RoleID)
	if errors.Is(err, sql.ErrNoRows) {
		return goGate.CredentialRecord{}, false, nil
	}
	if err != nil {
		return goGate.CredentialRecord{}, false, err
	}
	return rec, true, nil
}

// UpdatePasswordHash replaces the stored hash of a live account.
func (s *Store) UpdatePasswordHash(ctx context.Context, accountID, newHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password = $2 where id = $1 and deleted_at is null`,
		accountID, newHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

const loadGrant = `
	select coalesce(u.role_id, ''), p.action, p.subject
	from users u
	left join role_permissions p on p.role_id = u.role_id
	where u.id = $1 and u.deleted_at is null
`

// LoadGrant reads the account's role and that role's pairs in one query.
// Unknown accounts and accounts without a role get an empty grant.
func (s *Store) LoadGrant(ctx context.Context, accountID string) (permission.Grant, error) {
	rows, err := s.db.QueryContext(ctx, loadGrant, accountID)
	if err != nil {
		return permission.Grant{}, err
	}
	defer rows.Close()

	var grant permission.Grant
	for rows.Next() {
		var action, subject sql.NullString
		if err := rows.Scan(&grant.RoleID, &action, &subject); err != nil {
			return permission.Grant{}, err
		}
		if !action.Valid || !subject.Valid {
			continue
		}
		p := permission.New(permission.Action(action.String), permission.Subject(subject.String))
		if p.Valid() {
			grant.Permissions = append(grant.Permissions, p)
		}
	}
	if err := rows.Err(); err != nil {
		return permission.Grant{}, err
	}
	return grant, nil
}
