package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	goPasskey "github.com/karmoybt/goPasskey"
	"github.com/karmoybt/goPasskey/internal"
)

const schema = `
CREATE TABLE IF NOT EXISTS identities (
	id         TEXT PRIMARY KEY,
	handle     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	deleted_at INTEGER
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_identities_handle
	ON identities (handle) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS credentials (
	credential_id BLOB PRIMARY KEY,
	identity_id   TEXT NOT NULL REFERENCES identities (id),
	public_key    BLOB NOT NULL,
	sign_count    INTEGER NOT NULL DEFAULT 0,
	transports    TEXT NOT NULL DEFAULT '[]',
	created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_credentials_identity
	ON credentials (identity_id);
`

// SQLiteRegistry is a [goPasskey.CredentialRegistry] backed by SQLite.
// Identities are soft-deleted so audit and session references stay
// resolvable; handles of deleted identities become reusable through the
// partial unique index.
type SQLiteRegistry struct {
	db *sql.DB
}

// Open opens (and migrates) a SQLite registry at dsn. Use ":memory:" for an
// ephemeral registry in tests.
func Open(dsn string) (*SQLiteRegistry, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// under concurrent ceremonies.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}

	return &SQLiteRegistry{db: db}, nil
}

func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

func (r *SQLiteRegistry) FindIdentityByHandle(ctx context.Context, handle string) (*goPasskey.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, handle, created_at FROM identities WHERE handle = ? AND deleted_at IS NULL`,
		handle,
	)

	var identity goPasskey.Identity
	var createdAt int64
	if err := row.Scan(&identity.ID, &identity.Handle, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goPasskey.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}
	identity.CreatedAt = time.Unix(createdAt, 0)

	return &identity, nil
}

func (r *SQLiteRegistry) CreateIdentityAndCredential(ctx context.Context, input goPasskey.CreateIdentityInput) (*goPasskey.Identity, error) {
	id, err := internal.NewIdentityID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}

	transports, err := json.Marshal(sliceOrEmpty(input.Transports))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}

	now := time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, handle, created_at) VALUES (?, ?, ?)`,
		id, input.Handle, now.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, goPasskey.ErrConflict
		}
		return nil, fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO credentials (credential_id, identity_id, public_key, sign_count, transports, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		input.CredentialID, id, input.PublicKey, input.InitialCounter, string(transports), now.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, goPasskey.ErrConflict
		}
		return nil, fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}

	return &goPasskey.Identity{
		ID:        id,
		Handle:    input.Handle,
		CreatedAt: now,
	}, nil
}

func (r *SQLiteRegistry) FindCredential(ctx context.Context, identityID string, credentialID []byte) (*goPasskey.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT c.credential_id, c.identity_id, c.public_key, c.sign_count, c.transports, c.created_at
		 FROM credentials c
		 JOIN identities i ON i.id = c.identity_id
		 WHERE c.identity_id = ? AND c.credential_id = ? AND i.deleted_at IS NULL`,
		identityID, credentialID,
	)

	var cred goPasskey.Credential
	var transports string
	var createdAt int64
	err := row.Scan(&cred.CredentialID, &cred.IdentityID, &cred.PublicKey, &cred.SignatureCounter, &transports, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goPasskey.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}
	cred.CreatedAt = time.Unix(createdAt, 0)
	if err := json.Unmarshal([]byte(transports), &cred.Transports); err != nil {
		return nil, fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}

	return &cred, nil
}

// AdvanceCounter is a strict compare-and-swap: the update applies only when
// newCounter exceeds the stored value. Zero rows updated means either a
// regression or a missing credential; a follow-up read tells them apart.
func (r *SQLiteRegistry) AdvanceCounter(ctx context.Context, identityID string, credentialID []byte, newCounter uint32) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials SET sign_count = ?
		 WHERE identity_id = ? AND credential_id = ? AND sign_count < ?`,
		newCounter, identityID, credentialID, newCounter,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}
	if affected == 1 {
		return nil
	}

	if _, err := r.FindCredential(ctx, identityID, credentialID); err != nil {
		return err
	}
	return goPasskey.ErrCounterRegression
}

// DeleteIdentity soft-deletes an identity. Credentials stay in place but
// become unreachable through FindCredential.
func (r *SQLiteRegistry) DeleteIdentity(ctx context.Context, identityID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().Unix(), identityID,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", goPasskey.ErrUnavailable, err)
	}
	if affected == 0 {
		return goPasskey.ErrIdentityNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
