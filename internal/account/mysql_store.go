package account

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"ChainTip/deploy/migrations"
	xerrors "ChainTip/internal/errors"
)

// MySQLStore persists accounts in MySQL.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore connects to MySQL and ensures the accounts table exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN cannot be empty")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "open MySQL connection")
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "ping MySQL")
	}

	store := &MySQLStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// initSchema applies the embedded migration files in lexical order.
// Each file holds a single idempotent statement.
func (s *MySQLStore) initSchema() error {
	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "list schema migrations")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := migrations.Files.ReadFile(name)
		if err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, "read migration "+name)
		}
		stmt := strings.TrimSuffix(strings.TrimSpace(string(content)), ";")
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, "apply migration "+name)
		}
	}
	return nil
}

const accountColumns = `id, username, address, private_key, CAST(balance AS CHAR), created_at, updated_at`

func scanAccount(row *sql.Row) (*Account, error) {
	var acct Account
	if err := row.Scan(
		&acct.ID,
		&acct.Username,
		&acct.Address,
		&acct.PrivateKey,
		&acct.Balance,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "scan account row")
	}
	return &acct, nil
}

// FindByID implements Store.
func (s *MySQLStore) FindByID(ctx context.Context, id int64) (*Account, error) {
	const stmt = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	return scanAccount(s.db.QueryRowContext(ctx, stmt, id))
}

// FindByUsername implements Store. The username index is not unique;
// uniqueness is enforced best-effort by lookup-then-update (see the
// dispatch loop), so the newest match wins.
func (s *MySQLStore) FindByUsername(ctx context.Context, username string) (*Account, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrNotFound
	}
	const stmt = `SELECT ` + accountColumns + ` FROM accounts WHERE username = ? ORDER BY updated_at DESC LIMIT 1`
	return scanAccount(s.db.QueryRowContext(ctx, stmt, username))
}

// Insert implements Store.
func (s *MySQLStore) Insert(ctx context.Context, acct *Account) error {
	if acct == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "account cannot be nil")
	}

	now := time.Now().Unix()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	balance := acct.Balance
	if balance == "" {
		balance = "0"
	}

	const stmt = `INSERT INTO accounts (id, username, address, private_key, balance, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, stmt,
		acct.ID,
		acct.Username,
		acct.Address,
		acct.PrivateKey,
		balance,
		acct.CreatedAt,
		acct.UpdatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrExists
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "insert account")
	}
	return nil
}

// UpdateUsername implements Store.
func (s *MySQLStore) UpdateUsername(ctx context.Context, id int64, username string) error {
	const stmt = `UPDATE accounts SET username = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, stmt, username, time.Now().Unix(), id)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "update account username")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateCachedBalance implements Store.
func (s *MySQLStore) UpdateCachedBalance(ctx context.Context, id int64, balance string) error {
	const stmt = `UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, stmt, balance, time.Now().Unix(), id)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "update cached balance")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ Store = (*MySQLStore)(nil)
