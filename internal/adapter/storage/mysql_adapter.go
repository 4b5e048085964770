package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/catalog-orders/internal/core/domain"
	"github.com/rl1809/catalog-orders/internal/port"
)

//go:embed schema.sql
var schemaSQL string

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenMySQL opens a pool for dsn. Rows-affected counts report matched rows
// so an update that changes nothing is not mistaken for a missing row, and
// DATE/DATETIME columns scan into time.Time in loc.
func OpenMySQL(dsn string, loc *time.Location) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	cfg.ParseTime = true
	if loc != nil {
		cfg.Loc = loc
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates any missing table.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Repositories() port.Repositories {
	return repositories(m.db, false)
}

// WithinTx runs fn inside one transaction. Rows read through
// Products.FindByIDForUpdate stay locked until fn returns.
func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context, repos port.Repositories) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, repositories(tx, true)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func repositories(q queryer, inTx bool) port.Repositories {
	return port.Repositories{
		Users:        &userStore{q: q},
		Categories:   &categoryStore{q: q},
		Products:     &productStore{q: q, inTx: inTx},
		Orders:       &orderStore{q: q},
		OrderDetails: &orderDetailStore{q: q},
		Coupons:      &couponStore{q: q},
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(err error, entity string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFound(entity, id)
	}
	return fmt.Errorf("query %s: %w", entity, err)
}

func duplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func lastInsertID(res sql.Result) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// mustAffect turns an update that matched no row into a not-found error.
func mustAffect(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.NewNotFound(entity, id)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s anywhere, lower-cased.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func offset(p port.Page) int {
	return p.Number * p.Size
}
