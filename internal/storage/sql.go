package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"spendlog/internal/core"
	applog "spendlog/internal/log"
)

// SQLRepository implements Repository over database/sql for both sqlite
// (modernc.org/sqlite) and postgres (pgx stdlib).
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// SQLiteDSN adds the pragmas the schema relies on to a file path.
func SQLiteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// NewSQLiteRepository opens (creating if needed) the database file at
// dbPath and applies migrations.
func NewSQLiteRepository(ctx context.Context, dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return Open(ctx, DialectSQLite, SQLiteDSN(dbPath))
}

// NewPostgresRepository connects using a postgres URL and applies migrations.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*SQLRepository, error) {
	return Open(ctx, DialectPostgres, databaseURL)
}

// Open connects, pings and migrates the database.
func Open(ctx context.Context, d Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewSQLRepository(db, d), nil
}

// NewSQLRepository wraps an already migrated handle.
func NewSQLRepository(db *sql.DB, d Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: d, now: time.Now}
}

func (r *SQLRepository) DB() *sql.DB { return r.db }

func (r *SQLRepository) Dialect() Dialect { return r.dialect }

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) q(query string) string {
	return r.dialect.Rebind(query)
}

const expenseColumns = `
	e.id, e.amount, e.category_id, c.name, c.icon, c.color,
	e.description, e.date, e.user_id, e.created_at, e.updated_at
FROM expenses e
JOIN categories c ON c.id = e.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

// errMalformedExpense marks a stored row whose amount cannot be read back.
var errMalformedExpense = errors.New("malformed expense row")

// scanExpense reads one expense row. A date that cannot be parsed is logged
// and left zero so the dashboard's date stages drop the record; an amount
// that cannot be parsed yields errMalformedExpense.
func scanExpense(ctx context.Context, row rowScanner) (core.Expense, error) {
	var (
		e       core.Expense
		desc    sql.NullString
		rawAmt  any
		rawDate any
	)
	err := row.Scan(
		&e.ID, &rawAmt, &e.CategoryID, &e.Category.Name, &e.Category.Icon, &e.Category.Color,
		&desc, &rawDate, &e.OwnerID, scanTime{&e.CreatedAt}, scanTime{&e.UpdatedAt},
	)
	if err != nil {
		return core.Expense{}, err
	}
	e.Category.ID = e.CategoryID
	e.Description = desc.String

	if err := (scanTime{&e.Date}).Scan(rawDate); err != nil {
		e.Date = time.Time{}
		slog.WarnContext(ctx, "Stored expense has an unreadable date",
			applog.NewFields().WithOperation(applog.OpRead).WithOwner(e.OwnerID).
				WithExpense(e.ID, "", e.CategoryID).WithError(err).ToSlice()...)
	}
	if err := e.Amount.Scan(rawAmt); err != nil {
		slog.WarnContext(ctx, "Stored expense has an unreadable amount",
			applog.NewFields().WithOperation(applog.OpRead).WithOwner(e.OwnerID).
				WithExpense(e.ID, "", e.CategoryID).WithError(err).ToSlice()...)
		return e, fmt.Errorf("%w %s: %v", errMalformedExpense, e.ID, err)
	}
	return e, nil
}

// ListExpenses returns the owner's expenses, newest first. Rows with an
// unreadable amount are skipped.
func (r *SQLRepository) ListExpenses(ctx context.Context, ownerID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT`+expenseColumns+`
WHERE e.user_id = ?
ORDER BY e.date DESC, e.created_at DESC`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(ctx, rows)
		if errors.Is(err, errMalformedExpense) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Expense{}, core.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, r.q(`SELECT`+expenseColumns+`
WHERE e.id = ?`), id)
	e, err := scanExpense(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// CreateExpense inserts e, assigning an id and timestamps when missing.
func (r *SQLRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := r.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, r.q(`
INSERT INTO expenses (id, amount, category_id, description, date, user_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.Amount, e.CategoryID, nullString(e.Description), r.dialect.timeArg(e.Date),
		e.OwnerID, r.dialect.timeArg(e.CreatedAt), r.dialect.timeArg(e.UpdatedAt),
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved", applog.NewFields().
		WithOperation(applog.OpCreate).
		WithOwner(e.OwnerID).
		WithExpense(e.ID, e.Amount.String(), e.CategoryID).
		ToSlice()...)

	return r.GetExpense(ctx, e.ID)
}

func (r *SQLRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx, r.q(`
UPDATE expenses
SET amount = ?, category_id = ?, description = ?, date = ?, updated_at = ?
WHERE id = ? AND user_id = ?`),
		e.Amount, e.CategoryID, nullString(e.Description), r.dialect.timeArg(e.Date),
		r.dialect.timeArg(r.now()), e.ID, e.OwnerID,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if err := expectRow(res); err != nil {
		return core.Expense{}, err
	}
	return r.GetExpense(ctx, e.ID)
}

func (r *SQLRepository) DeleteExpense(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return core.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM expenses WHERE id = ? AND user_id = ?`), id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectRow(res)
}

func (r *SQLRepository) DeleteExpensesByOwner(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM expenses WHERE user_id = ?`), ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete owner expenses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, icon, color FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Category{}, core.ErrNotFound
	}
	var c core.Category
	err := r.db.QueryRowContext(ctx, r.q(`SELECT id, name, icon, color FROM categories WHERE id = ?`), id).
		Scan(&c.ID, &c.Name, &c.Icon, &c.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// UpsertCategory inserts c or refreshes icon and color of the category with the same name.
func (r *SQLRepository) UpsertCategory(ctx context.Context, c core.Category) error {
	if c.ID == "" {
		c.ID = CategoryID(c.Name)
	}
	_, err := r.db.ExecContext(ctx, r.q(`
INSERT INTO categories (id, name, icon, color)
VALUES (?, ?, ?, ?)
ON CONFLICT (name) DO UPDATE SET icon = excluded.icon, color = excluded.color`),
		c.ID, c.Name, c.Icon, c.Color)
	if err != nil {
		return fmt.Errorf("upsert category %q: %w", c.Name, err)
	}
	return nil
}

func (r *SQLRepository) UpsertUser(ctx context.Context, u core.User) (core.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" {
		return core.User{}, fmt.Errorf("%w: email is required", core.ErrValidation)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}

	var out core.User
	err := r.db.QueryRowContext(ctx, r.q(`
INSERT INTO users (id, email, name, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (email) DO UPDATE SET name = CASE WHEN excluded.name = '' THEN users.name ELSE excluded.name END
RETURNING id, email, name, created_at`),
		u.ID, u.Email, u.Name, r.dialect.timeArg(u.CreatedAt),
	).Scan(&out.ID, &out.Email, &out.Name, scanTime{&out.CreatedAt})
	if err != nil {
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.User{}, core.ErrNotFound
	}
	var u core.User
	err := r.db.QueryRowContext(ctx, r.q(`SELECT id, email, name, created_at FROM users WHERE id = ?`), id).
		Scan(&u.ID, &u.Email, &u.Name, scanTime{&u.CreatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *SQLRepository) RecordActivity(ctx context.Context, a core.Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, r.q(`
INSERT INTO activity (id, user_id, expense_id, action, amount, occurred_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`),
		a.ID, a.OwnerID, a.ExpenseID, string(a.Action), a.Amount, r.dialect.timeArg(a.OccurredAt))
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

func (r *SQLRepository) ListActivity(ctx context.Context, ownerID string, limit int) ([]core.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, r.q(`
SELECT id, user_id, expense_id, action, amount, occurred_at
FROM activity
WHERE user_id = ?
ORDER BY occurred_at DESC
LIMIT ?`), ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	out := make([]core.Activity, 0)
	for rows.Next() {
		var (
			a      core.Activity
			action string
		)
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.ExpenseID, &action, &a.Amount, scanTime{&a.OccurredAt}); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Action = core.ActivityAction(action)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return out, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
