package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bitespeed/identity-reconciler/internal/domain"
)

const contactColumns = "id, email, phone, linked_id, precedence, created_at, updated_at, deleted_at"

// sqlStore is the database/sql-backed Store, dispatching between
// Postgres and SQLite by DSN scheme, the way the teacher's
// internal/database/db.go did.
type sqlStore struct {
	db       *sql.DB
	builder  sq.StatementBuilderType
	postgres bool
}

// Open connects to dsn (a "postgres://"/"postgresql://" DSN, or a
// "file:"-prefixed SQLite path) and applies the schema of spec.md §6.3.
func Open(dsn string) (Store, error) {
	var driver string
	var postgres bool
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		driver = "postgres"
		postgres = true
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	default:
		driver = "sqlite3"
		dsn = strings.TrimPrefix(dsn, "file:")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	schema := sqliteSchema
	if postgres {
		schema = postgresSchema
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &sqlStore{db: db, builder: builder, postgres: postgres}, nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) Begin(ctx context.Context, maxWait time.Duration) (Tx, error) {
	// The context passed to BeginTx governs the whole transaction, so it
	// must stay live after Begin returns; maxWait only cancels it while
	// BeginTx is still blocking.
	beginCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(maxWait, cancel)

	tx, err := s.db.BeginTx(beginCtx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if !timer.Stop() {
		if err == nil {
			_ = tx.Rollback()
		}
		return nil, classify(context.DeadlineExceeded, "begin")
	}
	if err != nil {
		cancel()
		return nil, classify(err, "begin")
	}
	return &sqlTx{tx: tx, builder: s.builder, postgres: s.postgres}, nil
}

type sqlTx struct {
	tx       *sql.Tx
	builder  sq.StatementBuilderType
	postgres bool
}

func (t *sqlTx) Commit() error   { return classify(t.tx.Commit(), "commit") }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }

func (t *sqlTx) FindLiveMatching(ctx context.Context, email, phone *string) ([]*domain.Contact, error) {
	if email == nil && phone == nil {
		return nil, domain.NewError(domain.KindInvalidPrecondition, "match requires email or phone", nil)
	}

	or := sq.Or{}
	if email != nil {
		or = append(or, sq.Eq{"email": *email})
	}
	if phone != nil {
		or = append(or, sq.Eq{"phone": *phone})
	}

	q := t.builder.Select(contactColumns).From("contacts").
		Where(sq.Eq{"deleted_at": nil}).
		Where(or).
		OrderBy("created_at ASC")

	return t.queryContacts(ctx, q, "findLiveMatching")
}

func (t *sqlTx) FindLiveByIDs(ctx context.Context, ids []int64) ([]*domain.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := t.builder.Select(contactColumns).From("contacts").
		Where(sq.Eq{"id": ids}).
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("created_at ASC, id ASC")

	return t.queryContacts(ctx, q, "findLiveByIds")
}

func (t *sqlTx) FindLiveGroup(ctx context.Context, primaryID int64) ([]*domain.Contact, error) {
	q := t.builder.Select(contactColumns).From("contacts").
		Where(sq.Or{sq.Eq{"id": primaryID}, sq.Eq{"linked_id": primaryID}}).
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("created_at ASC")

	return t.queryContacts(ctx, q, "findLiveGroup")
}

func (t *sqlTx) InsertContact(ctx context.Context, email, phone *string, linkedID *int64, precedence domain.Precedence) (*domain.Contact, error) {
	now := time.Now().UTC()

	q := t.builder.Insert("contacts").
		Columns("email", "phone", "linked_id", "precedence", "created_at", "updated_at").
		Values(nullableString(email), nullableString(phone), nullableInt64(linkedID), string(precedence), now, now)

	if t.postgres {
		query, args, err := q.Suffix("RETURNING id").ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert: %w", err)
		}
		var id int64
		if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return nil, classify(err, "insertContact")
		}
		return &domain.Contact{
			ID: id, Email: email, Phone: phone, LinkedID: linkedID,
			Precedence: precedence, CreatedAt: now, UpdatedAt: now,
		}, nil
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "insertContact")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, classify(err, "insertContact")
	}
	return &domain.Contact{
		ID: id, Email: email, Phone: phone, LinkedID: linkedID,
		Precedence: precedence, CreatedAt: now, UpdatedAt: now,
	}, nil
}

func (t *sqlTx) Demote(ctx context.Context, id int64, linkedID int64) error {
	q := t.builder.Update("contacts").
		Set("precedence", string(domain.PrecedenceSecondary)).
		Set("linked_id", linkedID).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"deleted_at": nil})

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build demote: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err, "demote")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, "demote")
	}
	if n == 0 {
		return domain.NewError(domain.KindInvariantBroken, fmt.Sprintf("demote target %d is not a live row", id), nil)
	}
	return nil
}

func (t *sqlTx) RelinkChildren(ctx context.Context, fromLinkedID, toLinkedID int64) (int64, error) {
	q := t.builder.Update("contacts").
		Set("linked_id", toLinkedID).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"linked_id": fromLinkedID}).
		Where(sq.Eq{"deleted_at": nil})

	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build relink: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(err, "relinkChildren")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err, "relinkChildren")
	}
	return n, nil
}

func (t *sqlTx) queryContacts(ctx context.Context, q sq.SelectBuilder, op string) ([]*domain.Contact, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, op)
	}
	defer rows.Close()

	var contacts []*domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, classify(err, op)
		}
		contacts = append(contacts, c)
	}
	return contacts, classify(rows.Err(), op)
}

// rowScanner is satisfied by *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContact(row rowScanner) (*domain.Contact, error) {
	c := &domain.Contact{}
	var email, phone, precedence sql.NullString
	var linkedID sql.NullInt64
	var deletedAt sql.NullTime

	if err := row.Scan(&c.ID, &email, &phone, &linkedID, &precedence, &c.CreatedAt, &c.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}

	if email.Valid {
		v := email.String
		c.Email = &v
	}
	if phone.Valid {
		v := phone.String
		c.Phone = &v
	}
	if linkedID.Valid {
		v := linkedID.Int64
		c.LinkedID = &v
	}
	if deletedAt.Valid {
		v := deletedAt.Time
		c.DeletedAt = &v
	}
	c.Precedence = domain.Precedence(precedence.String)

	return c, nil
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt64(i *int64) interface{} {
	if i == nil {
		return nil
	}
	return *i
}
