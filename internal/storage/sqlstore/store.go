// Package sqlstore keeps threads and messages in PostgreSQL (lib/pq) or
// SQLite (modernc). Queries are written with ? placeholders and rebound per
// driver by sqlx. Timestamps are stored as unix milliseconds so both engines
// compare them exactly.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"QuoteChat/entity"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string
	DSN    string
}

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(cfg Config) (*Store, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql driver: %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// one writer; also keeps a :memory: database alive across calls
		db.SetMaxOpenConns(1)
		if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	store := &Store{db: db, now: time.Now}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS quote_threads (
			id TEXT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			product_id BIGINT NOT NULL,
			staff_id BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			handed_off BOOLEAN NOT NULL DEFAULT FALSE,
			version BIGINT NOT NULL,
			name_kind TEXT NOT NULL,
			name_value TEXT NOT NULL,
			email_kind TEXT NOT NULL,
			email_value TEXT NOT NULL,
			phone_kind TEXT NOT NULL,
			phone_value TEXT NOT NULL,
			region_kind TEXT NOT NULL,
			region_value TEXT NOT NULL,
			description_kind TEXT NOT NULL,
			description_value TEXT NOT NULL,
			last_message_at BIGINT NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			UNIQUE (customer_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS quote_messages (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL REFERENCES quote_threads(id),
			author_id BIGINT NOT NULL,
			author_name TEXT NOT NULL,
			author_role TEXT NOT NULL,
			is_bot BOOLEAN NOT NULL,
			text TEXT NOT NULL,
			file_id TEXT,
			file_name TEXT,
			file_mime TEXT,
			file_size BIGINT,
			created_at BIGINT NOT NULL,
			UNIQUE (thread_id, created_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quote_threads_status ON quote_threads(status, last_message_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

const threadColumns = `id, customer_id, product_id, staff_id, status, handed_off, version,
	name_kind, name_value, email_kind, email_value, phone_kind, phone_value,
	region_kind, region_value, description_kind, description_value,
	last_message_at, created_at, updated_at`

const messageColumns = `id, thread_id, author_id, author_name, author_role, is_bot, text,
	file_id, file_name, file_mime, file_size, created_at`

type threadRow struct {
	ID               string `db:"id"`
	CustomerID       int64  `db:"customer_id"`
	ProductID        int64  `db:"product_id"`
	StaffID          int64  `db:"staff_id"`
	Status           string `db:"status"`
	HandedOff        bool   `db:"handed_off"`
	Version          int64  `db:"version"`
	NameKind         string `db:"name_kind"`
	NameValue        string `db:"name_value"`
	EmailKind        string `db:"email_kind"`
	EmailValue       string `db:"email_value"`
	PhoneKind        string `db:"phone_kind"`
	PhoneValue       string `db:"phone_value"`
	RegionKind       string `db:"region_kind"`
	RegionValue      string `db:"region_value"`
	DescriptionKind  string `db:"description_kind"`
	DescriptionValue string `db:"description_value"`
	LastMessageAt    int64  `db:"last_message_at"`
	CreatedAt        int64  `db:"created_at"`
	UpdatedAt        int64  `db:"updated_at"`
}

func (r *threadRow) thread() *entity.Thread {
	field := func(kind, value string) entity.FieldState {
		return entity.FieldState{Kind: entity.FieldKind(kind), Value: value}
	}
	return &entity.Thread{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		ProductID:  r.ProductID,
		StaffID:    r.StaffID,
		Status:     entity.ThreadStatus(r.Status),
		HandedOff:  r.HandedOff,
		Version:    r.Version,
		Fields: entity.CollectedFields{
			Name:        field(r.NameKind, r.NameValue),
			Email:       field(r.EmailKind, r.EmailValue),
			Phone:       field(r.PhoneKind, r.PhoneValue),
			Region:      field(r.RegionKind, r.RegionValue),
			Description: field(r.DescriptionKind, r.DescriptionValue),
		},
		LastMessageAt: fromMillis(r.LastMessageAt),
		CreatedAt:     fromMillis(r.CreatedAt),
		UpdatedAt:     fromMillis(r.UpdatedAt),
	}
}

type messageRow struct {
	ID         string         `db:"id"`
	ThreadID   string         `db:"thread_id"`
	AuthorID   int64          `db:"author_id"`
	AuthorName string         `db:"author_name"`
	AuthorRole string         `db:"author_role"`
	IsBot      bool           `db:"is_bot"`
	Text       string         `db:"text"`
	FileID     sql.NullString `db:"file_id"`
	FileName   sql.NullString `db:"file_name"`
	FileMIME   sql.NullString `db:"file_mime"`
	FileSize   sql.NullInt64  `db:"file_size"`
	CreatedAt  int64          `db:"created_at"`
}

func (r *messageRow) message() entity.Message {
	msg := entity.Message{
		ID:         r.ID,
		ThreadID:   r.ThreadID,
		AuthorID:   r.AuthorID,
		AuthorName: r.AuthorName,
		AuthorRole: entity.AuthorRole(r.AuthorRole),
		IsBot:      r.IsBot,
		Text:       r.Text,
		CreatedAt:  fromMillis(r.CreatedAt),
	}
	if r.FileID.Valid {
		msg.Attachment = &entity.Attachment{
			FileID:   r.FileID.String,
			Filename: r.FileName.String,
			MIMEType: r.FileMIME.String,
			Size:     r.FileSize.Int64,
		}
	}
	return msg
}

func (s *Store) GetOrCreateThread(ctx context.Context, thread *entity.Thread, seed *entity.Message) (*entity.Thread, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	stored := thread.Clone()
	stored.CreatedAt = now.Truncate(entity.MessageTimeResolution)
	stored.UpdatedAt = stored.CreatedAt
	var msgs []*entity.Message
	if seed != nil {
		seed.ThreadID = stored.ID
		msgs = append(msgs, seed)
		stored.LastMessageAt = entity.StampMessages(time.Time{}, now, msgs)
	}

	f := &stored.Fields
	res, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO quote_threads (`+threadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (customer_id, product_id) DO NOTHING`),
		stored.ID, stored.CustomerID, stored.ProductID, stored.StaffID, string(stored.Status), stored.HandedOff, stored.Version,
		string(f.Name.Kind), f.Name.Value, string(f.Email.Kind), f.Email.Value,
		string(f.Phone.Kind), f.Phone.Value, string(f.Region.Kind), f.Region.Value,
		string(f.Description.Kind), f.Description.Value,
		toMillis(stored.LastMessageAt), toMillis(stored.CreatedAt), toMillis(stored.UpdatedAt),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert thread: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert thread: %w", err)
	}
	if inserted == 0 {
		if err = tx.Rollback(); err != nil {
			return nil, false, fmt.Errorf("rollback: %w", err)
		}
		existing, err := s.threadByPair(ctx, thread.CustomerID, thread.ProductID)
		return existing, false, err
	}

	if err = insertMessages(ctx, tx, msgs); err != nil {
		return nil, false, err
	}
	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}

	*thread = *stored
	return stored.Clone(), true, nil
}

func (s *Store) threadByPair(ctx context.Context, customerID, productID int64) (*entity.Thread, error) {
	var row threadRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+threadColumns+`
		FROM quote_threads WHERE customer_id = ? AND product_id = ?`), customerID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("thread for customer %d product %d: %w", customerID, productID, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return row.thread(), nil
}

func (s *Store) GetThread(ctx context.Context, id string) (*entity.Thread, error) {
	var row threadRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+threadColumns+` FROM quote_threads WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("thread %s: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return row.thread(), nil
}

func (s *Store) ListThreads(ctx context.Context, filter entity.ThreadFilter) ([]entity.Thread, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.CustomerID != 0 {
		where = append(where, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + threadColumns + ` FROM quote_threads`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY last_message_at DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []threadRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	threads := make([]entity.Thread, 0, len(rows))
	for i := range rows {
		threads = append(threads, *rows[i].thread())
	}
	return threads, nil
}

func (s *Store) ListMessages(ctx context.Context, threadID string, since *time.Time) ([]entity.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM quote_messages WHERE thread_id = ?`
	args := []interface{}{threadID}
	if since != nil {
		query += " AND created_at > ?"
		args = append(args, toMillis(*since))
	}
	query += " ORDER BY created_at ASC"

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	msgs := make([]entity.Message, 0, len(rows))
	for i := range rows {
		msgs = append(msgs, rows[i].message())
	}
	return msgs, nil
}

func (s *Store) Commit(ctx context.Context, thread *entity.Thread, expectedVersion int64, msgs []*entity.Message) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var current struct {
		Version       int64 `db:"version"`
		LastMessageAt int64 `db:"last_message_at"`
	}
	err = tx.GetContext(ctx, &current, tx.Rebind(`SELECT version, last_message_at FROM quote_threads WHERE id = ?`), thread.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("thread %s: %w", thread.ID, entity.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get thread: %w", err)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("thread %s at version %d, expected %d: %w", thread.ID, current.Version, expectedVersion, entity.ErrConflict)
	}

	now := s.now().UTC()
	for _, msg := range msgs {
		msg.ThreadID = thread.ID
	}
	last := entity.StampMessages(fromMillis(current.LastMessageAt), now, msgs)

	f := &thread.Fields
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE quote_threads SET
			staff_id = ?, status = ?, handed_off = ?, version = ?,
			name_kind = ?, name_value = ?, email_kind = ?, email_value = ?,
			phone_kind = ?, phone_value = ?, region_kind = ?, region_value = ?,
			description_kind = ?, description_value = ?,
			last_message_at = ?, updated_at = ?
		WHERE id = ? AND version = ?`),
		thread.StaffID, string(thread.Status), thread.HandedOff, expectedVersion+1,
		string(f.Name.Kind), f.Name.Value, string(f.Email.Kind), f.Email.Value,
		string(f.Phone.Kind), f.Phone.Value, string(f.Region.Kind), f.Region.Value,
		string(f.Description.Kind), f.Description.Value,
		toMillis(last), toMillis(now),
		thread.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update thread: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update thread: %w", err)
	}
	if updated == 0 {
		return fmt.Errorf("thread %s changed concurrently: %w", thread.ID, entity.ErrConflict)
	}

	if err = insertMessages(ctx, tx, msgs); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	thread.Version = expectedVersion + 1
	thread.LastMessageAt = last
	thread.UpdatedAt = now.Truncate(entity.MessageTimeResolution)
	return nil
}

func (s *Store) SetStatus(ctx context.Context, threadID string, status entity.ThreadStatus) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE quote_threads
		SET status = ?, version = version + 1, updated_at = ? WHERE id = ?`),
		string(status), toMillis(s.now()), threadID)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if updated == 0 {
		return fmt.Errorf("thread %s: %w", threadID, entity.ErrNotFound)
	}
	return nil
}

func insertMessages(ctx context.Context, tx *sqlx.Tx, msgs []*entity.Message) error {
	query := tx.Rebind(`INSERT INTO quote_messages (` + messageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, msg := range msgs {
		var (
			fileID, fileName, fileMIME sql.NullString
			fileSize                   sql.NullInt64
		)
		if a := msg.Attachment; a != nil {
			fileID = sql.NullString{String: a.FileID, Valid: true}
			fileName = sql.NullString{String: a.Filename, Valid: true}
			fileMIME = sql.NullString{String: a.MIMEType, Valid: true}
			fileSize = sql.NullInt64{Int64: a.Size, Valid: true}
		}
		_, err := tx.ExecContext(ctx, query,
			msg.ID, msg.ThreadID, msg.AuthorID, msg.AuthorName, string(msg.AuthorRole), msg.IsBot, msg.Text,
			fileID, fileName, fileMIME, fileSize, toMillis(msg.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	return nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
