// Package postgres provides the PostgreSQL memory store backend.
//
// Category lists are native text[] columns queried with the && overlap
// operator, and SearchText uses the built-in full-text machinery
// (to_tsvector/plainto_tsquery) with ts_rank as the native relevance score.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mindwell-labs/mindmem-go/pkg/storage"
)

// Client implements storage.Store backed by PostgreSQL.
type Client struct {
	db    *sql.DB
	table string
}

// Config configures a PostgreSQL store.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	// Table is the memories table name. Defaults to "memories".
	Table string
}

// NewClient connects to PostgreSQL and initializes the schema.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = "memories"
	}

	c := &Client{db: db, table: table}
	if err := c.initTables(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL,
			people TEXT[] NOT NULL DEFAULT '{}',
			pets TEXT[] NOT NULL DEFAULT '{}',
			locations TEXT[] NOT NULL DEFAULT '{}',
			emotions TEXT[] NOT NULL DEFAULT '{}',
			topics TEXT[] NOT NULL DEFAULT '{}',
			likes TEXT[] NOT NULL DEFAULT '{}',
			dislikes TEXT[] NOT NULL DEFAULT '{}',
			goals TEXT[] NOT NULL DEFAULT '{}',
			hobbies TEXT[] NOT NULL DEFAULT '{}',
			personality TEXT[] NOT NULL DEFAULT '{}',
			embedding DOUBLE PRECISION[],
			created_at TIMESTAMPTZ NOT NULL
		)
	`, c.table)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres: init tables: %w", err)
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user_created ON %s (user_id, created_at DESC)`, c.table, c.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_text_search ON %s USING GIN (to_tsvector('english', text))`, c.table, c.table),
	}
	for _, idx := range indexes {
		if _, err := c.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("postgres: init tables: %w", err)
		}
	}
	return nil
}

// Insert persists a memory.
func (c *Client) Insert(ctx context.Context, memory *storage.Memory) error {
	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, user_id, text, people, pets, locations, emotions, topics,
		 likes, dislikes, goals, hobbies, personality, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, c.table)

	args := []interface{}{memory.ID, memory.UserID, memory.Text}
	for _, field := range storage.CategoryFields {
		values := memory.Categories(field)
		if values == nil {
			values = []string{}
		}
		args = append(args, pq.Array(values))
	}
	var embedding interface{}
	if len(memory.Embedding) > 0 {
		embedding = pq.Array(memory.Embedding)
	}
	args = append(args, embedding, memory.CreatedAt)

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: insert: %w", err)
	}
	return nil
}

// FindByFields matches any field membership condition with the array overlap
// operator, OR'd across conditions, newest-first.
func (c *Client) FindByFields(ctx context.Context, userID string, matches []storage.FieldMatch, limit int) ([]*storage.Memory, error) {
	var conds []string
	args := []interface{}{userID}
	argIdx := 2
	for _, m := range matches {
		if !storage.ValidField(m.Field) || len(m.Values) == 0 {
			continue
		}
		conds = append(conds, fmt.Sprintf("%s && $%d", m.Field, argIdx))
		args = append(args, pq.Array(m.Values))
		argIdx++
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s, 0 AS score FROM %s
		WHERE user_id = $1 AND (%s)
		ORDER BY created_at DESC
		LIMIT $%d
	`, columnList, c.table, strings.Join(conds, " OR "), argIdx)
	args = append(args, limit)

	return c.queryMemories(ctx, query, args...)
}

// SearchText ranks matching memories by ts_rank.
func (c *Client) SearchText(ctx context.Context, userID, query string, limit int) ([]*storage.Memory, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	sqlQuery := fmt.Sprintf(`
		SELECT %s,
		       ts_rank(to_tsvector('english', text), plainto_tsquery('english', $2)) AS score
		FROM %s
		WHERE user_id = $1
		  AND to_tsvector('english', text) @@ plainto_tsquery('english', $2)
		ORDER BY score DESC, created_at DESC
		LIMIT $3
	`, columnList, c.table)

	return c.queryMemories(ctx, sqlQuery, userID, query, limit)
}

// FindByEmotions matches memories whose emotions list contains any tag.
func (c *Client) FindByEmotions(ctx context.Context, userID string, emotions []string, limit int) ([]*storage.Memory, error) {
	if len(emotions) == 0 {
		return nil, nil
	}
	return c.FindByFields(ctx, userID, []storage.FieldMatch{{Field: "emotions", Values: emotions}}, limit)
}

// List returns memories newest-first with pagination.
func (c *Client) List(ctx context.Context, opts *storage.ListOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.ListOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT %s, 0 AS score FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, columnList, c.table)
	return c.queryMemories(ctx, query, opts.UserID, limit, opts.Offset)
}

// DeleteAll removes every memory belonging to userID.
func (c *Client) DeleteAll(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, c.table)
	if _, err := c.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("postgres: delete all: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

const columnList = `id, user_id, text, people, pets, locations, emotions, topics,
	likes, dislikes, goals, hobbies, personality, embedding, created_at`

func (c *Client) queryMemories(ctx context.Context, query string, args ...interface{}) ([]*storage.Memory, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		var m storage.Memory
		err := rows.Scan(
			&m.ID, &m.UserID, &m.Text,
			pq.Array(&m.People), pq.Array(&m.Pets), pq.Array(&m.Locations),
			pq.Array(&m.Emotions), pq.Array(&m.Topics), pq.Array(&m.Likes),
			pq.Array(&m.Dislikes), pq.Array(&m.Goals), pq.Array(&m.Hobbies),
			pq.Array(&m.Personality), pq.Array(&m.Embedding),
			&m.CreatedAt, &m.TextScore,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		memories = append(memories, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return memories, nil
}
