// Package sqlite provides the SQLite memory store backend.
//
// Category lists are stored as JSON arrays in TEXT columns and queried with
// json_each. SQLite has no ranked full-text search without extensions, so
// SearchText loads the user's memories and computes a token-overlap score in
// memory, the same way small-scale backends here trade SQL features for
// in-process work.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mindwell-labs/mindmem-go/pkg/storage"
)

// Client implements storage.Store backed by a SQLite database file.
type Client struct {
	db    *sql.DB
	table string
}

// Config configures a SQLite store.
type Config struct {
	// DBPath is the path to the database file. Parent directories are created
	// as needed.
	DBPath string

	// Table is the memories table name. Defaults to "memories".
	Table string
}

// NewClient opens (or creates) the database and initializes the schema.
func NewClient(cfg *Config) (*Client, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite: ping: %w", err)
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
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL,
			people TEXT NOT NULL DEFAULT '[]',
			pets TEXT NOT NULL DEFAULT '[]',
			locations TEXT NOT NULL DEFAULT '[]',
			emotions TEXT NOT NULL DEFAULT '[]',
			topics TEXT NOT NULL DEFAULT '[]',
			likes TEXT NOT NULL DEFAULT '[]',
			dislikes TEXT NOT NULL DEFAULT '[]',
			goals TEXT NOT NULL DEFAULT '[]',
			hobbies TEXT NOT NULL DEFAULT '[]',
			personality TEXT NOT NULL DEFAULT '[]',
			embedding TEXT,
			created_at DATETIME NOT NULL
		)
	`, c.table)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlite: init tables: %w", err)
	}

	indexQuery := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%s_user_created ON %s(user_id, created_at DESC)`,
		c.table, c.table,
	)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("sqlite: init tables: %w", err)
	}
	return nil
}

// Insert persists a memory with its category lists encoded as JSON.
func (c *Client) Insert(ctx context.Context, memory *storage.Memory) error {
	cats, err := marshalCategories(memory)
	if err != nil {
		return fmt.Errorf("sqlite: insert: %w", err)
	}

	var embedding interface{}
	if len(memory.Embedding) > 0 {
		data, err := json.Marshal(memory.Embedding)
		if err != nil {
			return fmt.Errorf("sqlite: insert: %w", err)
		}
		embedding = string(data)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, user_id, text, people, pets, locations, emotions, topics,
		 likes, dislikes, goals, hobbies, personality, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.table)

	args := []interface{}{memory.ID, memory.UserID, memory.Text}
	for _, cat := range cats {
		args = append(args, cat)
	}
	args = append(args, embedding, memory.CreatedAt)

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: insert: %w", err)
	}
	return nil
}

// FindByFields matches any field membership condition via json_each, OR'd
// across conditions, newest-first.
func (c *Client) FindByFields(ctx context.Context, userID string, matches []storage.FieldMatch, limit int) ([]*storage.Memory, error) {
	var conds []string
	args := []interface{}{userID}
	for _, m := range matches {
		if !storage.ValidField(m.Field) || len(m.Values) == 0 {
			continue
		}
		conds = append(conds, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM json_each(%s.%s) WHERE json_each.value IN (%s))`,
			c.table, m.Field, placeholders(len(m.Values)),
		))
		for _, v := range m.Values {
			args = append(args, v)
		}
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = ? AND (%s)
		ORDER BY created_at DESC
		LIMIT ?
	`, columnList, c.table, strings.Join(conds, " OR "))
	args = append(args, limit)

	return c.queryMemories(ctx, query, args...)
}

// SearchText scores memories by how many distinct query tokens appear as
// whole words in their text, descending, ties newest-first.
func (c *Client) SearchText(ctx context.Context, userID, query string, limit int) ([]*storage.Memory, error) {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	sqlQuery := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = ?`, columnList, c.table)
	memories, err := c.queryMemories(ctx, sqlQuery, userID)
	if err != nil {
		return nil, err
	}

	var matched []*storage.Memory
	for _, m := range memories {
		score := overlapScore(m.Text, tokens)
		if score > 0 {
			m.TextScore = score
			matched = append(matched, m)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].TextScore != matched[j].TextScore {
			return matched[i].TextScore > matched[j].TextScore
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
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
		limit = -1 // SQLite: no limit
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, columnList, c.table)
	return c.queryMemories(ctx, query, opts.UserID, limit, opts.Offset)
}

// DeleteAll removes every memory belonging to userID.
func (c *Client) DeleteAll(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = ?`, c.table)
	if _, err := c.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("sqlite: delete all: %w", err)
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
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return memories, nil
}

func scanMemory(rows *sql.Rows) (*storage.Memory, error) {
	var m storage.Memory
	var cats [10]string
	var embedding sql.NullString
	var createdAt time.Time

	err := rows.Scan(
		&m.ID, &m.UserID, &m.Text,
		&cats[0], &cats[1], &cats[2], &cats[3], &cats[4],
		&cats[5], &cats[6], &cats[7], &cats[8], &cats[9],
		&embedding, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = createdAt

	if err := unmarshalCategories(&m, cats); err != nil {
		return nil, fmt.Errorf("sqlite: parse categories: %w", err)
	}
	if embedding.Valid && embedding.String != "" {
		if err := json.Unmarshal([]byte(embedding.String), &m.Embedding); err != nil {
			return nil, fmt.Errorf("sqlite: parse embedding: %w", err)
		}
	}
	return &m, nil
}

// marshalCategories encodes the ten category lists as JSON in column order.
func marshalCategories(m *storage.Memory) ([10]string, error) {
	var out [10]string
	for i, field := range storage.CategoryFields {
		values := m.Categories(field)
		if values == nil {
			values = []string{}
		}
		data, err := json.Marshal(values)
		if err != nil {
			return out, err
		}
		out[i] = string(data)
	}
	return out, nil
}

func unmarshalCategories(m *storage.Memory, cats [10]string) error {
	targets := []*[]string{
		&m.People, &m.Pets, &m.Locations, &m.Emotions, &m.Topics,
		&m.Likes, &m.Dislikes, &m.Goals, &m.Hobbies, &m.Personality,
	}
	for i, raw := range cats {
		if raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), targets[i]); err != nil {
			return err
		}
	}
	return nil
}

// queryTokens lowercases and deduplicates the search tokens.
func queryTokens(query string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		tok = strings.Trim(tok, ".,!?;:\"'")
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// overlapScore counts how many distinct query tokens occur as whole words in
// text.
func overlapScore(text string, tokens []string) float64 {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		words[strings.Trim(w, ".,!?;:\"'")] = struct{}{}
	}
	score := 0.0
	for _, tok := range tokens {
		if _, ok := words[tok]; ok {
			score++
		}
	}
	return score
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
