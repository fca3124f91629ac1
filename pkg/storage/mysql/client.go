// Package mysql provides the MySQL memory store backend.
//
// Category lists are JSON columns queried with JSON_OVERLAPS (MySQL 8.0.17+),
// and SearchText uses a FULLTEXT index with MATCH ... AGAINST natural-language
// relevance as the native score.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mindwell-labs/mindmem-go/pkg/storage"
)

// Client implements storage.Store backed by MySQL.
type Client struct {
	db    *sql.DB
	table string
}

// Config configures a MySQL store.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string

	// Table is the memories table name. Defaults to "memories".
	Table string
}

// NewClient connects to MySQL and initializes the schema.
func NewClient(cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("mysql: ping: %w", err)
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
	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s ("+
			"id BIGINT PRIMARY KEY, "+
			"user_id VARCHAR(64) NOT NULL, "+
			"`text` TEXT NOT NULL, "+
			"people JSON NOT NULL, "+
			"pets JSON NOT NULL, "+
			"locations JSON NOT NULL, "+
			"emotions JSON NOT NULL, "+
			"topics JSON NOT NULL, "+
			"likes JSON NOT NULL, "+
			"dislikes JSON NOT NULL, "+
			"goals JSON NOT NULL, "+
			"hobbies JSON NOT NULL, "+
			"personality JSON NOT NULL, "+
			"embedding JSON, "+
			"created_at DATETIME(6) NOT NULL, "+
			"INDEX idx_user_created (user_id, created_at DESC), "+
			"FULLTEXT INDEX idx_text (`text`)"+
			") CHARACTER SET utf8mb4",
		c.table,
	)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("mysql: init tables: %w", err)
	}
	return nil
}

// Insert persists a memory with its category lists encoded as JSON.
func (c *Client) Insert(ctx context.Context, memory *storage.Memory) error {
	query := fmt.Sprintf(
		"INSERT INTO %s "+
			"(id, user_id, `text`, people, pets, locations, emotions, topics, "+
			"likes, dislikes, goals, hobbies, personality, embedding, created_at) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.table,
	)

	args := []interface{}{memory.ID, memory.UserID, memory.Text}
	for _, field := range storage.CategoryFields {
		values := memory.Categories(field)
		if values == nil {
			values = []string{}
		}
		data, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("mysql: insert: %w", err)
		}
		args = append(args, string(data))
	}
	var embedding interface{}
	if len(memory.Embedding) > 0 {
		data, err := json.Marshal(memory.Embedding)
		if err != nil {
			return fmt.Errorf("mysql: insert: %w", err)
		}
		embedding = string(data)
	}
	args = append(args, embedding, memory.CreatedAt)

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mysql: insert: %w", err)
	}
	return nil
}

// FindByFields matches any field membership condition with JSON_OVERLAPS,
// OR'd across conditions, newest-first.
func (c *Client) FindByFields(ctx context.Context, userID string, matches []storage.FieldMatch, limit int) ([]*storage.Memory, error) {
	var conds []string
	args := []interface{}{userID}
	for _, m := range matches {
		if !storage.ValidField(m.Field) || len(m.Values) == 0 {
			continue
		}
		data, err := json.Marshal(m.Values)
		if err != nil {
			return nil, fmt.Errorf("mysql: find by fields: %w", err)
		}
		conds = append(conds, fmt.Sprintf("JSON_OVERLAPS(%s, CAST(? AS JSON))", m.Field))
		args = append(args, string(data))
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		"SELECT %s, 0 AS score FROM %s WHERE user_id = ? AND (%s) "+
			"ORDER BY created_at DESC LIMIT ?",
		columnList, c.table, strings.Join(conds, " OR "),
	)
	args = append(args, limit)

	return c.queryMemories(ctx, query, args...)
}

// SearchText ranks matching memories by natural-language FULLTEXT relevance.
func (c *Client) SearchText(ctx context.Context, userID, query string, limit int) ([]*storage.Memory, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	sqlQuery := fmt.Sprintf(
		"SELECT %s, MATCH(`text`) AGAINST (? IN NATURAL LANGUAGE MODE) AS score "+
			"FROM %s "+
			"WHERE user_id = ? AND MATCH(`text`) AGAINST (? IN NATURAL LANGUAGE MODE) "+
			"ORDER BY score DESC, created_at DESC LIMIT ?",
		columnList, c.table,
	)
	return c.queryMemories(ctx, sqlQuery, query, userID, query, limit)
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
	query := fmt.Sprintf(
		"SELECT %s, 0 AS score FROM %s WHERE user_id = ? "+
			"ORDER BY created_at DESC LIMIT ? OFFSET ?",
		columnList, c.table,
	)
	return c.queryMemories(ctx, query, opts.UserID, limit, opts.Offset)
}

// DeleteAll removes every memory belonging to userID.
func (c *Client) DeleteAll(ctx context.Context, userID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = ?", c.table)
	if _, err := c.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("mysql: delete all: %w", err)
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

const columnList = "id, user_id, `text`, people, pets, locations, emotions, topics, " +
	"likes, dislikes, goals, hobbies, personality, embedding, created_at"

func (c *Client) queryMemories(ctx context.Context, query string, args ...interface{}) ([]*storage.Memory, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql: query: %w", err)
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

	err := rows.Scan(
		&m.ID, &m.UserID, &m.Text,
		&cats[0], &cats[1], &cats[2], &cats[3], &cats[4],
		&cats[5], &cats[6], &cats[7], &cats[8], &cats[9],
		&embedding, &m.CreatedAt, &m.TextScore,
	)
	if err != nil {
		return nil, fmt.Errorf("mysql: scan: %w", err)
	}

	targets := []*[]string{
		&m.People, &m.Pets, &m.Locations, &m.Emotions, &m.Topics,
		&m.Likes, &m.Dislikes, &m.Goals, &m.Hobbies, &m.Personality,
	}
	for i, raw := range cats {
		if raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), targets[i]); err != nil {
			return nil, fmt.Errorf("mysql: parse categories: %w", err)
		}
	}
	if embedding.Valid && embedding.String != "" {
		if err := json.Unmarshal([]byte(embedding.String), &m.Embedding); err != nil {
			return nil, fmt.Errorf("mysql: parse embedding: %w", err)
		}
	}
	return &m, nil
}
