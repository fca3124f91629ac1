// Package storage defines the persistence boundary for memories.
//
// It declares the Store interface implemented by the SQLite, PostgreSQL, and
// MySQL backends, plus the memory record type those backends exchange. The
// type is defined here rather than in core to avoid an import cycle, mirroring
// the split between the public API type and the persistence type.
package storage

import (
	"context"
	"time"
)

// Memory is a persisted structured extraction from one chat message.
type Memory struct {
	// ID is the unique identifier, assigned by the caller before Insert.
	ID int64

	// UserID owns the memory; every query is scoped by it.
	UserID string

	// Text is the original message the memory was derived from.
	Text string

	// Entity categories extracted from Text. Duplicates within a category are
	// permitted at write time.
	People      []string
	Pets        []string
	Locations   []string
	Emotions    []string
	Topics      []string
	Likes       []string
	Dislikes    []string
	Goals       []string
	Hobbies     []string
	Personality []string

	// Embedding is an optional vector reserved for semantic search.
	Embedding []float64

	// CreatedAt drives recency scoring and is the ordering key for queries.
	CreatedAt time.Time

	// TextScore is the backend's native full-text relevance score. Populated
	// only by SearchText results; never persisted.
	TextScore float64
}

// FieldMatch selects memories whose named category field contains any of the
// given values. Valid fields are the category column names: "people", "pets",
// "locations", "emotions", "topics", "likes", "dislikes", "goals", "hobbies",
// "personality".
type FieldMatch struct {
	Field  string
	Values []string
}

// ListOptions filters and paginates List results.
type ListOptions struct {
	UserID string
	Limit  int
	Offset int
}

// Store is the memory store gateway.
//
// All query methods scope results to a single user and return newest-first
// unless stated otherwise. Implementations must be safe for concurrent use.
type Store interface {
	// Insert persists a memory. The caller assigns ID and CreatedAt.
	Insert(ctx context.Context, memory *Memory) error

	// FindByFields returns memories matching any of the field membership
	// conditions (OR semantics), newest-first, capped at limit.
	FindByFields(ctx context.Context, userID string, matches []FieldMatch, limit int) ([]*Memory, error)

	// SearchText runs the backend's full-text search over memory text,
	// ranked by native relevance with TextScore populated, capped at limit.
	SearchText(ctx context.Context, userID, query string, limit int) ([]*Memory, error)

	// FindByEmotions returns memories whose emotions category contains any of
	// the given tags, newest-first, capped at limit.
	FindByEmotions(ctx context.Context, userID string, emotions []string, limit int) ([]*Memory, error)

	// List returns memories newest-first with pagination.
	List(ctx context.Context, opts *ListOptions) ([]*Memory, error)

	// DeleteAll removes every memory belonging to userID.
	DeleteAll(ctx context.Context, userID string) error

	// Close releases the underlying connection.
	Close() error
}

// CategoryFields lists the valid FieldMatch field names in column order.
var CategoryFields = []string{
	"people", "pets", "locations", "emotions", "topics",
	"likes", "dislikes", "goals", "hobbies", "personality",
}

// ValidField reports whether name is a known category field.
func ValidField(name string) bool {
	for _, f := range CategoryFields {
		if f == name {
			return true
		}
	}
	return false
}

// Categories returns the named category slice from m, or nil for an unknown
// field. Used by backends that filter in memory.
func (m *Memory) Categories(field string) []string {
	switch field {
	case "people":
		return m.People
	case "pets":
		return m.Pets
	case "locations":
		return m.Locations
	case "emotions":
		return m.Emotions
	case "topics":
		return m.Topics
	case "likes":
		return m.Likes
	case "dislikes":
		return m.Dislikes
	case "goals":
		return m.Goals
	case "hobbies":
		return m.Hobbies
	case "personality":
		return m.Personality
	default:
		return nil
	}
}
