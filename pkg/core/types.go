// Package core provides the MindMem client and the memory pipeline it runs.
package core

import "time"

// Memory is a structured extraction from one chat message, as seen by API
// consumers.
//
// The category lists hold the entities the extractor recognized; the Text
// field preserves the original message for prompt building. Embedding is an
// optional semantic-search vector, attached only when an embedding provider
// is configured.
//
// Example:
//
//	memory := &core.Memory{
//	    UserID: "user_001",
//	    Text:   "I went hiking with Sarah in Portland",
//	    People: []string{"Sarah"},
//	}
type Memory struct {
	// ID is the unique identifier, assigned at save time.
	ID int64 `json:"id"`

	// UserID identifies the user who owns this memory.
	UserID string `json:"user_id"`

	// Text is the original message the memory was derived from.
	Text string `json:"text"`

	// Extracted entity categories.
	People      []string `json:"people,omitempty"`
	Pets        []string `json:"pets,omitempty"`
	Locations   []string `json:"locations,omitempty"`
	Emotions    []string `json:"emotions,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Likes       []string `json:"likes,omitempty"`
	Dislikes    []string `json:"dislikes,omitempty"`
	Goals       []string `json:"goals,omitempty"`
	Hobbies     []string `json:"hobbies,omitempty"`
	Personality []string `json:"personality,omitempty"`

	// Embedding is the optional semantic-search vector. Omitted from JSON to
	// keep payloads small.
	Embedding []float64 `json:"embedding,omitempty"`

	// CreatedAt is when the memory was saved.
	CreatedAt time.Time `json:"created_at"`
}

// ChatTurn is one past exchange in the conversation history handed to
// Respond.
type ChatTurn struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the turn's text.
	Content string `json:"content"`
}
