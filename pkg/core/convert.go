package core

import (
	"github.com/mindwell-labs/mindmem-go/pkg/extract"
	"github.com/mindwell-labs/mindmem-go/pkg/storage"
)

// Conversions between the API Memory type, the persistence Memory type, and
// the extractor's Facts. The mirror types exist to keep storage free of an
// import on core.

// factsToStorage builds an unsaved persistence record from extracted facts.
// ID and CreatedAt are left for the caller to assign.
func factsToStorage(userID, text string, f *extract.Facts) *storage.Memory {
	return &storage.Memory{
		UserID:      userID,
		Text:        text,
		People:      f.People,
		Pets:        f.Pets,
		Locations:   f.Locations,
		Emotions:    f.Emotions,
		Topics:      f.Topics,
		Likes:       f.Likes,
		Dislikes:    f.Dislikes,
		Goals:       f.Goals,
		Hobbies:     f.Hobbies,
		Personality: f.Personality,
	}
}

// storageToCore converts a persistence record to the API type.
func storageToCore(m *storage.Memory) *Memory {
	if m == nil {
		return nil
	}
	return &Memory{
		ID:          m.ID,
		UserID:      m.UserID,
		Text:        m.Text,
		People:      m.People,
		Pets:        m.Pets,
		Locations:   m.Locations,
		Emotions:    m.Emotions,
		Topics:      m.Topics,
		Likes:       m.Likes,
		Dislikes:    m.Dislikes,
		Goals:       m.Goals,
		Hobbies:     m.Hobbies,
		Personality: m.Personality,
		Embedding:   m.Embedding,
		CreatedAt:   m.CreatedAt,
	}
}

// storageToCoreList converts a result slice, preserving order.
func storageToCoreList(memories []*storage.Memory) []*Memory {
	if memories == nil {
		return nil
	}
	out := make([]*Memory, len(memories))
	for i, m := range memories {
		out[i] = storageToCore(m)
	}
	return out
}
