package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-labs/mindmem-go/pkg/storage"
	"github.com/mindwell-labs/mindmem-go/pkg/storage/sqlite"
)

func newTestClient(t *testing.T) *sqlite.Client {
	t.Helper()
	client, err := sqlite.NewClient(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func seed(t *testing.T, client *sqlite.Client, memories ...*storage.Memory) {
	t.Helper()
	for _, m := range memories {
		require.NoError(t, client.Insert(context.Background(), m))
	}
}

func TestInsertAndList(t *testing.T) {
	client := newTestClient(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	seed(t, client,
		&storage.Memory{ID: 1, UserID: "u1", Text: "first", People: []string{"Sarah"}, CreatedAt: base},
		&storage.Memory{ID: 2, UserID: "u1", Text: "second", CreatedAt: base.Add(time.Hour)},
		&storage.Memory{ID: 3, UserID: "u2", Text: "other user", CreatedAt: base},
	)

	got, err := client.List(context.Background(), &storage.ListOptions{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Newest first.
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
	assert.Equal(t, []string{"Sarah"}, got[1].People)
}

func TestListPagination(t *testing.T) {
	client := newTestClient(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 5; i++ {
		seed(t, client, &storage.Memory{
			ID: i, UserID: "u1", Text: "entry",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	got, err := client.List(context.Background(), &storage.ListOptions{UserID: "u1", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
}

func TestFindByFields(t *testing.T) {
	client := newTestClient(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	seed(t, client,
		&storage.Memory{ID: 1, UserID: "u1", Text: "with sarah", People: []string{"Sarah"}, CreatedAt: base},
		&storage.Memory{ID: 2, UserID: "u1", Text: "in portland", Locations: []string{"Portland"}, CreatedAt: base.Add(time.Hour)},
		&storage.Memory{ID: 3, UserID: "u1", Text: "about work", Topics: []string{"work"}, CreatedAt: base},
		&storage.Memory{ID: 4, UserID: "u2", Text: "with sarah elsewhere", People: []string{"Sarah"}, CreatedAt: base},
	)

	got, err := client.FindByFields(context.Background(), "u1", []storage.FieldMatch{
		{Field: "people", Values: []string{"Sarah"}},
		{Field: "locations", Values: []string{"Portland"}},
	}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// OR semantics, newest first, other users excluded.
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
}

func TestFindByFieldsUnknownFieldIgnored(t *testing.T) {
	client := newTestClient(t)

	got, err := client.FindByFields(context.Background(), "u1", []storage.FieldMatch{
		{Field: "nonsense", Values: []string{"x"}},
	}, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchTextScoresByTokenOverlap(t *testing.T) {
	client := newTestClient(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	seed(t, client,
		&storage.Memory{ID: 1, UserID: "u1", Text: "went hiking with my dog", CreatedAt: base},
		&storage.Memory{ID: 2, UserID: "u1", Text: "hiking near the lake", CreatedAt: base},
		&storage.Memory{ID: 3, UserID: "u1", Text: "cooked dinner at home", CreatedAt: base},
	)

	got, err := client.SearchText(context.Background(), "u1", "hiking dog", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Two token hits beat one.
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, float64(2), got[0].TextScore)
	assert.Equal(t, int64(2), got[1].ID)
	assert.Equal(t, float64(1), got[1].TextScore)
}

func TestSearchTextEmptyQuery(t *testing.T) {
	client := newTestClient(t)

	got, err := client.SearchText(context.Background(), "u1", "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindByEmotions(t *testing.T) {
	client := newTestClient(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	seed(t, client,
		&storage.Memory{ID: 1, UserID: "u1", Text: "good day", Emotions: []string{"positive", "happy"}, CreatedAt: base},
		&storage.Memory{ID: 2, UserID: "u1", Text: "bad day", Emotions: []string{"negative"}, CreatedAt: base},
	)

	got, err := client.FindByEmotions(context.Background(), "u1", []string{"happy", "excited"}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestDeleteAll(t *testing.T) {
	client := newTestClient(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	seed(t, client,
		&storage.Memory{ID: 1, UserID: "u1", Text: "mine", CreatedAt: base},
		&storage.Memory{ID: 2, UserID: "u2", Text: "theirs", CreatedAt: base},
	)

	require.NoError(t, client.DeleteAll(context.Background(), "u1"))

	got, err := client.List(context.Background(), &storage.ListOptions{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = client.List(context.Background(), &storage.ListOptions{UserID: "u2"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	client := newTestClient(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	seed(t, client, &storage.Memory{
		ID: 1, UserID: "u1", Text: "with vector",
		Embedding: []float64{0.25, -0.5, 1},
		CreatedAt: base,
	})

	got, err := client.List(context.Background(), &storage.ListOptions{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []float64{0.25, -0.5, 1}, got[0].Embedding)
}
