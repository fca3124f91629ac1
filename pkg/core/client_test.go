package core_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-labs/mindmem-go/pkg/annotate"
	"github.com/mindwell-labs/mindmem-go/pkg/core"
	"github.com/mindwell-labs/mindmem-go/pkg/llm"
	"github.com/mindwell-labs/mindmem-go/pkg/storage"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// fakeStore records inserts and serves canned search results.
type fakeStore struct {
	mu        sync.Mutex
	inserted  []*storage.Memory
	insertErr error
	entity    []*storage.Memory
}

func (f *fakeStore) Insert(ctx context.Context, m *storage.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, m)
	return nil
}

func (f *fakeStore) insertedMemories() []*storage.Memory {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*storage.Memory(nil), f.inserted...)
}

func (f *fakeStore) FindByFields(ctx context.Context, userID string, matches []storage.FieldMatch, limit int) ([]*storage.Memory, error) {
	return f.entity, nil
}

func (f *fakeStore) SearchText(ctx context.Context, userID, query string, limit int) ([]*storage.Memory, error) {
	return nil, nil
}

func (f *fakeStore) FindByEmotions(ctx context.Context, userID string, emotions []string, limit int) ([]*storage.Memory, error) {
	return nil, nil
}

func (f *fakeStore) List(ctx context.Context, opts *storage.ListOptions) ([]*storage.Memory, error) {
	return f.entity, nil
}
func (f *fakeStore) DeleteAll(ctx context.Context, userID string) error { return nil }
func (f *fakeStore) Close() error                                       { return nil }

// fakeLLM returns a fixed reply (or error) and captures the prompt.
type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	messages []llm.Message
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return f.GenerateWithMessages(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (f *fakeLLM) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = messages
	return f.reply, f.err
}

func (f *fakeLLM) Close() error { return nil }

// fakeAnnotator tags whitespace tokens from a fixed map and returns preset
// entity spans.
type fakeAnnotator struct {
	people []string
}

func (f *fakeAnnotator) Annotate(text string) (*annotate.Annotation, error) {
	ann := &annotate.Annotation{People: f.people}
	for _, w := range strings.Fields(text) {
		ann.Tokens = append(ann.Tokens, annotate.Token{Text: strings.Trim(w, ".,!?"), Tag: "XX"})
	}
	return ann, nil
}

func newTestClient(t *testing.T, store storage.Store, provider llm.Provider, ann annotate.Annotator) *core.Client {
	t.Helper()
	client, err := core.NewClient(&core.Config{},
		core.WithStore(store),
		core.WithLLM(provider),
		core.WithAnnotator(ann),
		core.WithLogger(zerolog.Nop()),
		core.WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)
	return client
}

func TestRespondValidatesInput(t *testing.T) {
	client := newTestClient(t, &fakeStore{}, &fakeLLM{reply: "hi"}, &fakeAnnotator{})

	_, err := client.Respond(context.Background(), "", "hello", nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = client.Respond(context.Background(), "u1", "   ", nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestRespondPersistsExtractedMemory(t *testing.T) {
	store := &fakeStore{}
	client := newTestClient(t, store, &fakeLLM{reply: "that sounds nice"}, &fakeAnnotator{people: []string{"Sarah"}})

	reply, err := client.Respond(context.Background(), "u1", "I saw Sarah today", nil)
	require.NoError(t, err)
	assert.Equal(t, "that sounds nice", reply)

	client.Wait()
	inserted := store.insertedMemories()
	require.Len(t, inserted, 1)
	assert.Equal(t, "u1", inserted[0].UserID)
	assert.Equal(t, "I saw Sarah today", inserted[0].Text)
	assert.Equal(t, []string{"Sarah"}, inserted[0].People)
	assert.NotZero(t, inserted[0].ID)
	assert.Equal(t, now, inserted[0].CreatedAt)
}

func TestRespondSkipsSaveForUnworthyMessage(t *testing.T) {
	store := &fakeStore{}
	client := newTestClient(t, store, &fakeLLM{reply: "ok"}, &fakeAnnotator{})

	_, err := client.Respond(context.Background(), "u1", "I slept", nil)
	require.NoError(t, err)

	client.Wait()
	assert.Empty(t, store.insertedMemories())
}

func TestRespondSwallowsSaveFailure(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("disk full")}
	client := newTestClient(t, store, &fakeLLM{reply: "still here"}, &fakeAnnotator{people: []string{"Sarah"}})

	reply, err := client.Respond(context.Background(), "u1", "I saw Sarah today", nil)
	require.NoError(t, err)
	assert.Equal(t, "still here", reply)
	client.Wait()
}

func TestRespondFallsBackOnGenerationFailure(t *testing.T) {
	client := newTestClient(t, &fakeStore{}, &fakeLLM{err: errors.New("timeout")}, &fakeAnnotator{})

	reply, err := client.Respond(context.Background(), "u1", "hello there", nil)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultFallbackReply, reply)
}

func TestRespondUsesConfiguredFallback(t *testing.T) {
	client, err := core.NewClient(&core.Config{FallbackReply: "let's pause here"},
		core.WithStore(&fakeStore{}),
		core.WithLLM(&fakeLLM{err: errors.New("timeout")}),
		core.WithAnnotator(&fakeAnnotator{}),
		core.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	reply, err := client.Respond(context.Background(), "u1", "hello there", nil)
	require.NoError(t, err)
	assert.Equal(t, "let's pause here", reply)
}

func TestRespondIncludesMemoriesInPrompt(t *testing.T) {
	recalled := &storage.Memory{
		ID: 9, UserID: "u1", Text: "went hiking with Sarah",
		People: []string{"Sarah"}, CreatedAt: now,
	}
	provider := &fakeLLM{reply: "hi"}
	client := newTestClient(t, &fakeStore{entity: []*storage.Memory{recalled}}, provider, &fakeAnnotator{people: []string{"Sarah"}})

	_, err := client.Respond(context.Background(), "u1", "I wonder what Sarah is up to",
		[]core.ChatTurn{{Role: "user", Content: "earlier entry"}})
	require.NoError(t, err)

	require.NotEmpty(t, provider.messages)
	var memoryBlock string
	for _, m := range provider.messages {
		if m.Role == llm.RoleSystem && strings.Contains(m.Content, "remember") {
			memoryBlock = m.Content
		}
	}
	assert.Contains(t, memoryBlock, "went hiking with Sarah")

	last := provider.messages[len(provider.messages)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.Equal(t, "I wonder what Sarah is up to", last.Content)
}

func TestRememberReturnsNilForUnworthyMessage(t *testing.T) {
	client := newTestClient(t, &fakeStore{}, &fakeLLM{reply: "hi"}, &fakeAnnotator{})

	memory, err := client.Remember(context.Background(), "u1", "I slept")
	require.NoError(t, err)
	assert.Nil(t, memory)
}

func TestRememberPersistsSynchronously(t *testing.T) {
	store := &fakeStore{}
	client := newTestClient(t, store, &fakeLLM{reply: "hi"}, &fakeAnnotator{people: []string{"Sarah"}})

	memory, err := client.Remember(context.Background(), "u1", "I met Sarah")
	require.NoError(t, err)
	require.NotNil(t, memory)
	assert.Equal(t, []string{"Sarah"}, memory.People)
	assert.Len(t, store.insertedMemories(), 1)
}

func TestRememberPropagatesStoreError(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("disk full")}
	client := newTestClient(t, store, &fakeLLM{reply: "hi"}, &fakeAnnotator{people: []string{"Sarah"}})

	_, err := client.Remember(context.Background(), "u1", "I met Sarah")
	require.Error(t, err)
	var perr *core.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Remember", perr.Op)
}

func TestRecallMapsResults(t *testing.T) {
	recalled := &storage.Memory{
		ID: 5, UserID: "u1", Text: "coffee with Sarah",
		People: []string{"Sarah"}, CreatedAt: now,
	}
	client := newTestClient(t, &fakeStore{entity: []*storage.Memory{recalled}}, &fakeLLM{reply: "hi"}, &fakeAnnotator{people: []string{"Sarah"}})

	memories, err := client.Recall(context.Background(), "u1", "thinking about Sarah")
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, int64(5), memories[0].ID)
	assert.Equal(t, "coffee with Sarah", memories[0].Text)
}

func TestRecallMaxMemoriesDefaultAndOverride(t *testing.T) {
	entity := []*storage.Memory{
		{ID: 1, UserID: "u1", Text: "a", People: []string{"Sarah"}, CreatedAt: now},
		{ID: 2, UserID: "u1", Text: "b", People: []string{"Sarah"}, CreatedAt: now},
		{ID: 3, UserID: "u1", Text: "c", People: []string{"Sarah"}, CreatedAt: now},
		{ID: 4, UserID: "u1", Text: "d", People: []string{"Sarah"}, CreatedAt: now},
	}
	client := newTestClient(t, &fakeStore{entity: entity}, &fakeLLM{reply: "hi"}, &fakeAnnotator{people: []string{"Sarah"}})

	memories, err := client.Recall(context.Background(), "u1", "Sarah")
	require.NoError(t, err)
	assert.Len(t, memories, 3)

	memories, err = client.Recall(context.Background(), "u1", "Sarah", core.WithMaxMemories(2))
	require.NoError(t, err)
	assert.Len(t, memories, 2)

	memories, err = client.Recall(context.Background(), "u1", "Sarah", core.WithMaxMemories(0))
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestValidateConfig(t *testing.T) {
	valid := &core.Config{
		Store: core.StoreConfig{Provider: "sqlite", SQLitePath: "./x.db"},
		LLM:   core.LLMConfig{Provider: "openai", APIKey: "sk-test"},
	}
	assert.NoError(t, valid.Validate())

	missingKey := &core.Config{
		Store: core.StoreConfig{Provider: "sqlite", SQLitePath: "./x.db"},
		LLM:   core.LLMConfig{Provider: "openai"},
	}
	assert.ErrorIs(t, missingKey.Validate(), core.ErrInvalidConfig)

	badStore := &core.Config{
		Store: core.StoreConfig{Provider: "redis"},
		LLM:   core.LLMConfig{Provider: "ollama"},
	}
	assert.ErrorIs(t, badStore.Validate(), core.ErrInvalidConfig)

	ollamaNoKey := &core.Config{
		Store: core.StoreConfig{Provider: "mysql", Host: "localhost", DBName: "m"},
		LLM:   core.LLMConfig{Provider: "ollama"},
	}
	assert.NoError(t, ollamaNoKey.Validate())
}

func TestPipelineErrorFormatting(t *testing.T) {
	err := core.NewPipelineError("Respond", core.ErrInvalidInput)
	assert.Equal(t, "mindmem: Respond: invalid input", err.Error())
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Nil(t, core.NewPipelineError("Respond", nil))
}
