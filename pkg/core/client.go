package core

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"

	"github.com/mindwell-labs/mindmem-go/pkg/annotate"
	"github.com/mindwell-labs/mindmem-go/pkg/embedder"
	openaiEmbedder "github.com/mindwell-labs/mindmem-go/pkg/embedder/openai"
	"github.com/mindwell-labs/mindmem-go/pkg/extract"
	"github.com/mindwell-labs/mindmem-go/pkg/llm"
	ollamaLLM "github.com/mindwell-labs/mindmem-go/pkg/llm/ollama"
	openaiLLM "github.com/mindwell-labs/mindmem-go/pkg/llm/openai"
	"github.com/mindwell-labs/mindmem-go/pkg/rank"
	"github.com/mindwell-labs/mindmem-go/pkg/sentiment"
	"github.com/mindwell-labs/mindmem-go/pkg/storage"
	mysqlStore "github.com/mindwell-labs/mindmem-go/pkg/storage/mysql"
	postgresStore "github.com/mindwell-labs/mindmem-go/pkg/storage/postgres"
	sqliteStore "github.com/mindwell-labs/mindmem-go/pkg/storage/sqlite"
)

// DefaultFallbackReply is returned when text generation fails and no
// override is configured.
const DefaultFallbackReply = "I'm here with you. I had trouble finding the right words just now, but I'm listening. Tell me more."

// historyLimit caps how many recent turns go into the prompt.
const historyLimit = 10

const systemPrompt = `You are a warm, supportive journaling companion. You listen closely, remember what the user has shared before, and respond with empathy. Reference remembered details naturally when they are relevant. Never diagnose, never give medical advice, and keep replies to a few sentences.`

// Client runs the memory pipeline: per-message entity extraction and
// persistence, relevance retrieval, and reply generation.
//
// The client is safe for concurrent use. Memory saves run in tracked
// goroutines; Wait drains them, and a save failure never affects the chat
// reply.
//
// Example:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	reply, _ := client.Respond(ctx, "user_001", "I went hiking with Sarah", nil)
type Client struct {
	config    *Config
	store     storage.Store
	llm       llm.Provider
	embedder  embedder.Provider
	extractor *extract.Extractor
	ranker    *rank.Ranker

	// node generates unique memory IDs.
	node *snowflake.Node

	log      zerolog.Logger
	now      func() time.Time
	fallback string

	// saves tracks in-flight memory persistence goroutines.
	saves sync.WaitGroup
}

// NewClient creates a client from cfg. Options can inject collaborators
// (store, providers, annotator, clock) in place of the configured ones.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "mindmem").Logger()
	if o.logger != nil {
		logger = *o.logger
	}

	store := o.store
	if store == nil {
		if err := cfg.validateStore(); err != nil {
			return nil, err
		}
		var err error
		store, err = initStore(&cfg.Store)
		if err != nil {
			return nil, NewPipelineError("NewClient", err)
		}
	}

	provider := o.llm
	if provider == nil {
		if err := cfg.validateLLM(); err != nil {
			return nil, err
		}
		var err error
		provider, err = initLLM(&cfg.LLM)
		if err != nil {
			return nil, NewPipelineError("NewClient", err)
		}
	}

	embedProvider := o.embedder
	if embedProvider == nil && cfg.Embedder.Enabled {
		var err error
		embedProvider, err = openaiEmbedder.NewClient(&openaiEmbedder.Config{
			APIKey:     cfg.Embedder.APIKey,
			Model:      cfg.Embedder.Model,
			BaseURL:    cfg.Embedder.BaseURL,
			Dimensions: cfg.Embedder.Dimensions,
		})
		if err != nil {
			return nil, NewPipelineError("NewClient", err)
		}
	}

	ann := o.annotator
	if ann == nil {
		ann = annotate.NewProse()
	}
	lexicon := sentiment.DefaultLexicon()
	if o.lexicon != nil {
		lexicon = *o.lexicon
	}
	scorer := sentiment.NewScorer(lexicon)

	var extractCfg *extract.Config
	if o.emotionWords != nil {
		extractCfg = &extract.Config{EmotionWords: o.emotionWords}
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewPipelineError("NewClient", err)
	}

	now := o.clock
	if now == nil {
		now = time.Now
	}

	fallback := cfg.FallbackReply
	if fallback == "" {
		fallback = DefaultFallbackReply
	}

	ranker := rank.New(store, ann, scorer, logger)
	if o.clock != nil {
		ranker.WithClock(o.clock)
	}

	return &Client{
		config:    cfg,
		store:     store,
		llm:       provider,
		embedder:  embedProvider,
		extractor: extract.New(ann, scorer, extractCfg),
		ranker:    ranker,
		node:      node,
		log:       logger,
		now:       now,
		fallback:  fallback,
	}, nil
}

// Respond handles one user message end to end and returns the reply text.
//
// The extracted memory (if any) is persisted in a tracked goroutine; its
// failure is logged and never surfaces here. Retrieval reflects store state
// prior to this message. A text generation failure yields the configured
// fallback reply with a nil error; only input validation errors propagate.
func (c *Client) Respond(ctx context.Context, userID, message string, history []ChatTurn) (string, error) {
	if userID == "" || strings.TrimSpace(message) == "" {
		return "", NewPipelineError("Respond", ErrInvalidInput)
	}

	if facts := c.extractor.Extract(message); facts != nil {
		record := c.newRecord(userID, message, facts)
		c.saves.Add(1)
		go func() {
			defer c.saves.Done()
			c.persist(context.WithoutCancel(ctx), record)
		}()
	}

	memories, err := c.ranker.Rank(ctx, userID, message, nil)
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", userID).Msg("memory retrieval failed")
		memories = nil
	}

	reply, err := c.llm.GenerateWithMessages(ctx, c.buildPrompt(message, history, memories))
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", userID).Msg("text generation failed, using fallback reply")
		return c.fallback, nil
	}
	return reply, nil
}

// Remember runs the write path alone: extract and persist synchronously.
// Returns nil with no error when the message is not memory-worthy.
func (c *Client) Remember(ctx context.Context, userID, message string) (*Memory, error) {
	if userID == "" || strings.TrimSpace(message) == "" {
		return nil, NewPipelineError("Remember", ErrInvalidInput)
	}

	facts := c.extractor.Extract(message)
	if facts == nil {
		return nil, nil
	}

	record := c.newRecord(userID, message, facts)
	c.attachEmbedding(ctx, record)
	if err := c.store.Insert(ctx, record); err != nil {
		return nil, NewPipelineError("Remember", err)
	}
	return storageToCore(record), nil
}

// Recall runs the read path alone: relevance-ranked retrieval for message.
func (c *Client) Recall(ctx context.Context, userID, message string, opts ...RecallOption) ([]*Memory, error) {
	if userID == "" || strings.TrimSpace(message) == "" {
		return nil, NewPipelineError("Recall", ErrInvalidInput)
	}

	memories, err := c.ranker.Rank(ctx, userID, message, applyRecallOptions(opts))
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", userID).Msg("memory retrieval failed")
		return nil, nil
	}
	return storageToCoreList(memories), nil
}

// List returns the user's memories newest-first.
func (c *Client) List(ctx context.Context, userID string, limit, offset int) ([]*Memory, error) {
	if userID == "" {
		return nil, NewPipelineError("List", ErrInvalidInput)
	}
	memories, err := c.store.List(ctx, &storage.ListOptions{UserID: userID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, NewPipelineError("List", err)
	}
	return storageToCoreList(memories), nil
}

// Forget removes every memory belonging to userID.
func (c *Client) Forget(ctx context.Context, userID string) error {
	if userID == "" {
		return NewPipelineError("Forget", ErrInvalidInput)
	}
	if err := c.store.DeleteAll(ctx, userID); err != nil {
		return NewPipelineError("Forget", err)
	}
	return nil
}

// Wait blocks until all in-flight memory saves have finished.
func (c *Client) Wait() {
	c.saves.Wait()
}

// Close waits for pending saves and releases all resources.
func (c *Client) Close() error {
	c.Wait()

	var firstErr error
	if err := c.store.Close(); err != nil {
		firstErr = err
	}
	if err := c.llm.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return NewPipelineError("Close", firstErr)
}

// newRecord assigns identity and timestamp to an extraction result.
func (c *Client) newRecord(userID, message string, facts *extract.Facts) *storage.Memory {
	record := factsToStorage(userID, message, facts)
	record.ID = c.node.Generate().Int64()
	record.CreatedAt = c.now()
	return record
}

// persist writes a memory record, attaching an embedding first when a
// provider is configured. Failures are logged and swallowed.
func (c *Client) persist(ctx context.Context, record *storage.Memory) {
	c.attachEmbedding(ctx, record)
	if err := c.store.Insert(ctx, record); err != nil {
		c.log.Warn().Err(err).
			Str("user_id", record.UserID).
			Int64("memory_id", record.ID).
			Msg("memory save failed")
		return
	}
	c.log.Debug().
		Str("user_id", record.UserID).
		Int64("memory_id", record.ID).
		Msg("memory saved")
}

// attachEmbedding fills record.Embedding best-effort. Embedding failures are
// logged and do not block the save.
func (c *Client) attachEmbedding(ctx context.Context, record *storage.Memory) {
	if c.embedder == nil {
		return
	}
	vec, err := c.embedder.Embed(ctx, record.Text)
	if err != nil {
		c.log.Warn().Err(err).Int64("memory_id", record.ID).Msg("embedding generation failed")
		return
	}
	record.Embedding = vec
}

// buildPrompt assembles the conversation handed to the LLM: system
// instructions, a remembered-details block, the recent turns, and the
// current message.
func (c *Client) buildPrompt(message string, history []ChatTurn, memories []*storage.Memory) []llm.Message {
	out := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}

	if len(memories) > 0 {
		var b strings.Builder
		b.WriteString("Things I remember about the user:\n")
		for _, m := range memories {
			b.WriteString("- ")
			b.WriteString(m.Text)
			b.WriteString("\n")
		}
		out = append(out, llm.Message{Role: llm.RoleSystem, Content: b.String()})
	}

	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, turn := range history {
		role := turn.Role
		if role != llm.RoleAssistant {
			role = llm.RoleUser
		}
		out = append(out, llm.Message{Role: role, Content: turn.Content})
	}

	out = append(out, llm.Message{Role: llm.RoleUser, Content: message})
	return out
}

// initStore builds the configured memory store backend.
func initStore(cfg *StoreConfig) (storage.Store, error) {
	switch cfg.Provider {
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath: cfg.SQLitePath,
			Table:  cfg.Table,
		})
	case "postgres":
		return postgresStore.NewClient(&postgresStore.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			SSLMode:  cfg.SSLMode,
			Table:    cfg.Table,
		})
	case "mysql":
		return mysqlStore.NewClient(&mysqlStore.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			Table:    cfg.Table,
		})
	default:
		return nil, ErrInvalidConfig
	}
}

// initLLM builds the configured text generation provider.
func initLLM(cfg *LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiLLM.NewClient(&openaiLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "ollama":
		return ollamaLLM.NewClient(&ollamaLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, ErrInvalidConfig
	}
}
