package core

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mindwell-labs/mindmem-go/pkg/annotate"
	"github.com/mindwell-labs/mindmem-go/pkg/embedder"
	"github.com/mindwell-labs/mindmem-go/pkg/llm"
	"github.com/mindwell-labs/mindmem-go/pkg/rank"
	"github.com/mindwell-labs/mindmem-go/pkg/sentiment"
	"github.com/mindwell-labs/mindmem-go/pkg/storage"
)

// ClientOption customizes client construction beyond what Config carries.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger       *zerolog.Logger
	annotator    annotate.Annotator
	lexicon      *sentiment.Lexicon
	emotionWords []string
	store        storage.Store
	llm          llm.Provider
	embedder     embedder.Provider
	clock        func() time.Time
}

// WithLogger sets the client logger. The default writes to stderr at info
// level.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = &logger
	}
}

// WithAnnotator replaces the default prose-backed annotator.
func WithAnnotator(ann annotate.Annotator) ClientOption {
	return func(o *clientOptions) {
		o.annotator = ann
	}
}

// WithLexicon replaces the default sentiment lexicon.
func WithLexicon(lex sentiment.Lexicon) ClientOption {
	return func(o *clientOptions) {
		o.lexicon = &lex
	}
}

// WithEmotionWords replaces the default emotion tagging vocabulary.
func WithEmotionWords(words []string) ClientOption {
	return func(o *clientOptions) {
		o.emotionWords = words
	}
}

// WithStore injects a memory store, bypassing Config.Store. Intended for
// tests and custom backends.
func WithStore(store storage.Store) ClientOption {
	return func(o *clientOptions) {
		o.store = store
	}
}

// WithLLM injects a text generation provider, bypassing Config.LLM.
func WithLLM(provider llm.Provider) ClientOption {
	return func(o *clientOptions) {
		o.llm = provider
	}
}

// WithEmbedder injects an embedding provider, bypassing Config.Embedder.
func WithEmbedder(provider embedder.Provider) ClientOption {
	return func(o *clientOptions) {
		o.embedder = provider
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) ClientOption {
	return func(o *clientOptions) {
		o.clock = now
	}
}

// RecallOption tunes a single Recall call.
type RecallOption func(*rank.Options)

// WithMinScore sets the absolute relevance floor (default 1.5).
func WithMinScore(score float64) RecallOption {
	return func(o *rank.Options) {
		o.MinScore = score
	}
}

// WithBestRatio sets the relative-to-best discard ratio (default 0.3).
func WithBestRatio(ratio float64) RecallOption {
	return func(o *rank.Options) {
		o.BestRatio = ratio
	}
}

// WithMaxMemories caps the number of memories returned (default 3). Zero or
// negative values return no memories.
func WithMaxMemories(max int) RecallOption {
	return func(o *rank.Options) {
		o.MaxMemories = max
	}
}

// WithSearchLimits overrides the per-strategy result caps (defaults 10, 10,
// 5). Zero keeps a cap's default.
func WithSearchLimits(entity, text, emotion int) RecallOption {
	return func(o *rank.Options) {
		if entity > 0 {
			o.EntityLimit = entity
		}
		if text > 0 {
			o.TextLimit = text
		}
		if emotion > 0 {
			o.EmotionLimit = emotion
		}
	}
}

// applyRecallOptions folds options over the ranker defaults.
func applyRecallOptions(opts []RecallOption) *rank.Options {
	options := rank.DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &options
}
