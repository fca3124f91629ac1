// Package rank retrieves the memories most relevant to a chat message.
//
// Three searches run concurrently against the store: an entity-match search
// over extracted people, places, and topics, a full-text search over a derived
// query string, and an emotion-match search keyed on the message's polarity.
// Candidates are merged with per-memory best-score dedup, thresholded both
// absolutely and relative to the best hit, and truncated.
package rank

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindwell-labs/mindmem-go/pkg/annotate"
	"github.com/mindwell-labs/mindmem-go/pkg/sentiment"
	"github.com/mindwell-labs/mindmem-go/pkg/storage"
)

// Default thresholds and caps.
const (
	DefaultMinScore     = 1.5
	DefaultBestRatio    = 0.3
	DefaultMaxMemories  = 3
	DefaultEntityLimit  = 10
	DefaultTextLimit    = 10
	DefaultEmotionLimit = 5
)

// Scoring constants. The entity base dominates so that an explicit entity
// overlap always outranks a bare emotion match.
const (
	entityBaseScore    = 3.0
	peopleBoost        = 2.0
	locationBoost      = 1.5
	topicBoost         = 1.0
	textScoreWeight    = 1.5
	emotionBaseScore   = 1.0
	recencyWindowDays  = 30.0
	minQueryTokenRunes = 3
)

// Emotion tag sets queried when the message polarity crosses a threshold.
var (
	positiveQueryTags = []string{"positive", "happy", "excited", "joyful"}
	negativeQueryTags = []string{"negative", "sad", "angry", "anxious"}
)

// MatchType records which search strategy produced a candidate.
type MatchType string

const (
	MatchEntity  MatchType = "entity"
	MatchText    MatchType = "text"
	MatchEmotion MatchType = "emotion"
)

// Candidate is a scored memory produced by one search strategy. Candidates
// live only for the duration of a Rank call.
type Candidate struct {
	Memory *storage.Memory
	Score  float64
	Match  MatchType
}

// Options tune a single Rank call. A zero MinScore, BestRatio, or
// per-strategy limit selects its default; MaxMemories is taken verbatim, so
// zero or negative always yields an empty result.
type Options struct {
	// MinScore is the absolute relevance floor.
	MinScore float64

	// BestRatio discards candidates scoring below this fraction of the top
	// candidate's score.
	BestRatio float64

	// MaxMemories caps the result length.
	MaxMemories int

	// Per-strategy result caps.
	EntityLimit  int
	TextLimit    int
	EmotionLimit int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MinScore:     DefaultMinScore,
		BestRatio:    DefaultBestRatio,
		MaxMemories:  DefaultMaxMemories,
		EntityLimit:  DefaultEntityLimit,
		TextLimit:    DefaultTextLimit,
		EmotionLimit: DefaultEmotionLimit,
	}
}

func (o *Options) withDefaults() Options {
	if o == nil {
		return DefaultOptions()
	}
	out := *o
	if out.MinScore <= 0 {
		out.MinScore = DefaultMinScore
	}
	if out.BestRatio <= 0 {
		out.BestRatio = DefaultBestRatio
	}
	if out.EntityLimit <= 0 {
		out.EntityLimit = DefaultEntityLimit
	}
	if out.TextLimit <= 0 {
		out.TextLimit = DefaultTextLimit
	}
	if out.EmotionLimit <= 0 {
		out.EmotionLimit = DefaultEmotionLimit
	}
	return out
}

// Ranker runs relevance retrieval against a memory store. It is stateless
// apart from its collaborators and safe for concurrent use.
type Ranker struct {
	store  storage.Store
	ann    annotate.Annotator
	scorer *sentiment.Scorer
	log    zerolog.Logger
	now    func() time.Time
}

// New creates a Ranker.
func New(store storage.Store, ann annotate.Annotator, scorer *sentiment.Scorer, log zerolog.Logger) *Ranker {
	return &Ranker{
		store:  store,
		ann:    ann,
		scorer: scorer,
		log:    log,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (r *Ranker) WithClock(now func() time.Time) *Ranker {
	r.now = now
	return r
}

// Rank returns the memories most relevant to message, most relevant first,
// at most opts.MaxMemories long. A nil opts uses all defaults.
//
// Individual search failures are logged and degrade the result to fewer
// candidates; Rank itself fails only on unusable input analysis.
func (r *Ranker) Rank(ctx context.Context, userID, message string, opts *Options) ([]*storage.Memory, error) {
	o := opts.withDefaults()
	if o.MaxMemories <= 0 {
		return nil, nil
	}

	q, err := r.buildQuery(message)
	if err != nil {
		return nil, err
	}

	// Fixed slot per strategy keeps the merge order deterministic regardless
	// of goroutine completion order.
	var results [3][]Candidate
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		results[0] = r.searchEntities(ctx, userID, q, o.EntityLimit)
	}()
	go func() {
		defer wg.Done()
		results[1] = r.searchText(ctx, userID, q, o.TextLimit)
	}()
	go func() {
		defer wg.Done()
		results[2] = r.searchEmotions(ctx, userID, q, o.EmotionLimit)
	}()
	wg.Wait()

	merged := mergeCandidates(results[0], results[1], results[2])
	if len(merged) == 0 {
		return nil, nil
	}

	threshold := o.MinScore
	if rel := merged[0].Score * o.BestRatio; rel > threshold {
		threshold = rel
	}

	var out []*storage.Memory
	for _, c := range merged {
		if c.Score < threshold {
			break
		}
		out = append(out, c.Memory)
		if len(out) == o.MaxMemories {
			break
		}
	}
	return out, nil
}

// query is the analyzed form of the incoming message.
type query struct {
	people     []string
	places     []string
	topics     []string
	textQuery  string
	emotionSet []string
}

// buildQuery annotates the message and derives the per-strategy inputs.
//
// Topics are the deduplicated union of singular nouns and place spans, token
// length above two runes. The text query additionally folds in adjectives and
// verbs. The emotion set is chosen by the message's polarity and empty for
// neutral messages.
func (r *Ranker) buildQuery(message string) (*query, error) {
	ann, err := r.ann.Annotate(message)
	if err != nil {
		return nil, err
	}

	q := &query{
		people: ann.People,
		places: ann.Places,
	}

	seen := make(map[string]struct{})
	addTopic := func(word string) {
		word = strings.TrimSpace(word)
		if len([]rune(word)) < minQueryTokenRunes {
			return
		}
		key := strings.ToLower(word)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		q.topics = append(q.topics, word)
	}
	for _, noun := range ann.Nouns {
		if !noun.Plural {
			addTopic(noun.Text)
		}
	}
	for _, place := range ann.Places {
		for _, w := range strings.Fields(place) {
			addTopic(w)
		}
	}

	q.textQuery = buildTextQuery(ann, q.topics)

	switch score := r.scorer.Score(message); {
	case score > sentiment.PositiveThreshold:
		q.emotionSet = positiveQueryTags
	case score < sentiment.NegativeThreshold:
		q.emotionSet = negativeQueryTags
	}
	return q, nil
}

// buildTextQuery joins people, places, topics, adjectives, and verbs into a
// deduplicated search string, short tokens dropped.
func buildTextQuery(ann *annotate.Annotation, topics []string) string {
	seen := make(map[string]struct{})
	var tokens []string
	add := func(word string) {
		word = strings.TrimSpace(word)
		if len([]rune(word)) < minQueryTokenRunes {
			return
		}
		key := strings.ToLower(word)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		tokens = append(tokens, word)
	}

	for _, span := range ann.People {
		for _, w := range strings.Fields(span) {
			add(w)
		}
	}
	for _, span := range ann.Places {
		for _, w := range strings.Fields(span) {
			add(w)
		}
	}
	for _, t := range topics {
		add(t)
	}
	for _, a := range ann.Adjectives {
		add(a)
	}
	for _, v := range ann.Verbs {
		add(v)
	}
	return strings.Join(tokens, " ")
}

// searchEntities runs the field-membership search and scores hits by entity
// overlap plus recency.
func (r *Ranker) searchEntities(ctx context.Context, userID string, q *query, limit int) []Candidate {
	var matches []storage.FieldMatch
	if len(q.people) > 0 {
		matches = append(matches, storage.FieldMatch{Field: "people", Values: q.people})
	}
	if len(q.places) > 0 {
		matches = append(matches, storage.FieldMatch{Field: "locations", Values: q.places})
	}
	if len(q.topics) > 0 {
		matches = append(matches, storage.FieldMatch{Field: "topics", Values: q.topics})
	}
	if len(matches) == 0 {
		return nil
	}

	memories, err := r.store.FindByFields(ctx, userID, matches, limit)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("entity search failed")
		return nil
	}

	now := r.now()
	out := make([]Candidate, 0, len(memories))
	for _, m := range memories {
		score := entityBaseScore
		if overlaps(m.People, q.people) {
			score += peopleBoost
		}
		if overlaps(m.Locations, q.places) {
			score += locationBoost
		}
		if overlaps(m.Topics, q.topics) {
			score += topicBoost
		}
		score += recencyBoost(now, m.CreatedAt)
		out = append(out, Candidate{Memory: m, Score: score, Match: MatchEntity})
	}
	return out
}

// searchText runs the store's full-text search and weighs its native score.
func (r *Ranker) searchText(ctx context.Context, userID string, q *query, limit int) []Candidate {
	if q.textQuery == "" {
		return nil
	}
	memories, err := r.store.SearchText(ctx, userID, q.textQuery, limit)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("text search failed")
		return nil
	}

	now := r.now()
	out := make([]Candidate, 0, len(memories))
	for _, m := range memories {
		score := m.TextScore*textScoreWeight + recencyBoost(now, m.CreatedAt)
		out = append(out, Candidate{Memory: m, Score: score, Match: MatchText})
	}
	return out
}

// searchEmotions queries memories tagged with the polarity-matched emotion
// set. Skipped entirely for neutral messages.
func (r *Ranker) searchEmotions(ctx context.Context, userID string, q *query, limit int) []Candidate {
	if len(q.emotionSet) == 0 {
		return nil
	}
	memories, err := r.store.FindByEmotions(ctx, userID, q.emotionSet, limit)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("emotion search failed")
		return nil
	}

	now := r.now()
	out := make([]Candidate, 0, len(memories))
	for _, m := range memories {
		score := emotionBaseScore + recencyBoost(now, m.CreatedAt)
		out = append(out, Candidate{Memory: m, Score: score, Match: MatchEmotion})
	}
	return out
}

// mergeCandidates unions the strategy results, keeping for each memory only
// its best-scoring occurrence (provenance of that occurrence retained), and
// sorts descending by score. Processing order is fixed (entity, text,
// emotion) and the sort is stable, so equal-score ordering is reproducible:
// first strategy, then store order within it.
func mergeCandidates(lists ...[]Candidate) []Candidate {
	index := make(map[int64]int)
	var merged []Candidate
	for _, list := range lists {
		for _, c := range list {
			if i, ok := index[c.Memory.ID]; ok {
				if c.Score > merged[i].Score {
					merged[i] = c
				}
				continue
			}
			index[c.Memory.ID] = len(merged)
			merged = append(merged, c)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

// recencyBoost decays linearly from 1.0 at age zero to 0.0 at thirty days.
func recencyBoost(now, createdAt time.Time) float64 {
	ageDays := now.Sub(createdAt).Hours() / 24
	boost := 1 - ageDays/recencyWindowDays
	if boost < 0 {
		return 0
	}
	return boost
}

// overlaps reports whether the two lists share any value, case-insensitively.
func overlaps(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[strings.ToLower(v)] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[strings.ToLower(v)]; ok {
			return true
		}
	}
	return false
}
