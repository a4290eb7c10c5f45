// Package search orchestrates the lexicon, similarity scorer, phonetic
// index and result cache into one ranked query operation with a fixed
// score policy: exact beats spelling beats phonetic beats meaning.
package search

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/lexiserve/internal/utils"
	"github.com/bastiangx/lexiserve/pkg/cache"
	"github.com/bastiangx/lexiserve/pkg/config"
	"github.com/bastiangx/lexiserve/pkg/lexicon"
	"github.com/bastiangx/lexiserve/pkg/phonetic"
	"github.com/bastiangx/lexiserve/pkg/similarity"
)

// Engine answers ranked word queries over shared indexes. Every collaborator
// is injected; the engine owns none of them and holds no global state.
// A nil phonetic index or meaning source simply disables that pass, a nil
// cache disables memoization, and a nil lexicon leaves the engine in a
// valid-but-empty state.
type Engine struct {
	lexicon  *lexicon.Index
	scorer   *similarity.Scorer
	phonetic *phonetic.Index
	meanings MeaningSource
	results  *cache.Cache[[]Result]
	cfg      *config.Config
}

// Stats aggregates counters across the engine's components.
type Stats struct {
	Lexicon  map[string]int `msgpack:"lexicon" json:"lexicon"`
	Phonetic map[string]int `msgpack:"phonetic" json:"phonetic"`
	Cache    cache.Stats    `msgpack:"cache" json:"cache"`
}

// NewEngine assembles an engine from its collaborators. A nil cfg gets
// defaults.
func NewEngine(ix *lexicon.Index, scorer *similarity.Scorer, ph *phonetic.Index, meanings MeaningSource, results *cache.Cache[[]Result], cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Engine{
		lexicon:  ix,
		scorer:   scorer,
		phonetic: ph,
		meanings: meanings,
		results:  results,
		cfg:      cfg,
	}
}

// Search runs the enabled passes for a query and returns deduplicated
// results sorted by score descending, word ascending. Repeated queries with
// the same options are answered from the cache without recomputing
// anything. Queries below the minimum length yield nothing.
func (e *Engine) Search(query string, opts Options) []Result {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(normalized) < e.cfg.Engine.MinQueryLength {
		return nil
	}

	key := cacheKey(normalized, opts)
	if e.results != nil {
		if cached, ok := e.results.Get(key); ok {
			return cached
		}
	}

	var found []Result
	if opts.Exact {
		found = append(found, e.exactPass(normalized)...)
	}
	if opts.Spelling {
		found = append(found, e.spellingPass(normalized)...)
	}
	if opts.Phonetic {
		found = append(found, e.phoneticPass(normalized)...)
	}
	if opts.Meaning {
		found = append(found, e.meaningPass(normalized)...)
	}

	results := utils.KeepBest(found, func(r Result) string { return r.Word }, betterResult)
	sortResults(results)

	limit := opts.MaxResults
	if limit <= 0 {
		limit = e.cfg.Engine.MaxResults
	}
	if len(results) > limit {
		results = results[:limit]
	}

	if e.results != nil {
		e.results.SetTTL(key, results, e.cfg.Cache.DefaultTTL())
	}
	return results
}

// exactPass surfaces stored words extending the query, never the query
// itself. Completions are certainties, so they all score 1.
func (e *Engine) exactPass(query string) []Result {
	if e.lexicon == nil {
		return nil
	}
	var out []Result
	for _, word := range e.lexicon.PrefixMatches(query, false) {
		out = append(out, e.resultFor(word, 1.0, Exact))
	}
	return out
}

// spellingPass scores the length-narrowed candidate band. The threshold
// gates on raw edit similarity; the frequency blend only ranks the
// survivors, so a rare word close to the query still surfaces below its
// common rivals instead of vanishing.
func (e *Engine) spellingPass(query string) []Result {
	if e.lexicon == nil || e.scorer == nil {
		return nil
	}
	var out []Result
	for _, candidate := range e.lexicon.CandidatesNearLength(query, e.cfg.Engine.LengthTolerance) {
		if candidate == query {
			continue
		}
		if e.scorer.Similarity(query, candidate) <= e.cfg.Engine.SpellingThreshold {
			continue
		}
		out = append(out, e.resultFor(candidate, e.scorer.Score(query, candidate), Spelling))
	}
	return out
}

// phoneticPass surfaces sound-alike words under their normalized weights.
func (e *Engine) phoneticPass(query string) []Result {
	if e.phonetic == nil {
		return nil
	}
	var out []Result
	for _, m := range e.phonetic.FindSimilar(query) {
		out = append(out, e.resultFor(m.Word, m.Weight, Phonetic))
	}
	return out
}

// meaningPass asks the concept source, when one is wired in.
func (e *Engine) meaningPass(query string) []Result {
	if e.meanings == nil {
		return nil
	}
	var out []Result
	for _, hit := range e.meanings.SearchMeaning(query, e.cfg.Engine.ConceptResults) {
		r := Result{Word: hit.Name, Score: hit.Score, Kind: Meaning}
		if hit.Definition != "" {
			r.Entry = &lexicon.Entry{Word: hit.Name, Definition: hit.Definition}
		}
		out = append(out, r)
	}
	return out
}

// resultFor builds a result carrying a copy of the word's lexicon entry
// when one exists.
func (e *Engine) resultFor(word string, score float64, kind Kind) Result {
	r := Result{Word: word, Score: score, Kind: kind}
	if e.lexicon != nil {
		if entry, ok := e.lexicon.Lookup(word); ok {
			r.Entry = &entry
		}
	}
	return r
}

// AddWord inserts a word into the lexicon and phonetic index so later
// queries can find it. Already-cached results are left to age out via TTL.
func (e *Engine) AddWord(word string, frequency int, meta *lexicon.Metadata) error {
	if e.lexicon == nil {
		return nil
	}
	if err := e.lexicon.Insert(word, frequency, meta); err != nil {
		return err
	}
	if e.phonetic != nil {
		if err := e.phonetic.AddWord(word); err != nil {
			log.Warnf("Phonetic indexing failed for %q: %v", word, err)
		}
	}
	return nil
}

// ClearCache empties the result cache.
func (e *Engine) ClearCache() error {
	if e.results == nil {
		return nil
	}
	return e.results.Clear()
}

// Stats snapshots counters from every wired component.
func (e *Engine) Stats() Stats {
	s := Stats{}
	if e.lexicon != nil {
		s.Lexicon = e.lexicon.Stats()
	}
	if e.phonetic != nil {
		s.Phonetic = e.phonetic.Stats()
	}
	if e.results != nil {
		s.Cache = e.results.Stats()
	}
	return s
}

func cacheKey(query string, opts Options) string {
	return "search:" + query + ":" + opts.token()
}
