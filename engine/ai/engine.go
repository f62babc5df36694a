// Package ai is the decision façade: it turns one seat's view of a deal into
// a ranked list of the cards it may play. Hypothetical full deals consistent
// with the view are searched independently on a worker pool and the per-card
// payoffs are averaged.
package ai

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	engine "github.com/phimuemue/openschafkopf-sub003/engine"
	"github.com/phimuemue/openschafkopf-sub003/engine/agent"
	"github.com/phimuemue/openschafkopf-sub003/engine/search"
	"github.com/phimuemue/openschafkopf-sub003/engine/support"
)

// Defaults used when a Config or Query leaves a field zero.
const (
	DefaultSamples      = 64
	DefaultBudget       = 2 * time.Second
	DefaultTableEntries = 1 << 20
)

// Config holds the engine-wide settings.
type Config struct {
	Samples        int           // hypotheses per query
	Threads        int           // search workers; 0 means runtime.NumCPU()
	Budget         time.Duration // wall-clock budget per query
	EnumerateLimit uint64        // enumerate instead of sampling up to this many hypotheses; 0 means Samples
	TableEntries   int           // transposition table size; negative disables the table
	Search         search.Options
	Evaluator      search.Evaluator
	Source         support.SourceFactory
	Logger         support.Logger
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		Samples:      DefaultSamples,
		Threads:      runtime.NumCPU(),
		Budget:       DefaultBudget,
		TableEntries: DefaultTableEntries,
		Search:       search.DefaultOptions(),
		Evaluator:    search.NewPipEvaluator(),
		Source:       support.NewPCG,
		Logger:       support.Nop,
	}
}

func (c *Config) fill() {
	d := DefaultConfig()
	if c.Samples <= 0 {
		c.Samples = d.Samples
	}
	if c.Threads <= 0 {
		c.Threads = d.Threads
	}
	if c.Budget <= 0 {
		c.Budget = d.Budget
	}
	if c.TableEntries == 0 {
		c.TableEntries = d.TableEntries
	}
	if c.Search == (search.Options{}) {
		c.Search = d.Search
	}
	if c.Evaluator == nil {
		c.Evaluator = d.Evaluator
	}
	if c.Source == nil {
		c.Source = d.Source
	}
	c.Logger = support.OrNop(c.Logger)
}

// Query is one suggest-card request.
type Query struct {
	Seat          engine.Seat
	Hand          engine.Hand
	Contract      engine.Contract
	Sequence      engine.Sequence
	Announcements engine.Announcements

	// Zero values fall back to the engine's Config.
	Budget         time.Duration
	Samples        int
	Threads        int
	EnumerateLimit uint64

	// Seed fixes the hypotheses drawn. Nil derives the seed from the view,
	// so repeated queries on the same position agree.
	Seed *uint64
	// Fixed replaces determinization with the given full deals, which must
	// be consistent with the view.
	Fixed        []agent.Deal
	Progress     support.Progress
	PersistTable bool // keep the transposition table from earlier queries
}

// CardScore is the aggregated result for one legal card.
type CardScore struct {
	Card       engine.Card
	Score      float64 // mean payoff over the completed hypotheses, in cents
	Confidence float64 // standard error of Score
	BadCases   int     // hypotheses in which another card did strictly better
}

// Diagnostics describe how a suggestion was reached.
type Diagnostics struct {
	QueryID       uuid.UUID
	SamplesUsed   int // hypotheses whose search completed
	SamplesTotal  int
	NodesSearched uint64
	Cancelled     bool // the budget or the context ended the search early
	Exhaustive    bool // every consistent deal was searched
	Elapsed       time.Duration
}

// Suggestion is the answer to a Query.
type Suggestion struct {
	Card        engine.Card
	Ranking     []CardScore // best first
	Diagnostics Diagnostics
}

// Engine answers queries. It owns the transposition table, so queries on one
// Engine run one at a time; use several Engines for parallel queries.
type Engine struct {
	cfg   Config
	table *search.Table
	mu    sync.Mutex
}

// New returns an engine with cfg, zero fields replaced by defaults.
func New(cfg Config) *Engine {
	cfg.fill()
	e := &Engine{cfg: cfg}
	if cfg.TableEntries > 0 {
		e.table = search.NewTable(cfg.TableEntries)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// sampleResult is the ranking of the root cards in one hypothesis.
type sampleResult struct {
	index  int
	values []search.CardValue
}

// SuggestCard ranks the legal cards of q.Seat.
func (e *Engine) SuggestCard(ctx context.Context, q Query) (*Suggestion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	id := uuid.New()
	log := e.cfg.Logger

	is, err := agent.NewInfoSet(q.Seat, q.Hand, q.Contract, q.Sequence, q.Announcements)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", id)
	}
	legal, err := is.Legal()
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", id)
	}
	if err := checkFixed(is, q.Fixed); err != nil {
		return nil, errors.Wrapf(err, "query %s", id)
	}
	diag := Diagnostics{QueryID: id}

	if legal.Count() == 1 {
		c := legal.Lowest()
		diag.Elapsed = time.Since(start)
		if log.Enabled(support.LevelDebug) {
			log.Log(support.LevelDebug, "forced play", "query_id", id, "seat", q.Seat, "card", c)
		}
		return &Suggestion{Card: c, Ranking: []CardScore{{Card: c}}, Diagnostics: diag}, nil
	}

	budget := orDefault(q.Budget, e.cfg.Budget)
	tok := &support.Token{}
	stop := support.WatchDeadline(ctx, start.Add(budget*9/10), tok)
	defer stop()
	if ctx.Err() != nil {
		tok.Cancel()
	}

	deals, exhaustive, err := e.hypotheses(is, q)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", id)
	}
	if spent := time.Since(start); spent > budget/10 && log.Enabled(support.LevelWarn) {
		log.Log(support.LevelWarn, "determinization over budget", "query_id", id, "spent", spent, "hypotheses", len(deals))
	}
	diag.SamplesTotal = len(deals)

	if e.table != nil && !q.PersistTable {
		e.table.Reset()
	}
	results, nodes := e.searchAll(is, deals, q, tok)
	diag.NodesSearched = nodes
	diag.SamplesUsed = len(results)
	diag.Cancelled = len(results) < len(deals)
	diag.Exhaustive = exhaustive && !diag.Cancelled

	var ranking []CardScore
	if len(results) == 0 {
		ranking = fallback(is, deals, legal)
		diag.Cancelled = true
	} else {
		ranking = aggregate(&is.Contract, results)
	}
	diag.Elapsed = time.Since(start)

	if e.table != nil && log.Enabled(support.LevelDebug) {
		lookups, hits, stores := e.table.Stats()
		log.Log(support.LevelDebug, "transposition table", "query_id", id, "lookups", lookups, "hits", hits, "stores", stores, "entries", e.table.Len())
	}
	if log.Enabled(support.LevelInfo) {
		log.Log(support.LevelInfo, "suggest card",
			"query_id", id, "seat", q.Seat, "contract", q.Contract.String(),
			"card", ranking[0].Card, "score", ranking[0].Score,
			"samples_used", diag.SamplesUsed, "samples_total", diag.SamplesTotal,
			"nodes", diag.NodesSearched, "cancelled", diag.Cancelled,
			"exhaustive", diag.Exhaustive, "elapsed", diag.Elapsed)
	}
	return &Suggestion{Card: ranking[0].Card, Ranking: ranking, Diagnostics: diag}, nil
}

// checkFixed rejects fixed deals that contradict the view.
func checkFixed(is *agent.InfoSet, fixed []agent.Deal) error {
	for i, d := range fixed {
		if err := is.Check(d); err != nil {
			return errors.Wrapf(err, "fixed deal %d", i)
		}
	}
	return nil
}

// hypotheses returns the full deals to search and whether they are all the
// deals consistent with the view.
func (e *Engine) hypotheses(is *agent.InfoSet, q Query) ([]agent.Deal, bool, error) {
	if q.Fixed != nil {
		return q.Fixed, false, nil
	}

	det, err := agent.NewDeterminizer(is)
	if err != nil {
		return nil, false, err
	}
	samples := orDefault(q.Samples, e.cfg.Samples)
	limit := q.EnumerateLimit
	if limit == 0 {
		limit = e.cfg.EnumerateLimit
	}
	if limit == 0 {
		limit = uint64(samples)
	}
	if deals, ok := det.Enumerate(limit); ok {
		return deals, true, nil
	}

	seed := is.Fingerprint()
	if q.Seed != nil {
		seed = *q.Seed
	}
	return det.Sample(e.cfg.Source(seed), samples), false, nil
}

// searchAll ranks the root cards in every hypothesis on a bounded worker
// pool. A single aggregator goroutine collects the results, reports progress
// and keeps them in hypothesis order so the aggregate does not depend on
// scheduling.
func (e *Engine) searchAll(is *agent.InfoSet, deals []agent.Deal, q Query, tok *support.Token) ([]sampleResult, uint64) {
	threads := orDefault(q.Threads, e.cfg.Threads)
	opts := e.cfg.Search
	opts.Token = tok

	var nodes atomic.Uint64
	out := make(chan sampleResult, threads)
	collected := make(chan []sampleResult, 1)
	go func() {
		var got []sampleResult
		for r := range out {
			got = append(got, r)
			q.Progress.Report(len(got), len(deals))
		}
		sort.Slice(got, func(i, j int) bool { return got[i].index < got[j].index })
		collected <- got
	}()

	var g errgroup.Group
	g.SetLimit(threads)
	for i := range deals {
		if tok.Cancelled() {
			break
		}
		g.Go(func() error {
			if tok.Cancelled() {
				return nil
			}
			s := search.NewSearcher(e.cfg.Evaluator, e.table)
			rank := s.RankRoot(is.Cursor(deals[i]), opts)
			nodes.Add(s.Nodes.Load())
			if rank.Cancelled {
				return nil
			}
			out <- sampleResult{index: i, values: rank.Cards}
			return nil
		})
	}
	_ = g.Wait() // workers never fail
	close(out)
	return <-collected, nodes.Load()
}

// aggregate averages the per-hypothesis values and ranks the cards.
func aggregate(k *engine.Contract, results []sampleResult) []CardScore {
	type acc struct {
		sum, sumSq float64
		n, bad     int
	}
	var byCard [engine.NumCards]acc
	var order []engine.Card
	for _, r := range results {
		best := math.Inf(-1)
		for _, cv := range r.values {
			best = max(best, cv.Value)
		}
		for _, cv := range r.values {
			a := &byCard[cv.Card]
			if a.n == 0 {
				order = append(order, cv.Card)
			}
			a.sum += cv.Value
			a.sumSq += cv.Value * cv.Value
			a.n++
			if cv.Value < best {
				a.bad++
			}
		}
	}

	out := make([]CardScore, 0, len(order))
	for _, c := range order {
		a := byCard[c]
		n := float64(a.n)
		mean := a.sum / n
		var stderr float64
		if a.n > 1 {
			variance := (a.sumSq - n*mean*mean) / (n - 1)
			stderr = math.Sqrt(max(variance, 0) / n)
		}
		out = append(out, CardScore{Card: c, Score: mean, Confidence: stderr, BadCases: a.bad})
	}
	rankCards(k, out)
	return out
}

const scoreEpsilon = 1e-9

// rankCards sorts best first: higher mean, then fewer bad cases, then the
// weaker card (keep high trumps), then the lower card index.
func rankCards(k *engine.Contract, cs []CardScore) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if math.Abs(a.Score-b.Score) > scoreEpsilon {
			return a.Score > b.Score
		}
		if a.BadCases != b.BadCases {
			return a.BadCases < b.BadCases
		}
		if pa, pb := k.Power(a.Card), k.Power(b.Card); pa != pb {
			return pa < pb
		}
		return a.Card < b.Card
	})
}

// fallback ranks by the move-ordering heuristic when no search completed.
func fallback(is *agent.InfoSet, deals []agent.Deal, legal engine.Hand) []CardScore {
	cards := legal.Cards()
	if len(deals) > 0 {
		cards = search.Heuristic(is.Cursor(deals[0]))
	}
	out := make([]CardScore, len(cards))
	for i, c := range cards {
		out[i] = CardScore{Card: c}
	}
	return out
}

// ScoreDeal scores a finished deal with its per-trick trace.
func (e *Engine) ScoreDeal(sn *engine.Snapshot) (*engine.Score, error) {
	sc, err := engine.ScoreDeal(sn)
	if err != nil {
		return nil, errors.Wrap(err, "score deal")
	}
	return sc, nil
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
