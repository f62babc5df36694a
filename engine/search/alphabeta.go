// Package search runs perfect-information alpha-beta over one concrete deal.
// Values are always the root seat's payoff in cents: seats on the root's team
// maximize, everyone else minimizes.
package search

import (
	"math"
	"sync/atomic"

	engine "github.com/phimuemue/openschafkopf-sub003/engine"
	"github.com/phimuemue/openschafkopf-sub003/engine/support"
)

// Default depth policy.
const (
	DefaultExactTricks   = 3
	DefaultHorizonTricks = 1
)

// Options control one search.
type Options struct {
	// ExactTricks: search to the end of the deal when at most this many
	// tricks remain.
	ExactTricks int
	// HorizonTricks: otherwise search to the end of the current trick plus
	// this many tricks and evaluate there.
	HorizonTricks int
	Token         *support.Token
}

// DefaultOptions returns the default depth policy without a token.
func DefaultOptions() Options {
	return Options{ExactTricks: DefaultExactTricks, HorizonTricks: DefaultHorizonTricks}
}

// StopTrick returns the trick index at which a search from cur evaluates
// instead of expanding; MaxTricks means an exact search.
func (o Options) StopTrick(cur *engine.Cursor) int {
	seq := cur.Sequence()
	if seq.RemainingTricks() <= o.ExactTricks {
		return engine.MaxTricks
	}
	return min(engine.MaxTricks, seq.TrickIndex()+1+o.HorizonTricks)
}

// Result is the outcome of Search.
type Result struct {
	Best      engine.Card
	Value     float64
	Exact     bool // searched to the end of the deal
	Cancelled bool // the token fired; Best and Value are best-so-far
}

// CardValue is one root card with its value.
type CardValue struct {
	Card  engine.Card
	Value float64
}

// Ranking is the outcome of RankRoot.
type Ranking struct {
	Cards     []CardValue // in search order; only complete entries when cancelled
	Exact     bool
	Cancelled bool
}

// Searcher runs alpha-beta searches. A Searcher is used by one goroutine at a
// time; the Table may be shared.
type Searcher struct {
	Eval  Evaluator
	Table *Table // optional

	// Nodes counts the positions visited over the Searcher's lifetime.
	Nodes atomic.Uint64
}

// NewSearcher returns a searcher with the given evaluator and optional table.
func NewSearcher(eval Evaluator, table *Table) *Searcher {
	if eval == nil {
		eval = NewPipEvaluator()
	}
	return &Searcher{Eval: eval, Table: table}
}

// run is the state of one search call.
type run struct {
	s         *Searcher
	cur       *engine.Cursor
	root      engine.Seat
	stop      int
	tok       *support.Token
	cancelled bool
}

// Search returns the best card for the seat on turn and its value. A
// finished deal has no seat on turn and yields NoCard.
func (s *Searcher) Search(cur *engine.Cursor, opts Options) Result {
	if cur.Finished() {
		return Result{Best: engine.NoCard, Exact: true}
	}
	r := s.start(cur, opts)
	best, value := r.rootSearch(math.Inf(-1), math.Inf(1))
	return Result{Best: best, Value: value, Exact: r.stop == engine.MaxTricks, Cancelled: r.cancelled}
}

// RankRoot returns the value of every legal card for the seat on turn, each
// searched with a full window.
func (s *Searcher) RankRoot(cur *engine.Cursor, opts Options) Ranking {
	r := s.start(cur, opts)
	out := Ranking{Exact: r.stop == engine.MaxTricks}
	var moves Moves
	Order(cur, &moves)
	for i := 0; i < moves.Len(); i++ {
		c := moves.At(i)
		cur.PlayUnchecked(c)
		v := r.alphaBeta(math.Inf(-1), math.Inf(1))
		cur.Undo()
		if r.cancelled {
			out.Cancelled = true
			break
		}
		out.Cards = append(out.Cards, CardValue{Card: c, Value: v})
	}
	return out
}

func (s *Searcher) start(cur *engine.Cursor, opts Options) *run {
	return &run{
		s:    s,
		cur:  cur,
		root: cur.NextSeat(),
		stop: opts.StopTrick(cur),
		tok:  opts.Token,
	}
}

func (r *run) maximizing() bool { return r.cur.SameTeam(r.root, r.cur.NextSeat()) }

// atLeaf reports whether the position is evaluated rather than expanded.
func (r *run) atLeaf() bool {
	seq := r.cur.Sequence()
	if seq.Finished() {
		return true
	}
	return seq.TrickIndex() >= r.stop && seq.Current().Empty()
}

func (r *run) leaf() float64 {
	if r.cur.Finished() {
		o := r.cur.Outcome()
		return float64(r.cur.Contract().Payoff(&o)[r.root])
	}
	return r.s.Eval.Evaluate(r.cur, r.root)
}

// rootSearch is alphaBeta at the root, also returning the card.
func (r *run) rootSearch(alpha, beta float64) (engine.Card, float64) {
	var moves Moves
	Order(r.cur, &moves)
	maxing := r.maximizing()
	best := moves.At(0)
	value := math.Inf(1)
	if maxing {
		value = math.Inf(-1)
	}
	for i := 0; i < moves.Len(); i++ {
		c := moves.At(i)
		r.cur.PlayUnchecked(c)
		v := r.alphaBeta(alpha, beta)
		r.cur.Undo()
		if r.cancelled && i > 0 {
			break
		}
		if (maxing && v > value) || (!maxing && v < value) {
			best, value = c, v
		}
		if r.cancelled {
			break
		}
		if maxing {
			alpha = max(alpha, value)
		} else {
			beta = min(beta, value)
		}
	}
	return best, value
}

// alphaBeta is fail-soft alpha-beta with play/undo on the cursor.
func (r *run) alphaBeta(alpha, beta float64) float64 {
	r.s.Nodes.Add(1)
	if r.tok.Cancelled() {
		r.cancelled = true
	}
	if r.cancelled || r.atLeaf() {
		return r.leaf()
	}

	var key Key
	hashMove := engine.NoCard
	if r.s.Table != nil {
		key = KeyOf(r.cur, r.root, r.stop)
		if v, bound, best, ok := r.s.Table.Lookup(key); ok {
			switch bound {
			case Exact:
				return v
			case Lower:
				alpha = max(alpha, v)
			case Upper:
				beta = min(beta, v)
			}
			if alpha >= beta {
				return v
			}
			hashMove = best
		}
	}
	// bounds are classified against the window actually searched
	alphaIn, betaIn := alpha, beta

	var moves Moves
	Order(r.cur, &moves)
	if hashMove != engine.NoCard {
		promote(&moves, hashMove)
	}

	maxing := r.maximizing()
	value := math.Inf(1)
	if maxing {
		value = math.Inf(-1)
	}
	best := engine.NoCard
	for i := 0; i < moves.Len(); i++ {
		c := moves.At(i)
		r.cur.PlayUnchecked(c)
		v := r.alphaBeta(alpha, beta)
		r.cur.Undo()
		if (maxing && v > value) || (!maxing && v < value) {
			value, best = v, c
		}
		if r.cancelled {
			return value
		}
		if maxing {
			alpha = max(alpha, value)
		} else {
			beta = min(beta, value)
		}
		if alpha >= beta {
			break
		}
	}

	if r.s.Table != nil {
		bound := Exact
		switch {
		case value <= alphaIn:
			bound = Upper
		case value >= betaIn:
			bound = Lower
		}
		r.s.Table.Store(key, value, bound, best)
	}
	return value
}

// promote moves c to the front, keeping the order of the rest.
func promote(m *Moves, c engine.Card) {
	for i := 0; i < m.n; i++ {
		if m.cards[i] == c {
			copy(m.cards[1:i+1], m.cards[:i])
			m.cards[0] = c
			return
		}
	}
}

// Minimax is the plain minimax value of the position for the seat on turn,
// evaluated where a search with opts would evaluate. It exists as the
// reference alpha-beta is checked against.
func Minimax(cur *engine.Cursor, opts Options, eval Evaluator) float64 {
	if eval == nil {
		eval = NewPipEvaluator()
	}
	r := &run{s: &Searcher{Eval: eval}, cur: cur, root: cur.NextSeat(), stop: opts.StopTrick(cur)}
	return r.minimax()
}

// MinimaxAfter is the minimax value of playing c, seen from the seat on turn
// before c and with the depth policy of the position before c.
func MinimaxAfter(cur *engine.Cursor, c engine.Card, opts Options, eval Evaluator) float64 {
	if eval == nil {
		eval = NewPipEvaluator()
	}
	r := &run{s: &Searcher{Eval: eval}, cur: cur, root: cur.NextSeat(), stop: opts.StopTrick(cur)}
	cur.PlayUnchecked(c)
	defer cur.Undo()
	return r.minimax()
}

func (r *run) minimax() float64 {
	if r.atLeaf() {
		return r.leaf()
	}
	maxing := r.maximizing()
	value := math.Inf(1)
	if maxing {
		value = math.Inf(-1)
	}
	for rest := r.cur.Legal(); rest != 0; {
		var c engine.Card
		c, rest = rest.Pop()
		r.cur.PlayUnchecked(c)
		v := r.minimax()
		r.cur.Undo()
		if maxing {
			value = max(value, v)
		} else {
			value = min(value, v)
		}
	}
	return value
}
