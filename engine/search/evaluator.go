package search

import (
	engine "github.com/phimuemue/openschafkopf-sub003/engine"
)

// Evaluator estimates the root seat's payoff at a non-terminal trick boundary.
type Evaluator interface {
	Evaluate(cur *engine.Cursor, root engine.Seat) float64
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(cur *engine.Cursor, root engine.Seat) float64

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(cur *engine.Cursor, root engine.Seat) float64 { return f(cur, root) }

// Weights tune PipEvaluator.
type Weights struct {
	Trump     float64 // per trump held, times the square of its relative rank
	Commander float64 // per plain card that is currently the highest of its suit
	Lead      float64 // bonus for the seat on lead
	Partner   float64 // share of a teammate's strength credited to a seat
	Margin    float64 // payoff cents per projected pip of the root's side
}

// DefaultWeights are hand-tuned for the default tariffs.
func DefaultWeights() Weights {
	return Weights{
		Trump:     3.0,
		Commander: 0.8,
		Lead:      0.5,
		Partner:   0.25,
		Margin:    0.05,
	}
}

// PipEvaluator distributes the pips still in play in proportion to each
// seat's strength, and the remaining tricks likewise, then prices the
// projected outcome with the contract's payoff rules.
type PipEvaluator struct {
	W Weights
}

// NewPipEvaluator returns a PipEvaluator with the default weights.
func NewPipEvaluator() *PipEvaluator { return &PipEvaluator{W: DefaultWeights()} }

// Evaluate implements Evaluator.
func (e *PipEvaluator) Evaluate(cur *engine.Cursor, root engine.Seat) float64 {
	k := cur.Contract()
	o := cur.Outcome()
	strength := e.strengths(cur, k)

	var total float64
	for _, s := range strength {
		total += s
	}
	remainingPips := engine.TotalPips
	remainingTricks := engine.MaxTricks
	for s := 0; s < engine.NumSeats; s++ {
		remainingPips -= o.Pips[s]
		remainingTricks -= o.Tricks[s]
	}

	var projPips [engine.NumSeats]float64
	assignedPips, assignedTricks := 0, 0
	for s := 0; s < engine.NumSeats; s++ {
		share := 0.25
		if total > 0 {
			share = strength[s] / total
		}
		projPips[s] = float64(o.Pips[s]) + share*float64(remainingPips)
		p := int(share*float64(remainingPips) + 0.5)
		t := int(share*float64(remainingTricks) + 0.5)
		o.Pips[s] += p
		o.Tricks[s] += t
		assignedPips += p
		assignedTricks += t
	}
	// rounding residue goes to the strongest seat so totals stay exact
	top := strongest(strength)
	o.Pips[top] += remainingPips - assignedPips
	o.Tricks[top] += remainingTricks - assignedTricks
	if o.Tricks[top] < 0 {
		o.Tricks[top] = 0
	}

	value := float64(k.Payoff(&o)[root])

	var mine float64
	for s := engine.Seat(0); s < engine.NumSeats; s++ {
		if cur.SameTeam(root, s) {
			mine += projPips[s]
		}
	}
	half := float64(engine.TotalPips) / 2
	if k.Kind == engine.KindRamsch {
		// fewer pips are better
		return value + e.W.Margin*(half/2-mine)
	}
	return value + e.W.Margin*(mine-half)
}

// strengths rates each seat's remaining hand.
func (e *PipEvaluator) strengths(cur *engine.Cursor, k *engine.Contract) [engine.NumSeats]float64 {
	var out [engine.NumSeats]float64
	played := cur.Played()
	nTrumps := float64(k.Trumps().Count())
	for s := engine.Seat(0); s < engine.NumSeats; s++ {
		h := cur.Hand(s)
		for rest := h & k.Trumps(); rest != 0; {
			var c engine.Card
			c, rest = rest.Pop()
			// trump powers run from NumRanks+1 (lowest) to NumRanks+nTrumps
			rel := float64(k.Power(c)-engine.NumRanks) / nTrumps
			out[s] += e.W.Trump * rel * rel
		}
		for suit := engine.Suit(0); suit < engine.NumSuits; suit++ {
			plain := k.SuitCards(engine.EffSuit(suit))
			if c, ok := commander(k, plain&^played); ok && h.Contains(c) {
				out[s] += e.W.Commander
			}
		}
	}
	if next := cur.NextSeat(); cur.Sequence().Current() != nil {
		out[next] += e.W.Lead
	}
	if e.W.Partner != 0 && k.Kind != engine.KindRamsch {
		base := out
		for s := engine.Seat(0); s < engine.NumSeats; s++ {
			for t := engine.Seat(0); t < engine.NumSeats; t++ {
				if s != t && cur.SameTeam(s, t) {
					out[s] += e.W.Partner * base[t]
				}
			}
		}
	}
	return out
}

// commander returns the highest card still out in a plain suit.
func commander(k *engine.Contract, out engine.Hand) (engine.Card, bool) {
	best := engine.NoCard
	for rest := out; rest != 0; {
		var c engine.Card
		c, rest = rest.Pop()
		if best == engine.NoCard || k.Power(c) > k.Power(best) {
			best = c
		}
	}
	return best, best != engine.NoCard
}

func strongest(v [engine.NumSeats]float64) int {
	top := 0
	for s := 1; s < len(v); s++ {
		if v[s] > v[top] {
			top = s
		}
	}
	return top
}
