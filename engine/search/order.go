package search

import (
	engine "github.com/phimuemue/openschafkopf-sub003/engine"
)

// Moves is a fixed buffer for the legal cards of one ply.
type Moves struct {
	cards [engine.CardsPerHand]engine.Card
	n     int
}

// Len returns the number of cards.
func (m *Moves) Len() int { return m.n }

// At returns the i-th card in search order.
func (m *Moves) At(i int) engine.Card { return m.cards[i] }

// Slice copies the cards out.
func (m *Moves) Slice() []engine.Card { return append([]engine.Card(nil), m.cards[:m.n]...) }

// Order fills m with the legal cards of the side to move, most promising
// first. Cards that try to take the trick come first, strongest first; the
// rest follow cheapest first. When a teammate already holds the trick the
// order flips to feeding it pips. Ties keep ascending card index.
func Order(cur *engine.Cursor, m *Moves) {
	k := cur.Contract()
	mover := cur.NextSeat()
	t := cur.Sequence().Current()

	var keys [engine.CardsPerHand]int
	m.n = 0
	for rest := cur.Legal(); rest != 0; {
		var c engine.Card
		c, rest = rest.Pop()
		key := orderKey(cur, k, t, mover, c)
		// insertion sort, stable on card index since cards arrive ascending
		i := m.n
		for i > 0 && keys[i-1] < key {
			keys[i], m.cards[i] = keys[i-1], m.cards[i-1]
			i--
		}
		keys[i], m.cards[i] = key, c
		m.n++
	}
}

// orderKey scores a card for move ordering; higher sorts first.
func orderKey(cur *engine.Cursor, k *engine.Contract, t *engine.Trick, mover engine.Seat, c engine.Card) int {
	const (
		winBand  = 1 << 12
		feedBand = 1 << 11
	)
	power := k.Power(c)
	if t == nil || t.Empty() {
		if k.IsTrump(c) || c.Rank() == engine.Ace {
			return winBand + power
		}
		return -(c.Pips()*32 + power)
	}
	winner, best := k.CurrentWinner(t)
	lead := k.EffectiveSuit(t.Cards[0])
	if k.Beats(c, best, lead) {
		if cur.SameTeam(mover, winner) && t.Len() == engine.NumSeats-1 {
			// the trick is ours already; overtaking only wastes power
			return feedBand - power
		}
		return winBand + power
	}
	if cur.SameTeam(mover, winner) {
		return feedBand + c.Pips()*32 - power
	}
	return -(c.Pips()*32 + power)
}

// Heuristic returns the legal cards in search order, best guess first. It is
// the fallback when no search result is available.
func Heuristic(cur *engine.Cursor) []engine.Card {
	var m Moves
	Order(cur, &m)
	return m.Slice()
}
