package engine

// MaxTricks is the number of tricks in a deal.
const MaxTricks = 8

// Trick holds up to four cards played in turn order starting at Leader.
// Winner is only meaningful once the trick is complete.
type Trick struct {
	Leader Seat
	Cards  [NumSeats]Card
	N      uint8
	Winner Seat
}

// NewTrick starts an empty trick led by leader.
func NewTrick(leader Seat) Trick { return Trick{Leader: leader} }

// Len returns the number of cards played into the trick.
func (t *Trick) Len() int { return int(t.N) }

// Complete reports whether all four seats have played.
func (t *Trick) Complete() bool { return t.N == NumSeats }

// Empty reports whether nobody has played yet.
func (t *Trick) Empty() bool { return t.N == 0 }

// Lead returns the first card, or NoCard on an empty trick.
func (t *Trick) Lead() Card {
	if t.N == 0 {
		return NoCard
	}
	return t.Cards[0]
}

// SeatAt returns the seat that plays the i-th card of the trick.
func (t *Trick) SeatAt(i int) Seat { return t.Leader.Add(i) }

// NextSeat returns the seat to play next into the trick.
func (t *Trick) NextSeat() Seat { return t.Leader.Add(int(t.N)) }

// CardOf returns the card played by seat, if it has played.
func (t *Trick) CardOf(s Seat) (Card, bool) {
	i := (int(s) - int(t.Leader) + NumSeats) % NumSeats
	if i >= int(t.N) {
		return NoCard, false
	}
	return t.Cards[i], true
}

// Hand returns the played cards as a set.
func (t *Trick) Hand() Hand {
	var h Hand
	for i := uint8(0); i < t.N; i++ {
		h = h.Add(t.Cards[i])
	}
	return h
}

// Pips returns the pips of the cards played so far.
func (t *Trick) Pips() int {
	n := 0
	for i := uint8(0); i < t.N; i++ {
		n += t.Cards[i].Pips()
	}
	return n
}

func (t *Trick) push(c Card) {
	t.Cards[t.N] = c
	t.N++
}

func (t *Trick) pop() Card {
	t.N--
	c := t.Cards[t.N]
	t.Cards[t.N] = 0
	return c
}

// ---------------------------------------------------------------------------
// Winner determination
// ---------------------------------------------------------------------------

// bestIndex returns the position of the card currently taking the trick.
func (k *Contract) bestIndex(t *Trick) int {
	if t.N == 0 {
		return -1
	}
	lead := k.EffectiveSuit(t.Cards[0])
	best := 0
	for i := 1; i < int(t.N); i++ {
		if k.Beats(t.Cards[i], t.Cards[best], lead) {
			best = i
		}
	}
	return best
}

// CurrentWinner returns the seat and card currently taking a partial trick.
func (k *Contract) CurrentWinner(t *Trick) (Seat, Card) {
	i := k.bestIndex(t)
	if i < 0 {
		return NoSeat, NoCard
	}
	return t.SeatAt(i), t.Cards[i]
}

// TrickWinner returns the seat taking a complete trick: the highest trump, or
// absent trumps, the highest card of the lead's effective suit.
func (k *Contract) TrickWinner(t *Trick) (Seat, error) {
	if !t.Complete() {
		return NoSeat, invariant("trick winner absent", "trick led by %v has %d cards", t.Leader, t.N)
	}
	return t.SeatAt(k.bestIndex(t)), nil
}
