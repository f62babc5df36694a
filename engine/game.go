// Package engine implements the Schafkopf rules: cards and hands, the closed
// set of contracts with their trump tables, trick sequences, legality, payoff
// computation and a play/undo game cursor.
//
// All state types are flat values (fixed arrays, no slices) so the search can
// copy or mutate them without allocating.
package engine

import "fmt"

// CardsPerHand is the number of cards dealt to each seat.
const CardsPerHand = 8

// Shuffler is the part of a random source needed to deal cards.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Deal shuffles the deck and hands out eight cards per seat.
func Deal(r Shuffler) [NumSeats]Hand {
	var deck [NumCards]Card
	for i := range deck {
		deck[i] = Card(i)
	}
	r.Shuffle(NumCards, func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	var hands [NumSeats]Hand
	for i, c := range deck {
		hands[i/CardsPerHand] = hands[i/CardsPerHand].Add(c)
	}
	return hands
}

// Snapshot is an immutable description of a deal in progress: the initial hands,
// the contract, the public announcements and the cards played so far. It is
// cheap to copy and serves as search input.
type Snapshot struct {
	Contract      Contract
	Hands         [NumSeats]Hand // as dealt
	Announcements Announcements
	Sequence      Sequence
}

// NewSnapshot validates a deal: every seat holds eight cards, the hands
// partition the deck, the contract fits the hands (a called ace the declarer
// may call, every top trump with a Sie declarer) and the sequence is legal.
func NewSnapshot(k Contract, hands [NumSeats]Hand, ann Announcements, seq Sequence) (Snapshot, error) {
	var all Hand
	for s := Seat(0); s < NumSeats; s++ {
		if n := hands[s].Count(); n != CardsPerHand {
			return Snapshot{}, fmt.Errorf("%w: %v holds %d cards", ErrInvalidCard, s, n)
		}
		if all&hands[s] != 0 {
			return Snapshot{}, fmt.Errorf("%w: %v shares cards %v", ErrInvalidCard, s, all&hands[s])
		}
		all |= hands[s]
	}
	if ace, ok := k.CalledAce(); ok {
		own := hands[k.Declarer]
		if own.Contains(ace) {
			return Snapshot{}, fmt.Errorf("%w: %v holds the called ace %v", ErrIllegalPlay, k.Declarer, ace)
		}
		if !CanCall(own, k.Suit) {
			return Snapshot{}, fmt.Errorf("%w: %v cannot call the %v ace", ErrIllegalPlay, k.Declarer, k.Suit)
		}
	}
	if k.Modifier == Sie {
		if missing := k.TopTrumps() &^ hands[k.Declarer]; missing != 0 {
			return Snapshot{}, fmt.Errorf("%w: Sie declarer %v lacks %v", ErrIllegalPlay, k.Declarer, missing)
		}
	}
	sn := Snapshot{Contract: k, Hands: hands, Announcements: ann, Sequence: seq}
	if _, err := sn.Cursor(); err != nil {
		return Snapshot{}, err
	}
	return sn, nil
}

// Cursor replays the snapshot's sequence into a fresh cursor, validating every
// play against the hands.
func (sn *Snapshot) Cursor() (*Cursor, error) {
	cur := NewCursor(&sn.Contract, sn.Hands, sn.Announcements, sn.Sequence.FirstLeader())
	for _, c := range sn.Sequence.Cards() {
		if err := cur.Play(c); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// ---------------------------------------------------------------------------
// Cursor
// ---------------------------------------------------------------------------

// Cursor is the mutable game state used inside the search loop. Play and Undo
// are O(1) and exact: after N plays and N undos the cursor compares equal (==)
// to its previous value.
type Cursor struct {
	k       *Contract
	initial [NumSeats]Hand
	hands   [NumSeats]Hand
	seq     Sequence
	pips    [NumSeats]uint8
	tricks  [NumSeats]uint8
	ann     Announcements
	party   [NumSeats]bool
	lauf    uint8
	hash    uint64
}

// NewCursor starts a deal at its first card. k must outlive the cursor and
// must not be modified.
func NewCursor(k *Contract, hands [NumSeats]Hand, ann Announcements, leader Seat) *Cursor {
	c := &Cursor{
		k:       k,
		initial: hands,
		hands:   hands,
		seq:     NewSequence(leader),
		ann:     ann,
		party:   k.Parties(&hands),
		lauf:    uint8(k.Laufende(&hands)),
	}
	c.hash = dealHash(k, &hands, leader)
	return c
}

// Contract returns the contract being played.
func (c *Cursor) Contract() *Contract { return c.k }

// Hand returns the cards seat still holds.
func (c *Cursor) Hand(s Seat) Hand { return c.hands[s] }

// Hands returns all current hands.
func (c *Cursor) Hands() [NumSeats]Hand { return c.hands }

// InitialHands returns the hands as dealt.
func (c *Cursor) InitialHands() [NumSeats]Hand { return c.initial }

// Sequence returns the played sequence. The result must not be modified.
func (c *Cursor) Sequence() *Sequence { return &c.seq }

// Announcements returns the public doublings.
func (c *Cursor) Announcements() Announcements { return c.ann }

// NextSeat returns the seat on turn.
func (c *Cursor) NextSeat() Seat { return c.seq.NextSeat() }

// Finished reports whether all tricks have been played.
func (c *Cursor) Finished() bool { return c.seq.Finished() }

// Pips returns the pips seat has taken in completed tricks.
func (c *Cursor) Pips(s Seat) int { return int(c.pips[s]) }

// Tricks returns the number of tricks seat has taken.
func (c *Cursor) Tricks(s Seat) int { return int(c.tricks[s]) }

// InParty reports whether s belongs to the declarer party.
func (c *Cursor) InParty(s Seat) bool { return c.party[s] }

// SameTeam reports whether a and b play for the same side. In a Ramsch every
// seat plays alone.
func (c *Cursor) SameTeam(a, b Seat) bool {
	if a == b {
		return true
	}
	return c.k.Kind != KindRamsch && c.party[a] == c.party[b]
}

// Played returns every card played so far.
func (c *Cursor) Played() Hand {
	var dealt, held Hand
	for s := 0; s < NumSeats; s++ {
		dealt |= c.initial[s]
		held |= c.hands[s]
	}
	return dealt &^ held
}

// DealHash fingerprints the deal (hands as dealt, contract, first leader).
func (c *Cursor) DealHash() uint64 { return c.hash }

// Legal returns the cards the seat on turn may play, or 0 once finished.
func (c *Cursor) Legal() Hand {
	if c.seq.Finished() {
		return 0
	}
	legal, err := c.k.LegalPlays(c.hands[c.seq.NextSeat()], &c.seq)
	if err != nil {
		return 0
	}
	return legal
}

// Play validates and plays card for the seat on turn.
func (c *Cursor) Play(card Card) error {
	if c.seq.Finished() {
		return illegalPlay(NoSeat, card, MaxTricks-1, "deal already finished")
	}
	seat := c.seq.NextSeat()
	if err := c.k.ValidatePlay(c.hands[seat], &c.seq, card); err != nil {
		return err
	}
	c.PlayUnchecked(card)
	return nil
}

// PlayUnchecked plays card without validation. The caller guarantees that
// card is in Legal().
func (c *Cursor) PlayUnchecked(card Card) {
	seat := c.seq.NextSeat()
	c.hands[seat] = c.hands[seat].Remove(card)
	if closed, w := c.seq.push(card, c.k); closed {
		c.pips[w] += uint8(c.seq.tricks[c.seq.cur-1].Pips())
		c.tricks[w]++
	}
}

// Undo takes back the last card and returns it, or NoCard at the start of the deal.
func (c *Cursor) Undo() Card {
	if c.seq.Len() == 0 {
		return NoCard
	}
	card, reopened, w := c.seq.pop()
	if reopened {
		c.pips[w] -= uint8(c.seq.tricks[c.seq.cur].Pips() + card.Pips())
		c.tricks[w]--
	}
	seat := c.seq.NextSeat()
	c.hands[seat] = c.hands[seat].Add(card)
	return card
}

// Snapshot returns the immutable view of the cursor's current position.
func (c *Cursor) Snapshot() Snapshot {
	return Snapshot{Contract: *c.k, Hands: c.initial, Announcements: c.ann, Sequence: c.seq}
}

// Outcome summarises the deal for payoff computation. It may be called on a
// partial deal; only tricks completed so far are counted.
func (c *Cursor) Outcome() Outcome {
	o := Outcome{
		Parties:       c.party,
		Laufende:      int(c.lauf),
		Announcements: c.ann,
	}
	for s := 0; s < NumSeats; s++ {
		o.Pips[s] = int(c.pips[s])
		o.Tricks[s] = int(c.tricks[s])
		o.TopTrump[s] = -1
	}
	for _, t := range c.seq.Completed() {
		for i := 0; i < NumSeats; i++ {
			card := t.Cards[i]
			if c.k.IsTrump(card) && c.k.Power(card) > o.TopTrump[t.Winner] {
				o.TopTrump[t.Winner] = c.k.Power(card)
			}
		}
	}
	return o
}

// Payoff returns the final payoff per seat. The deal must be finished.
func (c *Cursor) Payoff() ([NumSeats]int, error) {
	if !c.seq.Finished() {
		return [NumSeats]int{}, invariant("payoff of unfinished deal", "%d cards played", c.seq.Len())
	}
	o := c.Outcome()
	return c.k.Payoff(&o), nil
}

// ---------------------------------------------------------------------------
// Deal fingerprint
// ---------------------------------------------------------------------------

// dealHash is an FNV-1a hash over the dealt hands, the contract parameters and
// the first leader. Identical deals always produce the same value.
func dealHash(k *Contract, hands *[NumSeats]Hand, leader Seat) uint64 {
	h := uint64(14695981039346656037) // FNV-1a offset basis
	const prime = uint64(1099511628211)

	for s := 0; s < NumSeats; s++ {
		v := uint32(hands[s])
		for i := 0; i < 4; i++ {
			h ^= uint64(byte(v >> (8 * i)))
			h *= prime
		}
	}
	for _, b := range [...]byte{byte(k.Kind), byte(k.Declarer), byte(k.Suit), boolByte(k.Farb), byte(k.Modifier), byte(leader)} {
		h ^= uint64(b)
		h *= prime
	}
	return h
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
