package engine

import "fmt"

// Sequence is the ordered record of a deal's tricks: tricks before the current
// one are complete, the current one may be partial. It is a flat value type and
// can be copied with =.
type Sequence struct {
	tricks [MaxTricks]Trick
	cur    uint8 // index of the trick being filled; MaxTricks once the deal is over
}

// NewSequence starts a deal whose first trick is led by leader.
func NewSequence(leader Seat) Sequence {
	var s Sequence
	s.tricks[0].Leader = leader
	return s
}

// Replay builds a sequence by playing cards in order from leader. Only the
// structure is validated here (known cards, no duplicates); hand legality needs
// the hands and is checked by Cursor.Play.
func Replay(k *Contract, leader Seat, cards []Card) (Sequence, error) {
	if !leader.Valid() {
		return Sequence{}, fmt.Errorf("%w: leader seat %d", ErrIllegalPlay, leader)
	}
	s := NewSequence(leader)
	for _, c := range cards {
		if err := s.Append(c, k); err != nil {
			return Sequence{}, err
		}
	}
	return s, nil
}

// SequenceFromTricks rebuilds a sequence from explicit tricks. Every trick after
// the first must be led by the winner of the previous one, and only the last
// trick may be partial.
func SequenceFromTricks(k *Contract, tricks []Trick) (Sequence, error) {
	if len(tricks) == 0 {
		return Sequence{}, fmt.Errorf("%w: empty trick list", ErrIllegalPlay)
	}
	if len(tricks) > MaxTricks {
		return Sequence{}, fmt.Errorf("%w: %d tricks", ErrIllegalPlay, len(tricks))
	}
	s := NewSequence(tricks[0].Leader)
	for i := range tricks {
		t := &tricks[i]
		if i < len(tricks)-1 && !t.Complete() {
			return Sequence{}, illegalPlay(t.Leader, t.Lead(), i, "only the last trick may be partial")
		}
		if s.Finished() {
			return Sequence{}, illegalPlay(t.Leader, t.Lead(), i, "deal already finished")
		}
		if want := s.tricks[s.cur].Leader; t.Leader != want {
			return Sequence{}, illegalPlay(t.Leader, t.Lead(), i, fmt.Sprintf("trick must be led by %v", want))
		}
		for j := 0; j < t.Len(); j++ {
			if err := s.Append(t.Cards[j], k); err != nil {
				return Sequence{}, err
			}
		}
	}
	return s, nil
}

// Append plays c for the seat on turn, checking only that c is a known card
// not played before.
func (s *Sequence) Append(c Card, k *Contract) error {
	if s.Finished() {
		return illegalPlay(NoSeat, c, MaxTricks-1, "deal already finished")
	}
	seat := s.NextSeat()
	if !c.Valid() {
		return invalidCard(seat, c, int(s.cur), "unknown card")
	}
	if s.Played().Contains(c) {
		return invalidCard(seat, c, int(s.cur), "card already played")
	}
	s.push(c, k)
	return nil
}

// push appends c and closes the trick when it is complete. The next trick is
// opened with the winner as leader.
func (s *Sequence) push(c Card, k *Contract) (closed bool, winner Seat) {
	t := &s.tricks[s.cur]
	t.push(c)
	if !t.Complete() {
		return false, NoSeat
	}
	winner = t.SeatAt(k.bestIndex(t))
	t.Winner = winner
	s.cur++
	if s.cur < MaxTricks {
		s.tricks[s.cur].Leader = winner
	}
	return true, winner
}

// pop removes the last card. reopened is set when the card had completed a
// trick, in which case winner is the seat that had taken it.
func (s *Sequence) pop() (c Card, reopened bool, winner Seat) {
	if s.cur < MaxTricks && s.tricks[s.cur].N > 0 {
		return s.tricks[s.cur].pop(), false, NoSeat
	}
	if s.cur < MaxTricks {
		s.tricks[s.cur] = Trick{}
	}
	s.cur--
	t := &s.tricks[s.cur]
	winner = t.Winner
	t.Winner = 0
	return t.pop(), true, winner
}

// Len returns the number of cards played so far.
func (s *Sequence) Len() int {
	if s.cur == MaxTricks {
		return MaxTricks * NumSeats
	}
	return int(s.cur)*NumSeats + int(s.tricks[s.cur].N)
}

// Finished reports whether all 32 cards have been played.
func (s *Sequence) Finished() bool { return s.cur == MaxTricks }

// TrickIndex returns the 0-based index of the trick being played.
func (s *Sequence) TrickIndex() int { return int(s.cur) }

// RemainingTricks returns the tricks not yet completed, including a partial one.
func (s *Sequence) RemainingTricks() int { return MaxTricks - int(s.cur) }

// FirstLeader returns the seat that led the first trick.
func (s *Sequence) FirstLeader() Seat { return s.tricks[0].Leader }

// Current returns the trick being filled, or nil once the deal is over.
func (s *Sequence) Current() *Trick {
	if s.cur == MaxTricks {
		return nil
	}
	return &s.tricks[s.cur]
}

// Completed returns the completed tricks. The slice aliases s.
func (s *Sequence) Completed() []Trick { return s.tricks[:s.cur] }

// Tricks returns the completed tricks followed by a non-empty current trick.
func (s *Sequence) Tricks() []Trick {
	if s.cur < MaxTricks && s.tricks[s.cur].N > 0 {
		return s.tricks[:s.cur+1]
	}
	return s.tricks[:s.cur]
}

// NextSeat returns the seat on turn, or NoSeat when the deal is over.
func (s *Sequence) NextSeat() Seat {
	if s.cur == MaxTricks {
		return NoSeat
	}
	return s.tricks[s.cur].NextSeat()
}

// Played returns all cards played so far.
func (s *Sequence) Played() Hand {
	var h Hand
	for _, t := range s.Tricks() {
		h |= t.Hand()
	}
	return h
}

// PlayedBy returns the cards seat has played so far.
func (s *Sequence) PlayedBy(seat Seat) Hand {
	var h Hand
	for _, t := range s.Tricks() {
		if c, ok := t.CardOf(seat); ok {
			h = h.Add(c)
		}
	}
	return h
}

// Cards returns the played cards in play order.
func (s *Sequence) Cards() []Card {
	out := make([]Card, 0, s.Len())
	for _, t := range s.Tricks() {
		out = append(out, t.Cards[:t.N]...)
	}
	return out
}

// CalledSuitLed reports whether a completed trick was led with the called suit
// of a Rufspiel. Until then the ace holder is restricted.
func (s *Sequence) CalledSuitLed(k *Contract) bool {
	if k.Kind != KindRufspiel {
		return false
	}
	return s.suitLedBefore(k, EffSuit(k.Suit))
}

// suitLedBefore reports whether a completed trick was led with effective suit e.
func (s *Sequence) suitLedBefore(k *Contract, e EffSuit) bool {
	for i := uint8(0); i < s.cur; i++ {
		if k.EffectiveSuit(s.tricks[i].Cards[0]) == e {
			return true
		}
	}
	return false
}
