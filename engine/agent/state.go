// Package agent tracks what one seat knows about a deal and turns that
// knowledge into concrete full-deal hypotheses for the search.
package agent

import (
	"fmt"
	"strings"

	engine "github.com/phimuemue/openschafkopf-sub003/engine"
)

// Deal assigns current hands to all four seats.
type Deal [engine.NumSeats]engine.Hand

// InfoSet is the public projection of a deal visible to one seat: its own
// hand, the contract, the played sequence and the announcements. The derived
// constraints (voids, role deductions, hand sizes) are computed once by
// NewInfoSet; an InfoSet is never mutated afterwards.
type InfoSet struct {
	Seat          engine.Seat
	Hand          engine.Hand // current own hand
	Contract      engine.Contract
	Sequence      engine.Sequence
	Announcements engine.Announcements

	played    engine.Hand
	playedBy  [engine.NumSeats]engine.Hand
	unseen    engine.Hand
	need      [engine.NumSeats]int
	forbidden [engine.NumSeats]engine.Hand
	voids     [engine.NumSeats][engine.NumEffSuits]bool
}

// NewInfoSet validates the view and derives the constraints on the unseen cards.
// Own plays are replayed against the own hand, so an illegal own history is
// reported as ErrIllegalPlay; a view no deal can produce as
// ErrInconsistentInformationSet.
func NewInfoSet(seat engine.Seat, hand engine.Hand, k engine.Contract, seq engine.Sequence, ann engine.Announcements) (*InfoSet, error) {
	if !seat.Valid() {
		return nil, fmt.Errorf("%w: own seat %d", engine.ErrIllegalPlay, seat)
	}
	is := &InfoSet{Seat: seat, Hand: hand, Contract: k, Sequence: seq, Announcements: ann}
	is.played = seq.Played()
	if overlap := hand & is.played; overlap != 0 {
		return nil, fmt.Errorf("%w: own hand holds played cards %v", engine.ErrInvalidCard, overlap)
	}
	for s := engine.Seat(0); s < engine.NumSeats; s++ {
		is.playedBy[s] = seq.PlayedBy(s)
		is.need[s] = engine.CardsPerHand - is.playedBy[s].Count()
	}
	if n := hand.Count(); n != is.need[seat] {
		return nil, &ConstraintError{Reason: fmt.Sprintf("%v holds %d cards, the sequence leaves %d", seat, n, is.need[seat]), is: is}
	}
	is.unseen = engine.FullDeck &^ hand &^ is.played

	if err := is.replayOwn(); err != nil {
		return nil, err
	}
	is.deriveVoids()
	is.deriveRufspiel()
	if err := is.deriveSie(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range is.Opponents() {
		total += is.need[p]
	}
	if total != is.unseen.Count() {
		return nil, invariantf("unseen pool has %d cards for %d open slots", is.unseen.Count(), total)
	}
	return is, nil
}

// replayOwn checks every card the own seat played against the cards it held
// at that moment.
func (is *InfoSet) replayOwn() error {
	k := &is.Contract
	if ace, ok := k.CalledAce(); ok && is.Seat == k.Declarer && (is.Hand|is.playedBy[is.Seat]).Contains(ace) {
		return fmt.Errorf("%w: declarer %v holds the called ace", engine.ErrIllegalPlay, is.Seat)
	}
	own := is.Hand | is.playedBy[is.Seat]
	s := engine.NewSequence(is.Sequence.FirstLeader())
	for _, c := range is.Sequence.Cards() {
		if s.NextSeat() == is.Seat {
			if err := k.ValidatePlay(own, &s, c); err != nil {
				return err
			}
			own = own.Remove(c)
		}
		if err := s.Append(c, k); err != nil {
			return err
		}
	}
	return nil
}

// deriveVoids marks a seat void in the led effective suit whenever it played
// another suit. Voids are permanent.
func (is *InfoSet) deriveVoids() {
	k := &is.Contract
	for _, t := range is.Sequence.Tricks() {
		lead := k.EffectiveSuit(t.Cards[0])
		for i := 1; i < t.Len(); i++ {
			if k.EffectiveSuit(t.Cards[i]) != lead {
				p := t.SeatAt(i)
				is.voids[p][lead] = true
				is.forbidden[p] |= k.SuitCards(lead)
			}
		}
	}
}

// deriveRufspiel applies the role deductions of a partner game: the declarer
// never holds the called ace, and whoever did not produce the ace the first
// time the called suit was led cannot hold it.
func (is *InfoSet) deriveRufspiel() {
	k := &is.Contract
	ace, ok := k.CalledAce()
	if !ok || is.played.Contains(ace) {
		return
	}
	is.forbidden[k.Declarer] = is.forbidden[k.Declarer].Add(ace)
	called := engine.EffSuit(k.Suit)
	for _, t := range is.Sequence.Tricks() {
		if k.EffectiveSuit(t.Cards[0]) != called {
			continue
		}
		for i := 1; i < t.Len(); i++ {
			p := t.SeatAt(i)
			is.forbidden[p] = is.forbidden[p].Add(ace)
		}
		break
	}
}

// deriveSie pins every top trump on the declarer of a Sie.
func (is *InfoSet) deriveSie() error {
	k := &is.Contract
	if k.Modifier != engine.Sie {
		return nil
	}
	top := k.TopTrumps()
	if is.Seat == k.Declarer {
		if missing := top &^ (is.Hand | is.playedBy[is.Seat]); missing != 0 {
			return fmt.Errorf("%w: Sie declarer %v lacks %v", engine.ErrIllegalPlay, is.Seat, missing)
		}
		return nil
	}
	for s := engine.Seat(0); s < engine.NumSeats; s++ {
		if s == k.Declarer {
			continue
		}
		if bad := (is.playedBy[s] | is.handOf(s)) & top; bad != 0 {
			return &ConstraintError{Reason: fmt.Sprintf("%v holds %v against a Sie of %v", s, bad, k.Declarer), is: is}
		}
		is.forbidden[s] |= top
	}
	return nil
}

// handOf returns the own hand for the own seat and nothing otherwise.
func (is *InfoSet) handOf(s engine.Seat) engine.Hand {
	if s == is.Seat {
		return is.Hand
	}
	return 0
}

// Unseen returns the cards neither in the own hand nor played.
func (is *InfoSet) Unseen() engine.Hand { return is.unseen }

// Played returns all cards played so far.
func (is *InfoSet) Played() engine.Hand { return is.played }

// PlayedBy returns the cards seat has played.
func (is *InfoSet) PlayedBy(s engine.Seat) engine.Hand { return is.playedBy[s] }

// Need returns the number of cards seat still holds.
func (is *InfoSet) Need(s engine.Seat) int { return is.need[s] }

// Forbidden returns the unseen cards seat is known not to hold.
func (is *InfoSet) Forbidden(s engine.Seat) engine.Hand { return is.forbidden[s] & is.unseen }

// Void reports whether seat has shown out of effective suit e.
func (is *InfoSet) Void(s engine.Seat, e engine.EffSuit) bool { return is.voids[s][e] }

// Opponents returns the three other seats in seat order.
func (is *InfoSet) Opponents() [engine.NumSeats - 1]engine.Seat {
	var out [engine.NumSeats - 1]engine.Seat
	for i := range out {
		out[i] = is.Seat.Add(i + 1)
	}
	return out
}

// Legal returns the own legal plays when the own seat is on turn.
func (is *InfoSet) Legal() (engine.Hand, error) {
	if next := is.Sequence.NextSeat(); next != is.Seat {
		return 0, fmt.Errorf("%w: %v is on turn, not %v", engine.ErrIllegalPlay, next, is.Seat)
	}
	return is.Contract.LegalPlays(is.Hand, &is.Sequence)
}

// Check reports whether d is consistent with the information set.
func (is *InfoSet) Check(d Deal) error {
	if d[is.Seat] != is.Hand {
		return fmt.Errorf("%w: own hand differs", engine.ErrInconsistentInformationSet)
	}
	var all engine.Hand
	for s := engine.Seat(0); s < engine.NumSeats; s++ {
		if d[s].Count() != is.need[s] {
			return fmt.Errorf("%w: %v holds %d, needs %d", engine.ErrInconsistentInformationSet, s, d[s].Count(), is.need[s])
		}
		if bad := d[s] & is.forbidden[s]; bad != 0 {
			return fmt.Errorf("%w: %v holds excluded %v", engine.ErrInconsistentInformationSet, s, bad)
		}
		all |= d[s]
	}
	if all|is.played != engine.FullDeck || all&is.played != 0 {
		return fmt.Errorf("%w: hands do not partition the unplayed cards", engine.ErrInconsistentInformationSet)
	}
	return nil
}

// Cursor builds a search cursor for a hypothesis: the dealt hands are the
// hypothesized current hands plus what each seat played, and the public
// sequence is replayed on top. The cursor references the information set's
// contract, which stays immutable.
func (is *InfoSet) Cursor(d Deal) *engine.Cursor {
	var initial [engine.NumSeats]engine.Hand
	for s := range initial {
		initial[s] = d[s] | is.playedBy[s]
	}
	cur := engine.NewCursor(&is.Contract, initial, is.Announcements, is.Sequence.FirstLeader())
	for _, c := range is.Sequence.Cards() {
		cur.PlayUnchecked(c)
	}
	return cur
}

// Fingerprint is an FNV-1a hash of the view. Equal views hash equal; it seeds
// queries that carry no explicit seed.
func (is *InfoSet) Fingerprint() uint64 {
	h := uint64(14695981039346656037)
	const prime = uint64(1099511628211)
	mix := func(b byte) {
		h ^= uint64(b)
		h *= prime
	}
	mix(byte(is.Seat))
	for _, b := range engine.EncodeHand(is.Hand) {
		mix(b)
	}
	if wire, err := is.Contract.MarshalBinary(); err == nil {
		for _, b := range wire {
			mix(b)
		}
	}
	mix(byte(is.Sequence.FirstLeader()))
	for _, c := range is.Sequence.Cards() {
		mix(engine.EncodeCard(c))
	}
	mix(is.Announcements.Doublings)
	mix(is.Announcements.Stoss)
	return h
}

// String dumps the constraints, one line per opponent.
func (is *InfoSet) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v %v holds %v; unseen %v", is.Contract, is.Seat, is.Hand, is.unseen)
	for _, p := range is.Opponents() {
		fmt.Fprintf(&sb, "\n  %v needs %d, excludes %v", p, is.need[p], is.Forbidden(p))
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// ConstraintError reports an information set no deal satisfies. It carries
// the full constraint dump.
type ConstraintError struct {
	Reason string
	is     *InfoSet
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v: %s\n%v", engine.ErrInconsistentInformationSet, e.Reason, e.is)
}

func (e *ConstraintError) Unwrap() error { return engine.ErrInconsistentInformationSet }

func invariantf(format string, args ...any) error {
	return &engine.InvariantError{What: "information set", Context: fmt.Sprintf(format, args...)}
}
