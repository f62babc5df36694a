package agent

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	engine "github.com/phimuemue/openschafkopf-sub003/engine"
	"github.com/phimuemue/openschafkopf-sub003/engine/support"
)

func hand(t testing.TB, ss ...string) engine.Hand {
	t.Helper()
	cards, err := engine.ParseCards(ss)
	if err != nil {
		t.Fatalf("ParseCards(%v): %v", ss, err)
	}
	return engine.HandOf(cards...)
}

func replay(t testing.TB, k *engine.Contract, leader engine.Seat, ss ...string) engine.Sequence {
	t.Helper()
	cards, err := engine.ParseCards(ss)
	if err != nil {
		t.Fatalf("ParseCards(%v): %v", ss, err)
	}
	seq, err := engine.Replay(k, leader, cards)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	return seq
}

// mustInfoSet builds the view of seat or fails the test.
func mustInfoSet(t testing.TB, seat engine.Seat, h engine.Hand, k engine.Contract, seq engine.Sequence, ann engine.Announcements) *InfoSet {
	t.Helper()
	is, err := NewInfoSet(seat, h, k, seq, ann)
	if err != nil {
		t.Fatalf("NewInfoSet(%v): %v", seat, err)
	}
	return is
}

// dealA is a Rufspiel of P0 on Gras; P3 holds the Gras ace.
func dealA(t testing.TB) (engine.Contract, Deal) {
	k, err := engine.NewRufspiel(0, engine.Gras)
	if err != nil {
		t.Fatalf("NewRufspiel: %v", err)
	}
	return k, Deal{
		hand(t, "EO", "GO", "HO", "SO", "EA", "G7", "SA", "HA"),
		hand(t, "EU", "GU", "HU", "SU", "EZ", "GZ", "SZ", "HZ"),
		hand(t, "EK", "GK", "SK", "HK", "E9", "G9", "S9", "H9"),
		hand(t, "E8", "G8", "S8", "H8", "E7", "GA", "S7", "H7"),
	}
}

// dealAFourTricks are the first four tricks of dealA. P3 takes the third
// trick with the called ace; P0 and P1 show out of Eichel in the fourth.
var dealAFourTricks = []string{
	"EA", "EZ", "E9", "E7",
	"SA", "SZ", "S9", "S7",
	"G7", "GZ", "G9", "GA",
	"E8", "SO", "HZ", "EK",
}

// current removes the played cards from the dealt hands.
func current(d Deal, seq *engine.Sequence) Deal {
	for s := range d {
		d[s] &^= seq.PlayedBy(engine.Seat(s))
	}
	return d
}

func TestInfoSetDerivesVoids(t *testing.T) {
	k, dealt := dealA(t)
	seq := replay(t, &k, 0, dealAFourTricks...)
	truth := current(dealt, &seq)

	is := mustInfoSet(t, 2, truth[2], k, seq, engine.Announcements{})

	if want := hand(t, "GK", "SK", "HK", "H9"); is.Hand != want {
		t.Errorf("Hand = %v, want %v", is.Hand, want)
	}
	if n := is.Unseen().Count(); n != 12 {
		t.Errorf("Unseen().Count() = %d, want 12", n)
	}
	for _, p := range is.Opponents() {
		if is.Need(p) != 4 {
			t.Errorf("Need(%v) = %d, want 4", p, is.Need(p))
		}
	}
	eichel := engine.EffSuit(engine.Eichel)
	if !is.Void(0, eichel) || !is.Void(1, eichel) {
		t.Error("P0 and P1 showed out of Eichel")
	}
	if is.Void(3, eichel) || is.Void(0, engine.TrumpSuit) {
		t.Error("void recorded without a discard")
	}
	if want := [3]engine.Seat{3, 0, 1}; is.Opponents() != want {
		t.Errorf("Opponents() = %v, want %v", is.Opponents(), want)
	}

	// Every Eichel is out, so the voids exclude nothing that is still unseen.
	for _, p := range is.Opponents() {
		if f := is.Forbidden(p); f != 0 {
			t.Errorf("Forbidden(%v) = %v, want none", p, f)
		}
	}
	if err := is.Check(truth); err != nil {
		t.Errorf("Check(truth) = %v", err)
	}
}

func TestInfoSetCalledAceDeductions(t *testing.T) {
	k, err := engine.NewRufspiel(0, engine.Gras)
	if err != nil {
		t.Fatalf("NewRufspiel: %v", err)
	}
	dealt := Deal{
		hand(t, "EO", "GO", "HO", "SO", "EA", "G7", "SA", "HA"),
		hand(t, "EU", "GU", "HU", "SU", "EZ", "GA", "SZ", "HZ"),
		hand(t, "EK", "GK", "SK", "HK", "E9", "G9", "S9", "H9"),
		hand(t, "E8", "G8", "S8", "H8", "E7", "GZ", "S7", "H7"),
	}
	ga := engine.NewCard(engine.Gras, engine.Ace)

	t.Run("declarer", func(t *testing.T) {
		is := mustInfoSet(t, 1, dealt[1], k, engine.NewSequence(0), engine.Announcements{})
		// P1 holds the ace itself, so nothing about it is unseen.
		if is.Forbidden(0).Contains(ga) {
			t.Error("the ace holder's own ace is forbidden to P0")
		}

		is = mustInfoSet(t, 2, dealt[2], k, engine.NewSequence(0), engine.Announcements{})
		if !is.Forbidden(0).Contains(ga) {
			t.Error("declarer may hold the called ace")
		}
		if is.Forbidden(1).Contains(ga) || is.Forbidden(3).Contains(ga) {
			t.Error("a possible partner is excluded")
		}
	})

	t.Run("follower without the ace", func(t *testing.T) {
		// P2 leads Gras, P3 follows with G8: P3 cannot hold the ace.
		seq := replay(t, &k, 2, "G9", "G8")
		is := mustInfoSet(t, 0, dealt[0], k, seq, engine.Announcements{})
		if !is.Forbidden(3).Contains(ga) {
			t.Error("P3 followed without the ace but may hold it")
		}
		if is.Forbidden(1).Contains(ga) {
			t.Error("P1 has not shown anything yet")
		}
		if is.Forbidden(2).Contains(ga) {
			t.Error("the leader may be running away")
		}

		legal, err := is.Legal()
		if err != nil {
			t.Fatalf("Legal: %v", err)
		}
		if want := hand(t, "G7"); legal != want {
			t.Errorf("Legal() = %v, want %v", legal, want)
		}

		moved := current(dealt, &seq)
		moved[1] = moved[1].Remove(ga).Add(engine.NewCard(engine.Gras, engine.Ten))
		moved[3] = moved[3].Remove(engine.NewCard(engine.Gras, engine.Ten)).Add(ga)
		if err := is.Check(moved); !errors.Is(err, engine.ErrInconsistentInformationSet) {
			t.Errorf("Check(ace with P3) = %v, want ErrInconsistentInformationSet", err)
		}
		if err := is.Check(current(dealt, &seq)); err != nil {
			t.Errorf("Check(truth) = %v", err)
		}
	})
}

func TestNewInfoSetRejects(t *testing.T) {
	k, dealt := dealA(t)
	seq := replay(t, &k, 0, dealAFourTricks...)
	truth := current(dealt, &seq)

	tests := []struct {
		name string
		seat engine.Seat
		hand engine.Hand
		seq  engine.Sequence
		want error
	}{
		{"bad seat", 7, truth[2], seq, engine.ErrIllegalPlay},
		{"holds a played card", 2, truth[2].Add(engine.NewCard(engine.Eichel, engine.Ace)), seq, engine.ErrInvalidCard},
		{"wrong hand size", 2, truth[2] | truth[3], seq, engine.ErrInconsistentInformationSet},
		{"declarer holds the ace", 0, hand(t, "EO", "GO", "HO", "SO", "EA", "GA", "SA", "HA"), engine.NewSequence(0), engine.ErrIllegalPlay},
		// P1 trumps with GU on the Gras lead while holding GZ.
		{"own revoke", 1, hand(t, "EU", "HU", "SU", "GZ", "HZ"), replay(t, &k, 0, "EA", "EZ", "E9", "E7", "SA", "SZ", "S9", "S7", "G7", "GU"), engine.ErrIllegalPlay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInfoSet(tt.seat, tt.hand, k, tt.seq, engine.Announcements{})
			if !errors.Is(err, tt.want) {
				t.Errorf("NewInfoSet err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInfoSetSie(t *testing.T) {
	_, dealt := dealA(t)
	k, err := engine.NewContract(engine.KindWenz, 1, 0, false, engine.Sie)
	if err != nil {
		t.Fatalf("NewContract: %v", err)
	}
	unter := k.TopTrumps()
	if unter.Count() != 4 {
		t.Fatalf("TopTrumps() = %v, want the four Unter", unter)
	}

	is := mustInfoSet(t, 2, dealt[2], k, engine.NewSequence(0), engine.Announcements{})
	for _, p := range []engine.Seat{0, 3} {
		if got := is.Forbidden(p) & unter; got != unter {
			t.Errorf("Forbidden(%v) & Unter = %v, want %v", p, got, unter)
		}
	}
	if got := is.Forbidden(1) & unter; got != 0 {
		t.Errorf("declarer excluded from %v", got)
	}

	det, err := NewDeterminizer(is)
	if err != nil {
		t.Fatalf("NewDeterminizer: %v", err)
	}
	for _, d := range det.Sample(support.NewPCG(1), 16) {
		if d[1]&unter != unter {
			t.Errorf("hypothesis %v leaves an Unter with the defenders", d)
		}
		if err := is.Check(d); err != nil {
			t.Fatalf("Check: %v", err)
		}
	}

	own, err := engine.NewContract(engine.KindWenz, 0, 0, false, engine.Sie)
	if err != nil {
		t.Fatalf("NewContract: %v", err)
	}
	if _, err := NewInfoSet(0, dealt[0], own, engine.NewSequence(0), engine.Announcements{}); !errors.Is(err, engine.ErrIllegalPlay) {
		t.Errorf("declarer without the Unter: err = %v, want ErrIllegalPlay", err)
	}

	// P0 holding an Unter contradicts P1's Sie
	withUnter := dealt[0].Remove(engine.NewCard(engine.Eichel, engine.Ace)).Add(engine.NewCard(engine.Eichel, engine.Unter))
	if _, err := NewInfoSet(0, withUnter, k, engine.NewSequence(0), engine.Announcements{}); !errors.Is(err, engine.ErrInconsistentInformationSet) {
		t.Errorf("defender with an Unter: err = %v, want ErrInconsistentInformationSet", err)
	}
}

func TestInfoSetLegalNotOnTurn(t *testing.T) {
	k, dealt := dealA(t)
	is := mustInfoSet(t, 2, dealt[2], k, engine.NewSequence(0), engine.Announcements{})
	if _, err := is.Legal(); !errors.Is(err, engine.ErrIllegalPlay) {
		t.Errorf("Legal() err = %v, want ErrIllegalPlay", err)
	}
}

func TestInfoSetCursor(t *testing.T) {
	k, dealt := dealA(t)
	seq := replay(t, &k, 0, dealAFourTricks...)
	truth := current(dealt, &seq)

	is := mustInfoSet(t, 2, truth[2], k, seq, engine.Announcements{Stoss: 1})
	cur := is.Cursor(truth)

	if cur.Hands() != [engine.NumSeats]engine.Hand(truth) {
		t.Errorf("Hands() = %v, want %v", cur.Hands(), truth)
	}
	if cur.InitialHands() != [engine.NumSeats]engine.Hand(dealt) {
		t.Errorf("InitialHands() = %v, want %v", cur.InitialHands(), dealt)
	}
	if *cur.Sequence() != seq {
		t.Error("cursor sequence differs from the view")
	}
	if cur.NextSeat() != 0 {
		t.Errorf("NextSeat() = %v, want P0", cur.NextSeat())
	}
	if cur.Announcements().Stoss != 1 {
		t.Errorf("Stoss = %d, want 1", cur.Announcements().Stoss)
	}
	if !cur.InParty(3) {
		t.Error("P3 holds the called ace but is not in the party")
	}
	if got := cur.Pips(3); got != 10+11 {
		t.Errorf("Pips(P3) = %d, want 21", got)
	}
}

func TestInfoSetFingerprint(t *testing.T) {
	k, dealt := dealA(t)
	seq := replay(t, &k, 0, dealAFourTricks...)
	truth := current(dealt, &seq)

	a := mustInfoSet(t, 2, truth[2], k, seq, engine.Announcements{})
	b := mustInfoSet(t, 2, truth[2], k, seq, engine.Announcements{})
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal views fingerprint differently")
	}

	c := mustInfoSet(t, 2, truth[2], k, seq, engine.Announcements{Doublings: 1})
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("announcements do not enter the fingerprint")
	}

	short := replay(t, &k, 0, dealAFourTricks[:15]...)
	d := mustInfoSet(t, 2, truth[2].Add(engine.NewCard(engine.Eichel, engine.King)), k, short, engine.Announcements{})
	if a.Fingerprint() == d.Fingerprint() {
		t.Error("the sequence does not enter the fingerprint")
	}
}
// randomView plays a random legal prefix of a random deal and returns the
// dealt hands, the contract and the sequence so far.
func randomView(rng *rand.Rand, i int) (engine.Contract, [engine.NumSeats]engine.Hand, engine.Sequence) {
	for {
		hands := engine.Deal(rng)
		declarer := engine.Seat(rng.IntN(engine.NumSeats))
		var k engine.Contract
		var err error
		switch i % 4 {
		case 0:
			k, err = engine.NewRufspiel(declarer, engine.Suit(rng.IntN(engine.NumSuits)))
			if err == nil {
				if ace, _ := k.CalledAce(); hands[declarer].Contains(ace) || !engine.CanCall(hands[declarer], k.Suit) {
					continue
				}
			}
		case 1:
			k, err = engine.NewSolo(declarer, engine.Suit(rng.IntN(engine.NumSuits)))
		case 2:
			k, err = engine.NewWenz(declarer)
		default:
			k = engine.NewRamsch()
		}
		if err != nil {
			continue
		}
		cur := engine.NewCursor(&k, hands, engine.Announcements{}, engine.Seat(rng.IntN(engine.NumSeats)))
		n := rng.IntN(engine.NumCards)
		for j := 0; j < n; j++ {
			cards := cur.Legal().Cards()
			cur.PlayUnchecked(cards[rng.IntN(len(cards))])
		}
		return k, hands, *cur.Sequence()
	}
}

func TestInfoSetRandomViews(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 4))
	for i := 0; i < 100; i++ {
		k, hands, seq := randomView(rng, i)
		truth := current(Deal(hands), &seq)
		for s := engine.Seat(0); s < engine.NumSeats; s++ {
			is, err := NewInfoSet(s, truth[s], k, seq, engine.Announcements{})
			if err != nil {
				t.Fatalf("view %d seat %v (%v): %v", i, s, k, err)
			}
			if err := is.Check(truth); err != nil {
				t.Fatalf("view %d seat %v: true deal rejected: %v\n%v", i, s, err, is)
			}
		}
	}
}

func TestConstraintErrorDump(t *testing.T) {
	k, dealt := dealA(t)
	is := mustInfoSet(t, 2, dealt[2], k, engine.NewSequence(0), engine.Announcements{})
	var err error = &ConstraintError{Reason: "test", is: is}
	if !errors.Is(err, engine.ErrInconsistentInformationSet) {
		t.Error("ConstraintError does not unwrap to ErrInconsistentInformationSet")
	}
	if !strings.Contains(err.Error(), "P3 needs 8") {
		t.Errorf("dump %q lacks the need of P3", err)
	}
}
