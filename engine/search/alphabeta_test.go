package search

import (
	"math"
	"math/rand/v2"
	"testing"

	engine "github.com/phimuemue/openschafkopf-sub003/engine"
	"github.com/phimuemue/openschafkopf-sub003/engine/support"
)

// randomPosition deals, picks a contract the deal allows and plays n random
// legal cards.
func randomPosition(t testing.TB, rng *rand.Rand, i, n int) *engine.Cursor {
	t.Helper()
	hands := engine.Deal(rng)
	declarer := engine.Seat(rng.IntN(engine.NumSeats))
	var k engine.Contract
	var err error
	switch i % 4 {
	case 0:
		k, err = engine.NewSolo(declarer, engine.Suit(rng.IntN(engine.NumSuits)))
		for s := engine.Eichel; s < engine.NumSuits; s++ {
			if engine.CanCall(hands[declarer], s) {
				k, err = engine.NewRufspiel(declarer, s)
				break
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
		t.Fatalf("contract: %v", err)
	}
	cur := engine.NewCursor(&k, hands, engine.Announcements{}, engine.Seat(rng.IntN(engine.NumSeats)))
	for j := 0; j < n; j++ {
		cards := cur.Legal().Cards()
		cur.PlayUnchecked(cards[rng.IntN(len(cards))])
	}
	return cur
}

func near(a, b float64) bool { return math.Abs(a-b) <= 1e-9 }

func TestAlphaBetaMatchesMinimax(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 8))
	opts := DefaultOptions()
	for i := 0; i < 60; i++ {
		// 20..23 cards played: three tricks left, exact search
		cur := randomPosition(t, rng, i, 20+i%4)
		want := Minimax(cur, opts, nil)

		s := NewSearcher(nil, nil)
		got := s.Search(cur, opts)
		if !got.Exact {
			t.Errorf("position %d: search not exact", i)
		}
		if !near(got.Value, want) {
			t.Errorf("position %d: Search = %v, Minimax = %v", i, got.Value, want)
		}
		if !cur.Legal().Contains(got.Best) {
			t.Errorf("position %d: best %v not legal", i, got.Best)
		}
		if s.Nodes.Load() == 0 {
			t.Errorf("position %d: no nodes counted", i)
		}

		withTable := NewSearcher(nil, NewTable(1<<14))
		if v := withTable.Search(cur, opts).Value; !near(v, want) {
			t.Errorf("position %d with table: Search = %v, Minimax = %v", i, v, want)
		}
	}
}

func TestAlphaBetaMatchesMinimaxAtHorizon(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 1))
	opts := DefaultOptions()
	for i := 0; i < 12; i++ {
		// five tricks left: evaluate after the current trick and one more
		cur := randomPosition(t, rng, i, 12+i%4)
		if n := cur.Sequence().RemainingTricks(); n != 5 {
			t.Fatalf("position %d: %d tricks left, want 5", i, n)
		}
		want := Minimax(cur, opts, nil)
		got := NewSearcher(nil, NewTable(1<<14)).Search(cur, opts)
		if got.Exact {
			t.Errorf("position %d: horizon search reported exact", i)
		}
		if !near(got.Value, want) {
			t.Errorf("position %d: Search = %v, Minimax = %v", i, got.Value, want)
		}
	}
}

func TestSearchLeavesCursorUntouched(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	cur := randomPosition(t, rng, 0, 17)
	before := *cur
	NewSearcher(nil, NewTable(1024)).Search(cur, DefaultOptions())
	NewSearcher(nil, nil).RankRoot(cur, DefaultOptions())
	if before != *cur {
		t.Error("search modified the cursor")
	}
}

func TestRankRoot(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 4))
	opts := DefaultOptions()
	for i := 0; i < 20; i++ {
		cur := randomPosition(t, rng, i, 21)
		s := NewSearcher(nil, NewTable(1<<12))
		rank := s.RankRoot(cur, opts)
		if rank.Cancelled {
			t.Fatalf("position %d: cancelled without a token", i)
		}
		if len(rank.Cards) != cur.Legal().Count() {
			t.Fatalf("position %d: %d ranked cards, %d legal", i, len(rank.Cards), cur.Legal().Count())
		}

		best := rank.Cards[0].Value
		for _, cv := range rank.Cards {
			best = max(best, cv.Value)
			if want := MinimaxAfter(cur, cv.Card, opts, nil); !near(cv.Value, want) {
				t.Errorf("position %d card %v: RankRoot = %v, Minimax = %v", i, cv.Card, cv.Value, want)
			}
		}
		// the root seat is always on its own team, so it maximizes
		if v := s.Search(cur, opts).Value; !near(v, best) {
			t.Errorf("position %d: Search = %v, best ranked %v", i, v, best)
		}
	}
}

func TestSearchCancelled(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	cur := randomPosition(t, rng, 1, 0)
	tok := &support.Token{}
	tok.Cancel()
	opts := DefaultOptions()
	opts.Token = tok

	res := NewSearcher(nil, nil).Search(cur, opts)
	if !res.Cancelled {
		t.Error("Search ignored a cancelled token")
	}
	if !cur.Legal().Contains(res.Best) {
		t.Errorf("cancelled Search best %v not legal", res.Best)
	}

	rank := NewSearcher(nil, nil).RankRoot(cur, opts)
	if !rank.Cancelled || len(rank.Cards) != 0 {
		t.Errorf("RankRoot = %+v, want cancelled and empty", rank)
	}
}

func TestSearchLastCard(t *testing.T) {
	rng := rand.New(rand.NewPCG(6, 6))
	cur := randomPosition(t, rng, 2, engine.NumCards-1)
	root := cur.NextSeat()
	last := cur.Legal()
	if last.Count() != 1 {
		t.Fatalf("%d legal cards before the last play", last.Count())
	}

	res := NewSearcher(nil, nil).Search(cur, DefaultOptions())
	if res.Best != last.Lowest() {
		t.Errorf("Best = %v, want %v", res.Best, last.Lowest())
	}
	cur.PlayUnchecked(res.Best)
	pay, err := cur.Payoff()
	if err != nil {
		t.Fatalf("Payoff: %v", err)
	}
	if res.Value != float64(pay[root]) {
		t.Errorf("Value = %v, want payoff %d", res.Value, pay[root])
	}

	if best := NewSearcher(nil, nil).Search(cur, DefaultOptions()).Best; best != engine.NoCard {
		t.Errorf("finished deal: Best = %v, want NoCard", best)
	}
}

func TestStopTrick(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	opts := DefaultOptions()
	tests := []struct {
		played int
		want   int
	}{
		{0, 2}, {3, 2}, {4, 3}, {16, 6}, {19, 6}, {20, engine.MaxTricks}, {31, engine.MaxTricks},
	}
	for _, tt := range tests {
		cur := randomPosition(t, rng, 1, tt.played)
		if got := opts.StopTrick(cur); got != tt.want {
			t.Errorf("StopTrick after %d cards = %d, want %d", tt.played, got, tt.want)
		}
	}
}
