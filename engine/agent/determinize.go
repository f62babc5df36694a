package agent

import (
	"fmt"

	engine "github.com/phimuemue/openschafkopf-sub003/engine"
	"github.com/phimuemue/openschafkopf-sub003/engine/support"
)

const (
	numOpps   = engine.NumSeats - 1
	capRadix  = engine.CardsPerHand + 1
	capStates = capRadix * capRadix * capRadix
)

// group is a set of unseen cards sharing the same set of possible holders.
type group struct {
	mask  uint8 // bit i: opponent i may hold these cards
	cards engine.Hand
	n     int
}

// Determinizer assigns the unseen cards of an information set to the three
// opponents. Cards are grouped by the set of opponents allowed to hold them;
// a dynamic program over the remaining hand capacities counts the consistent
// assignments exactly, which gives both exhaustive enumeration and exactly
// uniform sampling without rejection.
type Determinizer struct {
	is     *InfoSet
	opps   [numOpps]engine.Seat
	need   [numOpps]int
	groups []group
	memo   [][capStates]uint64
	known  [][capStates]bool
	count  uint64
}

// NewDeterminizer prepares the counting tables. It fails with a
// *ConstraintError when no assignment exists.
func NewDeterminizer(is *InfoSet) (*Determinizer, error) {
	d := &Determinizer{is: is, opps: is.Opponents()}
	for i, p := range d.opps {
		d.need[i] = is.Need(p)
	}

	var byMask [1 << numOpps]engine.Hand
	for rest := is.Unseen(); rest != 0; {
		var c engine.Card
		c, rest = rest.Pop()
		var mask uint8
		for i, p := range d.opps {
			if !is.forbidden[p].Contains(c) {
				mask |= 1 << i
			}
		}
		if mask == 0 {
			return nil, &ConstraintError{Reason: fmt.Sprintf("no opponent can hold %v", c), is: is}
		}
		byMask[mask] = byMask[mask].Add(c)
	}
	for m, cards := range byMask {
		if cards != 0 {
			d.groups = append(d.groups, group{mask: uint8(m), cards: cards, n: cards.Count()})
		}
	}
	d.memo = make([][capStates]uint64, len(d.groups)+1)
	d.known = make([][capStates]bool, len(d.groups)+1)

	d.count = d.ways(0, d.need)
	if d.count == 0 {
		return nil, &ConstraintError{Reason: "no assignment of the unseen cards satisfies hand sizes and exclusions", is: is}
	}
	return d, nil
}

// Count returns the number of consistent assignments.
func (d *Determinizer) Count() uint64 { return d.count }

// InfoSet returns the information set being determinized.
func (d *Determinizer) InfoSet() *InfoSet { return d.is }

func capIndex(c [numOpps]int) int { return (c[0]*capRadix+c[1])*capRadix + c[2] }

// splits calls fn for every way to distribute group g over the capacities c,
// with the multinomial number of card choices for that split. fn returns
// false to stop.
func (d *Determinizer) splits(g int, c [numOpps]int, fn func(a [numOpps]int, choices uint64) bool) {
	gr := &d.groups[g]
	limit := func(i int) int {
		if gr.mask&(1<<i) == 0 {
			return 0
		}
		return c[i]
	}
	for a0 := 0; a0 <= min(gr.n, limit(0)); a0++ {
		for a1 := 0; a1 <= min(gr.n-a0, limit(1)); a1++ {
			a2 := gr.n - a0 - a1
			if a2 > limit(2) {
				continue
			}
			if !fn([numOpps]int{a0, a1, a2}, binom(gr.n, a0)*binom(gr.n-a0, a1)) {
				return
			}
		}
	}
}

// ways counts the assignments of groups g.. into capacities c.
func (d *Determinizer) ways(g int, c [numOpps]int) uint64 {
	if g == len(d.groups) {
		if c == [numOpps]int{} {
			return 1
		}
		return 0
	}
	idx := capIndex(c)
	if d.known[g][idx] {
		return d.memo[g][idx]
	}
	var total uint64
	d.splits(g, c, func(a [numOpps]int, choices uint64) bool {
		if rest := d.ways(g+1, sub(c, a)); rest != 0 {
			total += choices * rest
		}
		return true
	})
	d.memo[g][idx], d.known[g][idx] = total, true
	return total
}

func sub(c, a [numOpps]int) [numOpps]int {
	return [numOpps]int{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
}

// Sample draws k independent, exactly uniform assignments.
func (d *Determinizer) Sample(src support.Source, k int) []Deal {
	out := make([]Deal, k)
	for i := range out {
		out[i] = d.SampleOne(src)
	}
	return out
}

// SampleOne draws one exactly uniform assignment.
func (d *Determinizer) SampleOne(src support.Source) Deal {
	var deal Deal
	deal[d.is.Seat] = d.is.Hand
	c := d.need
	for g := range d.groups {
		r := uniform64(src, d.ways(g, c))
		var pick [numOpps]int
		d.splits(g, c, func(a [numOpps]int, choices uint64) bool {
			w := choices * d.ways(g+1, sub(c, a))
			if r < w {
				pick = a
				return false
			}
			r -= w
			return true
		})
		cards := d.groups[g].cards.Cards()
		src.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
		at := 0
		for i, n := range pick {
			p := d.opps[i]
			deal[p] |= engine.HandOf(cards[at : at+n]...)
			at += n
		}
		c = sub(c, pick)
	}
	return deal
}

// Enumerate returns every consistent assignment in a deterministic order, or
// false when there are more than limit.
func (d *Determinizer) Enumerate(limit uint64) ([]Deal, bool) {
	if d.count > limit {
		return nil, false
	}
	out := make([]Deal, 0, d.count)
	var deal Deal
	deal[d.is.Seat] = d.is.Hand
	var rec func(g int, c [numOpps]int)
	rec = func(g int, c [numOpps]int) {
		if g == len(d.groups) {
			out = append(out, deal)
			return
		}
		cards := d.groups[g].cards
		d.splits(g, c, func(a [numOpps]int, _ uint64) bool {
			rest := sub(c, a)
			if d.ways(g+1, rest) == 0 {
				return true
			}
			p0, p1, p2 := d.opps[0], d.opps[1], d.opps[2]
			subsets(cards, a[0], func(s0 engine.Hand) {
				subsets(cards&^s0, a[1], func(s1 engine.Hand) {
					s2 := cards &^ s0 &^ s1
					h0, h1, h2 := deal[p0], deal[p1], deal[p2]
					deal[p0], deal[p1], deal[p2] = h0|s0, h1|s1, h2|s2
					rec(g+1, rest)
					deal[p0], deal[p1], deal[p2] = h0, h1, h2
				})
			})
			return true
		})
	}
	rec(0, d.need)
	return out, true
}

// subsets calls fn for every k-card subset of h.
func subsets(h engine.Hand, k int, fn func(engine.Hand)) {
	if k == 0 {
		fn(0)
		return
	}
	if h.Count() < k {
		return
	}
	c, rest := h.Pop()
	subsets(rest, k-1, func(s engine.Hand) { fn(s.Add(c)) })
	subsets(rest, k, fn)
}

// binom returns n choose k for the small n of a card group.
func binom(n, k int) uint64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	r := uint64(1)
	for i := 1; i <= k; i++ {
		r = r * uint64(n-k+i) / uint64(i)
	}
	return r
}

// uniform64 draws uniformly from [0, n) without modulo bias.
func uniform64(src support.Source, n uint64) uint64 {
	if n <= 1<<31 {
		return uint64(src.IntN(int(n)))
	}
	limit := ^uint64(0) - ^uint64(0)%n
	for {
		if x := src.Uint64(); x < limit {
			return x % n
		}
	}
}
