package engine

import "fmt"

// Outcome is the summary a payoff is computed from. Search evaluators build
// projected outcomes for unfinished deals.
type Outcome struct {
	Pips          [NumSeats]int
	Tricks        [NumSeats]int
	Parties       [NumSeats]bool // declarer party membership; unused in a Ramsch
	TopTrump      [NumSeats]int  // Power of the highest trump taken, -1 if none
	Laufende      int
	Announcements Announcements
}

// Payoff converts an outcome into per-seat amounts. The four amounts always
// sum to zero.
func (k *Contract) Payoff(o *Outcome) [NumSeats]int {
	if k.Kind == KindRamsch {
		return k.ramschPayoff(o)
	}
	var partyPips, partyTricks, members int
	for s := 0; s < NumSeats; s++ {
		if o.Parties[s] {
			partyPips += o.Pips[s]
			partyTricks += o.Tricks[s]
			members++
		}
	}
	oppTricks := MaxTricks - partyTricks
	lauf := 0
	if o.Laufende >= k.laufMin() {
		lauf = o.Laufende * k.Tariffs.Laufende
	}

	var win bool
	var v int
	switch k.Modifier {
	case Sie:
		win, v = true, (k.base()+lauf)*4
	case Tout:
		win, v = partyTricks == MaxTricks, (k.base()+lauf)*2
	default:
		win = partyPips >= winThreshold
		v = k.base() + lauf
		if win {
			if partyPips >= schneiderThreshold {
				v += k.Tariffs.Schneider
			}
			if oppTricks == 0 {
				v += k.Tariffs.Schwarz
			}
		} else {
			if partyPips < schneiderFree {
				v += k.Tariffs.Schneider
			}
			if partyTricks == 0 {
				v += k.Tariffs.Schwarz
			}
		}
	}
	v *= o.Announcements.multiplier()
	if !win {
		v = -v
	}

	var out [NumSeats]int
	if members != 1 && members != 2 {
		return out
	}
	share := 1
	if members == 1 {
		share = NumSeats - 1
	}
	for s := 0; s < NumSeats; s++ {
		if o.Parties[s] {
			out[s] = v * share
		} else {
			out[s] = -v
		}
	}
	return out
}

func (k *Contract) ramschPayoff(o *Outcome) [NumSeats]int {
	var out [NumSeats]int
	mult := o.Announcements.multiplier()
	for s := 0; s < NumSeats; s++ {
		if o.Tricks[s] == MaxTricks {
			v := k.Tariffs.Ramsch * mult
			for t := 0; t < NumSeats; t++ {
				out[t] = -v
			}
			out[s] = v * (NumSeats - 1)
			return out
		}
	}

	v := k.Tariffs.Ramsch * mult
	for s := 0; s < NumSeats; s++ {
		if o.Tricks[s] == 0 {
			v *= 2 // Jungfrau
		}
	}
	losers := RamschLosers(o)
	nl := 0
	for _, l := range losers {
		if l {
			nl++
		}
	}
	nw := NumSeats - nl
	for s := 0; s < NumSeats; s++ {
		if losers[s] {
			out[s] = -v * nw
		} else {
			out[s] = v * nl
		}
	}
	return out
}

// RamschLosers returns the seats that lose a Ramsch: most pips, ties broken by
// more tricks, then by the higher trump taken. Seats still tied all lose.
func RamschLosers(o *Outcome) [NumSeats]bool {
	better := func(a, b int) int {
		switch {
		case o.Pips[a] != o.Pips[b]:
			return o.Pips[a] - o.Pips[b]
		case o.Tricks[a] != o.Tricks[b]:
			return o.Tricks[a] - o.Tricks[b]
		default:
			return o.TopTrump[a] - o.TopTrump[b]
		}
	}
	worst := 0
	for s := 1; s < NumSeats; s++ {
		if better(s, worst) > 0 {
			worst = s
		}
	}
	var out [NumSeats]bool
	for s := 0; s < NumSeats; s++ {
		out[s] = better(s, worst) == 0
	}
	return out
}

// ---------------------------------------------------------------------------
// Score a complete deal
// ---------------------------------------------------------------------------

// TrickTrace records one trick of a scored deal.
type TrickTrace struct {
	Leader Seat
	Cards  [NumSeats]Card // in play order from Leader
	Winner Seat
	Pips   int
}

// Score is the result of scoring a complete deal.
type Score struct {
	Contract Contract
	Payoffs  [NumSeats]int
	Outcome  Outcome
	Trace    []TrickTrace
}

// ScoreDeal replays a complete deal and returns the payoff with a per-trick
// derivation. The payoffs sum to zero and the traced pips to 120.
func ScoreDeal(sn *Snapshot) (*Score, error) {
	if !sn.Sequence.Finished() {
		return nil, fmt.Errorf("%w: deal has %d of %d cards", ErrIllegalPlay, sn.Sequence.Len(), NumCards)
	}
	cur, err := sn.Cursor()
	if err != nil {
		return nil, err
	}
	pay, err := cur.Payoff()
	if err != nil {
		return nil, err
	}
	sc := &Score{Contract: sn.Contract, Payoffs: pay, Outcome: cur.Outcome()}
	total, sum := 0, 0
	for _, t := range cur.Sequence().Completed() {
		w, err := sn.Contract.TrickWinner(&t)
		if err != nil {
			return nil, err
		}
		sc.Trace = append(sc.Trace, TrickTrace{Leader: t.Leader, Cards: t.Cards, Winner: w, Pips: t.Pips()})
		total += t.Pips()
	}
	for _, p := range pay {
		sum += p
	}
	if total != TotalPips {
		return nil, invariant("pip total", "tricks carry %d pips", total)
	}
	if sum != 0 {
		return nil, invariant("payoff sum", "payoffs %v sum to %d", pay, sum)
	}
	return sc, nil
}
