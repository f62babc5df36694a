package engine

import "fmt"

// Kind enumerates the closed set of supported contracts.
type Kind uint8

const (
	KindRufspiel Kind = iota + 1 // partner game, declarer calls an ace
	KindSolo                     // suit solo: Obers, Unters and a trump suit
	KindWenz                     // Unters only, optionally plus a trump suit (Farbwenz)
	KindGeier                    // Obers only, optionally plus a trump suit (Farbgeier)
	KindRamsch                   // no declarer, most pips loses
)

var kindNames = map[Kind]string{
	KindRufspiel: "Rufspiel",
	KindSolo:     "Solo",
	KindWenz:     "Wenz",
	KindGeier:    "Geier",
	KindRamsch:   "Ramsch",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Modifier strengthens a solo-family contract.
type Modifier uint8

const (
	Plain Modifier = iota
	Tout           // declarer announces to take every trick
	Sie            // declarer holds every top trump; pays as a doubled Tout
)

func (m Modifier) String() string {
	switch m {
	case Tout:
		return "Tout"
	case Sie:
		return "Sie"
	default:
		return ""
	}
}

// EffSuit is the suit a card belongs to for follow-suit purposes: one of the
// natural suits, or TrumpSuit for every trump regardless of its natural suit.
type EffSuit uint8

// TrumpSuit is the effective suit shared by all trumps.
const TrumpSuit EffSuit = NumSuits

// NumEffSuits counts the natural suits plus the trump suit.
const NumEffSuits = NumSuits + 1

func (e EffSuit) String() string {
	if e == TrumpSuit {
		return "Trumpf"
	}
	return Suit(e).String()
}

// Contract is a tagged variant over the supported game types. It is an
// immutable value once constructed; lookup tables are filled by the
// constructor so the search loop never branches on Kind to order cards.
type Contract struct {
	Kind     Kind
	Declarer Seat // NoSeat for Ramsch
	Suit     Suit // called suit (Rufspiel) or trump suit (Solo, Farbwenz, Farbgeier)
	Farb     bool // Wenz/Geier carry Suit as an additional trump suit
	Modifier Modifier
	Tariffs  Tariffs

	trumps    Hand
	trumpSuit Suit
	hasSuit   bool
	order     [14]Card // trumps, strongest first
	nTrumps   uint8
	power     [NumCards]uint8
	suits     [NumEffSuits]Hand
}

// NewContract validates the parameters of a contract and builds its tables.
// suit is ignored where the kind takes no suit (plain Wenz, Geier, Ramsch).
func NewContract(kind Kind, declarer Seat, suit Suit, farb bool, mod Modifier) (Contract, error) {
	k := Contract{Kind: kind, Declarer: declarer, Suit: suit, Farb: farb, Modifier: mod, Tariffs: DefaultTariffs()}
	switch kind {
	case KindRufspiel:
		if suit == Herz || suit >= NumSuits {
			return Contract{}, fmt.Errorf("%w: cannot call the %v ace", ErrIllegalPlay, suit)
		}
		k.Farb = false
		k.trumpSuit, k.hasSuit = Herz, true
	case KindSolo:
		if suit >= NumSuits {
			return Contract{}, fmt.Errorf("%w: solo suit %v", ErrIllegalPlay, suit)
		}
		k.Farb = false
		k.trumpSuit, k.hasSuit = suit, true
	case KindWenz, KindGeier:
		if farb {
			if suit >= NumSuits {
				return Contract{}, fmt.Errorf("%w: farb suit %v", ErrIllegalPlay, suit)
			}
			k.trumpSuit, k.hasSuit = suit, true
		} else {
			k.Suit = 0
		}
	case KindRamsch:
		k.Declarer = NoSeat
		k.Suit, k.Farb = 0, false
		k.trumpSuit, k.hasSuit = Herz, true
	default:
		return Contract{}, fmt.Errorf("%w: unknown contract kind %d", ErrIllegalPlay, kind)
	}
	if kind != KindRamsch && !declarer.Valid() {
		return Contract{}, fmt.Errorf("%w: declarer seat %d", ErrIllegalPlay, declarer)
	}
	if mod != Plain && (kind == KindRufspiel || kind == KindRamsch) {
		return Contract{}, fmt.Errorf("%w: %v cannot be played %v", ErrIllegalPlay, kind, mod)
	}
	if mod > Sie {
		return Contract{}, fmt.Errorf("%w: unknown modifier %d", ErrIllegalPlay, mod)
	}
	k.build()
	return k, nil
}

// NewRufspiel calls the ace of the given suit.
func NewRufspiel(declarer Seat, called Suit) (Contract, error) {
	return NewContract(KindRufspiel, declarer, called, false, Plain)
}

// NewSolo declares a suit solo.
func NewSolo(declarer Seat, trump Suit) (Contract, error) {
	return NewContract(KindSolo, declarer, trump, false, Plain)
}

// NewWenz declares a Wenz.
func NewWenz(declarer Seat) (Contract, error) {
	return NewContract(KindWenz, declarer, 0, false, Plain)
}

// NewRamsch returns the no-declarer avoidance game.
func NewRamsch() Contract {
	k, _ := NewContract(KindRamsch, NoSeat, 0, false, Plain)
	return k
}

// WithTariffs returns a copy of k paying with t.
func (k Contract) WithTariffs(t Tariffs) Contract {
	k.Tariffs = t
	return k
}

func (k *Contract) build() {
	var matadors []Rank
	switch k.Kind {
	case KindWenz:
		matadors = []Rank{Unter}
	case KindGeier:
		matadors = []Rank{Ober}
	default:
		matadors = []Rank{Ober, Unter}
	}
	n := 0
	for _, r := range matadors {
		for s := Eichel; s < NumSuits; s++ {
			k.order[n] = NewCard(s, r)
			n++
		}
	}
	if k.hasSuit {
		for r := int(Ace); r >= int(Seven); r-- {
			c := NewCard(k.trumpSuit, Rank(r))
			if isMatador(Rank(r), matadors) {
				continue
			}
			k.order[n] = c
			n++
		}
	}
	k.nTrumps = uint8(n)
	k.trumps = HandOf(k.order[:n]...)
	for c := Card(0); c < NumCards; c++ {
		k.power[c] = uint8(c.Rank())
	}
	for i := 0; i < n; i++ {
		k.power[k.order[i]] = uint8(NumRanks + n - i)
	}
	for s := Eichel; s < NumSuits; s++ {
		k.suits[s] = SuitMask(s) &^ k.trumps
	}
	k.suits[TrumpSuit] = k.trumps
}

func isMatador(r Rank, matadors []Rank) bool {
	for _, m := range matadors {
		if m == r {
			return true
		}
	}
	return false
}

// String renders e.g. "Rufspiel P1 auf die Gras", "Herz-Solo Tout P0".
func (k Contract) String() string {
	switch k.Kind {
	case KindRufspiel:
		return fmt.Sprintf("Rufspiel %v auf die %v", k.Declarer, k.Suit)
	case KindRamsch:
		return "Ramsch"
	}
	name := k.Kind.String()
	if k.Kind == KindSolo {
		name = k.Suit.String() + "-Solo"
	} else if k.Farb {
		name = k.Suit.String() + "-Farb" + toLowerName(name)
	}
	if k.Modifier != Plain {
		name += " " + k.Modifier.String()
	}
	return fmt.Sprintf("%s %v", name, k.Declarer)
}

func toLowerName(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// ---------------------------------------------------------------------------
// Trump structure
// ---------------------------------------------------------------------------

// IsTrump reports whether c is a trump under this contract.
func (k *Contract) IsTrump(c Card) bool { return k.trumps.Contains(c) }

// Trumps returns the set of all trumps.
func (k *Contract) Trumps() Hand { return k.trumps }

// TopTrumps returns the Ober and Unter among the trumps, the cards a Sie
// declarer must hold.
func (k *Contract) TopTrumps() Hand { return k.trumps & (RankMask(Ober) | RankMask(Unter)) }

// TrumpOrder returns the trumps from strongest to weakest.
func (k *Contract) TrumpOrder() []Card { return append([]Card(nil), k.order[:k.nTrumps]...) }

// TrumpSuit returns the natural suit whose plain cards are trumps, if any.
func (k *Contract) TrumpSuit() (Suit, bool) { return k.trumpSuit, k.hasSuit }

// CalledAce returns the called ace of a Rufspiel.
func (k *Contract) CalledAce() (Card, bool) {
	if k.Kind != KindRufspiel {
		return NoCard, false
	}
	return NewCard(k.Suit, Ace), true
}

// Power is a total ordering key: every trump outranks every plain card, trumps
// are ordered by the contract's trump table, plain cards by rank. Plain cards of
// different suits are only comparable through the lead (see Beats).
func (k *Contract) Power(c Card) int { return int(k.power[c&31]) }

// EffectiveSuit returns TrumpSuit for trumps and the natural suit otherwise.
func (k *Contract) EffectiveSuit(c Card) EffSuit {
	if k.trumps.Contains(c) {
		return TrumpSuit
	}
	return EffSuit(c.Suit())
}

// SuitCards returns all cards of an effective suit.
func (k *Contract) SuitCards(e EffSuit) Hand { return k.suits[e] }

// Beats reports whether c takes the trick from best, given the lead's effective suit.
func (k *Contract) Beats(c, best Card, lead EffSuit) bool {
	ct, bt := k.IsTrump(c), k.IsTrump(best)
	switch {
	case ct && !bt:
		return true
	case !ct && bt:
		return false
	case ct && bt:
		return k.power[c] > k.power[best]
	}
	if EffSuit(c.Suit()) != lead {
		return false
	}
	if EffSuit(best.Suit()) != lead {
		return true
	}
	return k.power[c] > k.power[best]
}

// ---------------------------------------------------------------------------
// Parties
// ---------------------------------------------------------------------------

// Partner returns the holder of the called ace in the given initial hands, or
// NoSeat when the contract has no partner.
func (k *Contract) Partner(hands *[NumSeats]Hand) Seat {
	ace, ok := k.CalledAce()
	if !ok {
		return NoSeat
	}
	for s := Seat(0); s < NumSeats; s++ {
		if hands[s].Contains(ace) {
			return s
		}
	}
	return NoSeat
}

// Parties returns, per seat, whether it belongs to the declarer party. In a
// Ramsch every seat plays alone and all entries are false.
func (k *Contract) Parties(hands *[NumSeats]Hand) [NumSeats]bool {
	var p [NumSeats]bool
	if k.Kind == KindRamsch {
		return p
	}
	p[k.Declarer] = true
	if partner := k.Partner(hands); partner != NoSeat {
		p[partner] = true
	}
	return p
}

// Laufende counts the consecutive top trumps held by one party in the initial
// hands, starting from the strongest trump. Ramsch has no Laufende.
func (k *Contract) Laufende(hands *[NumSeats]Hand) int {
	if k.Kind == KindRamsch || k.nTrumps == 0 {
		return 0
	}
	party := k.Parties(hands)
	holder := func(c Card) bool {
		for s := Seat(0); s < NumSeats; s++ {
			if hands[s].Contains(c) {
				return party[s]
			}
		}
		return false
	}
	first := holder(k.order[0])
	n := 1
	for n < int(k.nTrumps) && holder(k.order[n]) == first {
		n++
	}
	return n
}

// CanCall reports whether a declarer holding hand may call the ace of s: the
// suit must not be Herz, the declarer must not hold the ace, and must hold
// another plain card of the suit.
func CanCall(hand Hand, s Suit) bool {
	if s == Herz || s >= NumSuits {
		return false
	}
	plain := SuitMask(s) &^ RankMask(Ober) &^ RankMask(Unter)
	ace := NewCard(s, Ace)
	return !hand.Contains(ace) && hand&plain.Remove(ace) != 0
}
