package engine

import (
	"fmt"
	"strings"
)

// Suit is one of the four German suits.
type Suit uint8

// Suit constants. The numeric values are part of the external card encoding.
const (
	Eichel   Suit = 0
	Gras     Suit = 1
	Herz     Suit = 2
	Schellen Suit = 3
)

// NumSuits is the number of natural suits.
const NumSuits = 4

var suitLetters = [NumSuits]byte{'E', 'G', 'H', 'S'}
var suitNames = [NumSuits]string{"Eichel", "Gras", "Herz", "Schellen"}

// String returns the German suit name.
func (s Suit) String() string {
	if s >= NumSuits {
		return fmt.Sprintf("Suit(%d)", uint8(s))
	}
	return suitNames[s]
}

// ParseSuit accepts a suit name or its first letter, case-insensitive.
func ParseSuit(s string) (Suit, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	for i, name := range suitNames {
		n := strings.ToLower(name)
		if t == n || (len(t) == 1 && t[0] == n[0]) {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown suit %q", ErrInvalidCard, s)
}

// Rank is the face of a card. Ordered by natural strength within a plain suit.
type Rank uint8

// Rank constants. The numeric values are part of the external card encoding.
const (
	Seven Rank = 0
	Eight Rank = 1
	Nine  Rank = 2
	Unter Rank = 3
	Ober  Rank = 4
	King  Rank = 5
	Ten   Rank = 6
	Ace   Rank = 7
)

// NumRanks is the number of ranks per suit.
const NumRanks = 8

var rankLetters = [NumRanks]byte{'7', '8', '9', 'U', 'O', 'K', 'Z', 'A'}

// pips per rank: 7, 8, 9 → 0; Unter 2; Ober 3; King 4; Ten 10; Ace 11.
var rankPips = [NumRanks]uint8{0, 0, 0, 2, 3, 4, 10, 11}

// String returns the single-letter rank notation.
func (r Rank) String() string {
	if r >= NumRanks {
		return fmt.Sprintf("Rank(%d)", uint8(r))
	}
	return string(rankLetters[r])
}

// Pips returns the point value of the rank.
func (r Rank) Pips() int { return int(rankPips[r&7]) }

// Card is a dense 5-bit card index: suit*8 + rank.
// The raw order is stable but carries no meaning outside a contract.
type Card uint8

// NumCards is the size of the Schafkopf deck.
const NumCards = 32

// NoCard represents the absence of a card.
const NoCard Card = 0xFF

// TotalPips is the sum of pips over the whole deck.
const TotalPips = 120

// NewCard constructs a Card from suit and rank.
func NewCard(s Suit, r Rank) Card { return Card(uint8(s)<<3 | uint8(r)&7) }

// Suit returns the natural suit of the card.
func (c Card) Suit() Suit { return Suit(uint8(c) >> 3) }

// Rank returns the rank of the card.
func (c Card) Rank() Rank { return Rank(uint8(c) & 7) }

// Valid reports whether c is one of the 32 cards.
func (c Card) Valid() bool { return c < NumCards }

// Pips returns the point value of the card.
func (c Card) Pips() int { return int(rankPips[c&7]) }

// String renders the card as suit letter + rank letter, e.g. "EO", "HZ", "S7".
func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	return string([]byte{suitLetters[c.Suit()], rankLetters[c.Rank()]})
}

// ParseCard parses the two-letter notation produced by String.
// "10" is accepted as an alias for the Zehn rank letter Z.
func ParseCard(s string) (Card, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	t = strings.Replace(t, "10", "Z", 1)
	if len(t) != 2 {
		return NoCard, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	si := strings.IndexByte(string(suitLetters[:]), t[0])
	ri := strings.IndexByte(string(rankLetters[:]), t[1])
	if si < 0 || ri < 0 {
		return NoCard, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	return NewCard(Suit(si), Rank(ri)), nil
}

// ParseCards parses a list of card notations.
func ParseCards(ss []string) ([]Card, error) {
	out := make([]Card, 0, len(ss))
	for _, s := range ss {
		c, err := ParseCard(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// External byte encoding
// ---------------------------------------------------------------------------

// UnknownCardByte is the wire sentinel for a card that is not known.
const UnknownCardByte byte = 0xFF

// EncodeCard returns the wire byte of c: high 3 bits suit, low 5 bits rank.
// NoCard encodes as UnknownCardByte.
func EncodeCard(c Card) byte {
	if !c.Valid() {
		return UnknownCardByte
	}
	return byte(c.Suit())<<5 | byte(c.Rank())
}

// DecodeCard parses a wire byte. UnknownCardByte decodes to NoCard without error.
func DecodeCard(b byte) (Card, error) {
	if b == UnknownCardByte {
		return NoCard, nil
	}
	s, r := b>>5, b&0x1F
	if s >= NumSuits || r >= NumRanks {
		return NoCard, fmt.Errorf("%w: byte 0x%02x", ErrInvalidCard, b)
	}
	return NewCard(Suit(s), Rank(r)), nil
}

// ---------------------------------------------------------------------------
// Seats
// ---------------------------------------------------------------------------

// Seat is a player position, cyclic in turn order.
type Seat uint8

// NumSeats is the number of players at the table.
const NumSeats = 4

// NoSeat marks an absent seat (e.g. the declarer of a Ramsch).
const NoSeat Seat = 0xFF

// Next returns the seat that plays after s.
func (s Seat) Next() Seat { return (s + 1) % NumSeats }

// Add returns the seat n positions after s.
func (s Seat) Add(n int) Seat { return Seat((int(s) + n) % NumSeats) }

// Valid reports whether s is one of P0..P3.
func (s Seat) Valid() bool { return s < NumSeats }

// String renders the seat as P0..P3.
func (s Seat) String() string {
	if !s.Valid() {
		return "P-"
	}
	return fmt.Sprintf("P%d", uint8(s))
}
