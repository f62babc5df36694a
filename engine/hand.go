package engine

import (
	"math/bits"
	"strings"
)

// Hand is a set of cards backed by a 32-bit bitset; bit i is Card(i).
type Hand uint32

// FullDeck contains all 32 cards.
const FullDeck Hand = 0xFFFFFFFF

// HandOf builds a hand from the given cards.
func HandOf(cards ...Card) Hand {
	var h Hand
	for _, c := range cards {
		h = h.Add(c)
	}
	return h
}

// SuitMask returns every card of the natural suit s.
func SuitMask(s Suit) Hand { return Hand(0xFF) << (uint(s) * 8) }

// RankMask returns the four cards of rank r.
func RankMask(r Rank) Hand {
	return Hand(0x01010101) << uint(r)
}

// Contains reports whether c is in the hand.
func (h Hand) Contains(c Card) bool { return c.Valid() && h&(1<<c) != 0 }

// Add returns h with c inserted.
func (h Hand) Add(c Card) Hand { return h | 1<<c }

// Remove returns h without c.
func (h Hand) Remove(c Card) Hand { return h &^ (1 << c) }

// Count returns the number of cards.
func (h Hand) Count() int { return bits.OnesCount32(uint32(h)) }

// Empty reports whether the hand holds no card.
func (h Hand) Empty() bool { return h == 0 }

// Lowest returns the card with the smallest index, or NoCard on an empty hand.
func (h Hand) Lowest() Card {
	if h == 0 {
		return NoCard
	}
	return Card(bits.TrailingZeros32(uint32(h)))
}

// Pop splits off the lowest card. Iterates without allocating:
//
//	for rest := h; rest != 0; {
//		var c Card
//		c, rest = rest.Pop()
//	}
func (h Hand) Pop() (Card, Hand) {
	c := h.Lowest()
	return c, h & (h - 1)
}

// Cards returns the cards in ascending index order.
func (h Hand) Cards() []Card {
	out := make([]Card, 0, h.Count())
	for rest := h; rest != 0; {
		var c Card
		c, rest = rest.Pop()
		out = append(out, c)
	}
	return out
}

// Pips returns the summed pips of the hand.
func (h Hand) Pips() int {
	n := 0
	for r := Unter; r < NumRanks; r++ {
		n += (h & RankMask(r)).Count() * r.Pips()
	}
	return n
}

// String renders the hand as space separated card notations.
func (h Hand) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, c := range h.Cards() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(c.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
