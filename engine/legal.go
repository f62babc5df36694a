package engine

import "fmt"

// davonlaufenMin is the number of called-suit cards the ace holder must have
// been dealt to lead away from the called ace.
const davonlaufenMin = 4

// LegalPlays returns the cards the seat on turn may play from hand. Following
// is by effective suit: a trump lead must be answered with a trump, a plain
// lead with a plain card of the same natural suit; a seat that cannot follow
// may play anything. In a Rufspiel the holder of the called ace is further
// restricted until the called suit has been led.
func (k *Contract) LegalPlays(hand Hand, seq *Sequence) (Hand, error) {
	if seq.Finished() {
		return 0, illegalPlay(NoSeat, NoCard, MaxTricks-1, "deal already finished")
	}
	seat := seq.NextSeat()
	if hand.Empty() {
		return 0, illegalPlay(seat, NoCard, seq.TrickIndex(), "empty hand")
	}
	if hand.Count() == 1 {
		return hand, nil
	}
	t := seq.Current()
	if t.Empty() {
		return k.legalLead(hand, seq, seat), nil
	}
	lead := k.EffectiveSuit(t.Cards[0])
	follow := hand & k.suits[lead]
	if k.Kind == KindRufspiel {
		ace := NewCard(k.Suit, Ace)
		if hand.Contains(ace) {
			called := EffSuit(k.Suit)
			if lead == called {
				return HandOf(ace), nil
			}
			if follow == 0 && !seq.suitLedBefore(k, called) {
				return hand.Remove(ace), nil
			}
		}
	}
	if follow != 0 {
		return follow, nil
	}
	return hand, nil
}

// legalLead restricts the ace holder of a Rufspiel: before the called suit has
// been led, they may lead the ace itself but no other card of that suit, unless
// they were dealt at least four of them.
func (k *Contract) legalLead(hand Hand, seq *Sequence, seat Seat) Hand {
	if k.Kind != KindRufspiel {
		return hand
	}
	ace := NewCard(k.Suit, Ace)
	if !hand.Contains(ace) {
		return hand
	}
	called := EffSuit(k.Suit)
	if seq.suitLedBefore(k, called) {
		return hand
	}
	suit := k.suits[called]
	if ((hand | seq.PlayedBy(seat)) & suit).Count() >= davonlaufenMin {
		return hand
	}
	return hand &^ suit.Remove(ace)
}

// ValidatePlay checks that the seat on turn may play c from hand.
func (k *Contract) ValidatePlay(hand Hand, seq *Sequence, c Card) error {
	seat := seq.NextSeat()
	if !c.Valid() {
		return invalidCard(seat, c, seq.TrickIndex(), "unknown card")
	}
	if !hand.Contains(c) {
		return invalidCard(seat, c, seq.TrickIndex(), "card not in hand")
	}
	legal, err := k.LegalPlays(hand, seq)
	if err != nil {
		return err
	}
	if legal.Contains(c) {
		return nil
	}
	return illegalPlay(seat, c, seq.TrickIndex(), k.rejectReason(hand, seq, legal))
}

func (k *Contract) rejectReason(hand Hand, seq *Sequence, legal Hand) string {
	t := seq.Current()
	if t.Empty() {
		return fmt.Sprintf("may not run away from the called %v ace", k.Suit)
	}
	lead := k.EffectiveSuit(t.Cards[0])
	if ace, ok := k.CalledAce(); ok && legal == HandOf(ace) {
		return "must play the called ace"
	}
	if hand&k.suits[lead] != 0 {
		return fmt.Sprintf("must follow %v", lead)
	}
	return fmt.Sprintf("may not discard the called %v ace", k.Suit)
}
