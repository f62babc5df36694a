// internal/game/game.go
package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	engine "github.com/phimuemue/openschafkopf-sub003/engine"
	"github.com/phimuemue/openschafkopf-sub003/engine/ai"
)

// OnDealEndFunc is called once when the last card of a deal has been played.
type OnDealEndFunc func(tableID uuid.UUID, score *engine.Score)

// GameEventType is the type of a table event.
type GameEventType string

// Event types.
const (
	EventCardPlayed GameEventType = "card_played" // a seat played a card
	EventTrickWon   GameEventType = "trick_won"   // a trick closed
	EventPlayerTurn GameEventType = "player_turn" // a seat is on turn
	EventSuggestion GameEventType = "suggestion"  // a bot decided, with its ranking
	EventDealEnd    GameEventType = "deal_end"    // the deal is finished and scored
)

// GameEvent describes one change at the table.
type GameEvent struct {
	Type    GameEventType  `json:"type"`
	Seat    engine.Seat    `json:"seat"`
	Card    *EventCard     `json:"card,omitempty"`
	Trick   int            `json:"trick"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Table is one deal played by humans and engine-driven bots. All methods are
// safe for concurrent use.
type Table struct {
	ID uuid.UUID

	Bots  [engine.NumSeats]bool // seats played by the engine
	AI    *ai.Engine
	Query QueryOptions // per-decision overrides for the bots

	BroadcastFn func(ev GameEvent) // receives every event, in order
	OnDealEnd   OnDealEndFunc

	Mu       sync.Mutex
	cur      *engine.Cursor
	contract engine.Contract
	log      *logrus.Entry
	started  time.Time
	over     bool
}

// NewTable seats a deal. The snapshot may already carry played cards.
func NewTable(sn engine.Snapshot, eng *ai.Engine, log *logrus.Logger) (*Table, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := &Table{ID: uuid.New(), AI: eng, contract: sn.Contract, started: time.Now()}
	// the cursor points at the table's own copy of the contract
	cur := engine.NewCursor(&t.contract, sn.Hands, sn.Announcements, sn.Sequence.FirstLeader())
	for _, c := range sn.Sequence.Cards() {
		if err := cur.Play(c); err != nil {
			return nil, errors.Wrap(err, "seating deal")
		}
	}
	t.cur = cur
	t.log = log.WithFields(logrus.Fields{"table_id": t.ID, "contract": t.contract.String()})
	t.over = cur.Finished()
	return t, nil
}

// Snapshot returns the deal so far.
func (t *Table) Snapshot() engine.Snapshot {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	return t.cur.Snapshot()
}

// NextSeat returns the seat on turn, NoSeat once the deal is over.
func (t *Table) NextSeat() engine.Seat {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	return t.cur.NextSeat()
}

// Finished reports whether every card has been played.
func (t *Table) Finished() bool {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	return t.over
}

// Play plays card for seat.
func (t *Table) Play(seat engine.Seat, card engine.Card) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	return t.playLocked(seat, card)
}

// Run lets the bots play until a human seat is on turn or the deal ends.
func (t *Table) Run(ctx context.Context) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	for !t.over {
		seat := t.cur.NextSeat()
		if !t.Bots[seat] {
			t.fireEvent(GameEvent{Type: EventPlayerTurn, Seat: seat, Trick: t.cur.Sequence().TrickIndex()})
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		sug, err := t.AI.SuggestCard(ctx, t.queryLocked(seat))
		if err != nil {
			return errors.Wrapf(err, "bot %v", seat)
		}
		t.fireEvent(GameEvent{
			Type:    EventSuggestion,
			Seat:    seat,
			Card:    eventCard(sug.Card),
			Trick:   t.cur.Sequence().TrickIndex(),
			Payload: suggestionPayload(sug),
		})
		if err := t.playLocked(seat, sug.Card); err != nil {
			return errors.Wrapf(err, "bot %v", seat)
		}
	}
	return nil
}

// Suggest ranks the cards of the seat on turn from its own view.
func (t *Table) Suggest(ctx context.Context) (*ai.Suggestion, error) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if t.over {
		return nil, errors.Wrap(engine.ErrIllegalPlay, "deal is over")
	}
	return t.AI.SuggestCard(ctx, t.queryLocked(t.cur.NextSeat()))
}

// Score scores the finished deal.
func (t *Table) Score() (*engine.Score, error) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	sn := t.cur.Snapshot()
	return t.AI.ScoreDeal(&sn)
}

// queryLocked is the view of seat. Assumes lock is held by caller.
func (t *Table) queryLocked(seat engine.Seat) ai.Query {
	return t.Query.apply(View{
		Seat:          seat,
		Hand:          t.cur.Hand(seat),
		Contract:      t.contract,
		Sequence:      *t.cur.Sequence(),
		Announcements: t.cur.Announcements(),
	})
}

// playLocked plays a card and emits the events. Assumes lock is held by caller.
func (t *Table) playLocked(seat engine.Seat, card engine.Card) error {
	if t.over {
		return errors.Wrap(engine.ErrIllegalPlay, "deal is over")
	}
	if next := t.cur.NextSeat(); next != seat {
		return errors.Wrapf(engine.ErrIllegalPlay, "%v is on turn, not %v", next, seat)
	}
	trick := t.cur.Sequence().TrickIndex()
	if err := t.cur.Play(card); err != nil {
		return err
	}
	t.log.WithFields(logrus.Fields{"seat": seat, "card": card, "trick": trick}).Debug("card played")
	t.fireEvent(GameEvent{Type: EventCardPlayed, Seat: seat, Card: eventCard(card), Trick: trick})

	if t.cur.Sequence().TrickIndex() != trick {
		closed := t.cur.Sequence().Completed()[trick]
		winner, _ := t.contract.TrickWinner(&closed)
		t.fireEvent(GameEvent{
			Type:    EventTrickWon,
			Seat:    winner,
			Trick:   trick,
			Payload: map[string]any{"pips": closed.Pips()},
		})
	}
	if t.cur.Finished() {
		t.endDealLocked()
	}
	return nil
}

// endDealLocked scores the deal and notifies. Assumes lock is held by caller.
func (t *Table) endDealLocked() {
	t.over = true
	sn := t.cur.Snapshot()
	score, err := engine.ScoreDeal(&sn)
	if err != nil {
		t.log.WithError(err).Error("scoring finished deal")
		return
	}
	t.log.WithFields(logrus.Fields{
		"payoffs":  score.Payoffs,
		"duration": time.Since(t.started),
	}).Info("deal finished")
	t.fireEvent(GameEvent{
		Type:    EventDealEnd,
		Seat:    t.contract.Declarer,
		Trick:   engine.MaxTricks,
		Payload: map[string]any{"payoffs": score.Payoffs, "pips": score.Outcome.Pips},
	})
	if t.OnDealEnd != nil {
		t.OnDealEnd(t.ID, score)
	}
}

// fireEvent sends ev to BroadcastFn. Assumes lock is held by caller.
func (t *Table) fireEvent(ev GameEvent) {
	if t.BroadcastFn != nil {
		t.BroadcastFn(ev)
	}
}
