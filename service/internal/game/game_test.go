// internal/game/game_test.go
package game

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "github.com/phimuemue/openschafkopf-sub003/engine"
	"github.com/phimuemue/openschafkopf-sub003/engine/ai"
)

// mockBroadcaster captures table events for testing assertions.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []GameEvent
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = append(mb.events, ev)
}

func (mb *mockBroadcaster) count(eventType GameEventType) int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	n := 0
	for _, ev := range mb.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func (mb *mockBroadcaster) last() *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.events) == 0 {
		return nil
	}
	return &mb.events[len(mb.events)-1]
}

// overtakeYAML is a Rufspiel of P1 on Gras after six tricks and the lead of
// the seventh.
const overtakeYAML = `
contract: {kind: rufspiel, declarer: 1, suit: gras}
leader: 1
hands:
  - [HZ, HA, EK, G9, SK, SO, SA, E7]
  - [EO, GO, EZ, G8, GK, EU, HO, G7]
  - [H8, HK, EA, GZ, SZ, HU, S7, H7]
  - [H9, SU, E9, GA, S9, GU, S8, E8]
cards: [EO, H8, H9, HZ, GO, HK, SU, HA, EZ, EA, E9, EK, GZ, GA, G9, G8,
        S9, SK, GK, SZ, HU, GU, SO, EU, SA]
`

// fullYAML is a fresh Herz Solo of P0.
const fullYAML = `
contract: {kind: solo, declarer: 0, suit: herz}
leader: 0
announcements: {doublings: 1}
hands:
  - [EO, GO, HU, HA, EA, E7, G7, S7]
  - [HO, SO, EU, HZ, EZ, E8, GA, S8]
  - [GU, SU, HK, H9, EK, GZ, SA, SZ]
  - [H8, H7, E9, G9, G8, GK, SK, S9]
`

func card(t testing.TB, s string) engine.Card {
	t.Helper()
	c, err := engine.ParseCard(s)
	require.NoError(t, err)
	return c
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	log.SetLevel(logrus.DebugLevel)
	return log
}

func testEngine() *ai.Engine {
	cfg := ai.DefaultConfig()
	cfg.Samples = 4
	cfg.Threads = 1
	cfg.Budget = 200 * time.Millisecond
	cfg.TableEntries = 1 << 14
	return ai.New(cfg)
}

// setupTable seats the deal of a YAML file with a mock broadcaster.
func setupTable(t *testing.T, src string) (*Table, *mockBroadcaster) {
	t.Helper()
	f, err := ParseDealFile([]byte(src))
	require.NoError(t, err)
	sn, err := f.Snapshot()
	require.NoError(t, err)
	tbl, err := NewTable(sn, testEngine(), testLogger())
	require.NoError(t, err)
	mb := &mockBroadcaster{}
	tbl.BroadcastFn = mb.broadcastFn
	return tbl, mb
}

func TestParseDealFile(t *testing.T) {
	f, err := ParseDealFile([]byte(overtakeYAML))
	require.NoError(t, err)
	assert.Equal(t, "rufspiel", f.Contract.Kind)
	assert.Len(t, f.Hands, engine.NumSeats)
	assert.Len(t, f.Cards, 25)

	tests := map[string]string{
		"no hands":       "contract: {kind: ramsch}\n",
		"three hands":    "contract: {kind: ramsch}\nhands: [[EO], [GO], [HO]]\n",
		"hand sans seat": "contract: {kind: ramsch}\nhand: [EO]\n",
		"unknown key":    "contract: {kind: ramsch}\nhand: [EO]\nseat: 0\ncolor: red\n",
		"bad leader":     "contract: {kind: ramsch}\nhand: [EO]\nseat: 0\nleader: 4\n",
		"bad seat":       "contract: {kind: ramsch}\nhand: [EO]\nseat: -1\n",
		"not yaml":       "contract: [",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDealFile([]byte(src))
			assert.ErrorIs(t, err, ErrDealFile)
		})
	}
}

func TestContractSpecBuild(t *testing.T) {
	k, err := ContractSpec{Kind: "Wenz", Declarer: 2, Suit: "e", Farb: true, Modifier: "tout"}.Build()
	require.NoError(t, err)
	assert.Equal(t, engine.KindWenz, k.Kind)
	assert.Equal(t, engine.Seat(2), k.Declarer)
	assert.Equal(t, engine.Eichel, k.Suit)
	assert.Equal(t, engine.Tout, k.Modifier)

	k, err = ContractSpec{Kind: "ramsch", Declarer: 3}.Build()
	require.NoError(t, err)
	assert.Equal(t, engine.NoSeat, k.Declarer)

	tariffs := engine.DefaultTariffs()
	tariffs.Rufspiel = 20
	k, err = ContractSpec{Kind: "rufspiel", Suit: "schellen", Tariffs: &tariffs}.Build()
	require.NoError(t, err)
	assert.Equal(t, 20, k.Tariffs.Rufspiel)

	bad := []ContractSpec{
		{Kind: "bock"},
		{Kind: "solo", Declarer: 0},
		{Kind: "solo", Declarer: 5, Suit: "herz"},
		{Kind: "rufspiel", Suit: "herz"},
		{Kind: "rufspiel", Suit: "gras", Modifier: "tout"},
		{Kind: "solo", Suit: "gras", Modifier: "schwarz"},
	}
	for _, cs := range bad {
		_, err := cs.Build()
		assert.ErrorIs(t, err, engine.ErrIllegalPlay, "%+v", cs)
	}
}

func TestDealFileView(t *testing.T) {
	f, err := ParseDealFile([]byte(overtakeYAML))
	require.NoError(t, err)
	v, err := f.View()
	require.NoError(t, err)
	assert.Equal(t, engine.Seat(1), v.Seat, "seat on turn")
	assert.Equal(t, engine.HandOf(card(t, "HO"), card(t, "G7")), v.Hand)
	assert.Equal(t, 25, v.Sequence.Len())

	// the same view written as one seat's knowledge
	own, err := ParseDealFile([]byte(`
contract: {kind: rufspiel, declarer: 1, suit: gras}
leader: 1
seat: 1
hand: [HO, G7]
cards: [EO, H8, H9, HZ, GO, HK, SU, HA, EZ, EA, E9, EK, GZ, GA, G9, G8,
        S9, SK, GK, SZ, HU, GU, SO, EU, SA]
`))
	require.NoError(t, err)
	ov, err := own.View()
	require.NoError(t, err)
	assert.Equal(t, v, ov)

	_, err = own.Snapshot()
	assert.ErrorIs(t, err, ErrDealFile)

	illegal, err := ParseDealFile([]byte(strings.Replace(overtakeYAML, "cards: [EO, H8", "cards: [EO, GA", 1)))
	require.NoError(t, err)
	_, err = illegal.View()
	assert.Error(t, err, "P2 does not hold GA")
}

func TestTableBotsFinishDeal(t *testing.T) {
	tbl, mb := setupTable(t, fullYAML)
	tbl.Bots = [engine.NumSeats]bool{true, true, true, true}
	var ended *engine.Score
	var endedID uuid.UUID
	tbl.OnDealEnd = func(id uuid.UUID, sc *engine.Score) { endedID, ended = id, sc }

	require.NoError(t, tbl.Run(context.Background()))
	assert.True(t, tbl.Finished())
	assert.Equal(t, engine.NoSeat, tbl.NextSeat())

	assert.Equal(t, engine.NumCards, mb.count(EventCardPlayed))
	assert.Equal(t, engine.MaxTricks, mb.count(EventTrickWon))
	assert.Equal(t, 1, mb.count(EventDealEnd))
	assert.Positive(t, mb.count(EventSuggestion))
	assert.Equal(t, EventDealEnd, mb.last().Type)

	require.NotNil(t, ended)
	assert.Equal(t, tbl.ID, endedID)
	sum := 0
	for _, p := range ended.Payoffs {
		sum += p
	}
	assert.Zero(t, sum)

	sc, err := tbl.Score()
	require.NoError(t, err)
	assert.Equal(t, ended.Payoffs, sc.Payoffs)

	assert.ErrorIs(t, tbl.Play(0, card(t, "EO")), engine.ErrIllegalPlay)
	_, err = tbl.Suggest(context.Background())
	assert.ErrorIs(t, err, engine.ErrIllegalPlay)
}

func TestTableHumanTurn(t *testing.T) {
	tbl, mb := setupTable(t, fullYAML)
	tbl.Bots = [engine.NumSeats]bool{false, true, true, true}

	// P0 leads, so nobody moves yet
	require.NoError(t, tbl.Run(context.Background()))
	require.NotNil(t, mb.last())
	assert.Equal(t, EventPlayerTurn, mb.last().Type)
	assert.Equal(t, engine.Seat(0), mb.last().Seat)

	assert.ErrorIs(t, tbl.Play(1, card(t, "HO")), engine.ErrIllegalPlay, "not on turn")
	assert.ErrorIs(t, tbl.Play(0, card(t, "HO")), engine.ErrInvalidCard, "not in hand")

	sug, err := tbl.Suggest(context.Background())
	require.NoError(t, err)
	require.NoError(t, tbl.Play(0, sug.Card))

	// the bots answer until P0 is on turn again
	require.NoError(t, tbl.Run(context.Background()))
	assert.Positive(t, mb.count(EventTrickWon))
	assert.Equal(t, mb.count(EventCardPlayed)-1, mb.count(EventSuggestion))
	assert.Equal(t, engine.Seat(0), tbl.NextSeat())
	assert.Equal(t, EventPlayerTurn, mb.last().Type)
	sn := tbl.Snapshot()
	assert.Equal(t, mb.count(EventCardPlayed), sn.Sequence.Len())
}

func TestTableRunCancelled(t *testing.T) {
	tbl, _ := setupTable(t, fullYAML)
	tbl.Bots = [engine.NumSeats]bool{true, true, true, true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tbl.Run(ctx), context.Canceled)
	assert.False(t, tbl.Finished())
}

func TestWriteSuggestion(t *testing.T) {
	f, err := ParseDealFile([]byte(overtakeYAML))
	require.NoError(t, err)
	v, err := f.View()
	require.NoError(t, err)
	seed := uint64(1)
	sug, err := testEngine().SuggestCard(context.Background(), QueryOptions{Seed: &seed, Samples: 64, Budget: 5 * time.Second}.Query(v))
	require.NoError(t, err)

	var short, full bytes.Buffer
	require.NoError(t, WriteSuggestion(&short, sug, false))
	assert.Equal(t, "HO\n", short.String())

	require.NoError(t, WriteSuggestion(&full, sug, true))
	lines := strings.Split(strings.TrimSpace(full.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "HO"))
	assert.True(t, strings.HasPrefix(lines[2], "G7"))
	assert.Contains(t, lines[3], "exhaustive")

	payload := suggestionPayload(sug)
	assert.Equal(t, sug.Diagnostics.QueryID.String(), payload["query_id"])
	assert.Len(t, payload["scores"], 2)
}

func TestWriteScore(t *testing.T) {
	tbl, _ := setupTable(t, fullYAML)
	tbl.Bots = [engine.NumSeats]bool{true, true, true, true}
	require.NoError(t, tbl.Run(context.Background()))
	sc, err := tbl.Score()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteScore(&buf, sc))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1+engine.MaxTricks+engine.NumSeats)
	assert.Contains(t, lines[0], "Herz-Solo")
	assert.True(t, strings.HasPrefix(lines[1], "1. P0: "))
}

func TestEventCard(t *testing.T) {
	ec := eventCard(card(t, "SZ"))
	assert.Equal(t, "SZ", ec.Code)
	assert.Equal(t, "Schellen", ec.Suit)
	assert.Equal(t, 10, ec.Pips)
}
