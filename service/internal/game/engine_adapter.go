// engine_adapter.go: Bridge between deal files, tables and the engine.
package game

import (
	"fmt"
	"io"
	"strings"
	"time"

	engine "github.com/phimuemue/openschafkopf-sub003/engine"
	"github.com/phimuemue/openschafkopf-sub003/engine/ai"
	"github.com/phimuemue/openschafkopf-sub003/engine/support"
)

// QueryOptions override the engine configuration for one decision. Zero
// fields keep the engine defaults.
type QueryOptions struct {
	Budget   time.Duration
	Samples  int
	Threads  int
	Seed     *uint64
	Progress support.Progress
}

// apply builds the query for v.
func (o QueryOptions) apply(v View) ai.Query {
	return ai.Query{
		Seat:          v.Seat,
		Hand:          v.Hand,
		Contract:      v.Contract,
		Sequence:      v.Sequence,
		Announcements: v.Announcements,
		Budget:        o.Budget,
		Samples:       o.Samples,
		Threads:       o.Threads,
		Seed:          o.Seed,
		Progress:      o.Progress,
	}
}

// Query builds the engine query for the view.
func (o QueryOptions) Query(v View) ai.Query { return o.apply(v) }

// EventCard identifies a card within a GameEvent payload.
type EventCard struct {
	Code string `json:"code"` // e.g. "EO", "SZ"
	Suit string `json:"suit"`
	Rank string `json:"rank"`
	Pips int    `json:"pips"`
}

// eventCard converts an engine card for event payloads.
func eventCard(c engine.Card) *EventCard {
	return &EventCard{
		Code: c.String(),
		Suit: c.Suit().String(),
		Rank: c.Rank().String(),
		Pips: c.Pips(),
	}
}

// suggestionPayload summarizes a suggestion for events and logs.
func suggestionPayload(s *ai.Suggestion) map[string]any {
	scores := make(map[string]float64, len(s.Ranking))
	for _, cs := range s.Ranking {
		scores[cs.Card.String()] = cs.Score
	}
	d := s.Diagnostics
	return map[string]any{
		"query_id":      d.QueryID.String(),
		"scores":        scores,
		"samples_used":  d.SamplesUsed,
		"samples_total": d.SamplesTotal,
		"cancelled":     d.Cancelled,
		"exhaustive":    d.Exhaustive,
	}
}

// WriteSuggestion prints the chosen card, or the whole ranking when full is set.
func WriteSuggestion(w io.Writer, s *ai.Suggestion, full bool) error {
	if !full {
		_, err := fmt.Fprintln(w, s.Card)
		return err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-4s %10s %10s %5s\n", "card", "score", "stderr", "bad")
	for _, cs := range s.Ranking {
		fmt.Fprintf(&sb, "%-4s %10.2f %10.2f %5d\n", cs.Card, cs.Score/100, cs.Confidence/100, cs.BadCases)
	}
	d := s.Diagnostics
	fmt.Fprintf(&sb, "# %d/%d samples, %d nodes, %v", d.SamplesUsed, d.SamplesTotal, d.NodesSearched, d.Elapsed.Round(time.Millisecond))
	if d.Exhaustive {
		sb.WriteString(", exhaustive")
	}
	if d.Cancelled {
		sb.WriteString(", cancelled")
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteScore prints the per-trick trace and the payoffs in currency units.
func WriteScore(w io.Writer, sc *engine.Score) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v\n", sc.Contract)
	for i, tr := range sc.Trace {
		cards := make([]string, len(tr.Cards))
		for j, c := range tr.Cards {
			cards[j] = c.String()
		}
		fmt.Fprintf(&sb, "%d. %v: %s -> %v (%d)\n", i+1, tr.Leader, strings.Join(cards, " "), tr.Winner, tr.Pips)
	}
	for s := engine.Seat(0); s < engine.NumSeats; s++ {
		fmt.Fprintf(&sb, "%v %3d pips %+7.2f\n", s, sc.Outcome.Pips[s], float64(sc.Payoffs[s])/100)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
