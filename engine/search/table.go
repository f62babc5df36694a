package search

import (
	"sync"
	"sync/atomic"

	engine "github.com/phimuemue/openschafkopf-sub003/engine"
)

// Bound says how a stored value relates to the true value of a position.
type Bound uint8

const (
	Exact Bound = iota
	Lower       // true value >= stored value (the search failed high)
	Upper       // true value <= stored value (the search failed low)
)

const numShards = 16

// Key identifies a search position for one hypothesis. The dealt hands enter
// through the deal hash; with them the played set and the open trick fix every
// seat's current hand. Pips and trick counts are part of the key because the
// payoff depends on them, not just on the cards left. Called records
// whether the called suit of a Rufspiel was led, which the played set alone
// does not fix and which changes the ace holder's legal plays.
type Key struct {
	Deal   uint64
	Played engine.Hand
	Trick  engine.Hand // cards of the open trick
	Pips   [engine.NumSeats]uint8
	Tricks [engine.NumSeats]uint8
	Top    [engine.NumSeats]int8 // highest trump taken, Ramsch only
	Called bool                  // called suit led, Rufspiel only
	Root   engine.Seat
	Next   engine.Seat
	Stop   uint8 // trick index at which the search evaluates
}

// KeyOf builds the table key of the cursor's position.
func KeyOf(cur *engine.Cursor, root engine.Seat, stop int) Key {
	key := Key{
		Deal:   cur.DealHash(),
		Played: cur.Played(),
		Root:   root,
		Next:   cur.NextSeat(),
		Stop:   uint8(stop),
	}
	if t := cur.Sequence().Current(); t != nil {
		key.Trick = t.Hand()
	}
	for s := engine.Seat(0); s < engine.NumSeats; s++ {
		key.Pips[s] = uint8(cur.Pips(s))
		key.Tricks[s] = uint8(cur.Tricks(s))
	}
	switch cur.Contract().Kind {
	case engine.KindRufspiel:
		key.Called = cur.Sequence().CalledSuitLed(cur.Contract())
	case engine.KindRamsch:
		o := cur.Outcome()
		for s := range key.Top {
			key.Top[s] = int8(o.TopTrump[s])
		}
	}
	return key
}

type entry struct {
	value float64
	bound Bound
	best  engine.Card
}

type shard struct {
	mu sync.Mutex
	m  map[Key]entry
}

// Table is a bounded transposition table shared by the search workers. Each
// of its shards has its own lock.
type Table struct {
	shards   [numShards]shard
	perShard int

	lookups atomic.Uint64
	hits    atomic.Uint64
	stores  atomic.Uint64
}

// NewTable returns a table holding at most maxEntries positions.
func NewTable(maxEntries int) *Table {
	t := &Table{perShard: max(1, maxEntries/numShards)}
	for i := range t.shards {
		t.shards[i].m = make(map[Key]entry)
	}
	return t
}

func (t *Table) shard(k *Key) *shard {
	h := k.Deal ^ uint64(k.Played)*0x9e3779b97f4a7c15 ^ uint64(k.Root)<<7
	return &t.shards[(h^h>>29)%numShards]
}

// Lookup returns the stored entry for k.
func (t *Table) Lookup(k Key) (value float64, bound Bound, best engine.Card, ok bool) {
	t.lookups.Add(1)
	sh := t.shard(&k)
	sh.mu.Lock()
	e, ok := sh.m[k]
	sh.mu.Unlock()
	if !ok {
		return 0, 0, engine.NoCard, false
	}
	t.hits.Add(1)
	return e.value, e.bound, e.best, true
}

// Store records a searched position. A full shard drops an arbitrary entry.
func (t *Table) Store(k Key, value float64, bound Bound, best engine.Card) {
	t.stores.Add(1)
	sh := t.shard(&k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.m[k]; !ok && len(sh.m) >= t.perShard {
		for old := range sh.m {
			delete(sh.m, old)
			break
		}
	}
	sh.m[k] = entry{value: value, bound: bound, best: best}
}

// Len returns the number of stored positions.
func (t *Table) Len() int {
	n := 0
	for i := range t.shards {
		sh := &t.shards[i]
		sh.mu.Lock()
		n += len(sh.m)
		sh.mu.Unlock()
	}
	return n
}

// Reset empties the table and its counters.
func (t *Table) Reset() {
	for i := range t.shards {
		sh := &t.shards[i]
		sh.mu.Lock()
		clear(sh.m)
		sh.mu.Unlock()
	}
	t.lookups.Store(0)
	t.hits.Store(0)
	t.stores.Store(0)
}

// Stats reports lookups, hits and stores since the last Reset.
func (t *Table) Stats() (lookups, hits, stores uint64) {
	return t.lookups.Load(), t.hits.Load(), t.stores.Load()
}
