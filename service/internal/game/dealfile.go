package game

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	engine "github.com/phimuemue/openschafkopf-sub003/engine"
)

// DealFile is the YAML description of a deal in progress. Either Hands (the
// full deal as dealt) or Hand (the current hand of Seat) must be present.
//
//	contract: {kind: rufspiel, declarer: 1, suit: gras}
//	leader: 1
//	seat: 1
//	hand: [HO, G7]
//	cards: [EO, H8, H9, HZ, ...]
type DealFile struct {
	Contract      ContractSpec `yaml:"contract"`
	Announcements struct {
		Doublings uint8 `yaml:"doublings"`
		Stoss     uint8 `yaml:"stoss"`
	} `yaml:"announcements"`
	Leader int        `yaml:"leader"`
	Seat   *int       `yaml:"seat"`
	Hand   []string   `yaml:"hand"`
	Hands  [][]string `yaml:"hands"`
	Cards  []string   `yaml:"cards"`
}

// ContractSpec names a contract.
type ContractSpec struct {
	Kind     string          `yaml:"kind"`
	Declarer int             `yaml:"declarer"`
	Suit     string          `yaml:"suit"`
	Farb     bool            `yaml:"farb"`
	Modifier string          `yaml:"modifier"`
	Tariffs  *engine.Tariffs `yaml:"tariffs"`
}

var kindsByName = map[string]engine.Kind{
	"rufspiel": engine.KindRufspiel,
	"solo":     engine.KindSolo,
	"wenz":     engine.KindWenz,
	"geier":    engine.KindGeier,
	"ramsch":   engine.KindRamsch,
}

var modifiersByName = map[string]engine.Modifier{
	"":      engine.Plain,
	"plain": engine.Plain,
	"tout":  engine.Tout,
	"sie":   engine.Sie,
}

// Build validates the fields and returns the contract.
func (cs ContractSpec) Build() (engine.Contract, error) {
	kind, ok := kindsByName[strings.ToLower(cs.Kind)]
	if !ok {
		return engine.Contract{}, fmt.Errorf("%w: unknown contract kind %q", engine.ErrIllegalPlay, cs.Kind)
	}
	mod, ok := modifiersByName[strings.ToLower(cs.Modifier)]
	if !ok {
		return engine.Contract{}, fmt.Errorf("%w: unknown modifier %q", engine.ErrIllegalPlay, cs.Modifier)
	}
	var suit engine.Suit
	if cs.Suit != "" {
		s, err := engine.ParseSuit(cs.Suit)
		if err != nil {
			return engine.Contract{}, err
		}
		suit = s
	} else if kind == engine.KindRufspiel || kind == engine.KindSolo || cs.Farb {
		return engine.Contract{}, fmt.Errorf("%w: %v needs a suit", engine.ErrIllegalPlay, kind)
	}
	declarer := engine.NoSeat
	if kind != engine.KindRamsch {
		if cs.Declarer < 0 || cs.Declarer >= engine.NumSeats {
			return engine.Contract{}, fmt.Errorf("%w: declarer %d", engine.ErrIllegalPlay, cs.Declarer)
		}
		declarer = engine.Seat(cs.Declarer)
	}
	k, err := engine.NewContract(kind, declarer, suit, cs.Farb, mod)
	if err != nil {
		return engine.Contract{}, err
	}
	if cs.Tariffs != nil {
		k = k.WithTariffs(*cs.Tariffs)
	}
	return k, nil
}

// LoadDealFile reads and parses a YAML deal file.
func LoadDealFile(path string) (*DealFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading deal file")
	}
	f, err := ParseDealFile(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return f, nil
}

// ParseDealFile parses a YAML deal description. Unknown keys are rejected.
func ParseDealFile(data []byte) (*DealFile, error) {
	var f DealFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDealFile, err)
	}
	if f.Hands == nil && f.Hand == nil {
		return nil, fmt.Errorf("%w: neither hands nor hand given", ErrDealFile)
	}
	if f.Hands != nil && len(f.Hands) != engine.NumSeats {
		return nil, fmt.Errorf("%w: %d hands, want %d", ErrDealFile, len(f.Hands), engine.NumSeats)
	}
	if f.Hand != nil && f.Seat == nil {
		return nil, fmt.Errorf("%w: hand given without seat", ErrDealFile)
	}
	if f.Leader < 0 || f.Leader >= engine.NumSeats {
		return nil, fmt.Errorf("%w: leader %d", ErrDealFile, f.Leader)
	}
	if f.Seat != nil && (*f.Seat < 0 || *f.Seat >= engine.NumSeats) {
		return nil, fmt.Errorf("%w: seat %d", ErrDealFile, *f.Seat)
	}
	return &f, nil
}

// ErrDealFile marks malformed deal files.
var ErrDealFile = errors.New("malformed deal file")

func (f *DealFile) announcements() engine.Announcements {
	return engine.Announcements{Doublings: f.Announcements.Doublings, Stoss: f.Announcements.Stoss}
}

// Sequence replays the played cards under k.
func (f *DealFile) Sequence(k *engine.Contract) (engine.Sequence, error) {
	cards, err := engine.ParseCards(f.Cards)
	if err != nil {
		return engine.Sequence{}, err
	}
	return engine.Replay(k, engine.Seat(f.Leader), cards)
}

// Snapshot returns the full deal. It needs Hands.
func (f *DealFile) Snapshot() (engine.Snapshot, error) {
	if f.Hands == nil {
		return engine.Snapshot{}, fmt.Errorf("%w: the full deal needs hands", ErrDealFile)
	}
	k, err := f.Contract.Build()
	if err != nil {
		return engine.Snapshot{}, err
	}
	var hands [engine.NumSeats]engine.Hand
	for s, hs := range f.Hands {
		cards, err := engine.ParseCards(hs)
		if err != nil {
			return engine.Snapshot{}, err
		}
		hands[s] = engine.HandOf(cards...)
	}
	seq, err := f.Sequence(&k)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return engine.NewSnapshot(k, hands, f.announcements(), seq)
}

// View is one seat's knowledge of the deal.
type View struct {
	Seat          engine.Seat
	Hand          engine.Hand // current hand
	Contract      engine.Contract
	Sequence      engine.Sequence
	Announcements engine.Announcements
}

// View returns the view of Seat, or of the seat on turn when the file names
// none. With full hands the current hand is derived from the deal.
func (f *DealFile) View() (View, error) {
	if f.Hands != nil {
		sn, err := f.Snapshot()
		if err != nil {
			return View{}, err
		}
		seat := sn.Sequence.NextSeat()
		if f.Seat != nil {
			seat = engine.Seat(*f.Seat)
		}
		if !seat.Valid() {
			return View{}, fmt.Errorf("%w: the deal is finished", engine.ErrIllegalPlay)
		}
		return View{
			Seat:          seat,
			Hand:          sn.Hands[seat] &^ sn.Sequence.PlayedBy(seat),
			Contract:      sn.Contract,
			Sequence:      sn.Sequence,
			Announcements: sn.Announcements,
		}, nil
	}

	k, err := f.Contract.Build()
	if err != nil {
		return View{}, err
	}
	seq, err := f.Sequence(&k)
	if err != nil {
		return View{}, err
	}
	cards, err := engine.ParseCards(f.Hand)
	if err != nil {
		return View{}, err
	}
	return View{
		Seat:          engine.Seat(*f.Seat),
		Hand:          engine.HandOf(cards...),
		Contract:      k,
		Sequence:      seq,
		Announcements: f.announcements(),
	}, nil
}
