package engine

// Tariffs holds the configurable payout amounts, in cents.
type Tariffs struct {
	Rufspiel  int // base value of a partner game
	Solo      int // base value of Solo, Wenz and Geier (and their Farb variants)
	Ramsch    int // base value of a Ramsch
	Schneider int // added when the winning party reaches Schneider
	Schwarz   int // added when the losing party took no trick
	Laufende  int // per Laufender, once the contract's minimum is reached
}

// DefaultTariffs returns the common 10/50 tariff.
func DefaultTariffs() Tariffs {
	return Tariffs{
		Rufspiel:  10,
		Solo:      50,
		Ramsch:    10,
		Schneider: 10,
		Schwarz:   10,
		Laufende:  10,
	}
}

// Announcements holds the public doublings of a deal.
type Announcements struct {
	Doublings uint8 // players who doubled ("klopfen") before the contract was announced
	Stoss     uint8 // Kontra / Re count
}

// multiplier returns 2^(doublings+stoss).
func (a Announcements) multiplier() int {
	return 1 << (uint(a.Doublings) + uint(a.Stoss))
}

// Score thresholds in pips.
const (
	winThreshold       = 61 // declarer party wins with at least this many pips
	schneiderThreshold = 91 // winning party reaches Schneider
	schneiderFree      = 31 // losing party escapes Schneider with at least this many pips
)

// laufMin returns the number of Laufende that must be reached before they pay.
func (k *Contract) laufMin() int {
	switch k.Kind {
	case KindWenz, KindGeier:
		return 2
	default:
		return 3
	}
}

// base returns the contract's base tariff.
func (k *Contract) base() int {
	switch k.Kind {
	case KindRufspiel:
		return k.Tariffs.Rufspiel
	case KindRamsch:
		return k.Tariffs.Ramsch
	default:
		return k.Tariffs.Solo
	}
}
