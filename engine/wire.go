package engine

import (
	"encoding/binary"
	"fmt"
)

// Contract opcodes of the binary wire form. The modifier bits are or-ed into
// the opcode of a Solo, Wenz or Geier.
const (
	OpRufspiel uint16 = 0x0001
	OpSolo     uint16 = 0x0002
	OpWenz     uint16 = 0x0003
	OpGeier    uint16 = 0x0004
	OpRamsch   uint16 = 0x0005

	OpTout uint16 = 0x0100
	OpSie  uint16 = 0x0200

	opKindMask uint16 = 0x00FF
)

// noSuitByte marks a plain Wenz or Geier in the suit parameter.
const noSuitByte byte = 0xFF

// MarshalBinary encodes the contract as a 2-byte big-endian opcode followed by
// its parameters: [declarer, suit] for Rufspiel and Solo, [declarer, suit|0xFF]
// for Wenz and Geier, nothing for Ramsch. Tariffs are not part of the wire form.
func (k Contract) MarshalBinary() ([]byte, error) {
	var op uint16
	switch k.Kind {
	case KindRufspiel:
		op = OpRufspiel
	case KindSolo:
		op = OpSolo
	case KindWenz:
		op = OpWenz
	case KindGeier:
		op = OpGeier
	case KindRamsch:
		return binary.BigEndian.AppendUint16(nil, OpRamsch), nil
	default:
		return nil, fmt.Errorf("%w: unknown contract kind %d", ErrIllegalPlay, k.Kind)
	}
	switch k.Modifier {
	case Tout:
		op |= OpTout
	case Sie:
		op |= OpSie
	}
	suit := byte(k.Suit)
	if (k.Kind == KindWenz || k.Kind == KindGeier) && !k.Farb {
		suit = noSuitByte
	}
	b := binary.BigEndian.AppendUint16(make([]byte, 0, 4), op)
	return append(b, byte(k.Declarer), suit), nil
}

// UnmarshalContract decodes the wire form written by MarshalBinary. The result
// carries the default tariffs.
func UnmarshalContract(b []byte) (Contract, error) {
	if len(b) < 2 {
		return Contract{}, fmt.Errorf("%w: contract needs 2 opcode bytes, got %d", ErrIllegalPlay, len(b))
	}
	op := binary.BigEndian.Uint16(b)
	params := b[2:]

	mod := Plain
	switch op &^ opKindMask {
	case 0:
	case OpTout:
		mod = Tout
	case OpSie:
		mod = Sie
	default:
		return Contract{}, fmt.Errorf("%w: contract opcode 0x%04x", ErrIllegalPlay, op)
	}

	var kind Kind
	switch op & opKindMask {
	case OpRamsch:
		if mod != Plain || len(params) != 0 {
			return Contract{}, fmt.Errorf("%w: malformed Ramsch opcode 0x%04x", ErrIllegalPlay, op)
		}
		return NewRamsch(), nil
	case OpRufspiel:
		kind = KindRufspiel
	case OpSolo:
		kind = KindSolo
	case OpWenz:
		kind = KindWenz
	case OpGeier:
		kind = KindGeier
	default:
		return Contract{}, fmt.Errorf("%w: contract opcode 0x%04x", ErrIllegalPlay, op)
	}
	if len(params) != 2 {
		return Contract{}, fmt.Errorf("%w: %v needs 2 parameter bytes, got %d", ErrIllegalPlay, kind, len(params))
	}
	declarer, suit := Seat(params[0]), params[1]
	farb := false
	if kind == KindWenz || kind == KindGeier {
		if suit == noSuitByte {
			suit = 0
		} else {
			farb = true
		}
	}
	return NewContract(kind, declarer, Suit(suit), farb, mod)
}

// EncodeHand writes a hand as one byte per card in ascending card order.
func EncodeHand(h Hand) []byte {
	out := make([]byte, 0, h.Count())
	for rest := h; rest != 0; {
		var c Card
		c, rest = rest.Pop()
		out = append(out, EncodeCard(c))
	}
	return out
}

// DecodeHand reads bytes written by EncodeHand. Unknown cards and duplicates
// are rejected.
func DecodeHand(b []byte) (Hand, error) {
	var h Hand
	for _, x := range b {
		c, err := DecodeCard(x)
		if err != nil {
			return 0, err
		}
		if c == NoCard {
			return 0, fmt.Errorf("%w: unknown card in hand", ErrInvalidCard)
		}
		if h.Contains(c) {
			return 0, fmt.Errorf("%w: duplicate %v", ErrInvalidCard, c)
		}
		h = h.Add(c)
	}
	return h, nil
}
