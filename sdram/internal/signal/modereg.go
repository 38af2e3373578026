package signal

import "fmt"

// BurstType selects the intra-burst column order.
type BurstType int

// The two burst orders the device supports.
const (
	BurstSequential BurstType = iota
	BurstInterleaved
)

func (t BurstType) String() string {
	if t == BurstInterleaved {
		return "interleaved"
	}

	return "sequential"
}

// FullPageBurst is the burst-length value that selects full-page bursts
// (the burst covers the whole open row).
const FullPageBurst = -1

const fullPageBurstCode = 7

// ModeRegister is the device configuration programmed once during
// initialization.
type ModeRegister struct {
	BurstLength int
	BurstType   BurstType
	CASLatency  int
}

// Encode packs the mode register into the address-pin word used by the
// MODE REGISTER SET command: burst length code in A0-A2, burst type in A3,
// CAS latency in A4-A6.
func (m ModeRegister) Encode() uint16 {
	if m.BurstType == BurstInterleaved && m.BurstLength == FullPageBurst {
		panic("interleaved order is undefined for full-page bursts")
	}

	var blCode uint16

	switch m.BurstLength {
	case 1:
		blCode = 0
	case 2:
		blCode = 1
	case 4:
		blCode = 2
	case 8:
		blCode = 3
	case FullPageBurst:
		blCode = fullPageBurstCode
	default:
		panic(fmt.Sprintf("illegal burst length %d", m.BurstLength))
	}

	word := blCode
	if m.BurstType == BurstInterleaved {
		word |= 1 << 3
	}

	word |= uint16(m.CASLatency) << 4

	return word
}

// DecodeModeRegister unpacks the address-pin word of a MODE REGISTER SET
// command.
func DecodeModeRegister(word uint16) (ModeRegister, error) {
	m := ModeRegister{
		CASLatency: int(word>>4) & 0x7,
	}

	if word&(1<<3) != 0 {
		m.BurstType = BurstInterleaved
	}

	switch word & 0x7 {
	case 0:
		m.BurstLength = 1
	case 1:
		m.BurstLength = 2
	case 2:
		m.BurstLength = 4
	case 3:
		m.BurstLength = 8
	case fullPageBurstCode:
		m.BurstLength = FullPageBurst
	default:
		return m, fmt.Errorf("reserved burst length code %d", word&0x7)
	}

	if m.BurstType == BurstInterleaved && m.BurstLength == FullPageBurst {
		return m, fmt.Errorf("interleaved order is undefined for full-page bursts")
	}

	return m, nil
}

// BurstColumn returns the column accessed on the given beat of a burst
// starting at startCol. Sequential bursts wrap within the naturally aligned
// block of burstBeats columns; interleaved bursts XOR the beat index; a
// full-page burst walks the whole row.
func BurstColumn(
	startCol, beat, burstBeats int,
	burstType BurstType,
	numCols int,
) int {
	if burstBeats >= numCols {
		return (startCol + beat) % numCols
	}

	if burstType == BurstInterleaved {
		return startCol ^ beat
	}

	base := startCol &^ (burstBeats - 1)

	return base | ((startCol + beat) & (burstBeats - 1))
}
