// Package nal splits coded video byte streams into NAL units, accepting
// raw, length-prefixed (AVCC/HVCC) and Annex B start-code framing.
package nal

import (
	"github.com/ugparu/goheif/utils/bits/pio"
)

// Framing of a coded stream.
const (
	FramingRaw    = iota // a single unframed NALU
	FramingAVCC          // 4-byte length prefixes
	FramingAnnexB        // 0x000001 / 0x00000001 start codes
)

// MinNALUSize is the smallest input treated as a framed stream.
const MinNALUSize = 4

// isStartCode checks for a 3- or 4-byte start code at pos.
func isStartCode(b []byte, pos int) (startCodeLength int, found bool) {
	if pos+2 >= len(b) || b[pos] != 0 {
		return 0, false
	}

	val3 := pio.U24BE(b[pos:])
	if val3 == 1 {
		return 3, true
	}

	if val3 == 0 && pos+3 < len(b) && b[pos+3] == 1 {
		return 4, true
	}

	return 0, false
}

func parseAnnexB(b []byte, val3, val4 uint32) [][]byte {
	var nalus [][]byte
	start := 0
	pos := 0
	for {
		if start != pos {
			nalus = append(nalus, b[start:pos])
		}
		if val3 == 1 {
			pos += 3
		} else if val4 == 1 {
			pos += 4
		}
		start = pos
		if start == len(b) {
			break
		}
		val3 = 0
		val4 = 0
		for pos < len(b) {
			startCodeLength, found := isStartCode(b, pos)
			if found {
				if startCodeLength == 3 {
					val3 = 1
				} else {
					val4 = 1
				}
				break
			}
			pos++
		}
	}
	return nalus
}

// SplitNALUs splits a coded stream into NAL units and reports the framing
// it detected.
func SplitNALUs(b []byte) (nalus [][]byte, framing int) {
	if len(b) < MinNALUSize {
		return [][]byte{b}, FramingRaw
	}

	// Start codes win over a length-prefix reading: a stream beginning
	// 0x00000001 would otherwise parse as a 1-byte AVCC unit.
	val3 := pio.U24BE(b)
	val4 := pio.U32BE(b)
	if val3 == 1 || val4 == 1 {
		return parseAnnexB(b, val3, val4), FramingAnnexB
	}

	if val4 <= uint32(len(b)) {
		length := val4
		rest := b[MinNALUSize:]
		nalus = [][]byte{}
		for {
			if length > uint32(len(rest)) {
				// Salvage the tail of a corrupted stream.
				if len(rest) > 0 {
					nalus = append(nalus, rest)
				}
				break
			}
			if length > 0 {
				nalus = append(nalus, rest[:length])
			}
			rest = rest[length:]
			if len(rest) < MinNALUSize {
				break
			}
			length = pio.U32BE(rest)
			rest = rest[MinNALUSize:]
			if length > uint32(len(rest)) {
				if len(rest) > 0 {
					nalus = append(nalus, rest)
				}
				break
			}
		}
		if len(rest) == 0 || len(nalus) > 0 {
			return nalus, FramingAVCC
		}
	}

	return [][]byte{b}, FramingRaw
}
