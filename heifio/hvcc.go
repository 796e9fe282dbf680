package heifio

import (
	"fmt"

	"github.com/ugparu/goheif/utils/bits/pio"
	"github.com/ugparu/goheif/utils/nal"
)

// NALArray is one array of the HEVC decoder configuration record: NAL
// units of a single type (VPS, SPS, PPS, SEI).
type NALArray struct {
	Completeness bool
	NALUnitType  uint8
	Units        [][]byte
}

// HVCConf is the hvcC box: the HEVCDecoderConfigurationRecord.
type HVCConf struct {
	ConfigurationVersion             uint8
	GeneralProfileSpace              uint8
	GeneralTierFlag                  bool
	GeneralProfileIDC                uint8
	GeneralProfileCompatibilityFlags uint32
	GeneralConstraintIndicatorFlags  uint64 // 48 bits
	GeneralLevelIDC                  uint8
	MinSpatialSegmentationIDC        uint16 // 12 bits
	ParallelismType                  uint8  // 2 bits
	ChromaFormat                     uint8  // 2 bits
	BitDepthLumaMinus8               uint8  // 3 bits
	BitDepthChromaMinus8             uint8  // 3 bits
	AvgFrameRate                     uint16
	ConstantFrameRate                uint8 // 2 bits
	NumTemporalLayers                uint8 // 3 bits
	TemporalIDNested                 uint8 // 1 bit
	LengthSizeMinusOne               uint8 // 2 bits

	NALArrays []NALArray
	AtomPos
}

const hvccFixedSize = 23

func (*HVCConf) Tag() Tag {
	return HVCC
}

func (*HVCConf) Children() []Atom {
	return nil
}

func (c *HVCConf) String() string {
	return fmt.Sprintf("profile=%d level=%d arrays=%d",
		c.GeneralProfileIDC, c.GeneralLevelIDC, len(c.NALArrays))
}

// LengthSize is the byte width of the NAL length prefix used by samples.
func (c *HVCConf) LengthSize() int {
	return int(c.LengthSizeMinusOne&0x3) + 1
}

// AppendNALData adds an in-band parameter set to the array for its NAL
// unit type (bits 6..1 of the first NAL header byte).
func (c *HVCConf) AppendNALData(nal []byte) {
	if len(nal) == 0 {
		return
	}
	nalType := (nal[0] >> 1) & 0x3f
	for i := range c.NALArrays {
		if c.NALArrays[i].NALUnitType == nalType {
			c.NALArrays[i].Units = append(c.NALArrays[i].Units, nal)
			return
		}
	}
	c.NALArrays = append(c.NALArrays, NALArray{
		Completeness: true,
		NALUnitType:  nalType,
		Units:        [][]byte{nal},
	})
}

// hevcParameterSetNAL reports whether a NAL unit type carries an in-band
// parameter set (VPS, SPS, PPS, prefix/suffix SEI).
func hevcParameterSetNAL(nalType uint8) bool {
	switch nalType {
	case 32, 33, 34, 39, 40:
		return true
	}
	return false
}

// AppendNALStream splits a coded stream (Annex B or length-prefixed) and
// stores its parameter-set NAL units.
func (c *HVCConf) AppendNALStream(stream []byte) {
	nalus, _ := nal.SplitNALUs(stream)
	for _, unit := range nalus {
		if len(unit) == 0 {
			continue
		}
		if hevcParameterSetNAL((unit[0] >> 1) & 0x3f) {
			c.AppendNALData(unit)
		}
	}
}

// Headers concatenates every stored parameter set, each with a 4-byte
// length prefix, forming the bitstream preamble for a coded sample.
func (c *HVCConf) Headers() []byte {
	var dest []byte
	for i := range c.NALArrays {
		for _, unit := range c.NALArrays[i].Units {
			var l [4]byte
			pio.PutU32BE(l[:], uint32(len(unit)))
			dest = append(dest, l[:]...)
			dest = append(dest, unit...)
		}
	}
	return dest
}

func (c *HVCConf) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(HVCC))
	n = HeaderSize
	pio.PutU8(b[n:], c.ConfigurationVersion)
	n++
	tier := uint8(0)
	if c.GeneralTierFlag {
		tier = 1
	}
	pio.PutU8(b[n:], c.GeneralProfileSpace<<6|tier<<5|c.GeneralProfileIDC&0x1f)
	n++
	pio.PutU32BE(b[n:], c.GeneralProfileCompatibilityFlags)
	n += 4
	pio.PutU16BE(b[n:], uint16(c.GeneralConstraintIndicatorFlags>>32))
	n += 2
	pio.PutU32BE(b[n:], uint32(c.GeneralConstraintIndicatorFlags))
	n += 4
	pio.PutU8(b[n:], c.GeneralLevelIDC)
	n++
	pio.PutU16BE(b[n:], 0xf000|c.MinSpatialSegmentationIDC&0xfff)
	n += 2
	pio.PutU8(b[n:], 0xfc|c.ParallelismType&0x3)
	n++
	pio.PutU8(b[n:], 0xfc|c.ChromaFormat&0x3)
	n++
	pio.PutU8(b[n:], 0xf8|c.BitDepthLumaMinus8&0x7)
	n++
	pio.PutU8(b[n:], 0xf8|c.BitDepthChromaMinus8&0x7)
	n++
	pio.PutU16BE(b[n:], c.AvgFrameRate)
	n += 2
	pio.PutU8(b[n:], c.ConstantFrameRate<<6|(c.NumTemporalLayers&0x7)<<3|(c.TemporalIDNested&0x1)<<2|c.LengthSizeMinusOne&0x3)
	n++
	pio.PutU8(b[n:], uint8(len(c.NALArrays)))
	n++
	for i := range c.NALArrays {
		arr := &c.NALArrays[i]
		first := arr.NALUnitType & 0x3f
		if arr.Completeness {
			first |= 0x80
		}
		pio.PutU8(b[n:], first)
		n++
		pio.PutU16BE(b[n:], uint16(len(arr.Units)))
		n += 2
		for _, unit := range arr.Units {
			pio.PutU16BE(b[n:], uint16(len(unit)))
			n += 2
			copy(b[n:], unit)
			n += len(unit)
		}
	}
	pio.PutU32BE(b, uint32(n))
	return
}

func (c *HVCConf) Len() (n int) {
	n = HeaderSize + hvccFixedSize
	for i := range c.NALArrays {
		n += 3
		for _, unit := range c.NALArrays[i].Units {
			n += 2 + len(unit)
		}
	}
	return
}

func (c *HVCConf) Unmarshal(b []byte, offset int) (n int, err error) {
	c.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+hvccFixedSize {
		err = parseErr("Configuration", offset+n, nil)
		return
	}
	c.ConfigurationVersion = pio.U8(b[n:])
	n++
	v := pio.U8(b[n:])
	n++
	c.GeneralProfileSpace = v >> 6
	c.GeneralTierFlag = v&0x20 != 0
	c.GeneralProfileIDC = v & 0x1f
	c.GeneralProfileCompatibilityFlags = pio.U32BE(b[n:])
	n += 4
	c.GeneralConstraintIndicatorFlags = uint64(pio.U16BE(b[n:]))<<32 | uint64(pio.U32BE(b[n+2:]))
	n += 6
	c.GeneralLevelIDC = pio.U8(b[n:])
	n++
	c.MinSpatialSegmentationIDC = pio.U16BE(b[n:]) & 0xfff
	n += 2
	c.ParallelismType = pio.U8(b[n:]) & 0x3
	n++
	c.ChromaFormat = pio.U8(b[n:]) & 0x3
	n++
	c.BitDepthLumaMinus8 = pio.U8(b[n:]) & 0x7
	n++
	c.BitDepthChromaMinus8 = pio.U8(b[n:]) & 0x7
	n++
	c.AvgFrameRate = pio.U16BE(b[n:])
	n += 2
	v = pio.U8(b[n:])
	n++
	c.ConstantFrameRate = v >> 6
	c.NumTemporalLayers = v >> 3 & 0x7
	c.TemporalIDNested = v >> 2 & 0x1
	c.LengthSizeMinusOne = v & 0x3
	numArrays := int(pio.U8(b[n:]))
	n++
	for i := 0; i < numArrays; i++ {
		if len(b) < n+3 {
			err = parseErr("NALArray", offset+n, nil)
			return
		}
		var arr NALArray
		first := pio.U8(b[n:])
		n++
		arr.Completeness = first&0x80 != 0
		arr.NALUnitType = first & 0x3f
		numNALUs := int(pio.U16BE(b[n:]))
		n += 2
		arr.Units = make([][]byte, 0, numNALUs)
		for u := 0; u < numNALUs; u++ {
			if len(b) < n+2 {
				err = parseErr("NALUnitLength", offset+n, nil)
				return
			}
			unitLen := int(pio.U16BE(b[n:]))
			n += 2
			if len(b) < n+unitLen {
				err = parseErr("NALUnit", offset+n, nil)
				return
			}
			arr.Units = append(arr.Units, append([]byte(nil), b[n:n+unitLen]...))
			n += unitLen
		}
		c.NALArrays = append(c.NALArrays, arr)
	}
	return
}
