package heifio

import (
	"fmt"

	"github.com/ugparu/goheif/utils/bits/pio"
)

// Extent is one storage slice of an item. Data is only populated on the
// write path, for payload that is emitted after the iloc box itself and
// whose final offset is patched in afterwards.
type Extent struct {
	Index  uint64
	Offset uint64
	Length uint64

	Data []byte
}

// LocationItem locates one item's payload. Construction method 0 offsets
// are absolute stream positions (plus base offset), method 1 offsets are
// within the idat payload, method 2 offsets indirect through other items.
type LocationItem struct {
	ItemID             uint32
	ConstructionMethod uint8
	DataReferenceIndex uint16
	BaseOffset         uint64
	Extents            []Extent
}

// PendingOffset identifies an extent offset field that was written as a
// placeholder and has to be patched once the payload position is known.
// FieldPos is relative to the start of the iloc box; Width is the reserved
// footprint in bytes.
type PendingOffset struct {
	ItemIndex   int
	ExtentIndex int
	FieldPos    int
	Width       uint8
}

// ItemLocation is the iloc box: the item → extents index of the file.
type ItemLocation struct {
	Version uint8
	Flags   uint32

	OffsetSize     uint8
	LengthSize     uint8
	BaseOffsetSize uint8
	IndexSize      uint8

	Items []LocationItem

	// MinVersion is a caller-requested floor for DeriveVersion, so that a
	// rewritten file keeps the original encoding.
	MinVersion uint8

	// writeUpperBound is the largest absolute offset the writer may need to
	// patch into a pending extent; it drives the OffsetSize choice.
	writeUpperBound uint64

	pending []PendingOffset
	AtomPos
}

func (*ItemLocation) Tag() Tag {
	return ILOC
}

func (*ItemLocation) Children() []Atom {
	return nil
}

func (il *ItemLocation) String() string {
	return fmt.Sprintf("items=%d", len(il.Items))
}

// Item returns the location entry for an item id.
func (il *ItemLocation) Item(itemID uint32) *LocationItem {
	for i := range il.Items {
		if il.Items[i].ItemID == itemID {
			return &il.Items[i]
		}
	}
	return nil
}

// AppendData queues payload bytes for an item. The extent offset stays
// zero; the muxer emits the data after the iloc box and patches the final
// position in. A new entry is created when the item has none yet.
func (il *ItemLocation) AppendData(itemID uint32, data []byte) {
	item := il.Item(itemID)
	if item == nil {
		il.Items = append(il.Items, LocationItem{ItemID: itemID})
		item = &il.Items[len(il.Items)-1]
	}
	item.Extents = append(item.Extents, Extent{
		Length: uint64(len(data)),
		Data:   data,
	})
}

// AppendExtent records an already-placed extent, e.g. one whose payload
// went into idat (construction method 1).
func (il *ItemLocation) AppendExtent(itemID uint32, method uint8, offset, length uint64) {
	item := il.Item(itemID)
	if item == nil {
		il.Items = append(il.Items, LocationItem{ItemID: itemID, ConstructionMethod: method})
		item = &il.Items[len(il.Items)-1]
	}
	item.ConstructionMethod = method
	item.Extents = append(item.Extents, Extent{Offset: offset, Length: length})
}

// SetWriteUpperBound tells DeriveVersion the largest absolute file offset
// that can end up in a pending extent, so the offset width is chosen before
// the payload is emitted.
func (il *ItemLocation) SetWriteUpperBound(bound uint64) {
	il.writeUpperBound = bound
}

// PendingOffsets returns the placeholder fields recorded by the last
// Marshal, for the two-pass patch.
func (il *ItemLocation) PendingOffsets() []PendingOffset {
	return il.pending
}

// PatchOffset writes a final absolute offset into a placeholder field
// inside buf, where buf starts at the iloc box. The write must fit the
// reserved footprint.
func (il *ItemLocation) PatchOffset(buf []byte, p PendingOffset, offset uint64) error {
	switch p.Width {
	case 4:
		if offset > 0xffffffff {
			return fmt.Errorf("%w: offset %d in 4-byte field", ErrWriterOverflow, offset)
		}
		pio.PutU32BE(buf[p.FieldPos:], uint32(offset))
	case 8:
		pio.PutU64BE(buf[p.FieldPos:], offset)
	default:
		return fmt.Errorf("%w: offset %d in absent field", ErrWriterOverflow, offset)
	}
	il.Items[p.ItemIndex].Extents[p.ExtentIndex].Offset = offset
	return nil
}

// sizeFor picks the narrower of the two legal field widths that still
// holds v.
func sizeFor(v uint64) uint8 {
	if v > 0xffffffff {
		return 8
	}
	return 4
}

// DeriveVersion selects the smallest version and field widths covering the
// current items, honoring MinVersion and the write upper bound.
func (il *ItemLocation) DeriveVersion() {
	version := il.MinVersion
	var maxOffset, maxLength, maxBase, maxIndex uint64
	for i := range il.Items {
		item := &il.Items[i]
		if item.ItemID > 0xffff && version < 2 {
			version = 2
		}
		if item.ConstructionMethod != 0 && version < 1 {
			version = 1
		}
		if item.BaseOffset > maxBase {
			maxBase = item.BaseOffset
		}
		for _, ext := range item.Extents {
			if ext.Index != 0 && version < 1 {
				version = 1
			}
			if ext.Offset > maxOffset {
				maxOffset = ext.Offset
			}
			if ext.Length > maxLength {
				maxLength = ext.Length
			}
			if ext.Index > maxIndex {
				maxIndex = ext.Index
			}
		}
	}
	if il.writeUpperBound > maxOffset {
		maxOffset = il.writeUpperBound
	}
	il.Version = version
	il.OffsetSize = sizeFor(maxOffset)
	il.LengthSize = sizeFor(maxLength)
	if maxBase == 0 {
		il.BaseOffsetSize = 0
	} else {
		il.BaseOffsetSize = sizeFor(maxBase)
	}
	if version >= 1 && maxIndex != 0 {
		il.IndexSize = sizeFor(maxIndex)
	} else {
		il.IndexSize = 0
	}
}

func getUintN(b []byte, size uint8) uint64 {
	switch size {
	case 4:
		return uint64(pio.U32BE(b))
	case 8:
		return pio.U64BE(b)
	}
	return 0
}

func putUintN(b []byte, size uint8, v uint64) int {
	switch size {
	case 4:
		pio.PutU32BE(b, uint32(v))
		return 4
	case 8:
		pio.PutU64BE(b, v)
		return 8
	}
	return 0
}

func validFieldSize(s uint8) bool {
	return s == 0 || s == 4 || s == 8
}

func (il *ItemLocation) Unmarshal(b []byte, offset int) (n int, err error) {
	il.AtomPos.setPos(offset, len(b))
	if il.Version, il.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	if il.Version > 2 {
		err = unsupportedVersionErr(ILOC, il.Version)
		return
	}
	if len(b) < n+2 {
		err = parseErr("FieldSizes", offset+n, nil)
		return
	}
	il.OffsetSize = b[n] >> 4
	il.LengthSize = b[n] & 0xf
	il.BaseOffsetSize = b[n+1] >> 4
	if il.Version >= 1 {
		il.IndexSize = b[n+1] & 0xf
	} else {
		il.IndexSize = 0
	}
	n += 2
	for _, s := range []uint8{il.OffsetSize, il.LengthSize, il.BaseOffsetSize, il.IndexSize} {
		if !validFieldSize(s) {
			err = invalidFieldErr(ILOC, "field size", uint64(s))
			return
		}
	}

	var itemCount uint32
	if il.Version < 2 {
		if len(b) < n+2 {
			err = parseErr("ItemCount", offset+n, nil)
			return
		}
		itemCount = uint32(pio.U16BE(b[n:]))
		n += 2
	} else {
		if len(b) < n+4 {
			err = parseErr("ItemCount", offset+n, nil)
			return
		}
		itemCount = pio.U32BE(b[n:])
		n += 4
	}

	for i := uint32(0); i < itemCount; i++ {
		var item LocationItem
		if il.Version < 2 {
			if len(b) < n+2 {
				err = parseErr("ItemID", offset+n, nil)
				return
			}
			item.ItemID = uint32(pio.U16BE(b[n:]))
			n += 2
		} else {
			if len(b) < n+4 {
				err = parseErr("ItemID", offset+n, nil)
				return
			}
			item.ItemID = pio.U32BE(b[n:])
			n += 4
		}
		if il.Version >= 1 {
			if len(b) < n+2 {
				err = parseErr("ConstructionMethod", offset+n, nil)
				return
			}
			method := pio.U16BE(b[n:]) & 0xfff
			n += 2
			if method > 2 {
				err = invalidFieldErr(ILOC, "construction method", uint64(method))
				return
			}
			item.ConstructionMethod = uint8(method)
		}
		if len(b) < n+2 {
			err = parseErr("DataReferenceIndex", offset+n, nil)
			return
		}
		item.DataReferenceIndex = pio.U16BE(b[n:])
		n += 2
		if len(b) < n+int(il.BaseOffsetSize) {
			err = parseErr("BaseOffset", offset+n, nil)
			return
		}
		item.BaseOffset = getUintN(b[n:], il.BaseOffsetSize)
		n += int(il.BaseOffsetSize)

		if len(b) < n+2 {
			err = parseErr("ExtentCount", offset+n, nil)
			return
		}
		extentCount := pio.U16BE(b[n:])
		n += 2
		extentSize := int(il.OffsetSize) + int(il.LengthSize)
		if il.Version >= 1 {
			extentSize += int(il.IndexSize)
		}
		if len(b) < n+int(extentCount)*extentSize {
			err = parseErr("Extents", offset+n, nil)
			return
		}
		item.Extents = make([]Extent, 0, extentCount)
		for e := uint16(0); e < extentCount; e++ {
			var ext Extent
			if il.Version >= 1 {
				ext.Index = getUintN(b[n:], il.IndexSize)
				n += int(il.IndexSize)
			}
			ext.Offset = getUintN(b[n:], il.OffsetSize)
			n += int(il.OffsetSize)
			ext.Length = getUintN(b[n:], il.LengthSize)
			n += int(il.LengthSize)
			item.Extents = append(item.Extents, ext)
		}
		il.Items = append(il.Items, item)
	}
	return
}

func (il *ItemLocation) Marshal(b []byte) (n int) {
	il.pending = il.pending[:0]

	pio.PutU32BE(b[4:], uint32(ILOC))
	n = putFullBox(b, HeaderSize, il.Version, il.Flags)

	b[n] = il.OffsetSize<<4 | il.LengthSize&0xf
	if il.Version >= 1 {
		b[n+1] = il.BaseOffsetSize<<4 | il.IndexSize&0xf
	} else {
		b[n+1] = il.BaseOffsetSize << 4
	}
	n += 2

	if il.Version < 2 {
		pio.PutU16BE(b[n:], uint16(len(il.Items)))
		n += 2
	} else {
		pio.PutU32BE(b[n:], uint32(len(il.Items)))
		n += 4
	}

	for i := range il.Items {
		item := &il.Items[i]
		if il.Version < 2 {
			pio.PutU16BE(b[n:], uint16(item.ItemID))
			n += 2
		} else {
			pio.PutU32BE(b[n:], item.ItemID)
			n += 4
		}
		if il.Version >= 1 {
			pio.PutU16BE(b[n:], uint16(item.ConstructionMethod)&0xfff)
			n += 2
		}
		pio.PutU16BE(b[n:], item.DataReferenceIndex)
		n += 2
		n += putUintN(b[n:], il.BaseOffsetSize, item.BaseOffset)

		pio.PutU16BE(b[n:], uint16(len(item.Extents)))
		n += 2
		for e := range item.Extents {
			ext := &item.Extents[e]
			if il.Version >= 1 {
				n += putUintN(b[n:], il.IndexSize, ext.Index)
			}
			if ext.Data != nil {
				il.pending = append(il.pending, PendingOffset{
					ItemIndex:   i,
					ExtentIndex: e,
					FieldPos:    n,
					Width:       il.OffsetSize,
				})
			}
			n += putUintN(b[n:], il.OffsetSize, ext.Offset)
			n += putUintN(b[n:], il.LengthSize, ext.Length)
		}
	}
	pio.PutU32BE(b, uint32(n))
	return
}

func (il *ItemLocation) Len() (n int) {
	n = HeaderSize + fullBoxSize + 2
	if il.Version < 2 {
		n += 2
	} else {
		n += 4
	}
	for i := range il.Items {
		item := &il.Items[i]
		if il.Version < 2 {
			n += 2
		} else {
			n += 4
		}
		if il.Version >= 1 {
			n += 2
		}
		n += 2 // data reference index
		n += int(il.BaseOffsetSize)
		n += 2 // extent count
		extentSize := int(il.OffsetSize) + int(il.LengthSize)
		if il.Version >= 1 {
			extentSize += int(il.IndexSize)
		}
		n += len(item.Extents) * extentSize
	}
	return
}
