package heifio

import "github.com/ugparu/goheif/utils/bits/pio"

// flagHiddenItem marks an item that is not part of the presentation.
const flagHiddenItem = 0x1

// ItemInfoEntry is the infe full-box. Only the modern layouts are
// supported: version 2 (16-bit ids) and version 3 (32-bit ids).
type ItemInfoEntry struct {
	Version uint8
	Flags   uint32

	ItemID          uint32
	ProtectionIndex uint16
	ItemType        Tag

	ItemName        string
	ContentType     string
	ContentEncoding string
	ItemURIType     string
	AtomPos
}

func (*ItemInfoEntry) Tag() Tag {
	return INFE
}

func (*ItemInfoEntry) Children() []Atom {
	return nil
}

func (e *ItemInfoEntry) Hidden() bool {
	return e.Flags&flagHiddenItem != 0
}

func (e *ItemInfoEntry) SetHidden(hidden bool) {
	if hidden {
		e.Flags |= flagHiddenItem
	} else {
		e.Flags &^= flagHiddenItem
	}
}

func (e *ItemInfoEntry) DeriveVersion() {
	if e.ItemID <= 0xffff {
		e.Version = 2
	} else {
		e.Version = 3
	}
}

func (e *ItemInfoEntry) idSize() int {
	if e.Version == 2 {
		return 2
	}
	return 4
}

func (e *ItemInfoEntry) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(INFE))
	n = putFullBox(b, HeaderSize, e.Version, e.Flags)
	if e.Version == 2 {
		pio.PutU16BE(b[n:], uint16(e.ItemID))
	} else {
		pio.PutU32BE(b[n:], e.ItemID)
	}
	n += e.idSize()
	pio.PutU16BE(b[n:], e.ProtectionIndex)
	n += 2
	pio.PutU32BE(b[n:], uint32(e.ItemType))
	n += 4
	n += putCString(b[n:], e.ItemName)
	switch e.ItemType {
	case MIME:
		n += putCString(b[n:], e.ContentType)
		if e.ContentEncoding != "" {
			n += putCString(b[n:], e.ContentEncoding)
		}
	case URI:
		n += putCString(b[n:], e.ItemURIType)
	}
	pio.PutU32BE(b, uint32(n))
	return
}

func (e *ItemInfoEntry) Len() (n int) {
	n = HeaderSize + fullBoxSize + e.idSize() + 2 + 4 + len(e.ItemName) + 1
	switch e.ItemType {
	case MIME:
		n += len(e.ContentType) + 1
		if e.ContentEncoding != "" {
			n += len(e.ContentEncoding) + 1
		}
	case URI:
		n += len(e.ItemURIType) + 1
	}
	return
}

func (e *ItemInfoEntry) Unmarshal(b []byte, offset int) (n int, err error) {
	e.AtomPos.setPos(offset, len(b))
	if e.Version, e.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	if e.Version < 2 || e.Version > 3 {
		err = unsupportedVersionErr(INFE, e.Version)
		return
	}
	if len(b) < n+e.idSize()+2+4 {
		err = parseErr("ItemID", offset+n, nil)
		return
	}
	if e.Version == 2 {
		e.ItemID = uint32(pio.U16BE(b[n:]))
	} else {
		e.ItemID = pio.U32BE(b[n:])
	}
	n += e.idSize()
	e.ProtectionIndex = pio.U16BE(b[n:])
	n += 2
	e.ItemType = Tag(pio.U32BE(b[n:]))
	n += 4
	e.ItemName, n = getCString(b, n)
	switch e.ItemType {
	case MIME:
		e.ContentType, n = getCString(b, n)
		if n < len(b) {
			e.ContentEncoding, n = getCString(b, n)
		}
	case URI:
		e.ItemURIType, n = getCString(b, n)
	}
	return
}

func (e *ItemInfoEntry) String() string {
	return "item=" + itoa(e.ItemID) + " type=" + e.ItemType.String()
}
