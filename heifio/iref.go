package heifio

import "github.com/ugparu/goheif/utils/bits/pio"

// Reference is one typed edge set: from one item to an ordered list of
// items. On the wire each reference is a nested box whose code is the
// reference type.
type Reference struct {
	Type   Tag
	FromID uint32
	ToIDs  []uint32
}

// ItemReference is the iref full-box. Version 0 encodes 16-bit item ids,
// version 1 encodes 32-bit ids.
type ItemReference struct {
	Version uint8
	Flags   uint32

	References []Reference
	AtomPos
}

func (*ItemReference) Tag() Tag {
	return IREF
}

func (*ItemReference) Children() []Atom {
	return nil
}

func (ir *ItemReference) String() string {
	return "references=" + itoa(uint32(len(ir.References)))
}

// GetReferences returns the targets of the first reference of the given
// type originating at fromID.
func (ir *ItemReference) GetReferences(fromID uint32, refType Tag) []uint32 {
	for i := range ir.References {
		if ir.References[i].FromID == fromID && ir.References[i].Type == refType {
			return ir.References[i].ToIDs
		}
	}
	return nil
}

// ReferencesFrom returns every reference originating at fromID.
func (ir *ItemReference) ReferencesFrom(fromID uint32) (refs []Reference) {
	for i := range ir.References {
		if ir.References[i].FromID == fromID {
			refs = append(refs, ir.References[i])
		}
	}
	return
}

func (ir *ItemReference) AddReference(fromID uint32, refType Tag, toIDs ...uint32) {
	ir.References = append(ir.References, Reference{
		Type:   refType,
		FromID: fromID,
		ToIDs:  toIDs,
	})
}

func (ir *ItemReference) DeriveVersion() {
	ir.Version = 0
	for i := range ir.References {
		ref := &ir.References[i]
		if ref.FromID > 0xffff {
			ir.Version = 1
			return
		}
		for _, to := range ref.ToIDs {
			if to > 0xffff {
				ir.Version = 1
				return
			}
		}
	}
}

func (ir *ItemReference) idSize() int {
	if ir.Version == 0 {
		return 2
	}
	return 4
}

func (ir *ItemReference) putID(b []byte, id uint32) int {
	if ir.Version == 0 {
		pio.PutU16BE(b, uint16(id))
		return 2
	}
	pio.PutU32BE(b, id)
	return 4
}

func (ir *ItemReference) getID(b []byte) uint32 {
	if ir.Version == 0 {
		return uint32(pio.U16BE(b))
	}
	return pio.U32BE(b)
}

func (ir *ItemReference) refLen(ref *Reference) int {
	return HeaderSize + ir.idSize() + 2 + len(ref.ToIDs)*ir.idSize()
}

func (ir *ItemReference) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(IREF))
	n = putFullBox(b, HeaderSize, ir.Version, ir.Flags)
	for i := range ir.References {
		ref := &ir.References[i]
		pio.PutU32BE(b[n:], uint32(ir.refLen(ref)))
		pio.PutU32BE(b[n+4:], uint32(ref.Type))
		n += HeaderSize
		n += ir.putID(b[n:], ref.FromID)
		pio.PutU16BE(b[n:], uint16(len(ref.ToIDs)))
		n += 2
		for _, to := range ref.ToIDs {
			n += ir.putID(b[n:], to)
		}
	}
	pio.PutU32BE(b, uint32(n))
	return
}

func (ir *ItemReference) Len() (n int) {
	n = HeaderSize + fullBoxSize
	for i := range ir.References {
		n += ir.refLen(&ir.References[i])
	}
	return
}

func (ir *ItemReference) Unmarshal(b []byte, offset int) (n int, err error) {
	ir.AtomPos.setPos(offset, len(b))
	if ir.Version, ir.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	if ir.Version > 1 {
		err = unsupportedVersionErr(IREF, ir.Version)
		return
	}
	for n < len(b) {
		var h header
		if h, err = parseHeader(b[n:], offset+n); err != nil {
			return
		}
		ref := Reference{Type: h.tag}
		rn := n + h.hdrLen
		end := n + h.size
		if end < rn+ir.idSize()+2 {
			err = parseErr("Reference", offset+rn, nil)
			return
		}
		ref.FromID = ir.getID(b[rn:])
		rn += ir.idSize()
		count := pio.U16BE(b[rn:])
		rn += 2
		if end < rn+int(count)*ir.idSize() {
			err = parseErr("ToItemID", offset+rn, nil)
			return
		}
		ref.ToIDs = make([]uint32, 0, count)
		for i := uint16(0); i < count; i++ {
			ref.ToIDs = append(ref.ToIDs, ir.getID(b[rn:]))
			rn += ir.idSize()
		}
		ir.References = append(ir.References, ref)
		n = end
	}
	return
}
