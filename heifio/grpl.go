package heifio

import "github.com/ugparu/goheif/utils/bits/pio"

// EntityToGroup is one grouping entry of the grpl box. The box code is
// the grouping type (altr, ster, ...); any trailing type-specific payload
// is preserved opaquely.
type EntityToGroup struct {
	GroupingType Tag
	Version      uint8
	Flags        uint32
	GroupID      uint32
	EntityIDs    []uint32
	Extra        []byte
	AtomPos
}

func (g *EntityToGroup) Tag() Tag {
	return g.GroupingType
}

func (*EntityToGroup) Children() []Atom {
	return nil
}

func (g *EntityToGroup) String() string {
	return "group=" + itoa(g.GroupID) + " entities=" + itoa(uint32(len(g.EntityIDs)))
}

func (g *EntityToGroup) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(g.GroupingType))
	n = putFullBox(b, HeaderSize, g.Version, g.Flags)
	pio.PutU32BE(b[n:], g.GroupID)
	n += 4
	pio.PutU32BE(b[n:], uint32(len(g.EntityIDs)))
	n += 4
	for _, id := range g.EntityIDs {
		pio.PutU32BE(b[n:], id)
		n += 4
	}
	copy(b[n:], g.Extra)
	n += len(g.Extra)
	pio.PutU32BE(b, uint32(n))
	return
}

func (g *EntityToGroup) Len() int {
	return HeaderSize + fullBoxSize + 8 + 4*len(g.EntityIDs) + len(g.Extra)
}

func (g *EntityToGroup) Unmarshal(b []byte, offset int) (n int, err error) {
	g.AtomPos.setPos(offset, len(b))
	if g.Version, g.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	if len(b) < n+8 {
		err = parseErr("GroupID", offset+n, nil)
		return
	}
	g.GroupID = pio.U32BE(b[n:])
	n += 4
	count := int(pio.U32BE(b[n:]))
	n += 4
	if len(b) < n+count*4 {
		err = parseErr("EntityIDs", offset+n, nil)
		return
	}
	g.EntityIDs = make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		g.EntityIDs = append(g.EntityIDs, pio.U32BE(b[n:]))
		n += 4
	}
	g.Extra = append([]byte(nil), b[n:]...)
	n = len(b)
	return
}

// GroupsList is the grpl container. Every child is scanned as an
// EntityToGroup; children that do not fit the common layout are retained
// as opaque Dummy atoms.
type GroupsList struct {
	atoms []Atom
	AtomPos
}

func (*GroupsList) Tag() Tag {
	return GRPL
}

func (gl *GroupsList) Children() []Atom {
	return gl.atoms
}

func (gl *GroupsList) AppendChild(atom Atom) {
	gl.atoms = append(gl.atoms, atom)
}

// Groups returns the entries that parsed with the common layout.
func (gl *GroupsList) Groups() (groups []*EntityToGroup) {
	for _, atom := range gl.atoms {
		if g, ok := atom.(*EntityToGroup); ok {
			groups = append(groups, g)
		}
	}
	return
}

func (gl *GroupsList) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(GRPL))
	n = HeaderSize
	n += marshalAtoms(b[n:], gl.atoms)
	pio.PutU32BE(b, uint32(n))
	return
}

func (gl *GroupsList) Len() int {
	return HeaderSize + lenAtoms(gl.atoms)
}

func (gl *GroupsList) Unmarshal(b []byte, offset int) (n int, err error) {
	gl.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	for n < len(b) {
		var h header
		if h, err = parseHeader(b[n:], offset+n); err != nil {
			return
		}
		sub := b[n : n+h.size]
		group := &EntityToGroup{GroupingType: h.tag}
		if _, gerr := group.Unmarshal(sub, offset+n); gerr != nil {
			dummy := &Dummy{Tag_: h.tag}
			if _, err = dummy.Unmarshal(sub, offset+n); err != nil {
				return
			}
			gl.atoms = append(gl.atoms, dummy)
		} else {
			gl.atoms = append(gl.atoms, group)
		}
		n += h.size
	}
	return
}
