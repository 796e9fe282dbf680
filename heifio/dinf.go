package heifio

import "github.com/ugparu/goheif/utils/bits/pio"

// flagSelfContained on a dref entry means the payload lives in this file.
const flagSelfContained = 0x1

// DataInformation is the dinf container.
type DataInformation struct {
	Reference *DataReference

	atoms []Atom
	AtomPos
}

// NewDataInformation builds the usual still-image data information tree:
// a dref with a single self-contained url entry.
func NewDataInformation() *DataInformation {
	di := &DataInformation{}
	dr := &DataReference{}
	dr.AppendChild(&DataEntryURL{Flags: flagSelfContained})
	di.AppendChild(dr)
	return di
}

func (*DataInformation) Tag() Tag {
	return DINF
}

func (di *DataInformation) Children() []Atom {
	return di.atoms
}

func (di *DataInformation) AppendChild(atom Atom) {
	di.atoms = append(di.atoms, atom)
	if dr, ok := atom.(*DataReference); ok && di.Reference == nil {
		di.Reference = dr
	}
}

func (di *DataInformation) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(DINF))
	n = HeaderSize
	n += marshalAtoms(b[n:], di.atoms)
	pio.PutU32BE(b, uint32(n))
	return
}

func (di *DataInformation) Len() int {
	return HeaderSize + lenAtoms(di.atoms)
}

func (di *DataInformation) Unmarshal(b []byte, offset int) (n int, err error) {
	di.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	var atoms []Atom
	if atoms, err = UnmarshalAtoms(b[n:], offset+n); err != nil {
		return
	}
	for _, atom := range atoms {
		di.AppendChild(atom)
	}
	n = len(b)
	return
}

// DataReference is the dref full-box: a counted list of data entry
// children.
type DataReference struct {
	Version uint8
	Flags   uint32

	atoms []Atom
	AtomPos
}

func (*DataReference) Tag() Tag {
	return DREF
}

func (dr *DataReference) Children() []Atom {
	return dr.atoms
}

func (dr *DataReference) AppendChild(atom Atom) {
	dr.atoms = append(dr.atoms, atom)
}

func (dr *DataReference) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(DREF))
	n = putFullBox(b, HeaderSize, dr.Version, dr.Flags)
	pio.PutU32BE(b[n:], uint32(len(dr.atoms)))
	n += 4
	n += marshalAtoms(b[n:], dr.atoms)
	pio.PutU32BE(b, uint32(n))
	return
}

func (dr *DataReference) Len() int {
	return HeaderSize + fullBoxSize + 4 + lenAtoms(dr.atoms)
}

func (dr *DataReference) Unmarshal(b []byte, offset int) (n int, err error) {
	dr.AtomPos.setPos(offset, len(b))
	if dr.Version, dr.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	if len(b) < n+4 {
		err = parseErr("EntryCount", offset+n, nil)
		return
	}
	n += 4
	if dr.atoms, err = UnmarshalAtoms(b[n:], offset+n); err != nil {
		return
	}
	n = len(b)
	return
}

// DataEntryURL is the url entry of a dref box. With the self-contained
// flag set, the location string is absent.
type DataEntryURL struct {
	Version  uint8
	Flags    uint32
	Location string
	AtomPos
}

func (*DataEntryURL) Tag() Tag {
	return URL
}

func (*DataEntryURL) Children() []Atom {
	return nil
}

func (u *DataEntryURL) SelfContained() bool {
	return u.Flags&flagSelfContained != 0
}

func (u *DataEntryURL) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(URL))
	n = putFullBox(b, HeaderSize, u.Version, u.Flags)
	if !u.SelfContained() {
		n += putCString(b[n:], u.Location)
	}
	pio.PutU32BE(b, uint32(n))
	return
}

func (u *DataEntryURL) Len() (n int) {
	n = HeaderSize + fullBoxSize
	if !u.SelfContained() {
		n += len(u.Location) + 1
	}
	return
}

func (u *DataEntryURL) Unmarshal(b []byte, offset int) (n int, err error) {
	u.AtomPos.setPos(offset, len(b))
	if u.Version, u.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	if !u.SelfContained() && n < len(b) {
		u.Location, n = getCString(b, n)
	}
	return
}
