package heifio

import "github.com/ugparu/goheif/utils/bits/pio"

// ColourProfile is the payload variant of a colr box: either an NCLX
// quadruple or an opaque ICC blob.
type ColourProfile interface {
	ProfileType() Tag
	profileLen() int
	marshalProfile(b []byte) int
}

// NCLXProfile is the compact colour description.
type NCLXProfile struct {
	Primaries uint16
	Transfer  uint16
	Matrix    uint16
	FullRange bool
}

// Unspecified colour values per ISO/IEC 23091-2.
const (
	ColourUnspecified = uint16(2)
)

// NewNCLXProfile returns the default profile: everything unspecified,
// full range.
func NewNCLXProfile() *NCLXProfile {
	return &NCLXProfile{
		Primaries: ColourUnspecified,
		Transfer:  ColourUnspecified,
		Matrix:    ColourUnspecified,
		FullRange: true,
	}
}

func (*NCLXProfile) ProfileType() Tag {
	return NCLX
}

func (*NCLXProfile) profileLen() int {
	return 7
}

func (p *NCLXProfile) marshalProfile(b []byte) (n int) {
	pio.PutU16BE(b, p.Primaries)
	pio.PutU16BE(b[2:], p.Transfer)
	pio.PutU16BE(b[4:], p.Matrix)
	b[6] = b2u8(p.FullRange) << 7
	return 7
}

// RawProfile carries an ICC profile (rICC or prof) as opaque bytes.
type RawProfile struct {
	Type Tag
	Data []byte
}

func (p *RawProfile) ProfileType() Tag {
	return p.Type
}

func (p *RawProfile) profileLen() int {
	return len(p.Data)
}

func (p *RawProfile) marshalProfile(b []byte) int {
	copy(b, p.Data)
	return len(p.Data)
}

// ColourInformation is the colr box, carrying exactly one profile variant.
type ColourInformation struct {
	Profile ColourProfile
	AtomPos
}

func (*ColourInformation) Tag() Tag {
	return COLR
}

func (*ColourInformation) Children() []Atom {
	return nil
}

func (c *ColourInformation) String() string {
	if c.Profile == nil {
		return "empty"
	}
	return "type=" + c.Profile.ProfileType().String()
}

func (c *ColourInformation) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(COLR))
	n = HeaderSize
	pio.PutU32BE(b[n:], uint32(c.Profile.ProfileType()))
	n += 4
	n += c.Profile.marshalProfile(b[n:])
	pio.PutU32BE(b, uint32(n))
	return
}

func (c *ColourInformation) Len() int {
	return HeaderSize + 4 + c.Profile.profileLen()
}

func (c *ColourInformation) Unmarshal(b []byte, offset int) (n int, err error) {
	c.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+4 {
		err = parseErr("ProfileType", offset+n, nil)
		return
	}
	profileType := Tag(pio.U32BE(b[n:]))
	n += 4
	switch profileType {
	case NCLX:
		if len(b) < n+7 {
			err = parseErr("NCLX", offset+n, nil)
			return
		}
		c.Profile = &NCLXProfile{
			Primaries: pio.U16BE(b[n:]),
			Transfer:  pio.U16BE(b[n+2:]),
			Matrix:    pio.U16BE(b[n+4:]),
			FullRange: b[n+6]&0x80 != 0,
		}
		n += 7
	case RICC, PROF:
		c.Profile = &RawProfile{
			Type: profileType,
			Data: append([]byte(nil), b[n:]...),
		}
		n = len(b)
	default:
		err = invalidFieldErr(COLR, "profile type", uint64(profileType))
		return
	}
	return
}
