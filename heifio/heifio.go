// Package heifio implements the ISOBMFF box layer used by HEIF still-image
// files: parsing an untrusted byte stream into a typed atom tree, and
// marshaling a tree back into its wire form.
package heifio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ugparu/goheif/utils/bits/pio"
	"github.com/ugparu/goheif/utils/logger"
)

const (
	HeaderSize     = 8
	fullBoxSize    = 4
	largeSizeExtra = 8
	uuidTypeSize   = 16
)

type Tag uint32

func (t Tag) String() string {
	var b [4]byte
	pio.PutU32BE(b[:], uint32(t))
	for i := 0; i < 4; i++ {
		if b[i] == 0 {
			b[i] = ' '
		}
	}
	return string(b[:])
}

// printable reports whether every byte of the code is printable ASCII.
// Non-printable codes are tolerated but flagged as a diagnostic.
func (t Tag) printable() bool {
	var b [4]byte
	pio.PutU32BE(b[:], uint32(t))
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

func StringToTag(tag string) Tag {
	var b [4]byte
	copy(b[:], tag)
	return Tag(pio.U32BE(b[:]))
}

// Atom is a single box of the tree. Marshal writes the complete box
// including its header and returns the number of bytes written, which
// must equal Len. Unmarshal consumes the complete box from b, where b is
// exactly the declared box extent, and offset is the file position of b[0].
type Atom interface {
	Pos() (int, int)
	Tag() Tag
	Marshal(b []byte) int
	Unmarshal(b []byte, offset int) (int, error)
	Len() int
	Children() []Atom
}

type AtomPos struct {
	Offset int
	Size   int
}

func (a AtomPos) Pos() (int, int) {
	return a.Offset, a.Size
}

func (a *AtomPos) setPos(offset int, size int) {
	a.Offset, a.Size = offset, size
}

// versionDeriver is implemented by atoms whose wire layout depends on a
// version that has to be computed from the payload before writing.
type versionDeriver interface {
	DeriveVersion()
}

// DeriveVersionRecursive walks the tree bottom-up and lets every atom pick
// the smallest version and field widths that fit its current payload.
func DeriveVersionRecursive(root Atom) {
	for _, child := range root.Children() {
		DeriveVersionRecursive(child)
	}
	if vd, ok := root.(versionDeriver); ok {
		vd.DeriveVersion()
	}
}

// header is the decoded box preamble: 8 bytes in the common case, extended
// by 8 for a 64-bit size and by 16 for a uuid usertype.
type header struct {
	size     int
	tag      Tag
	hdrLen   int
	userType uuid.UUID
}

// parseHeader decodes the preamble of the box starting at b[0]. b spans the
// remainder of the enclosing range, so the declared size is validated
// against both the header length and len(b).
func parseHeader(b []byte, offset int) (h header, err error) {
	if len(b) < HeaderSize {
		err = fmt.Errorf("%w: %d bytes remaining at offset %d", ErrTruncatedBox, len(b), offset)
		return
	}
	size := int(pio.U32BE(b))
	h.tag = Tag(pio.U32BE(b[4:]))
	h.hdrLen = HeaderSize

	if size == 1 {
		if len(b) < HeaderSize+largeSizeExtra {
			err = fmt.Errorf("%w: truncated 64-bit size at offset %d", ErrTruncatedBox, offset)
			return
		}
		size64 := pio.U64BE(b[HeaderSize:])
		if size64 > uint64(int(^uint(0)>>1)) {
			err = fmt.Errorf("%w: box %v declares size %d", ErrInvalidBoxSize, h.tag, size64)
			return
		}
		size = int(size64)
		h.hdrLen += largeSizeExtra
	}
	if h.tag == UUID {
		if len(b) < h.hdrLen+uuidTypeSize {
			err = fmt.Errorf("%w: truncated uuid usertype at offset %d", ErrTruncatedBox, offset)
			return
		}
		copy(h.userType[:], b[h.hdrLen:])
		h.hdrLen += uuidTypeSize
	}
	if size == 0 {
		// Box extends to the end of the enclosing range.
		size = len(b)
	}
	if size < h.hdrLen {
		err = fmt.Errorf("%w: box %v declares size %d, header is %d", ErrInvalidBoxSize, h.tag, size, h.hdrLen)
		return
	}
	if size > len(b) {
		err = fmt.Errorf("%w: box %v declares size %d, %d bytes remain", ErrTruncatedBox, h.tag, size, len(b))
		return
	}
	if !h.tag.printable() {
		logger.Warningf(h.tag, "non-printable box code 0x%08x at offset %d", uint32(h.tag), offset)
	}
	h.size = size
	return
}

// parseFullBox reads the 4-byte version+flags extension at b[n].
func parseFullBox(b []byte, n int, offset int) (version uint8, flags uint32, nn int, err error) {
	if len(b) < n+fullBoxSize {
		err = parseErr("FullBox", offset+n, nil)
		return
	}
	version = pio.U8(b[n:])
	flags = pio.U24BE(b[n+1:])
	nn = n + fullBoxSize
	return
}

func putFullBox(b []byte, n int, version uint8, flags uint32) int {
	pio.PutU8(b[n:], version)
	pio.PutU24BE(b[n+1:], flags&0xffffff)
	return n + fullBoxSize
}

func itoa(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

// getCString reads a zero-terminated UTF-8 string starting at b[n]. A
// missing terminator at the end of the box is tolerated.
func getCString(b []byte, n int) (string, int) {
	start := n
	for n < len(b) && b[n] != 0 {
		n++
	}
	s := string(b[start:n])
	if n < len(b) {
		n++ // consume the terminator
	}
	return s, n
}

func putCString(b []byte, s string) int {
	n := copy(b, s)
	b[n] = 0
	return n + 1
}

type atomMaker func() Atom

var atomMakers = map[Tag]atomMaker{
	FTYP: func() Atom { return &FileType{} },
	META: func() Atom { return &Meta{} },
	HDLR: func() Atom { return &HandlerRefer{} },
	PITM: func() Atom { return &PrimaryItem{} },
	ILOC: func() Atom { return &ItemLocation{} },
	IINF: func() Atom { return &ItemInfo{} },
	INFE: func() Atom { return &ItemInfoEntry{} },
	IREF: func() Atom { return &ItemReference{} },
	IPRP: func() Atom { return &ItemProperties{} },
	IPCO: func() Atom { return &PropertyContainer{} },
	IPMA: func() Atom { return &PropertyAssociation{} },
	ISPE: func() Atom { return &ImageSpatialExtents{} },
	PASP: func() Atom { return &PixelAspectRatio{} },
	PIXI: func() Atom { return &PixelInformation{} },
	IROT: func() Atom { return &ImageRotation{} },
	IMIR: func() Atom { return &ImageMirror{} },
	AUXC: func() Atom { return &AuxiliaryType{} },
	CLAP: func() Atom { return &CleanAperture{} },
	LSEL: func() Atom { return &LayerSelector{} },
	A1OP: func() Atom { return &AV1OperatingPoint{} },
	A1LX: func() Atom { return &AV1LayeredImageIndexing{} },
	CLLI: func() Atom { return &ContentLightLevel{} },
	MDCV: func() Atom { return &MasteringDisplayColourVolume{} },
	HVCC: func() Atom { return &HVCConf{} },
	AV1C: func() Atom { return &AV1Conf{} },
	VVCC: func() Atom { return &VVCConf{} },
	COLR: func() Atom { return &ColourInformation{} },
	UDES: func() Atom { return &UserDescription{} },
	IDAT: func() Atom { return &ItemData{} },
	GRPL: func() Atom { return &GroupsList{} },
	DINF: func() Atom { return &DataInformation{} },
	DREF: func() Atom { return &DataReference{} },
	URL:  func() Atom { return &DataEntryURL{} },
	MDAT: func() Atom { return &MediaData{} },
}

// UnmarshalAtoms scans b, which spans the body of a container box (or a
// complete top-level buffer), into atoms. Unknown codes become Dummy atoms
// that round-trip byte-exactly. A child failing with a recoverable error
// (unsupported version, out-of-range field) is demoted to a Dummy and the
// scan continues; structural errors abort and return the atoms scanned so
// far together with the error.
func UnmarshalAtoms(b []byte, offset int) (atoms []Atom, err error) {
	n := 0
	for n < len(b) {
		var h header
		if h, err = parseHeader(b[n:], offset+n); err != nil {
			return
		}
		sub := b[n : n+h.size]

		var atom Atom
		// Typed variants lay out their fields after the common 8-byte
		// header; boxes using an extended header stay opaque.
		if maker, ok := atomMakers[h.tag]; ok && h.hdrLen == HeaderSize {
			atom = maker()
			if _, aerr := atom.Unmarshal(sub, offset+n); aerr != nil {
				if !recoverable(aerr) {
					err = aerr
					return
				}
				logger.Warningf(h.tag, "skipping box at offset %d: %v", offset+n, aerr)
				atom = nil
			}
		}
		if atom == nil {
			dummy := &Dummy{Tag_: h.tag}
			if _, err = dummy.Unmarshal(sub, offset+n); err != nil {
				return
			}
			atom = dummy
		}
		atoms = append(atoms, atom)
		n += h.size
	}
	return
}

// recoverable reports whether a parse failure is local to one box, in which
// case the box is kept as an opaque blob and its siblings still parse.
func recoverable(err error) bool {
	return errors.Is(err, ErrUnsupportedVersion) ||
		errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrMissingRequiredChild) ||
		errors.Is(err, ErrDuplicateChild)
}

func marshalAtoms(b []byte, atoms []Atom) (n int) {
	for _, atom := range atoms {
		n += atom.Marshal(b[n:])
	}
	return
}

func lenAtoms(atoms []Atom) (n int) {
	for _, atom := range atoms {
		n += atom.Len()
	}
	return
}

// Dummy preserves a box this library does not interpret, byte-exactly,
// header included.
type Dummy struct {
	Data []byte
	Tag_ Tag
	AtomPos
}

func (d Dummy) Children() []Atom {
	return nil
}

func (d Dummy) Tag() Tag {
	return d.Tag_
}

func (d Dummy) Len() int {
	return len(d.Data)
}

func (d Dummy) Marshal(b []byte) int {
	copy(b, d.Data)
	return len(d.Data)
}

func (d *Dummy) Unmarshal(b []byte, offset int) (n int, err error) {
	(&d.AtomPos).setPos(offset, len(b))
	d.Data = b
	n = len(b)
	return
}

func FindChildrenByName(root Atom, tag string) Atom {
	return FindChildren(root, StringToTag(tag))
}

func FindChildren(root Atom, tag Tag) Atom {
	if root.Tag() == tag {
		return root
	}
	for _, child := range root.Children() {
		if r := FindChildren(child, tag); r != nil {
			return r
		}
	}
	return nil
}

func ChildrenByTag(root Atom, tag Tag) (atoms []Atom) {
	for _, child := range root.Children() {
		if child.Tag() == tag {
			atoms = append(atoms, child)
		}
	}
	return
}

// maxSlurpSize bounds how much of an unrecognized top-level box is kept in
// memory before falling back to a position-only placeholder.
const maxSlurpSize = 16 << 20

// ReadFileAtoms reads the top-level boxes of a stream. ftyp, meta and other
// recognized boxes parse fully; mdat payload is never loaded, only its
// position is recorded. A structural error aborts the scan but the atoms
// parsed before it remain usable.
func ReadFileAtoms(r io.ReadSeeker) (atoms []Atom, err error) {
	for {
		var offset int64
		if offset, err = r.Seek(0, io.SeekCurrent); err != nil {
			return
		}

		taghdr := make([]byte, HeaderSize)
		if _, err = io.ReadFull(r, taghdr); err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			} else if errors.Is(err, io.ErrUnexpectedEOF) {
				err = fmt.Errorf("%w: truncated header at offset %d", ErrTruncatedBox, offset)
			}
			return
		}
		size := int64(pio.U32BE(taghdr))
		tag := Tag(pio.U32BE(taghdr[4:]))
		hdrLen := int64(HeaderSize)
		var sbuf []byte

		switch size {
		case 1:
			sbuf = make([]byte, largeSizeExtra)
			if _, err = io.ReadFull(r, sbuf); err != nil {
				err = fmt.Errorf("%w: truncated 64-bit size at offset %d", ErrTruncatedBox, offset)
				return
			}
			size = pio.I64BE(sbuf)
			hdrLen += largeSizeExtra
		case 0:
			// Extends to end of file; only legal as the final box.
			end, _ := r.Seek(0, io.SeekEnd)
			size = end - offset
			if _, err = r.Seek(offset+hdrLen, io.SeekStart); err != nil {
				return
			}
		}
		if size < hdrLen {
			err = fmt.Errorf("%w: box %v declares size %d", ErrInvalidBoxSize, tag, size)
			return
		}

		if tag == MDAT {
			var end int64
			if end, err = r.Seek(0, io.SeekEnd); err != nil {
				return
			}
			if offset+size > end {
				err = fmt.Errorf("%w: box %v declares size %d, %d bytes remain", ErrTruncatedBox, tag, size, end-offset)
				return
			}
			mdat := &MediaData{}
			mdat.setPos(int(offset), int(size))
			mdat.DataOffset = offset + hdrLen
			atoms = append(atoms, mdat)
			if _, err = r.Seek(offset+size, io.SeekStart); err != nil {
				return
			}
			continue
		}

		_, known := atomMakers[tag]
		if !known && size > maxSlurpSize {
			logger.Warningf(tag, "skipping %d byte box at offset %d", size, offset)
			dummy := &Dummy{Tag_: tag}
			dummy.setPos(int(offset), int(size))
			atoms = append(atoms, dummy)
			if _, err = r.Seek(offset+size, io.SeekStart); err != nil {
				return
			}
			continue
		}

		b := make([]byte, size)
		copy(b, taghdr)
		copy(b[HeaderSize:], sbuf)
		if _, err = io.ReadFull(r, b[hdrLen:]); err != nil {
			err = fmt.Errorf("%w: box %v declares size %d at offset %d", ErrTruncatedBox, tag, size, offset)
			return
		}
		var parsed []Atom
		if parsed, err = UnmarshalAtoms(b, int(offset)); err != nil {
			atoms = append(atoms, parsed...)
			return
		}
		atoms = append(atoms, parsed...)
	}
}

// WriteFileAtoms marshals a top-level forest in order, as-is: versions and
// field widths are written the way they are set, so a parsed tree
// round-trips byte-exactly. Payload-bearing atoms (mdat) must carry their
// data; position-only placeholders from ReadFileAtoms do not.
func WriteFileAtoms(w io.Writer, atoms []Atom) error {
	for _, atom := range atoms {
		b := make([]byte, atom.Len())
		atom.Marshal(b)
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func printatom(out io.Writer, root Atom, depth int, maxDepth int) {
	offset, size := root.Pos()

	type stringintf interface {
		String() string
	}

	fmt.Fprintf(out,
		"%s%v offset=%d size=%d",
		strings.Repeat(" ", depth*2), root.Tag(), offset, size,
	)
	if str, ok := root.(stringintf); ok {
		fmt.Fprint(out, " ", str.String())
	}
	fmt.Fprintln(out)

	if maxDepth > 0 && depth+1 >= maxDepth {
		return
	}
	for _, child := range root.Children() {
		printatom(out, child, depth+1, maxDepth)
	}
}

// FprintAtom dumps the tree below root; maxDepth 0 means unbounded.
func FprintAtom(out io.Writer, root Atom, maxDepth int) {
	printatom(out, root, 0, maxDepth)
}

func PrintAtom(root Atom) {
	FprintAtom(os.Stdout, root, 0)
}
