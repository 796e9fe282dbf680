package heifio

import "github.com/ugparu/goheif/utils/bits/pio"

const (
	baseFtypSize  = 16
	bytesPerBrand = 4
)

func NewFileType(major Tag, compatible ...Tag) *FileType {
	return &FileType{
		MajorBrand:       major,
		MinorVersion:     0,
		CompatibleBrands: compatible,
	}
}

type FileType struct {
	MajorBrand       Tag
	MinorVersion     uint32
	CompatibleBrands []Tag
	AtomPos
}

func (*FileType) Tag() Tag {
	return FTYP
}

func (f *FileType) HasCompatibleBrand(brand Tag) bool {
	for _, b := range f.CompatibleBrands {
		if b == brand {
			return true
		}
	}
	return false
}

func (f *FileType) Marshal(b []byte) (n int) {
	l := f.Len()
	pio.PutU32BE(b, uint32(l))
	pio.PutU32BE(b[4:], uint32(FTYP))
	pio.PutU32BE(b[8:], uint32(f.MajorBrand))
	pio.PutU32BE(b[12:], f.MinorVersion)
	for i, v := range f.CompatibleBrands {
		pio.PutU32BE(b[baseFtypSize+bytesPerBrand*i:], uint32(v))
	}
	return l
}

func (f *FileType) Len() int {
	return baseFtypSize + bytesPerBrand*len(f.CompatibleBrands)
}

func (f *FileType) Unmarshal(b []byte, offset int) (n int, err error) {
	f.AtomPos.setPos(offset, len(b))
	n = HeaderSize
	if len(b) < n+8 {
		return 0, parseErr("MajorBrand", offset+n, nil)
	}
	f.MajorBrand = Tag(pio.U32BE(b[n:]))
	n += 4
	f.MinorVersion = pio.U32BE(b[n:])
	n += 4
	for n+bytesPerBrand <= len(b) {
		f.CompatibleBrands = append(f.CompatibleBrands, Tag(pio.U32BE(b[n:])))
		n += 4
	}
	return
}

func (*FileType) Children() []Atom {
	return nil
}

func (f *FileType) String() string {
	return "major=" + f.MajorBrand.String()
}
