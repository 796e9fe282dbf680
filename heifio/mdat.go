package heifio

import (
	"fmt"

	"github.com/ugparu/goheif/utils/bits/pio"
)

// MediaData is the mdat box. On the read path only the payload position
// is recorded; the bytes stay in the underlying stream. On the write path
// Data holds the payload to emit.
type MediaData struct {
	Data []byte

	// DataOffset is the absolute stream position of the payload, set by
	// ReadFileAtoms.
	DataOffset int64
	AtomPos
}

func (*MediaData) Tag() Tag {
	return MDAT
}

func (*MediaData) Children() []Atom {
	return nil
}

func (m *MediaData) String() string {
	_, size := m.Pos()
	return fmt.Sprintf("bytes=%d", size-HeaderSize)
}

// large reports whether the payload needs a 64-bit size header.
func (m *MediaData) large() bool {
	return uint64(len(m.Data))+HeaderSize > 0xffffffff
}

func (m *MediaData) Marshal(b []byte) (n int) {
	if m.large() {
		pio.PutU32BE(b, 1)
		pio.PutU32BE(b[4:], uint32(MDAT))
		pio.PutU64BE(b[8:], uint64(len(m.Data))+HeaderSize+largeSizeExtra)
		n = HeaderSize + largeSizeExtra
	} else {
		pio.PutU32BE(b, uint32(len(m.Data))+HeaderSize)
		pio.PutU32BE(b[4:], uint32(MDAT))
		n = HeaderSize
	}
	copy(b[n:], m.Data)
	n += len(m.Data)
	return
}

func (m *MediaData) Len() int {
	if m.large() {
		return HeaderSize + largeSizeExtra + len(m.Data)
	}
	return HeaderSize + len(m.Data)
}

func (m *MediaData) Unmarshal(b []byte, offset int) (n int, err error) {
	m.AtomPos.setPos(offset, len(b))
	var h header
	if h, err = parseHeader(b, offset); err != nil {
		return
	}
	m.Data = append([]byte(nil), b[h.hdrLen:]...)
	m.DataOffset = int64(offset + h.hdrLen)
	n = len(b)
	return
}
