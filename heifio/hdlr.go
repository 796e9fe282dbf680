package heifio

import "github.com/ugparu/goheif/utils/bits/pio"

func NewHandlerRefer(handler Tag, name string) *HandlerRefer {
	return &HandlerRefer{HandlerType: handler, Name: name}
}

type HandlerRefer struct {
	Version     uint8
	Flags       uint32
	PreDefined  uint32
	HandlerType Tag
	Reserved    [3]uint32
	Name        string
	AtomPos
}

func (*HandlerRefer) Tag() Tag {
	return HDLR
}

func (h *HandlerRefer) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(HDLR))
	n = putFullBox(b, HeaderSize, h.Version, h.Flags)
	pio.PutU32BE(b[n:], h.PreDefined)
	n += 4
	pio.PutU32BE(b[n:], uint32(h.HandlerType))
	n += 4
	for _, r := range h.Reserved {
		pio.PutU32BE(b[n:], r)
		n += 4
	}
	n += putCString(b[n:], h.Name)
	pio.PutU32BE(b, uint32(n))
	return
}

func (h *HandlerRefer) Len() int {
	return HeaderSize + fullBoxSize + 4 + 4 + 12 + len(h.Name) + 1
}

func (h *HandlerRefer) Unmarshal(b []byte, offset int) (n int, err error) {
	h.AtomPos.setPos(offset, len(b))
	if h.Version, h.Flags, n, err = parseFullBox(b, HeaderSize, offset); err != nil {
		return
	}
	if len(b) < n+20 {
		err = parseErr("HandlerType", offset+n, nil)
		return
	}
	h.PreDefined = pio.U32BE(b[n:])
	n += 4
	h.HandlerType = Tag(pio.U32BE(b[n:]))
	n += 4
	for i := range h.Reserved {
		h.Reserved[i] = pio.U32BE(b[n:])
		n += 4
	}
	h.Name, n = getCString(b, n)
	return
}

func (*HandlerRefer) Children() []Atom {
	return nil
}

func (h *HandlerRefer) String() string {
	return "handler=" + h.HandlerType.String()
}
