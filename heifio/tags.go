package heifio

// Box codes.
const (
	FTYP = Tag(0x66747970) // ftyp
	META = Tag(0x6d657461) // meta
	HDLR = Tag(0x68646c72) // hdlr
	PITM = Tag(0x7069746d) // pitm
	ILOC = Tag(0x696c6f63) // iloc
	IINF = Tag(0x69696e66) // iinf
	INFE = Tag(0x696e6665) // infe
	IREF = Tag(0x69726566) // iref
	IPRP = Tag(0x69707270) // iprp
	IPCO = Tag(0x6970636f) // ipco
	IPMA = Tag(0x69706d61) // ipma
	ISPE = Tag(0x69737065) // ispe
	PASP = Tag(0x70617370) // pasp
	PIXI = Tag(0x70697869) // pixi
	IROT = Tag(0x69726f74) // irot
	IMIR = Tag(0x696d6972) // imir
	AUXC = Tag(0x61757843) // auxC
	CLAP = Tag(0x636c6170) // clap
	LSEL = Tag(0x6c73656c) // lsel
	A1OP = Tag(0x61316f70) // a1op
	A1LX = Tag(0x61316c78) // a1lx
	CLLI = Tag(0x636c6c69) // clli
	MDCV = Tag(0x6d646376) // mdcv
	HVCC = Tag(0x68766343) // hvcC
	AV1C = Tag(0x61763143) // av1C
	VVCC = Tag(0x76766343) // vvcC
	COLR = Tag(0x636f6c72) // colr
	UDES = Tag(0x75646573) // udes
	IDAT = Tag(0x69646174) // idat
	GRPL = Tag(0x6772706c) // grpl
	DINF = Tag(0x64696e66) // dinf
	DREF = Tag(0x64726566) // dref
	URL  = Tag(0x75726c20) // url(sp)
	UUID = Tag(0x75756964) // uuid
	MDAT = Tag(0x6d646174) // mdat
	FREE = Tag(0x66726565) // free
)

// Colour profile codes carried by colr.
const (
	NCLX = Tag(0x6e636c78) // nclx
	RICC = Tag(0x72494343) // rICC
	PROF = Tag(0x70726f66) // prof
)

// Handler, item and reference codes.
const (
	PICT = Tag(0x70696374) // pict
	HVC1 = Tag(0x68766331) // hvc1
	AV01 = Tag(0x61763031) // av01
	VVC1 = Tag(0x76766331) // vvc1
	EXIF = Tag(0x45786966) // Exif
	MIME = Tag(0x6d696d65) // mime
	URI  = Tag(0x75726920) // uri(sp)
	THMB = Tag(0x74686d62) // thmb
	AUXL = Tag(0x6175786c) // auxl
	CDSC = Tag(0x63647363) // cdsc
	DIMG = Tag(0x64696d67) // dimg
	ALTR = Tag(0x616c7472) // altr
)

// Brand codes.
const (
	BrandHEIC = Tag(0x68656963) // heic
	BrandMIF1 = Tag(0x6d696631) // mif1
	BrandAVIF = Tag(0x61766966) // avif
	BrandISOM = Tag(0x69736f6d) // isom
)
