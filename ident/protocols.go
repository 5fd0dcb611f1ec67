package ident

// Well-known protocol method names. The compiler and every native module
// must agree on these identifiers (§6.4); they are plain names run through
// Name so that InstanceFunction(typeOf(v), ADD) etc. produces the same
// dispatch key a native module registered under.
const (
	NameADD            = "add"
	NameADDASSIGN      = "add_assign"
	NameSUB            = "sub"
	NameSUBASSIGN      = "sub_assign"
	NameMUL            = "mul"
	NameMULASSIGN      = "mul_assign"
	NameDIV            = "div"
	NameDIVASSIGN      = "div_assign"
	NameREM            = "rem"
	NameINDEXGET       = "index_get"
	NameINDEXSET       = "index_set"
	NameNEXT           = "next"
	NameINTOFUTURE     = "into_future"
	NameSTRINGDISPLAY  = "string_display"
	NameEQ             = "eq"
)

// Protocol hashes, precomputed once at init so dispatch sites compare a
// Hash to a Hash rather than re-hashing a literal string on every
// instruction.
var (
	ADD            = Name(NameADD)
	ADDASSIGN      = Name(NameADDASSIGN)
	SUB            = Name(NameSUB)
	SUBASSIGN      = Name(NameSUBASSIGN)
	MUL            = Name(NameMUL)
	MULASSIGN      = Name(NameMULASSIGN)
	DIV            = Name(NameDIV)
	DIVASSIGN      = Name(NameDIVASSIGN)
	REM            = Name(NameREM)
	INDEXGET       = Name(NameINDEXGET)
	INDEXSET       = Name(NameINDEXSET)
	NEXT           = Name(NameNEXT)
	INTOFUTURE     = Name(NameINTOFUTURE)
	STRINGDISPLAY  = Name(NameSTRINGDISPLAY)
	EQ             = Name(NameEQ)
)
