package ident

// Well-known type hashes for the immediate and heap-slot Kinds described in
// §3.1/§3.3. `is`-checks and protocol composition against a primitive or
// built-in collection type resolve to one of these rather than to a
// user-defined type registered in a Unit's type_table, so they must be
// stable and collision-free the same way user type hashes are (§4.1).
var (
	TypeUnit           = Name("core::Unit")
	TypeBool           = Name("core::Bool")
	TypeByte           = Name("core::Byte")
	TypeChar           = Name("core::Char")
	TypeInteger        = Name("core::Integer")
	TypeFloat          = Name("core::Float")
	TypeType           = Name("core::Type")
	TypeString         = Name("core::String")
	TypeArray          = Name("core::Array")
	TypeObject         = Name("core::Object")
	TypeTuple          = Name("core::Tuple")
	TypeBytes          = Name("core::Bytes")
	TypeResult         = Name("core::Result")
	TypeOption         = Name("core::Option")
	TypeGeneratorState = Name("core::GeneratorState")
	TypeFuture         = Name("core::Future")
	TypeGenerator      = Name("core::Generator")
	TypeFnPtr          = Name("core::FnPtr")
)
