package db

var (
	NamespaceMeta      = []byte("meta")
	NamespaceSMT       = []byte("smt")
	NamespaceAccount   = []byte("acct")
	NamespaceTotals    = []byte("tot")
	NamespaceOracle    = []byte("orc")
	KeyTreeDepth       = []byte("depth")
	Separator          = []byte("|")
	separatorSuccessor = []byte("}")
)

func PrependNamespace(namespace []byte, key []byte) []byte {
	if namespace != nil {
		prefixed := make([]byte, 0, len(namespace)+len(Separator)+len(key))
		prefixed = append(prefixed, namespace...)
		prefixed = append(prefixed, Separator...)
		return append(prefixed, key...)
	}
	return key
}

// NamespaceRange returns the [start, end) key range covering every key of a namespace.
func NamespaceRange(namespace []byte) ([]byte, []byte) {
	start := PrependNamespace(namespace, nil)
	end := append(append([]byte{}, namespace...), separatorSuccessor...)
	return start, end
}

// StripNamespace removes the namespace prefix from a raw iterator key.
func StripNamespace(namespace []byte, key []byte) []byte {
	prefix := len(namespace) + len(Separator)
	if len(key) < prefix {
		return key
	}
	return key[prefix:]
}

func ConvNilToBytes(byteArray []byte) []byte {
	if byteArray == nil {
		return []byte{}
	}
	return byteArray
}
