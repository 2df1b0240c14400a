package encoding

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"

	"github.com/ternstore/ternstore/internal/term"
)

const (
	// SubjectKeySize is a kind byte plus 16 bytes of identity
	SubjectKeySize = 17

	// PredicateKeySize is the namespace key plus the value hash
	PredicateKeySize = 16

	// ObjectHashSize is a 128-bit hash of the canonical object bytes
	ObjectHashSize = 16

	// TripleKeySize is the size of both composite index keys
	TripleKeySize = ObjectHashSize + PredicateKeySize + SubjectKeySize
)

// Hash128 computes a 128-bit xxhash3 hash of the input
func Hash128(data []byte) [16]byte {
	hash := xxh3.Hash128(data)
	var result [16]byte
	binary.BigEndian.PutUint64(result[0:8], hash.Hi)
	binary.BigEndian.PutUint64(result[8:16], hash.Lo)
	return result
}

// SubjectKey encodes a subject as a fixed-size, order-preserving key:
// a kind byte followed by the namespace key and value hash for named
// nodes, or a 128-bit hash of the identifier for blank nodes.
func SubjectKey(s term.Subject) [SubjectKeySize]byte {
	var key [SubjectKeySize]byte
	key[0] = byte(s.Kind)

	switch s.Kind {
	case term.SubjectNamed:
		binary.BigEndian.PutUint64(key[1:9], s.Node.Namespace)
		binary.BigEndian.PutUint64(key[9:17], xxh3.HashString(s.Node.Value))
	case term.SubjectBlank:
		hash := Hash128([]byte(s.Blank))
		copy(key[1:], hash[:])
	}

	return key
}

// PredicateKey encodes a predicate node as its namespace key followed
// by the hash of its local value.
func PredicateKey(p term.Node) [PredicateKeySize]byte {
	var key [PredicateKeySize]byte
	binary.BigEndian.PutUint64(key[0:8], p.Namespace)
	binary.BigEndian.PutUint64(key[8:16], xxh3.HashString(p.Value))
	return key
}

// ObjectHash computes the 128-bit identity hash of an object over its
// canonical byte form.
func ObjectHash(o term.Object) [ObjectHashSize]byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(o.Kind))

	switch o.Kind {
	case term.ObjectNamed:
		buf = appendNode(buf, o.Node)
	case term.ObjectBlank:
		buf = appendString(buf, o.Blank)
	case term.ObjectLiteral:
		buf = append(buf, byte(o.Literal.Kind))
		buf = appendString(buf, o.Literal.Value)
		switch o.Literal.Kind {
		case term.LiteralI18N:
			buf = appendString(buf, o.Literal.Language)
		case term.LiteralTyped:
			buf = appendNode(buf, o.Literal.Datatype)
		}
	}

	return Hash128(buf)
}

// TripleKey builds the primary index key (object hash, predicate,
// subject) for a triple.
func TripleKey(t term.Triple) []byte {
	oh := ObjectHash(t.Object)
	pk := PredicateKey(t.Predicate)
	sk := SubjectKey(t.Subject)

	key := make([]byte, 0, TripleKeySize)
	key = append(key, oh[:]...)
	key = append(key, pk[:]...)
	return append(key, sk[:]...)
}

// SubjectIndexKey builds the secondary index key (subject, predicate,
// object hash) for a triple.
func SubjectIndexKey(t term.Triple) []byte {
	sk := SubjectKey(t.Subject)
	pk := PredicateKey(t.Predicate)
	oh := ObjectHash(t.Object)

	key := make([]byte, 0, TripleKeySize)
	key = append(key, sk[:]...)
	key = append(key, pk[:]...)
	return append(key, oh[:]...)
}

// ObjectPredicatePrefix builds the primary index prefix covering all
// subjects for a bound (object, predicate) pair.
func ObjectPredicatePrefix(o term.Object, p term.Node) []byte {
	oh := ObjectHash(o)
	pk := PredicateKey(p)

	prefix := make([]byte, 0, ObjectHashSize+PredicateKeySize)
	prefix = append(prefix, oh[:]...)
	return append(prefix, pk[:]...)
}

// SubjectPredicatePrefix builds the secondary index prefix covering
// all objects for a bound (subject, predicate) pair.
func SubjectPredicatePrefix(s term.Subject, p term.Node) []byte {
	sk := SubjectKey(s)
	pk := PredicateKey(p)

	prefix := make([]byte, 0, SubjectKeySize+PredicateKeySize)
	prefix = append(prefix, sk[:]...)
	return append(prefix, pk[:]...)
}

// Uint64Key encodes a numeric key big-endian so lexicographic order
// matches numeric order.
func Uint64Key(v uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, v)
	return key
}

// MarshalTriple encodes a triple into its stored binary form
func MarshalTriple(t term.Triple) []byte {
	buf := make([]byte, 0, 96)

	buf = append(buf, byte(t.Subject.Kind))
	switch t.Subject.Kind {
	case term.SubjectNamed:
		buf = appendNode(buf, t.Subject.Node)
	case term.SubjectBlank:
		buf = appendString(buf, t.Subject.Blank)
	}

	buf = appendNode(buf, t.Predicate)

	buf = append(buf, byte(t.Object.Kind))
	switch t.Object.Kind {
	case term.ObjectNamed:
		buf = appendNode(buf, t.Object.Node)
	case term.ObjectBlank:
		buf = appendString(buf, t.Object.Blank)
	case term.ObjectLiteral:
		buf = append(buf, byte(t.Object.Literal.Kind))
		buf = appendString(buf, t.Object.Literal.Value)
		switch t.Object.Literal.Kind {
		case term.LiteralI18N:
			buf = appendString(buf, t.Object.Literal.Language)
		case term.LiteralTyped:
			buf = appendNode(buf, t.Object.Literal.Datatype)
		}
	}

	return buf
}

func appendNode(buf []byte, n term.Node) []byte {
	buf = binary.AppendUvarint(buf, n.Namespace)
	return appendString(buf, n.Value)
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}
