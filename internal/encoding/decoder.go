package encoding

import (
	"encoding/binary"
	"fmt"

	"github.com/ternstore/ternstore/internal/term"
)

// UnmarshalTriple decodes a triple from its stored binary form
func UnmarshalTriple(data []byte) (term.Triple, error) {
	r := &byteReader{data: data}

	var t term.Triple

	subjectKind, err := r.readByte()
	if err != nil {
		return t, fmt.Errorf("failed to decode subject: %w", err)
	}
	switch term.SubjectKind(subjectKind) {
	case term.SubjectNamed:
		node, err := r.readNode()
		if err != nil {
			return t, fmt.Errorf("failed to decode subject: %w", err)
		}
		t.Subject = term.NamedSubject(node)
	case term.SubjectBlank:
		id, err := r.readString()
		if err != nil {
			return t, fmt.Errorf("failed to decode subject: %w", err)
		}
		t.Subject = term.BlankSubject(id)
	default:
		return t, fmt.Errorf("unknown subject kind: %d", subjectKind)
	}

	t.Predicate, err = r.readNode()
	if err != nil {
		return t, fmt.Errorf("failed to decode predicate: %w", err)
	}

	objectKind, err := r.readByte()
	if err != nil {
		return t, fmt.Errorf("failed to decode object: %w", err)
	}
	switch term.ObjectKind(objectKind) {
	case term.ObjectNamed:
		node, err := r.readNode()
		if err != nil {
			return t, fmt.Errorf("failed to decode object: %w", err)
		}
		t.Object = term.NamedObject(node)
	case term.ObjectBlank:
		id, err := r.readString()
		if err != nil {
			return t, fmt.Errorf("failed to decode object: %w", err)
		}
		t.Object = term.BlankObject(id)
	case term.ObjectLiteral:
		lit, err := r.readLiteral()
		if err != nil {
			return t, fmt.Errorf("failed to decode object: %w", err)
		}
		t.Object = term.LiteralObject(lit)
	default:
		return t, fmt.Errorf("unknown object kind: %d", objectKind)
	}

	return t, nil
}

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("unexpected end of data at offset %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) readUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("invalid uvarint at offset %d", r.pos)
	}
	r.pos += n
	return v, nil
}

func (r *byteReader) readString() (string, error) {
	length, err := r.readUvarint()
	if err != nil {
		return "", err
	}
	// Compare in uint64 space: a length near 2^64 would wrap negative
	// as an int and slip past the bound.
	if length > uint64(len(r.data)-r.pos) {
		return "", fmt.Errorf("string length %d exceeds data at offset %d", length, r.pos)
	}
	s := string(r.data[r.pos : r.pos+int(length)])
	r.pos += int(length)
	return s, nil
}

func (r *byteReader) readNode() (term.Node, error) {
	ns, err := r.readUvarint()
	if err != nil {
		return term.Node{}, err
	}
	value, err := r.readString()
	if err != nil {
		return term.Node{}, err
	}
	return term.Node{Namespace: ns, Value: value}, nil
}

func (r *byteReader) readLiteral() (term.Literal, error) {
	kind, err := r.readByte()
	if err != nil {
		return term.Literal{}, err
	}

	value, err := r.readString()
	if err != nil {
		return term.Literal{}, err
	}

	switch term.LiteralKind(kind) {
	case term.LiteralSimple:
		return term.SimpleLiteral(value), nil
	case term.LiteralI18N:
		lang, err := r.readString()
		if err != nil {
			return term.Literal{}, err
		}
		return term.I18NLiteral(value, lang), nil
	case term.LiteralTyped:
		datatype, err := r.readNode()
		if err != nil {
			return term.Literal{}, err
		}
		return term.TypedLiteral(value, datatype), nil
	default:
		return term.Literal{}, fmt.Errorf("unknown literal kind: %d", kind)
	}
}
