package envelope

import (
	"bytes"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedEnvelope is returned for input that is not a well-formed
// envelope (or payload).
var ErrMalformedEnvelope = errors.New("envelope: malformed")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedEnvelope, fmt.Sprintf(format, args...))
}

// fieldDecoder consumes the value of one field from b and returns the number
// of bytes read, or 0 if the field is not recognised.
type fieldDecoder func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// decodeFields walks the fields in b, handing each to decode. Fields decode
// does not recognise are returned verbatim, tag included.
func decodeFields(b []byte, decode fieldDecoder) (unknown []byte, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed("tag: %v", protowire.ParseError(n))
		}
		m, err := decode(num, typ, b[n:])
		if err != nil {
			return nil, err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b[n:])
			if m < 0 {
				return nil, malformed("field %d: %v", num, protowire.ParseError(m))
			}
			unknown = append(unknown, b[:n+m]...)
		}
		b = b[n+m:]
	}
	return unknown, nil
}

func consumeVarint(typ protowire.Type, b []byte, set func(uint64)) (int, error) {
	if typ != protowire.VarintType {
		return 0, nil
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, malformed("varint: %v", protowire.ParseError(n))
	}
	set(v)
	return n, nil
}

func consumeBytes(typ protowire.Type, b []byte, set func([]byte)) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, malformed("bytes: %v", protowire.ParseError(n))
	}
	set(cloneBytes(v))
	return n, nil
}

func consumeString(typ protowire.Type, b []byte, set func(string)) (int, error) {
	return consumeBytes(typ, b, func(v []byte) { set(string(v)) })
}

// cloneBytes copies v so decoded values never alias the input. Empty values
// decode to nil: the encoders omit them, so nil and empty are the same on the
// wire.
func cloneBytes(v []byte) []byte {
	if len(v) == 0 {
		return nil
	}
	return bytes.Clone(v)
}

// Proto3 encoders: zero values are omitted.

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}
