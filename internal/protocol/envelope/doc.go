// Package envelope implements the Pinch wire format.
//
// An Envelope carries routing metadata and exactly one payload variant. The
// encoding is protobuf-compatible (proto3 field rules, varint and
// length-delimited fields) and is written with protowire directly so that the
// payload union can be a closed Go sum type.
//
// Forward compatibility: unknown MessageType values, unknown header fields and
// unknown payload variants decode without loss and re-encode unchanged, for
// known types too. Decoding fails with ErrMalformedEnvelope when the payload
// is absent, when the input is truncated mid-field, or when a known type
// carries a different known payload variant.
//
// As in proto3, a zero-length bytes or string field is not written, so it
// decodes as nil or "". Round trips are byte-exact on the wire; in memory an
// empty non-nil slice comes back as nil.
package envelope
