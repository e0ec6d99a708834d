package types

// Address is a Pinch agent address, pinch:<base58 key+checksum>@<relay host>.
type Address string

// String returns the string form of the address.
func (a Address) String() string { return string(a) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// MessageID identifies a message in canonical UUID text form.
type MessageID string

// String returns the string form of the identifier.
func (id MessageID) String() string { return string(id) }
