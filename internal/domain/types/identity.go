package types

// Identity holds the long-term Ed25519 signing keys of the local agent and
// the address derived from them. Encryption keys are derived on demand.
type Identity struct {
	EdPub     Ed25519Public  `json:"edpub"`
	EdPriv    Ed25519Private `json:"edpriv"`
	Address   Address        `json:"address"`
	RelayHost string         `json:"relay_host"`
}
