package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"pinch/internal/domain"
)

// Fingerprint returns a short, grouped hex fingerprint of a signing key,
// e.g. "1a2b 3c4d 5e6f 7a8b 9c0d".
//
// It hashes with SHA-256 and truncates to 10 bytes.
func Fingerprint(pub domain.Ed25519Public) domain.Fingerprint {
	sum := sha256.Sum256(pub[:])
	h := hex.EncodeToString(sum[:10])
	groups := make([]string, 0, len(h)/4)
	for i := 0; i < len(h); i += 4 {
		groups = append(groups, h[i:i+4])
	}
	return domain.Fingerprint(strings.Join(groups, " "))
}
