package memzero

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zero(b)
	assert.Equal(t, make([]byte, 4), b)
	assert.NotPanics(t, func() { Zero(nil) })
}

func TestKey(t *testing.T) {
	var k [32]byte
	for i := range k {
		k[i] = 0xAA
	}
	Key(&k)
	assert.Equal(t, [32]byte{}, k)
}
