package digest

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for a, name := range names {
		got, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	got, err := Parse("sha3-256")
	require.NoError(t, err)
	assert.Equal(t, SHA3256, got)

	got, err = Parse("")
	require.NoError(t, err)
	assert.Equal(t, MD5, got)

	_, err = Parse("rot13")
	assert.Equal(t, ErrUnknownAlgorithm, errors.Cause(err))
}

func TestSum(t *testing.T) {
	tests := []struct {
		algo Algorithm
		want string
	}{
		{MD5, "900150983cd24fb0d6963f7d28e17f72"},
		{SHA1, "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{SHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{CRC32, "352441c2"},
		{ADLER32, "024d0127"},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.want, Hex(tt.algo.Sum([]byte("abc"))), "%s", tt.algo)
	}
}

func TestSizes(t *testing.T) {
	assert.Equal(t, 16, MD5.Size())
	assert.Equal(t, 32, SHA3256.Size())
	assert.Equal(t, 32, BLAKE2B256.Size())
	assert.Equal(t, 48, SHA384.Size())
}

func TestRunningHashMatchesSum(t *testing.T) {
	h := BLAKE2B256.New()
	h.Write([]byte("ab"))
	h.Write([]byte("c"))

	assert.Equal(t, BLAKE2B256.Sum([]byte("abc")), h.Sum(nil))
}

func TestCryptPassword(t *testing.T) {
	k := CryptPassword("hostA", "secret")

	assert.Len(t, k, keyLength)
	assert.Equal(t, k, CryptPassword("hostA", "secret"))
	assert.NotEqual(t, k, CryptPassword("hostB", "secret"))
	assert.NotEqual(t, k, CryptPassword("hostA", "other"))
}
