// Package digest provides the hash algorithms used for chunk and file integrity,
// and the derivation of authentication keys from passwords.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/sha3"
)

// Algorithm names a digest algorithm.
type Algorithm int

// Supported algorithms.
const (
	MD5 = Algorithm(iota)
	CRC32
	ADLER32
	SHA1
	SHA256
	SHA384
	SHA512
	SHA3256
	BLAKE2B256
)

var names = map[Algorithm]string{
	MD5:        "MD5",
	CRC32:      "CRC32",
	ADLER32:    "ADLER32",
	SHA1:       "SHA1",
	SHA256:     "SHA256",
	SHA384:     "SHA384",
	SHA512:     "SHA512",
	SHA3256:    "SHA3-256",
	BLAKE2B256: "BLAKE2B-256",
}

// ErrUnknownAlgorithm is returned by Parse for a name it does not know.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// Parse returns the Algorithm with the given name, ignoring case.
// The empty name selects MD5.
func Parse(name string) (Algorithm, error) {
	if name == "" {
		return MD5, nil
	}

	for a, n := range names {
		if strings.EqualFold(n, name) {
			return a, nil
		}
	}

	return 0, errors.Wrapf(ErrUnknownAlgorithm, "%q", name)
}

func (a Algorithm) String() string {
	if n, ok := names[a]; ok {
		return n
	}
	return "UNKNOWN"
}

// New returns a running hash for the algorithm.
func (a Algorithm) New() hash.Hash {
	switch a {
	case CRC32:
		return crc32.NewIEEE()
	case ADLER32:
		return adler32.New()
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	case SHA3256:
		return sha3.New256()
	case BLAKE2B256:
		h, err := blake2b.New256(nil)
		if err != nil {
			// only a key longer than 64 bytes fails.
			panic(err)
		}
		return h
	default:
		return md5.New()
	}
}

// Sum returns the digest of data.
func (a Algorithm) Sum(data []byte) []byte {
	h := a.New()
	h.Write(data)
	return h.Sum(nil)
}

// Size returns the length in bytes of a digest.
func (a Algorithm) Size() int {
	return a.New().Size()
}

// Hex returns the lowercase hexadecimal form of a digest,
// as carried by the end-of-transfer handshake.
func Hex(sum []byte) string {
	return hex.EncodeToString(sum)
}

const (
	keyIterations = 4096
	keyLength     = 32
)

// CryptPassword derives the authentication key a host presents for password.
// Both sides of a connection derive the same key from the same host id and password.
func CryptPassword(hostID, password string) []byte {
	return pbkdf2.Key([]byte(password), []byte("r66:"+hostID), keyIterations, keyLength, sha256.New)
}
