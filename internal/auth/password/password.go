package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	scheme  = "argon2id"
	version = argon2.Version

	saltLen = 16
	keyLen  = 32
)

// Params are the Argon2id cost settings stored alongside each hash.
type Params struct {
	Memory  uint32
	Time    uint32
	Threads uint8
}

// Current is the cost applied to new hashes.
var Current = Params{Memory: 64 * 1024, Time: 1, Threads: 4}

var errMalformed = errors.New("malformed password hash")

type encodedHash struct {
	params Params
	salt   []byte
	key    []byte
}

// Hash returns an encoded Argon2id hash of plain using the Current params.
func Hash(plain string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	h := encodedHash{
		params: Current,
		salt:   salt,
		key:    derive(plain, salt, Current, keyLen),
	}
	return h.String(), nil
}

// Verify reports whether plain matches encoded. Malformed hashes never match.
func Verify(plain, encoded string) bool {
	h, err := parse(encoded)
	if err != nil {
		return false
	}
	check := derive(plain, h.salt, h.params, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(h.key, check) == 1
}

// NeedsRehash reports whether encoded was produced with params other than
// Current, e.g. accounts created before the cost was raised.
func NeedsRehash(encoded string) bool {
	h, err := parse(encoded)
	if err != nil {
		return true
	}
	return h.params != Current || len(h.key) != keyLen
}

func derive(plain string, salt []byte, p Params, length uint32) []byte {
	return argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Threads, length)
}

func (h encodedHash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		scheme, version,
		h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	)
}

func parse(encoded string) (encodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != scheme {
		return encodedHash{}, errMalformed
	}
	if parts[2] != fmt.Sprintf("v=%d", version) {
		return encodedHash{}, errMalformed
	}

	var h encodedHash
	var trailing string
	n, _ := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d%s", &h.params.Memory, &h.params.Time, &h.params.Threads, &trailing)
	if n != 3 || h.params.Memory == 0 || h.params.Time == 0 || h.params.Threads == 0 {
		return encodedHash{}, errMalformed
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(h.salt) == 0 {
		return encodedHash{}, errMalformed
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return encodedHash{}, errMalformed
	}
	return h, nil
}
