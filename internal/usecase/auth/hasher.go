package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

type Hasher interface {
	Hash(pw string) (string, error)
	Verify(pw, enc string) (bool, error)
}

type Argon2Params struct {
	Time    uint32 `koanf:"time"`
	Memory  uint32 `koanf:"memory"`
	Threads uint8  `koanf:"threads"`
	KeyLen  uint32 `koanf:"key_len"`
	SaltLen uint32 `koanf:"salt_len"`
}

func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		KeyLen:  32,
		SaltLen: 16,
	}
}

// Upper bounds on cost parameters. Verify rejects stored hashes beyond
// them so a bad row cannot force an arbitrary allocation.
const (
	maxArgon2Time    = 64
	maxArgon2Memory  = 4 * 1024 * 1024 // KiB
	maxArgon2KeyLen  = 1024
	maxArgon2SaltLen = 1024
)

// Validate reports parameters argon2.IDKey would panic on or that exceed
// the bounds above.
func (p Argon2Params) Validate() error {
	invalid := oops.Code("ARGON2_PARAMS_INVALID")
	switch {
	case p.Time < 1 || p.Time > maxArgon2Time:
		return invalid.Errorf("argon2 time must be in [1, %d], got %d", maxArgon2Time, p.Time)
	case p.Memory < 1 || p.Memory > maxArgon2Memory:
		return invalid.Errorf("argon2 memory must be in [1, %d] KiB, got %d", maxArgon2Memory, p.Memory)
	case p.Threads < 1:
		return invalid.Errorf("argon2 threads must be at least 1")
	case p.KeyLen < 1 || p.KeyLen > maxArgon2KeyLen:
		return invalid.Errorf("argon2 key_len must be in [1, %d], got %d", maxArgon2KeyLen, p.KeyLen)
	case p.SaltLen < 1 || p.SaltLen > maxArgon2SaltLen:
		return invalid.Errorf("argon2 salt_len must be in [1, %d], got %d", maxArgon2SaltLen, p.SaltLen)
	}
	return nil
}

// Argon2Hasher encodes hashes as argon2id$t$m$p$k$salt$hash so that
// Verify can recompute with the parameters the hash was made with.
type Argon2Hasher struct {
	p Argon2Params
}

func NewArgon2Hasher(p Argon2Params) *Argon2Hasher {
	return &Argon2Hasher{p: p}
}

func (h *Argon2Hasher) Hash(pw string) (string, error) {
	salt := make([]byte, h.p.SaltLen)
	_, err := rand.Read(salt)
	if err != nil {
		return "", oops.Code("HASH_SALT_FAILED").Wrap(err)
	}

	t := h.p.Time
	m := h.p.Memory
	p := h.p.Threads
	k := h.p.KeyLen

	sum := argon2.IDKey([]byte(pw), salt, t, m, p, k)

	sEnc := base64.RawStdEncoding.EncodeToString(salt)
	hEnc := base64.RawStdEncoding.EncodeToString(sum)

	v := fmt.Sprintf("argon2id$%d$%d$%d$%d$%s$%s", t, m, p, k, sEnc, hEnc)

	return v, nil
}

func (h *Argon2Hasher) Verify(pw, enc string) (bool, error) {
	invalid := oops.Code("HASH_INVALID")

	parts := strings.Split(enc, "$")
	if len(parts) != 7 {
		return false, invalid.Errorf("invalid hash format")
	}
	if parts[0] != "argon2id" {
		return false, invalid.Errorf("unsupported hash algorithm: %s", parts[0])
	}

	var t uint32
	var m uint32
	var p uint8
	var k uint32

	_, err := fmt.Sscanf(parts[1], "%d", &t)
	if err != nil {
		return false, invalid.With("field", "time").Wrap(err)
	}
	_, err = fmt.Sscanf(parts[2], "%d", &m)
	if err != nil {
		return false, invalid.With("field", "memory").Wrap(err)
	}
	_, err = fmt.Sscanf(parts[3], "%d", &p)
	if err != nil {
		return false, invalid.With("field", "threads").Wrap(err)
	}
	_, err = fmt.Sscanf(parts[4], "%d", &k)
	if err != nil {
		return false, invalid.With("field", "key_len").Wrap(err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, invalid.With("field", "salt").Wrap(err)
	}

	stored := Argon2Params{Time: t, Memory: m, Threads: p, KeyLen: k, SaltLen: uint32(len(salt))}
	if err := stored.Validate(); err != nil {
		return false, invalid.Wrap(err)
	}
	have, err := base64.RawStdEncoding.DecodeString(parts[6])
	if err != nil {
		return false, invalid.With("field", "hash").Wrap(err)
	}

	want := argon2.IDKey([]byte(pw), salt, t, m, p, k)

	if len(want) != len(have) {
		return false, nil
	}

	ok := subtle.ConstantTimeCompare(want, have) == 1
	return ok, nil
}
