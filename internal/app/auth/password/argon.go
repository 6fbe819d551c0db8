package password

import (
	"github.com/alexedwards/argon2id"
)

var DefaultParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher hashes passwords with argon2id and a server-side pepper.
type Hasher struct {
	pepper string
	params *argon2id.Params
}

func NewHasher(pepper string, params *argon2id.Params) *Hasher {
	if params == nil {
		params = DefaultParams
	}
	return &Hasher{pepper: pepper, params: params}
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	return argon2id.CreateHash(plaintext+h.pepper, h.params)
}

func (h *Hasher) Compare(plaintext, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(plaintext+h.pepper, hash)
}
