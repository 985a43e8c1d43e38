package services

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinCodeLength = 4
	MaxCodeLength = 6
)

// GenerateCode returns a zero-padded numeric code from crypto/rand.
func GenerateCode(length int) (string, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return "", ErrInvalidCodeLength
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}

// CodeHasher: коды в хранилище лежат только в виде хэша.
type CodeHasher interface {
	Hash(code string) (string, error)
	Compare(hash, code string) bool
}

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(code string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}
	return string(b), nil
}

func (h BcryptHasher) Compare(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
