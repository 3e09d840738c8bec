package auth

import (
	"crypto/rand"
	"errors"
	"math/big"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrWeakPIN = errors.New("pin must be exactly 6 digits")
	pinRe      = regexp.MustCompile(`^[0-9]{6}$`)
)

// Cost is the bcrypt cost used for PINs and CVVs.
var Cost = bcrypt.DefaultCost

func ValidPIN(pin string) bool { return pinRe.MatchString(pin) }

// HashPIN validates the PIN format before hashing it.
func HashPIN(pin string) (string, error) {
	if !ValidPIN(pin) {
		return "", ErrWeakPIN
	}
	return HashSecret(pin)
}

// HashSecret one-way hashes a short card secret (PIN, CVV).
func HashSecret(s string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(s), Cost)
	return string(b), err
}

// MatchSecret reports whether plain matches hash. An empty hash never matches.
func MatchSecret(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NewAccountNumber returns a random 14-digit account number.
func NewAccountNumber() (string, error) {
	const digits = 14
	out := make([]byte, digits)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + n.Int64())
	}
	if out[0] == '0' {
		out[0] = '1'
	}
	return string(out), nil
}
