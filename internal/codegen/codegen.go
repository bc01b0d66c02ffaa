// Package codegen generates registration code strings.
package codegen

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// Length of generated codes.
	Length = 8
)

// Generator produces candidate codes.
type Generator interface {
	Next() (string, error)
}

type randomGenerator struct{}

// NewRandom returns a generator backed by crypto/rand.
func NewRandom() Generator {
	return randomGenerator{}
}

func (randomGenerator) Next() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, Length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Sequence returns the given codes in order and then fails. Used by tests.
type Sequence struct {
	Codes []string
	next  int
}

func (s *Sequence) Next() (string, error) {
	if s.next >= len(s.Codes) {
		return "", fmt.Errorf("code sequence exhausted")
	}
	code := s.Codes[s.next]
	s.next++
	return code, nil
}
