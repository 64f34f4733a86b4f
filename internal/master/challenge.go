package master

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Challenger holds the nonce of the most recent challenge. Only a response
// echoing that nonce is accepted; every new challenge invalidates the
// previous one.
type Challenger struct {
	interval time.Duration
	source   io.Reader

	current  uint64
	issued   bool
	issuedAt time.Time
}

// NewChallenger draws nonces from source, crypto/rand when nil.
func NewChallenger(interval time.Duration, source io.Reader) *Challenger {
	if source == nil {
		source = rand.Reader
	}
	return &Challenger{interval: interval, source: source}
}

// Due reports whether the next challenge should go out at now.
func (c *Challenger) Due(now time.Time) bool {
	return !c.issued || now.Sub(c.issuedAt) >= c.interval
}

// Issue draws a fresh nonce.
func (c *Challenger) Issue(now time.Time) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(c.source, buf[:]); err != nil {
		return 0, fmt.Errorf("master: draw nonce: %w", err)
	}
	c.current = binary.BigEndian.Uint64(buf[:])
	c.issued = true
	c.issuedAt = now
	return c.current, nil
}

// Verify accepts only the most recently issued nonce.
func (c *Challenger) Verify(nonce uint64) bool {
	return c.issued && nonce == c.current
}

func (c *Challenger) Current() (uint64, bool) {
	return c.current, c.issued
}
