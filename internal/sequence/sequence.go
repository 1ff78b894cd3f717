// Package sequence builds random digit sequences for recall rounds.
package sequence

import (
	"math/rand"
	"strings"
	"time"
)

// Generator produces randomized digit sequences.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeeded returns a Generator with a fixed seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Digits returns a string of n digits, each uniform over 0-9.
func (g *Generator) Digits(n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + g.rnd.Intn(10)))
	}
	return b.String()
}

// Chunk partitions seq left-to-right into delimiter-separated groups of
// groupSize digits. The tail is never split into an avoidable short group:
// once at most groupSize+1 digits remain, they form a single final group.
func Chunk(seq string, groupSize int, sep string) string {
	if seq == "" || groupSize <= 0 {
		return seq
	}
	groups := []string{}
	rest := seq
	for len(rest) > groupSize+1 {
		groups = append(groups, rest[:groupSize])
		rest = rest[groupSize:]
	}
	groups = append(groups, rest)
	return strings.Join(groups, sep)
}
