package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"math"
	"strconv"
)

// Stream produces deterministic floats in [0, 1) from a string key.
// Bytes are drawn from consecutive HMAC-SHA256(key, round) blocks, so the same
// key yields the same sequence on every platform. A Stream is not safe for
// concurrent use; create one per consumer.
type Stream struct {
	key          []byte
	currentRound uint64
	currentPos   int
	buffer       [32]byte
	drawn        uint64
}

// NewStream creates a stream positioned at the first byte of round 0.
func NewStream(key string) *Stream {
	s := &Stream{key: []byte(key)}
	s.generateRound()
	return s
}

// Next returns the next byte from the stream
func (s *Stream) Next() byte {
	if s.currentPos >= len(s.buffer) {
		s.currentRound++
		s.currentPos = 0
		s.generateRound()
	}

	b := s.buffer[s.currentPos]
	s.currentPos++
	return b
}

// Float returns the next float using exactly 4 bytes.
func (s *Stream) Float() float64 {
	b0 := s.Next()
	b1 := s.Next()
	b2 := s.Next()
	b3 := s.Next()
	s.drawn++

	return bytesToFloat([4]byte{b0, b1, b2, b3})
}

// Intn returns an index in [0, n). n must be positive.
func (s *Stream) Intn(n int) int {
	idx := int(math.Floor(s.Float() * float64(n)))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// Drawn reports how many floats have been consumed.
func (s *Stream) Drawn() uint64 {
	return s.drawn
}

func (s *Stream) generateRound() {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(strconv.FormatUint(s.currentRound, 10)))
	copy(s.buffer[:], h.Sum(nil))
}

// bytesToFloat converts exactly 4 bytes to a float64 in [0, 1)
func bytesToFloat(bytes [4]byte) float64 {
	result := 0.0
	for i, b := range bytes {
		divider := math.Pow(256, float64(i+1))
		result += float64(b) / divider
	}
	return result
}

// Floats generates count floats from a fresh stream for key.
func Floats(key string, count int) []float64 {
	s := NewStream(key)
	floats := make([]float64, count)

	for i := 0; i < count; i++ {
		floats[i] = s.Float()
	}

	return floats
}
