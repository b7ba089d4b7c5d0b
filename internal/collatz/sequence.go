package collatz

import (
	"bufio"
	"bytes"
	"io"
	"math/big"

	"github.com/jmgilman/go/errors"
)

var (
	one = big.NewInt(1)
)

// Step sets dst to the Collatz successor of n and returns dst.
// n/2 when n is even, 3n+1 otherwise. dst may alias n.
func Step(dst, n *big.Int) *big.Int {
	if n.Bit(0) == 0 {
		return dst.Rsh(n, 1)
	}
	if dst == n {
		n = new(big.Int).Set(n)
	}
	// 3n+1 = 2n + n + 1
	dst.Lsh(n, 1)
	dst.Add(dst, n)
	return dst.Add(dst, one)
}

func isOne(n *big.Int) bool {
	return n.Cmp(one) == 0
}

// Sequence is the stored trajectory of a start: every value after it, in
// visitation order, ending at 1. The start itself is not included, so the
// sequence of 1 is empty.
type Sequence []*big.Int

// Validate checks that s is the trajectory of start.
func (s Sequence) Validate(start *big.Int) error {
	if start == nil || start.Sign() <= 0 {
		return errors.New(errors.CodeInvalidInput, "start must be a positive integer")
	}

	prev := start
	want := new(big.Int)
	for i, v := range s {
		if isOne(prev) {
			return errors.Newf(errors.CodeInvalidInput, "sequence continues past 1 at index %d", i)
		}
		if v == nil || v.Cmp(Step(want, prev)) != 0 {
			return errors.Newf(errors.CodeInvalidInput, "value at index %d is not the successor of the previous value", i)
		}
		prev = v
	}

	if !isOne(prev) {
		return errors.New(errors.CodeInvalidInput, "sequence does not end at 1")
	}
	return nil
}

// Max returns the largest value of s, or nil when s is empty.
func (s Sequence) Max() *big.Int {
	var largest *big.Int
	for _, v := range s {
		if largest == nil || v.Cmp(largest) > 0 {
			largest = v
		}
	}
	return largest
}

// WriteTo writes s as newline-separated decimal values without a trailing
// newline.
func (s Sequence) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	for i, v := range s {
		if i > 0 {
			if err := cw.WriteByte('\n'); err != nil {
				return cw.n, err
			}
		}
		if _, err := cw.Write(v.Append(nil, 10)); err != nil {
			return cw.n, err
		}
	}

	return cw.n, bw.Flush()
}

// MarshalText encodes s in the stored format.
func (s Sequence) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseSequence decodes the stored format. Surrounding whitespace is
// ignored; every line must be a positive decimal integer.
func ParseSequence(data []byte) (Sequence, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Sequence{}, nil
	}

	lines := bytes.Split(data, []byte{'\n'})
	seq := make(Sequence, 0, len(lines))
	for i, line := range lines {
		line = bytes.TrimSpace(line)
		v, ok := new(big.Int).SetString(string(line), 10)
		if !ok || v.Sign() <= 0 {
			return nil, errors.Newf(errors.CodeInvalidInput, "line %d is not a positive integer", i+1)
		}
		seq = append(seq, v)
	}
	return seq, nil
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (c *countingWriter) WriteByte(b byte) error {
	if err := c.w.WriteByte(b); err != nil {
		return err
	}
	c.n++
	return nil
}
