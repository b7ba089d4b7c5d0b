package collatz

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bigs(vals ...int64) Sequence {
	seq := make(Sequence, len(vals))
	for i, v := range vals {
		seq[i] = big.NewInt(v)
	}
	return seq
}

func TestStep(t *testing.T) {
	tests := []struct {
		in, want int64
	}{
		{1, 4},
		{2, 1},
		{3, 10},
		{6, 3},
		{7, 22},
		{27, 82},
	}

	for _, tt := range tests {
		got := Step(new(big.Int), big.NewInt(tt.in))
		assert.Equal(t, tt.want, got.Int64(), "Step(%d)", tt.in)
	}
}

func TestStep_Aliased(t *testing.T) {
	n := big.NewInt(7)
	Step(n, n)
	assert.Equal(t, int64(22), n.Int64())

	Step(n, n)
	assert.Equal(t, int64(11), n.Int64())
}

func TestStep_LargeOdd(t *testing.T) {
	// 2^10000 - 1 is odd
	n := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 10000), big.NewInt(1))

	want := new(big.Int).Mul(n, big.NewInt(3))
	want.Add(want, big.NewInt(1))

	assert.Zero(t, Step(new(big.Int), n).Cmp(want))
}

func TestSequence_Validate(t *testing.T) {
	tests := []struct {
		name    string
		start   int64
		seq     Sequence
		wantErr bool
	}{
		{"six", 6, bigs(3, 10, 5, 16, 8, 4, 2, 1), false},
		{"one is empty", 1, Sequence{}, false},
		{"two", 2, bigs(1), false},
		{"wrong first value", 6, bigs(10, 5, 16, 8, 4, 2, 1), true},
		{"gap", 6, bigs(3, 10, 16, 8, 4, 2, 1), true},
		{"truncated", 6, bigs(3, 10, 5), true},
		{"empty for non-one", 6, Sequence{}, true},
		{"continues past one", 2, bigs(1, 4, 2, 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.seq.Validate(big.NewInt(tt.start))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSequence_Validate_RejectsNonPositiveStart(t *testing.T) {
	require.Error(t, bigs(1).Validate(big.NewInt(0)))
	require.Error(t, Sequence{}.Validate(nil))
}

func TestSequence_Text(t *testing.T) {
	seq := bigs(3, 10, 5, 16, 8, 4, 2, 1)

	data, err := seq.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "3\n10\n5\n16\n8\n4\n2\n1", string(data))

	var buf bytes.Buffer
	n, err := seq.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	empty, err := Sequence{}.MarshalText()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseSequence(t *testing.T) {
	seq, err := ParseSequence([]byte("3\n10\n5\n16\n8\n4\n2\n1\n"))
	require.NoError(t, err)
	require.NoError(t, seq.Validate(big.NewInt(6)))
	assert.Len(t, seq, 8)

	seq, err = ParseSequence(nil)
	require.NoError(t, err)
	assert.Empty(t, seq)

	_, err = ParseSequence([]byte("3\n1x\n5"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = ParseSequence([]byte("3\n\n5"))
	require.Error(t, err)

	_, err = ParseSequence([]byte("-4\n-2"))
	require.Error(t, err)
}

func TestSequence_Max(t *testing.T) {
	assert.Nil(t, Sequence{}.Max())
	assert.Equal(t, int64(16), bigs(3, 10, 5, 16, 8, 4, 2, 1).Max().Int64())
}
