package txnumber

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		position int64
		index    int64
		expected int64
	}{
		{"zero", 0, 0, 0},
		{"first index of position one", 1, 0, 1 << 32},
		{"mixed", 7000000, 12, 7000000<<32 + 12},
		{"max index", 5, MaxIndex, 5<<32 + 4294967295},
		{"max position", MaxPosition, 0, MaxPosition << 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Encode(tt.position, tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)

			p, i, err := Decode(n)
			require.NoError(t, err)
			assert.Equal(t, tt.position, p)
			assert.Equal(t, tt.index, i)
		})
	}
}

func TestLastOfPosition(t *testing.T) {
	for _, p := range []int64{0, 1, 42, 8_000_000} {
		last, err := LastOfPosition(p)
		require.NoError(t, err)

		next, err := Encode(p+1, 0)
		require.NoError(t, err)
		assert.Equal(t, next-1, last)
		assert.Equal(t, p, Position(last))
	}
}

func TestEncodeOrdering(t *testing.T) {
	a, _ := Encode(10, MaxIndex)
	b, _ := Encode(11, 0)
	c, _ := Encode(11, 1)
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestEncodeOutOfRange(t *testing.T) {
	_, err := Encode(1, MaxIndex+1)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))

	_, err = Encode(-1, 0)
	assert.True(t, errors.Is(err, ErrPositionOutOfRange))

	_, err = Encode(MaxPosition+1, 0)
	assert.True(t, errors.Is(err, ErrPositionOutOfRange))

	_, err = LastOfPosition(MaxPosition + 1)
	assert.Error(t, err)

	_, _, err = Decode(-5)
	assert.True(t, errors.Is(err, ErrNegativeNumber))
}
