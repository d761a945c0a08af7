package pin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"omibyte.io/h7boot/peripheral"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		want Pin
		err  bool
	}{
		{name: "PA0", want: Pin{Port: 0, Index: 0}},
		{name: "PC13", want: Pin{Port: 2, Index: 13}},
		{name: "PK15", want: Pin{Port: 10, Index: 15}},
		{name: "PL0", err: true},
		{name: "PA16", err: true},
		{name: "PA", err: true},
		{name: "A3", err: true},
		{name: "Pa3", err: true},
		{name: "PA-1", err: true},
		{name: "PA100", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.name)
			if tt.err {
				require.ErrorIs(t, err, peripheral.ErrInvalidPinout)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, p)
			require.Equal(t, tt.name, p.String())
		})
	}
}

func TestID(t *testing.T) {
	for id := uint32(0); id < Ports*16; id++ {
		p, err := FromID(id)
		require.NoError(t, err)
		require.Equal(t, id, p.ID())
	}

	require.Equal(t, uint32(2*16+5), MustParse("PC5").ID())

	_, err := FromID(Ports * 16)
	require.ErrorIs(t, err, peripheral.ErrInvalidPinout)

	require.Panics(t, func() { MustParse("PZ9") })
}

func TestMode(t *testing.T) {
	tests := []struct {
		mode Mode
		want uint32
	}{
		{Mode{Function: Input}, 0x000},
		{Mode{Function: Output, OpenDrain: true}, 0x101},
		{AlternateFunction(7), 0x072},
		{Mode{Function: Analog}, 0x003},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, tt.mode.Pack())
		m, err := DecodeMode(tt.want)
		require.NoError(t, err)
		require.Equal(t, tt.mode, m)
	}

	_, err := DecodeMode(0x4)
	require.ErrorIs(t, err, peripheral.ErrInvalidConfig)
}

func TestPullBits(t *testing.T) {
	require.Equal(t, uint32(0), PullNone.bits())
	require.Equal(t, uint32(1), PullUp.bits())
	require.Equal(t, uint32(2), PullDown.bits())
}
