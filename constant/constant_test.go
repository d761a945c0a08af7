package constant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedString(t *testing.T) {
	tests := []struct {
		value Fixed
		want  string
	}{
		{65535, "65.535"},
		{FixedFromInt(400000000), "400000000"},
		{1500, "1.5"},
		{-250, "-0.25"},
		{0, "0"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			require.Equal(t, tc.want, tc.value.String())
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.String("MCU", "stm32h743xx"))
	require.NoError(t, r.Fixed("ADC_MAX", 65535))
	require.NoError(t, r.String("RESERVE_PINS_crystal", "PH0,PH1"))

	// Declaring the same value twice is allowed
	require.NoError(t, r.String("MCU", "stm32h743xx"))

	err := r.String("MCU", "stm32f407xx")
	require.True(t, errors.Is(err, ErrConflict))

	all := r.All()
	require.Len(t, all, 3)
	require.Equal(t, "ADC_MAX", all[0].Name)
	require.Equal(t, "MCU", all[1].Name)
	require.Equal(t, "RESERVE_PINS_crystal", all[2].Name)

	c, ok := r.Lookup("ADC_MAX")
	require.True(t, ok)
	require.True(t, c.Numeric)
	require.Equal(t, "ADC_MAX=65.535", c.String())
	require.Equal(t, `MCU="stm32h743xx"`, all[1].String())
}
