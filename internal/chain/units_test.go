package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "default stake", in: "0.01", want: "10000000000000000"},
		{name: "whole", in: "1", want: "1000000000000000000"},
		{name: "padded", in: "  2.5 ", want: "2500000000000000000"},
		{name: "zero", in: "0", want: "0"},
		{name: "smallest unit", in: "0.000000000000000001", want: "1"},
		{name: "empty", in: "", wantErr: ErrEmptyAmount},
		{name: "negative", in: "-1", wantErr: ErrNegativeAmount},
		{name: "too precise", in: "0.0000000000000000001", wantErr: ErrTooPrecise},
		{name: "trailing zeros", in: "1.0000000000000000000", want: "1000000000000000000"},
		{name: "zero with exponent", in: "0e2147483640", want: "0"},
		{name: "max uint256", in: "115792089237316195423570985008687907853269984665640564039457584007913129639935e-18", want: "115792089237316195423570985008687907853269984665640564039457584007913129639935"},
		{name: "one over uint256", in: "115792089237316195423570985008687907853269984665640564039457584007913129639936e-18", wantErr: ErrAmountTooLarge},
		{name: "huge exponent", in: "1e9999999", wantErr: ErrAmountTooLarge},
		{name: "max int32 exponent", in: "1e2147483640", wantErr: ErrAmountTooLarge},
		{name: "tiny exponent", in: "1e-2147483640", wantErr: ErrTooPrecise},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseAmount(tt.in, 18)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ParseAmount("abc", 18)
	require.Error(t, err)
}

func TestStakeRoundTrip(t *testing.T) {
	t.Parallel()

	wei, err := ParseAmount("0.01", 18)
	require.NoError(t, err)

	want := new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)
	assert.Equal(t, 0, wei.Cmp(want))
	assert.Equal(t, "0.01", FormatAmount(wei, 18))
}

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	oneEther := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	assert.Equal(t, "1.0", FormatAmount(oneEther, 18))
	assert.Equal(t, "0.0", FormatAmount(big.NewInt(0), 18))
	assert.Equal(t, "0.0", FormatAmount(nil, 18))
	assert.Equal(t, "0.000000000000000001", FormatAmount(big.NewInt(1), 18))
}

func TestDueTimestamp(t *testing.T) {
	t.Parallel()

	ts, err := DueTimestamp("2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1735689600), ts.Int64())

	ts, err = DueTimestamp("1970-01-01")
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts.Int64())

	_, err = DueTimestamp("1969-12-31")
	require.ErrorIs(t, err, ErrBeforeEpoch)

	_, err = DueTimestamp("01/01/2025")
	require.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "01/01/2025", FormatDate(1735689600))
}
