package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// SafeInt
// ---------------------------------------------------------------------------

func TestSafeInt_Basic(t *testing.T) {
	n, ok := SafeInt("150")
	require.True(t, ok)
	assert.Equal(t, int64(150), n)

	n, ok = SafeInt(-1)
	require.True(t, ok)
	assert.Equal(t, int64(-1), n)

	n, ok = SafeInt("-1250")
	require.True(t, ok)
	assert.Equal(t, int64(-1250), n)
}

func TestSafeInt_Absent(t *testing.T) {
	_, ok := SafeInt(nil)
	assert.False(t, ok)

	_, ok = SafeInt("not a number")
	assert.False(t, ok)

	_, ok = SafeInt("")
	assert.False(t, ok)

	_, ok = SafeInt("12.5")
	assert.False(t, ok)

	_, ok = SafeInt(math.NaN())
	assert.False(t, ok)
}

func TestSafeInt_TwosComplementWraparound(t *testing.T) {
	// 2^63 is one past MaxInt64 and wraps to MinInt64.
	n, ok := SafeInt("9223372036854775808")
	require.True(t, ok)
	assert.Equal(t, int64(math.MinInt64), n)

	// ioreg reports discharge currents as huge unsigned values:
	// 2^64 - 1250 is really -1250 mA.
	n, ok = SafeInt("18446744073709550366")
	require.True(t, ok)
	assert.Equal(t, int64(-1250), n)

	// Below -2^63 wraps back up.
	n, ok = SafeInt("-9223372036854775809")
	require.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), n)
}

func TestSafeInt_UnsignedBitPattern(t *testing.T) {
	n, ok := SafeInt(uint64(18446744073709550366))
	require.True(t, ok)
	assert.Equal(t, int64(-1250), n)
}

func TestSafeInt_FloatTruncates(t *testing.T) {
	n, ok := SafeInt(12.9)
	require.True(t, ok)
	assert.Equal(t, int64(12), n)

	n, ok = SafeInt(-3.7)
	require.True(t, ok)
	assert.Equal(t, int64(-3), n)
}

// ---------------------------------------------------------------------------
// SafeFloat
// ---------------------------------------------------------------------------

func TestSafeFloat(t *testing.T) {
	f, ok := SafeFloat("2950")
	require.True(t, ok)
	assert.Equal(t, 2950.0, f)

	f, ok = SafeFloat(12.5)
	require.True(t, ok)
	assert.Equal(t, 12.5, f)

	f, ok = SafeFloat(int64(3))
	require.True(t, ok)
	assert.Equal(t, 3.0, f)

	_, ok = SafeFloat(nil)
	assert.False(t, ok)

	_, ok = SafeFloat("garbage")
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// ParseBool
// ---------------------------------------------------------------------------

func TestParseBool_Strings(t *testing.T) {
	for _, s := range []string{"Yes", "yes", "YES", "true", "True", "1"} {
		b, ok := ParseBool(s)
		require.True(t, ok, "input %q", s)
		assert.True(t, b, "input %q", s)
	}
	for _, s := range []string{"no", "No", "false", "0", "anything else"} {
		b, ok := ParseBool(s)
		require.True(t, ok, "input %q", s)
		assert.False(t, b, "input %q", s)
	}
}

func TestParseBool_Passthrough(t *testing.T) {
	b, ok := ParseBool(true)
	require.True(t, ok)
	assert.True(t, b)

	b, ok = ParseBool(false)
	require.True(t, ok)
	assert.False(t, b)
}

func TestParseBool_Absent(t *testing.T) {
	_, ok := ParseBool(nil)
	assert.False(t, ok)
}

func TestParseBool_Numeric(t *testing.T) {
	b, ok := ParseBool(1)
	require.True(t, ok)
	assert.True(t, b)

	b, ok = ParseBool(0)
	require.True(t, ok)
	assert.False(t, b)
}

func TestParseBool_TruthinessOfOtherTypes(t *testing.T) {
	b, ok := ParseBool([]string{"x"})
	require.True(t, ok)
	assert.True(t, b)

	b, ok = ParseBool([]string{})
	require.True(t, ok)
	assert.False(t, b)

	b, ok = ParseBool(map[string]int{"a": 1})
	require.True(t, ok)
	assert.True(t, b)

	b, ok = ParseBool(map[string]int{})
	require.True(t, ok)
	assert.False(t, b)
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	h, ok := Health(Reading{
		"apple_raw_max_capacity": "4800",
		"design_capacity":        "5000",
	})
	require.True(t, ok)
	assert.Equal(t, 96.0, h)
}

func TestHealth_Rounding(t *testing.T) {
	h, ok := Health(Reading{
		"apple_raw_max_capacity": "4333",
		"design_capacity":        "5000",
	})
	require.True(t, ok)
	assert.Equal(t, 86.7, h)
}

func TestHealth_Absent(t *testing.T) {
	cases := map[string]Reading{
		"missing design":     {"apple_raw_max_capacity": "4800"},
		"missing max":        {"design_capacity": "5000"},
		"zero design":        {"apple_raw_max_capacity": "4800", "design_capacity": "0"},
		"zero max":           {"apple_raw_max_capacity": "0", "design_capacity": "5000"},
		"non-numeric design": {"apple_raw_max_capacity": "4800", "design_capacity": "n/a"},
		"empty":              {},
	}
	for name, r := range cases {
		_, ok := Health(r)
		assert.False(t, ok, name)
	}
}

// ---------------------------------------------------------------------------
// Reading accessors
// ---------------------------------------------------------------------------

func TestReadingAccessors(t *testing.T) {
	r := Reading{
		"cycle_count": "150",
		"temperature": "2950",
		"is_charging": "Yes",
		"serial":      " ABC123456 ",
		"voltage":     12500,
	}

	n, ok := r.Int("cycle_count")
	require.True(t, ok)
	assert.Equal(t, int64(150), n)

	f, ok := r.Float("temperature")
	require.True(t, ok)
	assert.Equal(t, 2950.0, f)

	b, ok := r.Bool("is_charging")
	require.True(t, ok)
	assert.True(t, b)

	s, ok := r.String("serial")
	require.True(t, ok)
	assert.Equal(t, "ABC123456", s)

	_, ok = r.String("voltage") // not a string value
	assert.False(t, ok)

	_, ok = r.Int("missing")
	assert.False(t, ok)
}

func FuzzSafeInt(f *testing.F) {
	f.Add("150")
	f.Add("-1250")
	f.Add("18446744073709550366")
	f.Add("9223372036854775808")
	f.Add("not a number")
	f.Add("")
	f.Fuzz(func(t *testing.T, s string) {
		// Must not panic
		_, _ = SafeInt(s)
	})
}

func FuzzParseBool(f *testing.F) {
	f.Add("Yes")
	f.Add("false")
	f.Add("1")
	f.Add("maybe")
	f.Fuzz(func(t *testing.T, s string) {
		// Must not panic
		_, _ = ParseBool(s)
	})
}
