package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInternationalNumber(t *testing.T) {
	p, err := Parse("+39 347 123 4567")
	require.NoError(t, err)
	assert.Equal(t, "+39 347 123 4567", p.Number)
	assert.Equal(t, "IT", p.Country)
}

func TestParseToleratesMissingPlus(t *testing.T) {
	p, err := Parse("393471234567")
	require.NoError(t, err)
	assert.Equal(t, "IT", p.Country)
}

func TestParseNormalizesFormatting(t *testing.T) {
	a, err := Parse("+393471234567")
	require.NoError(t, err)
	b, err := Parse("+39 347 123-4567")
	require.NoError(t, err)
	assert.Equal(t, a.Number, b.Number, "formatting variants normalize to the same number")
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "not-a-number", "+123", "0000000"} {
		_, err := Parse(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}
