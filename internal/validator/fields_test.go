package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBeverageList(t *testing.T) {
	rules := DefaultRules()

	names, err := ParseBeverageList("Hop Drop, Galaxy Dust, Night Swim", rules)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hop Drop", "Galaxy Dust", "Night Swim"}, names)

	names, err = ParseBeverageList("Solo Stout", rules)
	require.NoError(t, err)
	assert.Equal(t, []string{"Solo Stout"}, names)
}

func TestParseBeverageListEmptyTokens(t *testing.T) {
	rules := DefaultRules()

	for _, raw := range []string{"", "  ", "n/a", "N/A", "none", "None", "-"} {
		names, err := ParseBeverageList(raw, rules)
		require.NoError(t, err, "raw=%q", raw)
		assert.Nil(t, names, "raw=%q", raw)
	}
}

func TestParseBeverageListErrors(t *testing.T) {
	rules := DefaultRules()

	_, err := ParseBeverageList("Hop Drop,, Night Swim", rules)
	assert.Error(t, err)

	rules.MaxBeverageNameLength = 5
	_, err = ParseBeverageList("A Very Long Beverage Name", rules)
	assert.Error(t, err)
}

func TestParseBurgerSegmentsSingle(t *testing.T) {
	segs, err := ParseBurgerSegments("The Blazer - pimento cheese, candied jalapeños, bacon")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "The Blazer", segs[0].Name)
	assert.Equal(t, "pimento cheese, candied jalapeños, bacon", segs[0].Description)
}

func TestParseBurgerSegmentsMultiple(t *testing.T) {
	segs, err := ParseBurgerSegments("First - with onions, Second - with slaw")
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "First", segs[0].Name)
	assert.Equal(t, "with onions", segs[0].Description)
	assert.Equal(t, "Second", segs[1].Name)
	assert.Equal(t, "with slaw", segs[1].Description)
}

func TestParseBurgerSegmentsSemicolon(t *testing.T) {
	segs, err := ParseBurgerSegments("First - a, b, c; Second - d, e")
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "a, b, c", segs[0].Description)
	assert.Equal(t, "d, e", segs[1].Description)
}

func TestParseBurgerSegmentsErrors(t *testing.T) {
	_, err := ParseBurgerSegments("")
	assert.Error(t, err)

	_, err = ParseBurgerSegments("no separator here")
	assert.Error(t, err)

	_, err = ParseBurgerSegments(" - description without a name")
	assert.Error(t, err)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, NormalizeName("  Saint   Bruce "), NormalizeName("saint bruce"))
	assert.Equal(t, NormalizeName("José"), NormalizeName("José"))
	assert.NotEqual(t, NormalizeName("saint bruce"), NormalizeName("saint bryce"))
}

func TestNumericID(t *testing.T) {
	assert.True(t, numericID("42"))
	assert.True(t, numericID("0017"))
	assert.False(t, numericID(""))
	assert.False(t, numericID("12a"))
	assert.False(t, numericID("-3"))
}
