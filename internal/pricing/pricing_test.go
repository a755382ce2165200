package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableIsValid(t *testing.T) {
	require.NoError(t, Validate())
}

func TestLookup(t *testing.T) {
	p, err := Lookup("personal_monthly")
	require.NoError(t, err)
	assert.Equal(t, int64(50), p.Amount)
	assert.Equal(t, PlanKindPersonal, p.Kind)
	assert.Equal(t, 1, p.Resolves)

	g, err := Lookup("group_yearly")
	require.NoError(t, err)
	assert.Equal(t, PlanKindGroup, g.Kind)
	require.NotNil(t, g.Days)
	assert.Equal(t, 365, *g.Days)
	assert.False(t, g.Lifetime())

	charter, err := Lookup("group_charter")
	require.NoError(t, err)
	assert.True(t, charter.Lifetime())

	_, err = Lookup("nope")
	assert.ErrorIs(t, err, ErrPlanUnknown)
}
