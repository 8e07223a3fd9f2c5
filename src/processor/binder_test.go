package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(specs []ChartSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.ID
	}
	return out
}

func TestBinderRender(t *testing.T) {
	b := NewDashboard(NewStore(scenarioTable(t)))

	specs, err := b.Render(Selection{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		ViewCommodityProduction, ViewRegionShare, ViewSubRegionBar, ViewSubRegionShare,
	}, ids(specs))
	assert.Equal(t, b.Views(), ids(specs))
}

func TestBinderUpdate(t *testing.T) {
	b := NewDashboard(NewStore(scenarioTable(t)))
	sel := Selection{Region: "X", Commodity: "All"}

	specs, err := b.Update(sel, InputRegion)
	require.NoError(t, err)
	assert.Equal(t, []string{ViewCommodityProduction, ViewSubRegionBar, ViewSubRegionShare}, ids(specs))

	specs, err = b.Update(sel, InputCommodity)
	require.NoError(t, err)
	assert.Equal(t, []string{ViewRegionShare, ViewSubRegionBar, ViewSubRegionShare}, ids(specs))

	specs, err = b.Update(sel)
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestBinderUsesCurrentSnapshot(t *testing.T) {
	store := NewStore(scenarioTable(t))
	b := NewDashboard(store)

	before, err := b.Build(ViewCommodityProduction, Selection{})
	require.NoError(t, err)
	assert.Equal(t, "Total Production: 100", before.Annotations[0].Text)

	store.Set(newTestTable(t, []row{{"Z", "Q", "Coal", 2500}}))
	after, err := b.Build(ViewCommodityProduction, Selection{})
	require.NoError(t, err)
	assert.Equal(t, "Total Production: 2,500", after.Annotations[0].Text)

	_, err = b.Build("nope", Selection{})
	require.Error(t, err)
}

func TestBinderNoSnapshot(t *testing.T) {
	b := NewDashboard(NewStore(nil))
	_, err := b.Render(Selection{})
	require.ErrorIs(t, err, ErrNoSnapshot)
}

func TestBindReplaces(t *testing.T) {
	b := NewBinder(NewStore(scenarioTable(t)))
	b.Bind("v", BuildRegionShare, InputCommodity)
	b.Bind("v", BuildCommodityProduction, InputRegion)

	assert.Equal(t, []string{"v"}, b.Views())
	specs, err := b.Update(Selection{}, InputRegion)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, KindBar, specs[0].Kind)
	assert.Equal(t, "v", specs[0].ID)
}

func TestChanged(t *testing.T) {
	assert.Nil(t, Changed(Selection{"X", "Oil"}, Selection{"X", "Oil"}))
	assert.Equal(t, []Input{InputRegion}, Changed(Selection{"X", "Oil"}, Selection{"Y", "Oil"}))
	assert.Equal(t, []Input{InputRegion, InputCommodity}, Changed(Selection{"X", "Oil"}, Selection{"Y", "Gas"}))

	in, err := ParseInput("region")
	require.NoError(t, err)
	assert.Equal(t, InputRegion, in)
	_, err = ParseInput("year")
	require.Error(t, err)
}
