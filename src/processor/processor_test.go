package processor

import (
	"fmt"
	"testing"

	"CommodityDashboard/src/config"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	region, subRegion, commodity string
	production                   float64
}

func newTestTable(t *testing.T, rows []row) *Table {
	t.Helper()
	var (
		regions, subRegions, commodities []string
		production                       []float64
	)
	for _, r := range rows {
		regions = append(regions, r.region)
		subRegions = append(subRegions, r.subRegion)
		commodities = append(commodities, r.commodity)
		production = append(production, r.production)
	}
	df := dataframe.New(
		series.New(regions, series.String, "Region"),
		series.New(subRegions, series.String, "Sub-Region"),
		series.New(commodities, series.String, "Commodity"),
		series.New(production, series.Float, "Production"),
	)
	require.NoError(t, df.Err)

	table, err := NewTable(df, config.DefaultDataConfig(), "test")
	require.NoError(t, err)
	return table
}

func scenarioTable(t *testing.T) *Table {
	return newTestTable(t, []row{
		{"X", "A", "Oil", 10},
		{"X", "B", "Oil", 30},
		{"Y", "C", "Gas", 60},
	})
}

func productions(records []Record) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Production
	}
	return out
}

func TestScenario(t *testing.T) {
	table := scenarioTable(t)

	assert.Equal(t, []float64{60, 30, 10}, productions(table.Filter("All", "All").Records()))
	assert.Equal(t, []float64{30, 10}, productions(table.Filter("X", "All").Records()))
	assert.Equal(t, 100.0, table.Total())

	var pct []float64
	for _, r := range table.Records() {
		pct = append(pct, r.Percentage)
	}
	assert.InDeltaSlice(t, []float64{10, 30, 60}, pct, 1e-9)

	donut := BuildRegionShare(table, Selection{Region: "All", Commodity: "Oil"})
	require.Len(t, donut.Slices(), 1)
	assert.Equal(t, "X", donut.Slices()[0].Label)
	assert.InDelta(t, 40, donut.Slices()[0].Value, 1e-9)
}

func TestFilterBranches(t *testing.T) {
	table := newTestTable(t, []row{
		{"X", "A", "Oil", 10},
		{"X", "B", "Gas", 30},
		{"Y", "C", "Oil", 60},
		{"Y", "D", "Gas", 5},
	})

	cases := []struct {
		region, commodity string
		want              []float64
	}{
		{"All", "All", []float64{60, 30, 10, 5}},
		{"All", "Oil", []float64{60, 10}},
		{"Y", "All", []float64{60, 5}},
		{"X", "Gas", []float64{30}},
		{"Z", "All", []float64{}},
		{"X", "Coal", []float64{}},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%s/%s", c.region, c.commodity), func(t *testing.T) {
			records := table.Filter(c.region, c.commodity).Records()
			assert.Equal(t, c.want, productions(records))
			for _, r := range records {
				if c.region != "All" {
					assert.Equal(t, c.region, r.Region)
				}
				if c.commodity != "All" {
					assert.Equal(t, c.commodity, r.Commodity)
				}
			}
		})
	}
}

func TestFilterForShareOrder(t *testing.T) {
	table := scenarioTable(t)

	// 饼图路径只在两个条件都具体时排序
	cases := []struct {
		region, commodity string
		want              []float64
	}{
		{"All", "All", []float64{10, 30, 60}},
		{"X", "All", []float64{10, 30}},
		{"All", "Oil", []float64{10, 30}},
		{"X", "Oil", []float64{30, 10}},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%s/%s", c.region, c.commodity), func(t *testing.T) {
			assert.Equal(t, c.want, productions(table.filterForShare(c.region, c.commodity).Records()))
		})
	}
}

func TestEmptyTable(t *testing.T) {
	df := dataframe.New(
		series.New([]string{}, series.String, "Region"),
		series.New([]string{}, series.String, "Sub-Region"),
		series.New([]string{}, series.String, "Commodity"),
		series.New([]float64{}, series.Float, "Production"),
	)
	table, err := NewTable(df, config.DefaultDataConfig(), "empty.csv")
	require.NoError(t, err)

	assert.Equal(t, 0.0, table.Total())
	assert.Equal(t, []string{"All"}, table.Regions())
	assert.Empty(t, table.Filter("All", "All").Records())

	sel := Selection{Region: "All", Commodity: "All"}
	assert.Equal(t, "Total Production: 0", BuildCommodityProduction(table, sel).Annotations[0].Text)
	assert.Empty(t, BuildRegionShare(table, sel).Slices())
	assert.Empty(t, BuildSubRegionShare(table, sel).Slices())
	assert.Empty(t, BuildSubRegionBar(table, sel).Categories)
}

func TestGlobalInvariants(t *testing.T) {
	table := newTestTable(t, []row{
		{"X", "A", "Oil", 12.5},
		{"X", "B", "Gas", 7},
		{"Y", "C", "Oil", 0},
		{"Z", "D", "Coal", 80.5},
	})

	all := table.Filter("All", "All")
	assert.InDelta(t, table.Total(), all.Total(), 1e-9)

	var sum float64
	for _, r := range all.Records() {
		sum += r.Percentage
	}
	assert.InDelta(t, 100, sum, 1e-9)

	// 过滤后全局占比不变
	x := table.Filter("X", "All").Records()
	assert.InDelta(t, 12.5/table.Total()*100, x[0].Percentage, 1e-9)
}

func TestZeroTotal(t *testing.T) {
	table := newTestTable(t, []row{
		{"X", "A", "Oil", 0},
		{"Y", "B", "Gas", 0},
	})
	for _, r := range table.Records() {
		assert.Equal(t, 0.0, r.Percentage)
	}

	share := BuildSubRegionShare(table, Selection{Region: "All", Commodity: "All"})
	for _, s := range share.Slices() {
		assert.Equal(t, 0.0, s.Percent)
	}
}

func TestOptions(t *testing.T) {
	table := scenarioTable(t)
	assert.Equal(t, []string{"All", "X", "Y"}, table.Regions())
	assert.Equal(t, []string{"All", "Oil", "Gas"}, table.Commodities())
}

func TestBuildCommodityProduction(t *testing.T) {
	table := newTestTable(t, []row{
		{"X", "A", "Oil", 1000},
		{"X", "B", "Oil", 300},
		{"X", "C", "Gas", 2000},
		{"Y", "D", "Gas", 600000},
	})

	all := BuildCommodityProduction(table, Selection{Region: "All", Commodity: "All"})
	assert.Equal(t, KindBar, all.Kind)
	assert.Equal(t, []string{"Gas", "Oil"}, all.Categories)
	require.Len(t, all.Annotations, 1)
	assert.Equal(t, "Total Production: 603,300", all.Annotations[0].Text)
	assert.Equal(t, 0.5, all.Annotations[0].X)
	assert.Equal(t, "paper", all.Annotations[0].XRef)

	x := BuildCommodityProduction(table, Selection{Region: "X", Commodity: "Gas"})
	assert.Equal(t, "Total Production: 3,300", x.Annotations[0].Text)
	assert.Equal(t, []string{"Gas", "Oil"}, x.Categories)
	require.Len(t, x.Series, 2)
	assert.Equal(t, "Oil", x.Series[1].Name)
	assert.Equal(t, []Point{{Label: "Oil", Value: 1300}}, x.Series[1].Points)

	empty := BuildCommodityProduction(table, Selection{Region: "Nowhere"})
	assert.Empty(t, empty.Series)
	assert.Equal(t, "Total Production: 0", empty.Annotations[0].Text)
}

func TestBuildSubRegionBar(t *testing.T) {
	table := newTestTable(t, []row{
		{"X", "A", "Oil", 10},
		{"X", "A", "Gas", 15},
		{"X", "B", "Oil", 30},
		{"Y", "C", "Oil", 60},
	})

	spec := BuildSubRegionBar(table, Selection{Region: "X", Commodity: "All"})
	assert.Equal(t, "Sub-Regions Production of X for All commodities", spec.Title)
	assert.Equal(t, []string{"B", "A"}, spec.Categories)
	require.Len(t, spec.Series, 2)
	assert.Equal(t, Series{Name: "Oil", Points: []Point{{Label: "B", Value: 30}, {Label: "A", Value: 10}}}, spec.Series[0])
	assert.Equal(t, Series{Name: "Gas", Points: []Point{{Label: "A", Value: 15}}}, spec.Series[1])
}

func TestBuildSubRegionShareTopN(t *testing.T) {
	var rows []row
	for i := 0; i < 12; i++ {
		rows = append(rows, row{"X", fmt.Sprintf("S%02d", i), "Oil", float64(i + 1)})
	}
	table := newTestTable(t, rows)

	spec := BuildSubRegionShare(table, Selection{Region: "X", Commodity: "Oil"})
	assert.Equal(t, "Percentage of Sub-Regions Production of X", spec.Title)
	assert.Equal(t, "inside", spec.TextPosition)
	assert.Equal(t, "percent+label", spec.TextInfo)

	slices := spec.Slices()
	require.Len(t, slices, 10)
	assert.Equal(t, "S11", slices[0].Label)
	var sum float64
	for i, s := range slices {
		if i > 0 {
			assert.GreaterOrEqual(t, slices[i-1].Percent, s.Percent)
		}
		sum += s.Percent
	}
	assert.Less(t, sum, 100.0)
	// 基数是过滤后子集的总量 78
	assert.InDelta(t, 12.0/78*100, slices[0].Percent, 1e-9)
}

func TestBuildSubRegionShareFewSlices(t *testing.T) {
	table := newTestTable(t, []row{
		{"X", "A", "Oil", 10},
		{"X", "A", "Gas", 10},
		{"X", "B", "Oil", 30},
		{"Y", "C", "Oil", 60},
	})

	spec := BuildSubRegionShare(table, Selection{Region: "All", Commodity: "Oil"})
	slices := spec.Slices()
	require.Len(t, slices, 3)
	assert.Equal(t, []string{"C", "B", "A"}, []string{slices[0].Label, slices[1].Label, slices[2].Label})

	var sum float64
	for _, s := range slices {
		sum += s.Percent
	}
	assert.InDelta(t, 100, sum, 1e-9)
	assert.Equal(t, "Percentage of Sub-Regions Production of All", spec.Title)
}

func TestBuildRegionShareTitle(t *testing.T) {
	table := scenarioTable(t)
	spec := BuildRegionShare(table, Selection{})
	assert.Equal(t, "Percentage of Regions Production of All commodity", spec.Title)
	slices := spec.Slices()
	require.Len(t, slices, 2)
	assert.Equal(t, "X", slices[0].Label)
	assert.InDelta(t, 40, slices[0].Value, 1e-9)
	assert.InDelta(t, 40, slices[0].Percent, 1e-9)
	assert.Equal(t, "Y", slices[1].Label)
	assert.InDelta(t, 60, slices[1].Percent, 1e-9)

	empty := BuildRegionShare(table, Selection{Commodity: "Coal"})
	assert.Empty(t, empty.Slices())
}

func TestBuildersIdempotent(t *testing.T) {
	table := scenarioTable(t)
	sel := Selection{Region: "X", Commodity: "Oil"}
	for _, build := range []BuildFunc{BuildCommodityProduction, BuildRegionShare, BuildSubRegionBar, BuildSubRegionShare} {
		assert.Equal(t, build(table, sel), build(table, sel))
	}
}

func TestFormatTotal(t *testing.T) {
	assert.Equal(t, "0", FormatTotal(0))
	assert.Equal(t, "999", FormatTotal(999))
	assert.Equal(t, "1,234,567", FormatTotal(1234567))
	// 整数总量不带 ".0"
	assert.Equal(t, "Total Production: 95,226", TotalAnnotation(95226.0))
	assert.Equal(t, "1,234.5", FormatTotal(1234.5))
	assert.Equal(t, "-1,000", FormatTotal(-1000))
}

func TestStore(t *testing.T) {
	first := scenarioTable(t)
	store := NewStore(first)
	assert.Same(t, first, store.Get())

	second := newTestTable(t, []row{{"Z", "Q", "Coal", 1}})
	store.Set(second)
	assert.Same(t, second, store.Get())
}
