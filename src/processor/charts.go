package processor

import (
	"sort"
)

type ChartKind string

const (
	KindBar ChartKind = "bar"
	KindPie ChartKind = "pie"
)

// 视图 id, 与页面上的图表容器一一对应
const (
	ViewCommodityProduction = "commodity-production-graph"
	ViewRegionShare         = "region_production_pie"
	ViewSubRegionBar        = "production-bar-graph"
	ViewSubRegionShare      = "pie_chart"
)

const titleFontSize = 18

// Point 柱状图中的一根柱子或饼图中的一块
type Point struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent,omitempty"`
}

// Series 同一颜色分组的数据
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Annotation 以绘图区归一化坐标定位的文字
type Annotation struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	XRef     string  `json:"xref"`
	YRef     string  `json:"yref"`
	XAnchor  string  `json:"xanchor"`
	YAnchor  string  `json:"yanchor"`
	Align    string  `json:"align"`
	FontSize int     `json:"font_size"`
}

// ChartSpec 交给渲染层的图表描述, 不依赖任何图表库
type ChartSpec struct {
	ID            string       `json:"id"`
	Kind          ChartKind    `json:"kind"`
	Title         string       `json:"title,omitempty"`
	TitleFontSize int          `json:"title_font_size,omitempty"`
	XField        string       `json:"x_field,omitempty"`
	YField        string       `json:"y_field,omitempty"`
	ColorField    string       `json:"color_field,omitempty"`
	Categories    []string     `json:"categories,omitempty"`
	Series        []Series     `json:"series"`
	Annotations   []Annotation `json:"annotations,omitempty"`
	Hole          float64      `json:"hole,omitempty"`
	TextPosition  string       `json:"text_position,omitempty"`
	TextInfo      string       `json:"text_info,omitempty"`
}

// Slices 饼图的所有扇区
func (c ChartSpec) Slices() []Point {
	if c.Kind != KindPie || len(c.Series) == 0 {
		return nil
	}
	return c.Series[0].Points
}

// BuildCommodityProduction 各商品产量柱状图, 只受地区影响.
// 标注显示当前视图的总产量.
func BuildCommodityProduction(t *Table, sel Selection) ChartSpec {
	sel = sel.Normalize(t.all)
	sub := t.Filter(sel.Region, t.all)

	total := t.Total()
	if sel.Region != t.all {
		total = sub.Total()
	}

	categories, series := stackedBars(sub, t.cols.Commodity, t.cols.Commodity)
	return ChartSpec{
		ID:         ViewCommodityProduction,
		Kind:       KindBar,
		XField:     t.cols.Commodity,
		YField:     t.cols.Production,
		ColorField: t.cols.Commodity,
		Categories: categories,
		Series:     series,
		Annotations: []Annotation{{
			Text:     TotalAnnotation(total),
			X:        0.5,
			Y:        0.5,
			XRef:     "paper",
			YRef:     "paper",
			XAnchor:  "left",
			YAnchor:  "bottom",
			Align:    "center",
			FontSize: 16,
		}},
	}
}

// BuildRegionShare 各地区产量环形图, 只受商品影响
func BuildRegionShare(t *Table, sel Selection) ChartSpec {
	sel = sel.Normalize(t.all)
	sub := t.subset(t.match(t.all, sel.Commodity))

	return ChartSpec{
		ID:            ViewRegionShare,
		Kind:          KindPie,
		Title:         RegionShareTitle(sel.Commodity),
		TitleFontSize: titleFontSize,
		XField:        t.cols.Region,
		YField:        t.cols.Production,
		Series:        []Series{{Name: t.cols.Region, Points: pieSlices(sub.SumBy(t.cols.Region), 0)}},
		Hole:          0.4,
	}
}

// BuildSubRegionBar 子区域产量柱状图, 按商品着色
func BuildSubRegionBar(t *Table, sel Selection) ChartSpec {
	sel = sel.Normalize(t.all)
	sub := t.Filter(sel.Region, sel.Commodity)

	categories, series := stackedBars(sub, t.cols.SubRegion, t.cols.Commodity)
	return ChartSpec{
		ID:            ViewSubRegionBar,
		Kind:          KindBar,
		Title:         SubRegionBarTitle(sel.Region, sel.Commodity),
		TitleFontSize: titleFontSize,
		XField:        t.cols.SubRegion,
		YField:        t.cols.Production,
		ColorField:    t.cols.Commodity,
		Categories:    categories,
		Series:        series,
	}
}

// BuildSubRegionShare 子区域占比饼图.
// 占比以过滤后子集的总产量为基数, 只保留占比最高的 topN 个子区域.
func BuildSubRegionShare(t *Table, sel Selection) ChartSpec {
	sel = sel.Normalize(t.all)
	sub := t.filterForShare(sel.Region, sel.Commodity)

	groups := sub.SumBy(t.cols.SubRegion)
	slices := pieSlices(groups, sub.Total())
	sort.SliceStable(slices, func(i, j int) bool { return slices[i].Percent > slices[j].Percent })
	if len(slices) > t.topN {
		slices = slices[:t.topN]
	}

	return ChartSpec{
		ID:            ViewSubRegionShare,
		Kind:          KindPie,
		Title:         SubRegionShareTitle(sel.Region),
		TitleFontSize: titleFontSize,
		XField:        t.cols.SubRegion,
		YField:        t.cols.Production,
		Series:        []Series{{Name: t.cols.SubRegion, Points: slices}},
		TextPosition:  "inside",
		TextInfo:      "percent+label",
	}
}

// pieSlices base 为 0 时以各分组之和为基数
func pieSlices(groups []Group, base float64) []Point {
	if base == 0 {
		for _, g := range groups {
			base += g.Production
		}
	}
	out := make([]Point, len(groups))
	for i, g := range groups {
		out[i] = Point{Label: g.Key, Value: g.Production}
		if base != 0 {
			out[i].Percent = g.Production / base * 100
		}
	}
	return out
}

// stackedBars x 轴和颜色分组都按子集中首次出现的顺序排列,
// 同一 (x, 颜色) 的多行叠加为一根柱子
func stackedBars(sub Subset, xCol, colorCol string) ([]string, []Series) {
	xs := sub.column(xCol)
	colors := sub.column(colorCol)
	production := sub.production()

	var (
		categories []string
		names      []string
		seenX      = map[string]bool{}
		index      = map[string]map[string]int{}
		series     = map[string][]Point{}
	)
	for i := range xs {
		x, c := xs[i], colors[i]
		if !seenX[x] {
			seenX[x] = true
			categories = append(categories, x)
		}
		if _, ok := index[c]; !ok {
			index[c] = map[string]int{}
			names = append(names, c)
		}
		if j, ok := index[c][x]; ok {
			series[c][j].Value += production[i]
			continue
		}
		index[c][x] = len(series[c])
		series[c] = append(series[c], Point{Label: x, Value: production[i]})
	}

	out := make([]Series, len(names))
	for i, name := range names {
		out[i] = Series{Name: name, Points: series[name]}
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, out
}
