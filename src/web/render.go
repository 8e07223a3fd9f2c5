package web

import (
	"fmt"

	"CommodityDashboard/src/processor"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth  = "100%"
	chartHeight = "450px"
)

// EChartsOptions 把 ChartSpec 转为 ECharts 的 option 对象
func EChartsOptions(spec processor.ChartSpec) map[string]interface{} {
	switch spec.Kind {
	case processor.KindPie:
		pie := buildPie(spec)
		pie.Validate()
		return pie.JSON()
	default:
		bar := buildBar(spec)
		bar.Validate()
		return bar.JSON()
	}
}

func titleOpts(spec processor.ChartSpec) opts.Title {
	t := opts.Title{Title: spec.Title}
	if spec.TitleFontSize > 0 {
		t.TitleStyle = &opts.TextStyle{FontSize: spec.TitleFontSize}
	}
	// 只支持一个标注, 用副标题定位到绘图区坐标
	if len(spec.Annotations) > 0 {
		a := spec.Annotations[0]
		t.Subtitle = a.Text
		t.SubtitleStyle = &opts.TextStyle{FontSize: a.FontSize}
		if spec.Title == "" {
			t.Left = percent(a.X)
			t.Top = percent(1 - a.Y)
		}
	}
	return t
}

func buildBar(spec processor.ChartSpec) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(titleOpts(spec)),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: spec.XField}),
		charts.WithYAxisOpts(opts.YAxis{Name: spec.YField}),
	)
	bar.SetXAxis(spec.Categories)

	for _, s := range spec.Series {
		byLabel := make(map[string]float64, len(s.Points))
		for _, p := range s.Points {
			byLabel[p.Label] = p.Value
		}
		data := make([]opts.BarData, len(spec.Categories))
		for i, c := range spec.Categories {
			if v, ok := byLabel[c]; ok {
				data[i] = opts.BarData{Name: c, Value: v}
				continue
			}
			data[i] = opts.BarData{Name: c, Value: "-"}
		}
		bar.AddSeries(s.Name, data, charts.WithBarChartOpts(opts.BarChart{Stack: "production"}))
	}
	return bar
}

func buildPie(spec processor.ChartSpec) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(titleOpts(spec)),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Orient: "vertical", Right: "0"}),
	)

	name := ""
	var data []opts.PieData
	if len(spec.Series) > 0 {
		name = spec.Series[0].Name
		for _, p := range spec.Series[0].Points {
			data = append(data, opts.PieData{Name: p.Label, Value: p.Value})
		}
	}

	label := opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}
	if spec.TextPosition == "inside" {
		label = opts.Label{Show: opts.Bool(true), Position: "inside", Formatter: "{d}%\n{b}"}
	}

	radius := interface{}("70%")
	if spec.Hole > 0 {
		radius = []string{percent(spec.Hole * 0.7), "70%"}
	}

	pie.AddSeries(name, data).SetSeriesOptions(
		charts.WithLabelOpts(label),
		charts.WithPieChartOpts(opts.PieChart{Radius: radius}),
	)
	return pie
}

// percent 0.5 -> "50%"
func percent(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}
