package web

import (
	"fmt"
	"io"

	"CommodityDashboard/src/processor"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	pngWidth  = 8 * vg.Inch
	pngHeight = 5 * vg.Inch
)

// RenderPNG 用 gonum/plot 画静态图.
// 饼图没有对应的 plotter, 以每个扇区一根柱子的形式输出.
func RenderPNG(w io.Writer, spec processor.ChartSpec) error {
	p := plot.New()
	p.Title.Text = spec.Title
	if p.Title.Text == "" && len(spec.Annotations) > 0 {
		p.Title.Text = spec.Annotations[0].Text
	}
	p.X.Label.Text = spec.XField
	p.Y.Label.Text = spec.YField
	p.Legend.Top = true

	categories, series := pngSeries(spec)

	barWidth := vg.Points(20)
	if len(series) > 0 && len(categories) > 0 {
		barWidth = vg.Points(float64(300 / len(categories)))
		if barWidth < vg.Points(4) {
			barWidth = vg.Points(4)
		}
	}

	var below *plotter.BarChart
	for i, s := range series {
		bars, err := plotter.NewBarChart(s.values, barWidth)
		if err != nil {
			return fmt.Errorf("build bars %s: %w", s.name, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		if below != nil {
			bars.StackOn(below)
		}
		below = bars
		p.Add(bars)
		if len(series) > 1 {
			p.Legend.Add(s.name, bars)
		}
	}
	p.NominalX(categories...)

	wt, err := p.WriterTo(pngWidth, pngHeight, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

type pngBars struct {
	name   string
	values plotter.Values
}

func pngSeries(spec processor.ChartSpec) ([]string, []pngBars) {
	if spec.Kind == processor.KindPie {
		slices := spec.Slices()
		categories := make([]string, len(slices))
		values := make(plotter.Values, len(slices))
		for i, s := range slices {
			categories[i] = s.Label
			values[i] = s.Value
		}
		if len(slices) == 0 {
			return categories, nil
		}
		return categories, []pngBars{{name: spec.XField, values: values}}
	}

	out := make([]pngBars, 0, len(spec.Series))
	for _, s := range spec.Series {
		byLabel := make(map[string]float64, len(s.Points))
		for _, p := range s.Points {
			byLabel[p.Label] += p.Value
		}
		values := make(plotter.Values, len(spec.Categories))
		for i, c := range spec.Categories {
			values[i] = byLabel[c]
		}
		out = append(out, pngBars{name: s.Name, values: values})
	}
	return spec.Categories, out
}
