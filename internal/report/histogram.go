package report

import (
	"fmt"
	"io"

	"github.com/banshee-data/stellarpop/internal/densitymap"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// BinLabels returns one "lo-hi" label per density bin.
func BinLabels(bm *densitymap.BinnedMap) []string {
	edges := bm.BinEdges()
	labels := make([]string, bm.NBins())
	for i := range labels {
		labels[i] = fmt.Sprintf("%.4g-%.4g", edges[i], edges[i+1])
	}
	return labels
}

// BinHistogramHTML writes an HTML page with the number of tiles per density
// bin and a scatter of the tile centres coloured by bin.
func BinHistogramHTML(w io.Writer, bm *densitymap.BinnedMap) error {
	if bm == nil || bm.Len() == 0 {
		return fmt.Errorf("report: empty density map")
	}

	counts := bm.BinCounts()
	y := make([]opts.BarData, len(counts))
	for i, c := range counts {
		y[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Density bins", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tiles per density bin", Subtitle: bm.Name}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "density", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "tiles"}),
	)
	bar.SetXAxis(BinLabels(bm)).
		AddSeries("tiles", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tile centres", Subtitle: fmt.Sprintf("%d tiles, %d bins", bm.Len(), bm.NBins())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "RA (deg)", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Dec (deg)", NameLocation: "middle", NameGap: 40}),
	)
	for bin, tiles := range bm.TilesForEachBin() {
		if len(tiles) == 0 {
			continue
		}
		pts := make([]opts.ScatterData, 0, len(tiles))
		for _, i := range tiles {
			t := bm.Tiles[i]
			pts = append(pts, opts.ScatterData{
				Value: []interface{}{t.MinRA + t.DeltaRA/2, t.MinDec + t.DeltaDec/2, t.Value},
			})
		}
		scatter.AddSeries(fmt.Sprintf("bin %d", bin), pts,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
		)
	}

	page := components.NewPage()
	page.AddCharts(bar, scatter)
	return page.Render(w)
}
