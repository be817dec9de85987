package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/footfall/internal/db"
)

// renderHourlyChart renders an HTML bar chart of crossings per hour.
func renderHourlyChart(w http.ResponseWriter, buckets []db.HourlyCount, hours int) error {
	x := make([]string, 0, len(buckets))
	y := make([]opts.BarData, 0, len(buckets))
	total := 0
	for _, b := range buckets {
		x = append(x, b.Hour)
		y = append(y, opts.BarData{Value: b.Crossings})
		total += b.Crossings
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Footfall Report", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Crossings per hour",
			Subtitle: fmt.Sprintf("last %dh, %d crossings total", hours, total),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("crossings", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := w.Write(buf.Bytes())
	return err
}
