package market

import (
	"sort"
	"strconv"
	"time"

	"github.com/saiset-co/sai-stockwatch/types"
)

type seriesSpec struct {
	key         string
	points      int
	labelLayout string
}

var seriesSpecs = map[types.Period]seriesSpec{
	types.Period1H: {key: "Time Series (60min)", points: 10, labelLayout: "15:04"},
	types.Period1D: {key: "Time Series (Daily)", points: 10, labelLayout: "Jan 2"},
	types.Period1W: {key: "Weekly Time Series", points: 7, labelLayout: "Jan 2"},
	types.Period1M: {key: "Monthly Time Series", points: 7, labelLayout: "Jan 2"},
}

// specFor resolves a period; anything unknown is served from the hourly series.
func specFor(period types.Period) (seriesSpec, types.Period) {
	if spec, ok := seriesSpecs[period]; ok {
		return spec, period
	}
	return seriesSpecs[types.Period1H], types.Period1H
}

// buildChart keeps the newest spec.points entries of the series and returns
// them oldest first with their closing prices.
func buildChart(doc types.Document, spec seriesSpec) (*types.ChartData, bool) {
	series, ok := doc[spec.key].(map[string]interface{})
	if !ok || len(series) == 0 {
		return nil, false
	}

	stamps := make([]string, 0, len(series))
	for stamp := range series {
		stamps = append(stamps, stamp)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(stamps)))

	if len(stamps) > spec.points {
		stamps = stamps[:spec.points]
	}

	chart := &types.ChartData{
		Labels:   make([]string, len(stamps)),
		Datasets: []types.ChartDataset{{Data: make([]float64, len(stamps))}},
	}

	for i, stamp := range stamps {
		at := len(stamps) - 1 - i
		chart.Labels[at] = formatLabel(stamp, spec.labelLayout)
		chart.Datasets[0].Data[at] = closeOf(series[stamp])
	}

	return chart, true
}

func formatLabel(stamp, layout string) string {
	for _, input := range []string{time.DateTime, time.DateOnly} {
		if at, err := time.Parse(input, stamp); err == nil {
			return at.Format(layout)
		}
	}
	return stamp
}

func closeOf(point interface{}) float64 {
	values, ok := point.(map[string]interface{})
	if !ok {
		return 0
	}

	raw, ok := values["4. close"].(string)
	if !ok {
		return 0
	}

	return parseNumber(raw)
}

func parseNumber(raw string) float64 {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value
}
