package treasury

import (
	"time"

	"github.com/hodlsight/hodlsight/pkg/models"
	"github.com/hodlsight/hodlsight/pkg/utils"
)

// StepSeries turns an ascending snapshot list into a right-continuous step
// function of average cost over [from, to]: each snapshot's value holds flat
// from its date until the next snapshot supersedes it. A disclosed average
// is assumed valid until the next disclosure.
//
// If the earliest snapshot predates the range, the series starts flat at the
// range start with that snapshot's value. Snapshots after the range end are
// ignored, and a range not covered by any snapshot yields no points there.
func StepSeries(snaps []models.TreasurySnapshot, from, to time.Time) models.TimeSeries {
	if len(snaps) == 0 || to.Before(from) {
		return nil
	}

	var series models.TimeSeries
	for _, snap := range snaps {
		day := utils.Day(snap.Date)
		if day.After(to) {
			break
		}
		point := models.PricePoint{Date: day, Value: snap.AvgCostUSD}
		if day.Before(from) {
			// Still in effect at the range start: clamp there. A later
			// snapshot at the same date supersedes the clamped one below.
			point.Date = utils.Day(from)
		}
		if n := len(series); n > 0 && series[n-1].Date.Equal(point.Date) {
			series[n-1] = point
			continue
		}
		series = append(series, point)
	}
	return series
}

// Overlay is the composed payload for the chart: the market price series and
// the reconstructed average-cost series over the same range, plus display
// metadata. Either half may be missing; Warnings says which and why.
type Overlay struct {
	Symbol   string               `json:"symbol"`
	Price    models.TimeSeries    `json:"price,omitempty"`
	AvgCost  models.TimeSeries    `json:"avg_cost,omitempty"`
	Treasury *models.TreasuryMeta `json:"treasury,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
}

// BuildOverlay aligns the treasury data to the price series' range. The
// price series defines the chart range; when it is present and the treasury
// side failed, the overlay degrades to price-only with a warning rather
// than failing outright.
func BuildOverlay(symbol string, price models.TimeSeries, meta *models.TreasuryMeta, treasuryErr error) *Overlay {
	o := &Overlay{Symbol: symbol, Price: price}

	if treasuryErr != nil {
		o.Warnings = append(o.Warnings, "treasury data unavailable: "+treasuryErr.Error())
		return o
	}
	if meta == nil || len(meta.Snapshots) == 0 {
		o.Warnings = append(o.Warnings, "treasury data unavailable")
		return o
	}

	o.Treasury = meta
	from, to := rangeOf(price, meta.Snapshots)
	o.AvgCost = StepSeries(meta.Snapshots, from, to)
	return o
}

// rangeOf picks the chart range: the price series' first and last dates when
// available, else the span of the snapshots themselves.
func rangeOf(price models.TimeSeries, snaps []models.TreasurySnapshot) (time.Time, time.Time) {
	if first, ok := price.First(); ok {
		last, _ := price.Last()
		return utils.Day(first.Date), utils.Day(last.Date)
	}
	return utils.Day(snaps[0].Date), utils.Day(snaps[len(snaps)-1].Date)
}
