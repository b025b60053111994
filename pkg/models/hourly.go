package models

import "time"

// HourlyAggregate is one row of the hourly summary
type HourlyAggregate struct {
	Hour            int     `json:"hour"`
	GridPurchase    float64 `json:"grid_purchase"`
	GridFeedin      float64 `json:"grid_feedin"`
	IsMaxFeedinHour bool    `json:"is_max_feedin_hour"`
}

// NoPeakHour is the MaxFeedinHour of a run whose summary has no rows
const NoPeakHour = -1

// Run records one pipeline execution and its summary
type Run struct {
	ID               string            `json:"id"`
	DataFile         string            `json:"data_file"`
	OutputFile       string            `json:"output_file"`
	StartedAt        time.Time         `json:"started_at"`
	RowsLoaded       int               `json:"rows_loaded"`
	RowsDropped      int               `json:"rows_dropped"`
	RowsDeduplicated int               `json:"rows_deduplicated"`
	MaxFeedinHour    int               `json:"max_feedin_hour"`
	MaxFeedin        float64           `json:"max_feedin"`
	Published        bool              `json:"published"`
	Hours            []HourlyAggregate `json:"hours,omitempty"`
}

// HasPeak reports whether the run found a peak feed-in hour
func (r *Run) HasPeak() bool {
	return r.MaxFeedinHour != NoPeakHour
}

// TotalFeedin sums grid_feedin over all hours
func (r *Run) TotalFeedin() float64 {
	var total float64
	for _, h := range r.Hours {
		total += h.GridFeedin
	}
	return total
}

// TotalPurchase sums grid_purchase over all hours
func (r *Run) TotalPurchase() float64 {
	var total float64
	for _, h := range r.Hours {
		total += h.GridPurchase
	}
	return total
}
