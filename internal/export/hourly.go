package export

import (
	"fmt"

	"github.com/jgoulah/gridhours/internal/table"
	"github.com/jgoulah/gridhours/pkg/models"
)

// Summary column names.
const (
	ColumnHour         = "hour"
	ColumnGridPurchase = "grid_purchase"
	ColumnGridFeedin   = "grid_feedin"
	ColumnIsMaxFeedin  = "is_max_feedin_hour"
)

// ToHourly projects a summary table onto typed hourly rows.
func ToHourly(t *table.Table) ([]models.HourlyAggregate, error) {
	for _, c := range []string{ColumnHour, ColumnGridPurchase, ColumnGridFeedin, ColumnIsMaxFeedin} {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("summary is missing column %q", c)
		}
	}

	out := make([]models.HourlyAggregate, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		hour, ok := t.Get(i, ColumnHour).Int()
		if !ok {
			return nil, fmt.Errorf("row %d: hour %q is not an integer", i, t.Get(i, ColumnHour))
		}
		purchase, _ := t.Get(i, ColumnGridPurchase).Float()
		feedin, _ := t.Get(i, ColumnGridFeedin).Float()
		isMax, _ := t.Get(i, ColumnIsMaxFeedin).Bool()

		out = append(out, models.HourlyAggregate{
			Hour:            int(hour),
			GridPurchase:    purchase,
			GridFeedin:      feedin,
			IsMaxFeedinHour: isMax,
		})
	}
	return out, nil
}
