package analytics

import (
	"CoinPulse/internal/domain/models"
	"CoinPulse/pkg/util"
)

// ResolveWindow returns [date-7d, date+7d] in calendar days. The window is not
// clamped to the retrieved series range.
func ResolveWindow(date models.AnomalyDate) (models.QueryWindow, error) {
	t, err := util.ParseDate(string(date))
	if err != nil {
		return models.QueryWindow{}, err
	}
	return models.QueryWindow{
		Date:  date,
		Start: util.ShiftDays(t, -models.WindowDays),
		End:   util.ShiftDays(t, models.WindowDays),
	}, nil
}
