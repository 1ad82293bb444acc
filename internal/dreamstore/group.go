package dreamstore

import (
	"slices"
	"strings"

	"github.com/starford/reverie/internal/models"
)

// Day is one calendar day of the journal with its records in input order.
type Day struct {
	Date   string         `json:"date"`
	Dreams []models.Dream `json:"dreams"`
}

// GroupByDay partitions dreams by Date. Days are ordered by date
// descending; records keep their relative input order within a day.
func GroupByDay(dreams []models.Dream) []Day {
	days := []Day{}
	pos := make(map[string]int)
	for _, d := range dreams {
		i, ok := pos[d.Date]
		if !ok {
			i = len(days)
			pos[d.Date] = i
			days = append(days, Day{Date: d.Date})
		}
		days[i].Dreams = append(days[i].Dreams, d)
	}
	slices.SortFunc(days, func(a, b Day) int {
		return strings.Compare(b.Date, a.Date)
	})
	return days
}
