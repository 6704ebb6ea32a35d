package reports

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// WriteSummaryCSV serialises the dashboard to a two-column CSV.
func WriteSummaryCSV(w io.Writer, sum Summary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"Generated At", sum.GeneratedAt.Format(time.RFC3339)},
		{"Users", strconv.Itoa(sum.Users)},
		{"Active Users", strconv.Itoa(sum.ActiveUsers)},
		{"Books", strconv.Itoa(sum.Books)},
		{"Available Books", strconv.Itoa(sum.AvailableBooks)},
		{"Active Loans", strconv.Itoa(sum.ActiveLoans)},
		{"Overdue Loans", strconv.Itoa(sum.OverdueLoans)},
		{"Active Penalties", strconv.Itoa(sum.ActivePenalties)},
	}
	if err := writer.WriteAll(records); err != nil {
		return err
	}
	return writer.Error()
}
