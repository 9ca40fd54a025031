package expense

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// csvRow is the flat export shape. Amounts are decimal strings in currency
// units so spreadsheets read them directly.
type csvRow struct {
	Date          string `csv:"date"`
	Name          string `csv:"name"`
	Amount        string `csv:"amount"`
	Currency      string `csv:"currency"`
	Category      string `csv:"category"`
	Notes         string `csv:"notes"`
	IsAnomaly     bool   `csv:"is_anomaly"`
	AnomalyReason string `csv:"anomaly_reason"`
}

// WriteCSV renders expenses as CSV, one row per expense in the given order.
func WriteCSV(w io.Writer, expenses []*Expense) error {
	rows := make([]csvRow, 0, len(expenses))
	for _, e := range expenses {
		amount := "0.00"
		currency := ""
		if e.Amount != nil {
			amount = e.Amount.ToDecimal().StringFixed(2)
			currency = e.Amount.Currency()
		}
		rows = append(rows, csvRow{
			Date:          e.ExpenseDate.Format("2006-01-02"),
			Name:          e.Name,
			Amount:        amount,
			Currency:      currency,
			Category:      string(e.Category),
			Notes:         e.Notes,
			IsAnomaly:     e.IsAnomaly,
			AnomalyReason: e.AnomalyReason,
		})
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
