// Package export renders reconciliation previews for offline review.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Matches"

// MatchRow is one proposed pairing with the fields a reviewer checks.
type MatchRow struct {
	BankTransactionID uuid.UUID
	TransactionCode   string
	BankDate          time.Time
	BankAmount        decimal.Decimal
	PayoutID          uuid.UUID
	PayoutDate        *time.Time
	PayoutAmount      decimal.Decimal
	Codes             []string
	Status            string
}

var headers = []string{
	"Bank Transaction", "Transaction Code", "Bank Date", "Bank Amount",
	"Payout", "Payout Date", "Payout Amount", "Difference", "Confirmation Codes", "Status",
}

// WriteMatches writes rows as an XLSX workbook with a single sheet.
func WriteMatches(w io.Writer, rows []MatchRow) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	for i, r := range rows {
		payoutDate := ""
		if r.PayoutDate != nil {
			payoutDate = r.PayoutDate.Format("2006-01-02")
		}
		values := []interface{}{
			r.BankTransactionID.String(),
			r.TransactionCode,
			r.BankDate.Format("2006-01-02"),
			r.BankAmount.InexactFloat64(),
			r.PayoutID.String(),
			payoutDate,
			r.PayoutAmount.InexactFloat64(),
			r.BankAmount.Sub(r.PayoutAmount).InexactFloat64(),
			strings.Join(r.Codes, ", "),
			r.Status,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "B", 16)
	_ = f.SetColWidth(sheetName, "C", "D", 12)
	_ = f.SetColWidth(sheetName, "E", "E", 38)
	_ = f.SetColWidth(sheetName, "F", "H", 12)
	_ = f.SetColWidth(sheetName, "I", "I", 30)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
