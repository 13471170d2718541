package orders

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/orderdesk/orderdesk/internal/platform/httpx"
)

// ReadImportRows parses a bulk-upload CSV with the columns
// barcode, color, quantity, address, supplier_name. A header row is
// detected by a non-numeric quantity column and skipped.
func ReadImportRows(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = 5

	rows := []ImportRow{}
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", httpx.ErrValidation, line, err)
		}
		qty, err := strconv.ParseInt(strings.TrimSpace(record[2]), 10, 64)
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("%w: row %d: quantity %q is not a number", httpx.ErrValidation, line, record[2])
		}
		rows = append(rows, ImportRow{
			Line:         line,
			Barcode:      strings.TrimSpace(record[0]),
			Color:        strings.TrimSpace(record[1]),
			Quantity:     qty,
			Address:      strings.TrimSpace(record[3]),
			SupplierName: strings.TrimSpace(record[4]),
		})
	}
	return rows, nil
}
