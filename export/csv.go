// Package export writes the joined dataset in exchange formats. The column
// set and order are a contract: consumers of exported files key on them.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/openstat/go-wbdata/dataset"
)

// Columns is the ordered header of every exported table.
var Columns = []string{"entity_key", "display_name", "group_id", "group_name", "tier", "period", "value"}

// WriteCSV writes rows as CSV, header first. Missing periods and values are
// written as empty cells.
func WriteCSV(w io.Writer, rows []dataset.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(Columns))
	for _, row := range rows {
		record[0] = row.Code
		record[1] = row.Name
		record[2] = row.RegionID
		record[3] = row.RegionName
		record[4] = row.IncomeLevel
		record[5] = ""
		record[6] = ""
		if row.Year != nil {
			record[5] = strconv.Itoa(*row.Year)
		}
		if row.Value != nil {
			record[6] = row.Value.String()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", row.Code, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
