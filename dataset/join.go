package dataset

import (
	"github.com/openstat/go-wbdata/wbapi/model"
	"github.com/shopspring/decimal"
)

// Row is one line of the final flat table: a catalog country joined with its
// latest observation, if one exists. Year and Value are nil for countries
// without a surviving observation. The JSON field names are the column
// contract consumers of the exported table rely on.
type Row struct {
	Code        string           `json:"entity_key"`
	Name        string           `json:"display_name"`
	RegionID    string           `json:"group_id"`
	RegionName  string           `json:"group_name"`
	IncomeLevel string           `json:"tier"`
	Year        *int             `json:"period"`
	Value       *decimal.Decimal `json:"value"`
}

// Join left-joins the catalog against the reduced series on country code.
// Every catalog country yields exactly one row, in catalog order; latest
// entries without a catalog country are ignored.
func Join(catalog []model.Country, latest map[string]LatestObservation) []Row {
	rows := make([]Row, len(catalog))
	for i, country := range catalog {
		row := Row{
			Code:        country.Code,
			Name:        country.Name,
			RegionID:    country.RegionID,
			RegionName:  country.RegionName,
			IncomeLevel: country.IncomeLevel,
		}
		if obs, ok := latest[country.Code]; ok {
			year := obs.Year
			value := obs.Value
			row.Year = &year
			row.Value = &value
		}
		rows[i] = row
	}
	return rows
}
