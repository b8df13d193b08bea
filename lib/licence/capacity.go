package licence

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"erulicence/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// the first two rows of a capacity table are column headers
const capacityHeaderRows = 2

// a capacity row is made of its label and the electrical and thermal values
const capacityRowCells = 3

var sourceCountLabels = []string{"Počet zdrojů", "Number of sources"}

// CapacityRow is one row of a capacity table, either a DualRow or a ScalarRow.
type CapacityRow interface {
	RowLabel() string
	capacityRow()
}

// DualRow is a row carrying the electrical and thermal capacity of one
// technology. A nil value means the cell was empty.
type DualRow struct {
	Label      string
	Electrical *float64
	Thermal    *float64
}

func (r DualRow) RowLabel() string { return r.Label }
func (DualRow) capacityRow()       {}

// ScalarRow is a row with a single (unparsed) value, ex. "Počet zdrojů",
// "Tok" or "Říční km".
type ScalarRow struct {
	Label string
	Text  string
}

func (r ScalarRow) RowLabel() string { return r.Label }
func (ScalarRow) capacityRow()       {}

// ParseCapacityTable reads the rows of a capacity table in document order.
//
// rows are told apart only by their cell count: a row with exactly 3 cells
// (<th> or <td>) is a DualRow, anything else is a ScalarRow.
func ParseCapacityTable(table *goquery.Selection) ([]CapacityRow, error) {
	var result []CapacityRow

	var err error
	table.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i < capacityHeaderRows {
			return true
		}

		labelCell := row.Find("th").First()
		if labelCell.Length() == 0 {
			err = &StructuralError{Table: "capacity table", Row: i, Reason: "missing label cell"}
			return false
		}
		label := strings.Trim(htmlutil.GetText(labelCell.Nodes[0]), " \t\n\r")

		cells := row.Find("th, td")
		if cells.Length() == capacityRowCells {
			var dual DualRow
			dual, err = parseDualRow(label, cells)
			if err != nil {
				return false
			}
			result = append(result, dual)
			return true
		}

		valueCell := row.Find("td").First()
		if valueCell.Length() == 0 {
			err = &StructuralError{Table: "capacity table", Row: i, Reason: "missing value cell"}
			return false
		}
		result = append(result, ScalarRow{
			Label: label,
			Text:  htmlutil.StrippedText(valueCell),
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func parseDualRow(label string, cells *goquery.Selection) (DualRow, error) {
	electrical, err := parseMegawatts(label, htmlutil.StrippedText(cells.Eq(1)))
	if err != nil {
		return DualRow{}, err
	}
	thermal, err := parseMegawatts(label, htmlutil.StrippedText(cells.Eq(2)))
	if err != nil {
		return DualRow{}, err
	}
	return DualRow{
		Label:      label,
		Electrical: electrical,
		Thermal:    thermal,
	}, nil
}

// "10 436.003" -> 10436.003, "" -> nil
func parseMegawatts(label, text string) (*float64, error) {
	compact := strings.Join(strings.Fields(text), "")
	if compact == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(compact, 64)
	if err != nil {
		return nil, &NumericParseError{Label: label, Text: text, Err: err}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, &NumericParseError{Label: label, Text: text, Err: errors.New("not a finite number")}
	}
	return &value, nil
}

func isSourceCount(label string) bool {
	for _, l := range sourceCountLabels {
		if label == l {
			return true
		}
	}
	return false
}

type capacityKey struct {
	kind       Kind
	technology string
}

// capacities keeps the positive values of every DualRow (electrical before
// thermal) and reads the source count out of the scalar rows.
//
// a technology repeated in the table keeps its first position and its last
// value, even an empty one.
func capacities(rows []CapacityRow) ([]Capacity, *int, error) {
	var keys []capacityKey
	values := map[capacityKey]*float64{}
	var sources *int

	set := func(kind Kind, technology string, value *float64) {
		key := capacityKey{kind: kind, technology: technology}
		if _, ok := values[key]; !ok {
			keys = append(keys, key)
		}
		values[key] = value
	}

	for _, row := range rows {
		switch row := row.(type) {
		case DualRow:
			set(Electrical, row.Label, row.Electrical)
			set(Thermal, row.Label, row.Thermal)
		case ScalarRow:
			if !isSourceCount(row.Label) {
				continue
			}
			count, err := strconv.Atoi(strings.TrimSpace(row.Text))
			if err != nil {
				return nil, nil, &NumericParseError{Label: row.Label, Text: row.Text, Err: err}
			}
			sources = &count
		}
	}

	var result []Capacity
	for _, key := range keys {
		value := values[key]
		if value == nil || *value <= 0 {
			continue
		}
		result = append(result, Capacity{
			Kind:       key.kind,
			Technology: key.technology,
			Megawatts:  *value,
		})
	}
	return result, sources, nil
}
