package licence

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustTable(t testing.TB, rows string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		"<table>" + capacityHead + rows + "</table>",
	))
	if err != nil {
		t.Fatal(err)
	}
	return doc.Find("table").First()
}

func TestParseCapacityTable(t *testing.T) {
	table := mustTable(t, `
		<tr><th>Celkový</th><td>10 436.003</td><td>5 369.050</td></tr>
		<tr><th>Parní</th><th>0.5</th><td></td></tr>
		<tr><th>Počet zdrojů</th><td> 29 </td></tr>
		<tr><th>Tok</th><td>Labe</td></tr>
	`)

	rows, err := ParseCapacityTable(table)
	require.NoError(t, err)
	require.Equal(t, []CapacityRow{
		DualRow{Label: "Celkový", Electrical: ptr(10436.003), Thermal: ptr(5369.05)},
		DualRow{Label: "Parní", Electrical: ptr(0.5)},
		ScalarRow{Label: "Počet zdrojů", Text: "29"},
		ScalarRow{Label: "Tok", Text: "Labe"},
	}, rows)
}

func TestParseCapacityTableDispatchesOnCellCount(t *testing.T) {
	testCases := []struct {
		row      string
		expected CapacityRow
	}{
		{
			row:      `<tr><th>Vodní</th><td>1</td><td>2</td></tr>`,
			expected: DualRow{Label: "Vodní", Electrical: ptr(1.0), Thermal: ptr(2.0)},
		},
		{
			row:      `<tr><th>Vodní</th><th>1</th><th>2</th></tr>`,
			expected: DualRow{Label: "Vodní", Electrical: ptr(1.0), Thermal: ptr(2.0)},
		},
		{
			row:      `<tr><th>Vodní</th><td></td><td></td></tr>`,
			expected: DualRow{Label: "Vodní"},
		},
		{
			row:      `<tr><th>Říční km</th><td>12.3</td></tr>`,
			expected: ScalarRow{Label: "Říční km", Text: "12.3"},
		},
		{
			// four cells is not a capacity row, the first <td> wins
			row:      `<tr><th>Vodní</th><td>1</td><td>2</td><td>3</td></tr>`,
			expected: ScalarRow{Label: "Vodní", Text: "1"},
		},
	}

	for _, test := range testCases {
		rows, err := ParseCapacityTable(mustTable(t, test.row))
		require.NoError(t, err, test.row)
		require.Equal(t, []CapacityRow{test.expected}, rows, test.row)
	}
}

func TestParseCapacityTableSkipsHeaderRows(t *testing.T) {
	rows, err := ParseCapacityTable(mustTable(t, ""))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestParseCapacityTableErrors(t *testing.T) {
	_, err := ParseCapacityTable(mustTable(t, `<tr><td>1</td><td>2</td><td>3</td></tr>`))
	var structural *StructuralError
	require.True(t, errors.As(err, &structural))

	_, err = ParseCapacityTable(mustTable(t, `<tr><th>Počet zdrojů</th></tr>`))
	require.True(t, errors.As(err, &structural))
	require.Equal(t, "missing value cell", structural.Reason)

	_, err = ParseCapacityTable(mustTable(t, `<tr><th>Celkový</th><td>n/a</td><td>1</td></tr>`))
	var numeric *NumericParseError
	require.True(t, errors.As(err, &numeric))

	_, err = ParseCapacityTable(mustTable(t, `<tr><th>Celkový</th><td>1</td><td>NaN</td></tr>`))
	require.True(t, errors.As(err, &numeric))
}

func TestCapacities(t *testing.T) {
	caps, sources, err := capacities([]CapacityRow{
		DualRow{Label: "Celkový", Electrical: ptr(2.0), Thermal: ptr(0.0)},
		DualRow{Label: "Vodní", Thermal: ptr(1.5)},
		DualRow{Label: "Jaderný", Electrical: ptr(-1.0)},
		ScalarRow{Label: "Tok", Text: "Sázava"},
		ScalarRow{Label: "Number of sources", Text: "4"},
	})
	require.NoError(t, err)
	require.Equal(t, []Capacity{
		{Kind: Electrical, Technology: "Celkový", Megawatts: 2},
		{Kind: Thermal, Technology: "Vodní", Megawatts: 1.5},
	}, caps)
	require.Equal(t, ptr(4), sources)

	_, _, err = capacities([]CapacityRow{ScalarRow{Label: "Počet zdrojů", Text: ""}})
	var numeric *NumericParseError
	require.True(t, errors.As(err, &numeric))
}

func TestDualRowAlwaysYieldsTwoCandidates(t *testing.T) {
	rows, err := ParseCapacityTable(mustTable(t, `
		<tr><th>A</th><td>1</td><td>2</td></tr>
		<tr><th>B</th><td>3</td><td>4</td></tr>
	`))
	require.NoError(t, err)

	caps, _, err := capacities(rows)
	require.NoError(t, err)
	require.Len(t, caps, 2*len(rows))
	for i, row := range rows {
		require.Equal(t, row.RowLabel(), caps[2*i].Technology)
		require.Equal(t, Electrical, caps[2*i].Kind)
		require.Equal(t, row.RowLabel(), caps[2*i+1].Technology)
		require.Equal(t, Thermal, caps[2*i+1].Kind)
	}
}

func TestCapacitiesRepeatedTechnology(t *testing.T) {
	rows, err := ParseCapacityTable(mustTable(t, `
		<tr><th>Celkový</th><td>1</td><td>2</td></tr>
		<tr><th>Vodní</th><td>5</td><td>6</td></tr>
		<tr><th>Celkový</th><td>3</td><td>4</td></tr>
		<tr><th>Vodní</th><td></td><td>7</td></tr>
	`))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	caps, _, err := capacities(rows)
	require.NoError(t, err)
	require.Equal(t, []Capacity{
		{Kind: Electrical, Technology: "Celkový", Megawatts: 3},
		{Kind: Thermal, Technology: "Celkový", Megawatts: 4},
		{Kind: Thermal, Technology: "Vodní", Megawatts: 7},
	}, caps)
}
