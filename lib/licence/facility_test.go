package licence

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustHeader(t testing.TB, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc.Find("table").First()
}

func TestParseFacilityHeader(t *testing.T) {
	header, err := ParseFacilityHeader(mustHeader(t, `<table>
		<tr><td>
			<div>Evidenční číslo: <b>14</b></div>
			<div> FVE Hájek </div>
			<div>273 51 Unhošť, Hájek 7, okres Kladno, kraj Středočeský</div>
		</td></tr>
		<tr><th>Katastrální území</th><th>Kód katastru</th><th>Vymezení</th><th>Poznámka</th></tr>
		<tr><td>Hájek u Unhoště</td><td>774979</td><td></td><td>střecha</td></tr>
	</table>`))
	require.NoError(t, err)

	require.Equal(t, FacilityHeader{
		ID:   14,
		Name: "FVE Hájek",
		Address: &Address{
			PostalCode:   "27351",
			Municipality: "Unhošť",
			Street:       "Hájek",
			HouseNumber:  ptr("7"),
			District:     ptr("Kladno"),
			Region:       ptr("Středočeský"),
		},
		CadastralArea: ptr("Hájek u Unhoště"),
		CadastralCode: ptr("774979"),
		Designation:   ptr(""),
		Extra:         map[string]string{"poznamka": "střecha"},
	}, header)
}

func TestParseFacilityHeaderWithoutAddress(t *testing.T) {
	header, err := ParseFacilityHeader(mustHeader(t, `<table><tr><td>
		<div>Evidenční číslo: 3</div>
		<div>Výtopna</div>
	</td></tr></table>`))
	require.NoError(t, err)
	require.Nil(t, header.Address)
	require.Nil(t, header.CadastralCode)

	facility := NewFacility("310100001", header)
	require.Equal(t, int64(3), facility.ID)
	require.Equal(t, "310100001", facility.LicenceID)
	require.Nil(t, facility.Address)
}

func TestParseFacilityHeaderIncompleteAddress(t *testing.T) {
	header, err := ParseFacilityHeader(mustHeader(t, `<table><tr><td>
		<div>Evidenční číslo: 3</div>
		<div>Výtopna</div>
		<div></div>
	</td></tr></table>`))
	require.NoError(t, err)
	require.Nil(t, header.Address)
}

func TestParseFacilityHeaderErrors(t *testing.T) {
	testCases := []struct {
		html       string
		structural bool
	}{
		{html: `<table></table>`, structural: true},
		{html: `<table><tr><td><div>Evidenční číslo: 1</div></td></tr></table>`, structural: true},
		{html: `<table><tr><td><div>Evidenční číslo: x</div><div>A</div></td></tr></table>`},
		{html: `<table><tr><td><div>1</div><div>A</div></td></tr></table>`},
	}

	for _, test := range testCases {
		_, err := ParseFacilityHeader(mustHeader(t, test.html))
		require.Error(t, err, test.html)

		var structural *StructuralError
		var parseErr *ParseError
		if test.structural {
			require.True(t, errors.As(err, &structural), test.html)
			continue
		}
		require.True(t, errors.As(err, &parseErr), test.html)
	}
}
