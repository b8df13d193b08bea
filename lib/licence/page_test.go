package licence

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const electricity = "výroba elektřiny"

func parseFixture(t testing.TB, name, licenceId string) Licence {
	t.Helper()

	f, err := os.Open(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	lic, err := ParsePageHTML(f, electricity, licenceId)
	if err != nil {
		t.Fatal(err)
	}
	return lic
}

func parseString(t testing.TB, html string) (Licence, error) {
	t.Helper()
	return ParsePageHTML(strings.NewReader(html), electricity, "110000001")
}

func TestParsePagePlzen(t *testing.T) {
	result := parseFixture(t, "plzen.html", "110100054")

	licCap := func(kind Kind, technology string, mw float64) LicenceCapacity {
		return LicenceCapacity{
			LicenceID: "110100054",
			Capacity:  Capacity{Kind: kind, Technology: technology, Megawatts: mw},
		}
	}
	facCap := func(kind Kind, technology string, mw float64) FacilityCapacity {
		return FacilityCapacity{
			FacilityID: 1,
			LicenceID:  "110100054",
			Capacity:   Capacity{Kind: kind, Technology: technology, Megawatts: mw},
		}
	}

	expected := Licence{
		ID:       "110100054",
		Business: electricity,
		Sources:  ptr(3),
		Facilities: []Facility{
			{
				ID:        1,
				LicenceID: "110100054",
				Name:      "ELÚ 3",
				Address: &Address{
					PostalCode:   "31600",
					Municipality: "Plzeň",
					Street:       "Tylova",
					District:     ptr("Plzeň-město"),
					Region:       ptr("Plzeňský"),
				},
				Sources: ptr(3),
				Capacities: []FacilityCapacity{
					facCap(Electrical, "Celkový", 90.0),
					facCap(Thermal, "Celkový", 430.1),
					facCap(Electrical, "Parní", 90.0),
					facCap(Thermal, "Parní", 430.1),
				},
			},
		},
		Capacities: []LicenceCapacity{
			licCap(Electrical, "Celkový", 90.0),
			licCap(Thermal, "Celkový", 430.1),
			licCap(Electrical, "Parní", 90.0),
			licCap(Thermal, "Parní", 430.1),
		},
	}

	if diff := cmp.Diff(expected, result); diff != "" {
		t.Fatal(diff)
	}

	facility := result.Facilities[0]
	require.Len(t, facility.Capacities, 4)
	require.Equal(t, "Celkový", facility.Capacities[0].Technology)
	require.Equal(t, Electrical, facility.Capacities[0].Kind)
	require.Equal(t, 90.0, facility.Capacities[0].Megawatts)
	require.Equal(t, "Parní", facility.Capacities[3].Technology)
	require.Equal(t, 430.1, facility.Capacities[3].Megawatts)
}

func TestParsePageOleska(t *testing.T) {
	result := parseFixture(t, "oleska.html", "110100010")

	require.Equal(t, "110100010", result.ID)
	require.Len(t, result.Facilities, 1)
	require.NotNil(t, result.Sources)
	require.Equal(t, 2, *result.Sources)

	require.NotEmpty(t, result.Capacities)
	require.Equal(t, 0.013, result.Capacities[0].Megawatts)
	for _, c := range result.Capacities {
		require.NotEqual(t, Thermal, c.Kind)
	}

	facility := result.Facilities[0]
	require.Equal(t, ptr("670936"), facility.CadastralCode)
	require.Equal(t, ptr("Oleška u Divišova"), facility.CadastralArea)
	require.Equal(t, ptr("p.č. 1243/2"), facility.Designation)
	require.Nil(t, facility.Extra)

	require.Equal(t, "Celkový", facility.Capacities[0].Technology)
	require.Equal(t, Electrical, facility.Capacities[0].Kind)
	require.Equal(t, 0.013, facility.Capacities[0].Megawatts)
	require.Equal(t, "Vodní", facility.Capacities[1].Technology)
	require.Equal(t, 0.013, facility.Capacities[1].Megawatts)

	require.Equal(t, &Address{
		PostalCode:   "25726",
		Municipality: "Divišov",
		Street:       "Oleška",
		HouseNumber:  ptr("12"),
		District:     ptr("Benešov"),
		Region:       ptr("Středočeský"),
	}, facility.Address)
}

func TestParsePageRevoked(t *testing.T) {
	result := parseFixture(t, "revoked.html", "110100321")

	require.Nil(t, result.Sources)
	require.Empty(t, result.Capacities)

	require.Len(t, result.Facilities, 1)
	facility := result.Facilities[0]
	require.Equal(t, int64(2), facility.ID)
	require.Equal(t, "Kogenerační jednotka", facility.Name)
	require.Nil(t, facility.Address)
	require.Equal(t, ptr(1), facility.Sources)
	require.Equal(t, []FacilityCapacity{
		{
			FacilityID: 2,
			LicenceID:  "110100321",
			Capacity:   Capacity{Kind: Electrical, Technology: "Kogenerace", Megawatts: 1200.5},
		},
		{
			FacilityID: 2,
			LicenceID:  "110100321",
			Capacity:   Capacity{Kind: Thermal, Technology: "Kogenerace", Megawatts: 0.8},
		},
	}, facility.Capacities)
}

func TestParsePageIsIdempotent(t *testing.T) {
	for _, fixture := range []string{"plzen.html", "oleska.html", "revoked.html"} {
		first := parseFixture(t, fixture, "1")
		second := parseFixture(t, fixture, "1")
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatal(fixture, diff)
		}
	}
}

func TestCapacitiesArePositive(t *testing.T) {
	for _, fixture := range []string{"plzen.html", "oleska.html", "revoked.html"} {
		lic := parseFixture(t, fixture, "1")
		for _, c := range lic.Capacities {
			require.Greater(t, c.Megawatts, 0.0, fixture)
		}
		for _, f := range lic.Facilities {
			for _, c := range f.Capacities {
				require.Greater(t, c.Megawatts, 0.0, fixture)
			}
		}
	}
}

func TestParsePageEmptyDocument(t *testing.T) {
	lic, err := parseString(t, `<html><body><p>Licence nenalezena</p></body></html>`)
	require.NoError(t, err)
	require.Equal(t, Licence{ID: "110000001", Business: electricity}, lic)
}

const capacityHead = `
<tr><th rowspan="2">Druh výroby</th><th colspan="2">Instalovaný výkon</th></tr>
<tr><th>elektrický [MW]</th><th>tepelný [MW]</th></tr>`

func TestParsePageMismatchedFacilities(t *testing.T) {
	_, err := parseString(t, `<html><body>
	<table class="lic-tez-header-table"><tr><td>
		<div>Evidenční číslo: 1</div><div>A</div>
	</td></tr></table>
	<table class="lic-tez-header-table"><tr><td>
		<div>Evidenční číslo: 2</div><div>B</div>
	</td></tr></table>
	<table class="lic-tez-data-table">`+capacityHead+`
		<tr><th>Celkový</th><td>1</td><td>2</td></tr>
	</table>
	</body></html>`)

	var structural *StructuralError
	require.True(t, errors.As(err, &structural), err)
	require.Equal(t, "facility list", structural.Table)
}

func TestParsePageMissingLabel(t *testing.T) {
	_, err := parseString(t, `<html><body>
	<table class="lic-tez-total-table">`+capacityHead+`
		<tr><td>1</td><td>2</td><td>3</td></tr>
	</table>
	</body></html>`)

	var structural *StructuralError
	require.True(t, errors.As(err, &structural), err)
	require.Equal(t, 2, structural.Row)
}

func TestParsePageNonNumericCapacity(t *testing.T) {
	_, err := parseString(t, `<html><body>
	<table class="lic-tez-total-table">`+capacityHead+`
		<tr><th>Celkový</th><td>1,5</td><td></td></tr>
	</table>
	</body></html>`)

	var numeric *NumericParseError
	require.True(t, errors.As(err, &numeric), err)
	require.Equal(t, "Celkový", numeric.Label)
	require.Equal(t, "1,5", numeric.Text)
}

func TestParsePageInvalidFacilityId(t *testing.T) {
	_, err := parseString(t, `<html><body>
	<table class="lic-tez-header-table"><tr><td>
		<div>Číslo: 1</div><div>A</div>
	</td></tr></table>
	<table class="lic-tez-data-table">`+capacityHead+`</table>
	</body></html>`)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr), err)
	require.Equal(t, "facility id", parseErr.Field)
}
