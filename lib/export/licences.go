package export

import (
	"path/filepath"
	"strconv"

	"erulicence/lib/licence"
)

const (
	LicencesFile           = "licenses.csv"
	CapacitiesFile         = "capacities.csv"
	FacilitiesFile         = "facilities.csv"
	FacilityCapacitiesFile = "facilities_capacities.csv"
)

var (
	licenceHeader  = []string{"id", "business", "sources"}
	capacityHeader = []string{"licence_id", "kind", "technology", "mw"}
	facilityHeader = []string{
		"id", "licence_id", "name",
		"postal_code", "municipality", "street", "house_number", "district", "region",
		"sources", "cadastral_area", "cadastral_code", "designation",
	}
	facilityCapacityHeader = []string{"facility_id", "licence_id", "kind", "technology", "mw"}
)

// LicencesDir is where the licence csv files of `business` are written.
func LicencesDir(out, business string) string {
	return filepath.Join(out, "licences", business)
}

type licenceRows struct {
	licences           [][]string
	capacities         [][]string
	facilities         [][]string
	facilityCapacities [][]string
}

func flatten(lics []licence.Licence) licenceRows {
	var rows licenceRows
	for _, lic := range lics {
		rows.licences = append(rows.licences, []string{
			lic.ID, lic.Business, optInt(lic.Sources),
		})
		for _, c := range lic.Capacities {
			rows.capacities = append(rows.capacities, []string{
				c.LicenceID, string(c.Kind), c.Technology, formatFloat(c.Megawatts),
			})
		}
		for _, f := range lic.Facilities {
			rows.facilities = append(rows.facilities, facilityRow(f))
			for _, c := range f.Capacities {
				rows.facilityCapacities = append(rows.facilityCapacities, []string{
					strconv.FormatInt(c.FacilityID, 10), c.LicenceID,
					string(c.Kind), c.Technology, formatFloat(c.Megawatts),
				})
			}
		}
	}
	return rows
}

func facilityRow(f licence.Facility) []string {
	row := []string{strconv.FormatInt(f.ID, 10), f.LicenceID, f.Name}
	if f.Address != nil {
		row = append(row,
			f.Address.PostalCode,
			f.Address.Municipality,
			f.Address.Street,
			optString(f.Address.HouseNumber),
			optString(f.Address.District),
			optString(f.Address.Region),
		)
	} else {
		row = append(row, "", "", "", "", "", "")
	}
	return append(row,
		optInt(f.Sources),
		optString(f.CadastralArea),
		optString(f.CadastralCode),
		optString(f.Designation),
	)
}

// AppendLicences appends the licences (and their facilities and capacities)
// to the four licence csv files in `dir`.
func AppendLicences(dir string, lics []licence.Licence) error {
	rows := flatten(lics)

	files := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{LicencesFile, licenceHeader, rows.licences},
		{CapacitiesFile, capacityHeader, rows.capacities},
		{FacilitiesFile, facilityHeader, rows.facilities},
		{FacilityCapacitiesFile, facilityCapacityHeader, rows.facilityCapacities},
	}
	for _, f := range files {
		err := appendCsv(filepath.Join(dir, f.name), f.header, f.rows)
		if err != nil {
			return err
		}
	}
	return nil
}
