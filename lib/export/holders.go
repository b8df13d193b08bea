package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"erulicence/lib/holders"
)

var holderHeader = []string{
	"id", "version", "status", "ic", "name",
	"house_number", "orientation_number", "street", "municipality", "municipality_part",
	"postal_code", "district", "region", "country",
	"authorized_on", "started_on", "expires_on", "effective_on", "representative",
}

// HoldersPath is where the holder roster of `business` is written.
func HoldersPath(out, business string) string {
	return filepath.Join(out, "holders", business, "holders.csv")
}

// WriteHolders overwrites `path` with the roster.
func WriteHolders(path string, roster []holders.Holder) error {
	rows := make([][]string, len(roster))
	for i, h := range roster {
		rows[i] = []string{
			h.ID,
			optInt(h.Version),
			optString(h.Status),
			optString(h.IC),
			optString(h.Name),
			optString(h.HouseNumber),
			optString(h.OrientationNumber),
			optString(h.Street),
			optString(h.Municipality),
			optString(h.MunicipalityPart),
			optString(h.PostalCode),
			optString(h.District),
			optString(h.Region),
			optString(h.Country),
			optDate(h.AuthorizedOn),
			optDate(h.StartedOn),
			optDate(h.ExpiresOn),
			optDate(h.EffectiveOn),
			optString(h.Representative),
		}
	}
	return writeCsv(path, holderHeader, rows)
}

// ReadHolderIDs reads the `id` column of a holders csv, the roster order is kept.
func ReadHolderIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	column := slices.Index(records[0], "id")
	if column < 0 {
		return nil, fmt.Errorf("%s: no id column", path)
	}

	ids := make([]string, 0, len(records)-1)
	for _, record := range records[1:] {
		ids = append(ids, record[column])
	}
	return ids, nil
}
