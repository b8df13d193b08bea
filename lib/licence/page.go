package licence

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
)

const (
	totalTableByClass    = "table.lic-tez-total-table"
	totalTableById       = "table#lic-tez-total-table"
	facilityHeaderTables = "table.lic-tez-header-table"
	facilityDataTables   = "table.lic-tez-data-table"
)

// ParsePageHTML parses the html of a licence page and assembles it with ParsePage.
func ParsePageHTML(r io.Reader, business, licenceId string) (Licence, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Licence{}, fmt.Errorf("licence %s: parse html: %w", licenceId, err)
	}
	return ParsePage(doc.Selection, business, licenceId)
}

// ParsePage assembles the licence `licenceId` out of its detail page.
//
// a page without a total capacity table is valid, it belongs to a revoked
// or expired licence which ends up with no capacities and no source count.
func ParsePage(doc *goquery.Selection, business, licenceId string) (Licence, error) {
	lic := Licence{
		ID:       licenceId,
		Business: business,
	}

	total := findTotalTable(doc)
	if total != nil {
		rows, err := ParseCapacityTable(total)
		if err != nil {
			return Licence{}, fmt.Errorf("licence %s: total capacity: %w", licenceId, err)
		}
		caps, sources, err := capacities(rows)
		if err != nil {
			return Licence{}, fmt.Errorf("licence %s: total capacity: %w", licenceId, err)
		}
		lic.Sources = sources
		for _, c := range caps {
			lic.Capacities = append(lic.Capacities, LicenceCapacity{
				LicenceID: licenceId,
				Capacity:  c,
			})
		}
	}

	blocks, err := facilityBlocks(doc)
	if err != nil {
		return Licence{}, fmt.Errorf("licence %s: %w", licenceId, err)
	}

	for i, block := range blocks {
		facility, err := parseFacility(licenceId, block)
		if err != nil {
			return Licence{}, fmt.Errorf("licence %s: facility #%d: %w", licenceId, i, err)
		}
		lic.Facilities = append(lic.Facilities, facility)
	}

	return lic, nil
}

func findTotalTable(doc *goquery.Selection) *goquery.Selection {
	for _, selector := range []string{totalTableByClass, totalTableById} {
		table := doc.Find(selector).First()
		if table.Length() > 0 {
			return table
		}
	}
	return nil
}

// facilityBlock is the header table of a facility paired with its
// capacity (data) table.
type facilityBlock struct {
	header *goquery.Selection
	data   *goquery.Selection
}

// facilityBlocks pairs the header and data tables of the facilities in
// document order. the pairing is positional, so both lists must be of the
// same length.
func facilityBlocks(doc *goquery.Selection) ([]facilityBlock, error) {
	headers := doc.Find(facilityHeaderTables)
	datas := doc.Find(facilityDataTables)
	if headers.Length() != datas.Length() {
		return nil, &StructuralError{
			Table: "facility list",
			Row:   -1,
			Reason: fmt.Sprintf(
				"%d facility header tables but %d facility data tables",
				headers.Length(), datas.Length(),
			),
		}
	}

	blocks := make([]facilityBlock, headers.Length())
	for i := range blocks {
		blocks[i] = facilityBlock{
			header: headers.Eq(i),
			data:   datas.Eq(i),
		}
	}
	return blocks, nil
}

func parseFacility(licenceId string, block facilityBlock) (Facility, error) {
	header, err := ParseFacilityHeader(block.header)
	if err != nil {
		return Facility{}, err
	}
	facility := NewFacility(licenceId, header)

	rows, err := ParseCapacityTable(block.data)
	if err != nil {
		return Facility{}, fmt.Errorf("facility %d: capacity: %w", header.ID, err)
	}
	caps, sources, err := capacities(rows)
	if err != nil {
		return Facility{}, fmt.Errorf("facility %d: capacity: %w", header.ID, err)
	}
	facility.Sources = sources
	for _, c := range caps {
		facility.Capacities = append(facility.Capacities, FacilityCapacity{
			FacilityID: facility.ID,
			LicenceID:  licenceId,
			Capacity:   c,
		})
	}

	return facility, nil
}
