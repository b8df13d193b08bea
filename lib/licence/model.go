// Package licence turns a licence detail page of licence.eru.cz into a
// Licence tree (licence -> facilities -> capacities).
//
// The markup is not consistent: tables are marked by class on some pages and
// by id on others, value cells are sometimes <th> instead of <td> and any
// part of a page may be missing. Parsing is pure, it does no I/O and keeps
// no state between calls.
package licence

// Kind is the category of an installed capacity.
type Kind string

const (
	Electrical Kind = "Elektrický"
	Thermal    Kind = "Tepelný"
)

// Capacity is one installed capacity measurement, Megawatts is always > 0.
type Capacity struct {
	Kind       Kind
	Technology string
	Megawatts  float64
}

type LicenceCapacity struct {
	LicenceID string
	Capacity
}

type FacilityCapacity struct {
	FacilityID int64
	LicenceID  string
	Capacity
}

// Address is a decomposed postal address of a facility.
type Address struct {
	PostalCode   string
	Municipality string
	Street       string
	HouseNumber  *string
	// District is nil when the address has no third segment and "" when the
	// segment does not name a district.
	District *string
	// Region follows the same rules as District for the fourth segment.
	Region *string
}

type Facility struct {
	ID        int64
	LicenceID string
	Name      string
	// Address is nil when the facility header has no address block.
	Address *Address
	Sources *int

	CadastralArea *string
	CadastralCode *string
	Designation   *string
	// Extra holds header label/value pairs that are not cadastral data.
	Extra map[string]string

	Capacities []FacilityCapacity
}

// NewFacility creates a facility of licence `licenceId` out of its parsed header.
func NewFacility(licenceId string, header FacilityHeader) Facility {
	return Facility{
		ID:            header.ID,
		LicenceID:     licenceId,
		Name:          header.Name,
		Address:       header.Address,
		CadastralArea: header.CadastralArea,
		CadastralCode: header.CadastralCode,
		Designation:   header.Designation,
		Extra:         header.Extra,
	}
}

type Licence struct {
	ID string
	// Business is the subject of the licence, ex. "výroba elektřiny".
	Business string
	// Sources is nil (and Capacities is empty) when the licence has no
	// total capacity table, which is the case for revoked or expired licences.
	Sources    *int
	Facilities []Facility
	Capacities []LicenceCapacity
}

func ptr[T any](v T) *T {
	return &v
}
