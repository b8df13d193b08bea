package store

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Queries struct {
	db sqlx.ExtContext
}

func New(db sqlx.ExtContext) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sqlx.Tx) *Queries {
	return &Queries{db: tx}
}

type HolderRow struct {
	Business          string  `db:"business"`
	ID                string  `db:"id"`
	Position          int     `db:"position"`
	Version           *int    `db:"version"`
	Status            *string `db:"status"`
	IC                *string `db:"ic"`
	Name              *string `db:"name"`
	HouseNumber       *string `db:"house_number"`
	OrientationNumber *string `db:"orientation_number"`
	Street            *string `db:"street"`
	Municipality      *string `db:"municipality"`
	MunicipalityPart  *string `db:"municipality_part"`
	PostalCode        *string `db:"postal_code"`
	District          *string `db:"district"`
	Region            *string `db:"region"`
	Country           *string `db:"country"`
	AuthorizedOn      *string `db:"authorized_on"`
	StartedOn         *string `db:"started_on"`
	ExpiresOn         *string `db:"expires_on"`
	EffectiveOn       *string `db:"effective_on"`
	Representative    *string `db:"representative"`
}

type LicenceRow struct {
	ID       string `db:"id"`
	Business string `db:"business"`
	Sources  *int   `db:"sources"`
}

type LicenceCapacityRow struct {
	LicenceID  string  `db:"licence_id"`
	Position   int     `db:"position"`
	Kind       string  `db:"kind"`
	Technology string  `db:"technology"`
	Megawatts  float64 `db:"mw"`
}

type FacilityRow struct {
	LicenceID     string  `db:"licence_id"`
	Position      int     `db:"position"`
	ID            int64   `db:"id"`
	Name          string  `db:"name"`
	HasAddress    bool    `db:"has_address"`
	PostalCode    string  `db:"postal_code"`
	Municipality  string  `db:"municipality"`
	Street        string  `db:"street"`
	HouseNumber   *string `db:"house_number"`
	District      *string `db:"district"`
	Region        *string `db:"region"`
	Sources       *int    `db:"sources"`
	CadastralArea *string `db:"cadastral_area"`
	CadastralCode *string `db:"cadastral_code"`
	Designation   *string `db:"designation"`
	Extra         *string `db:"extra"`
}

type FacilityCapacityRow struct {
	LicenceID        string  `db:"licence_id"`
	FacilityPosition int     `db:"facility_position"`
	Position         int     `db:"position"`
	FacilityID       int64   `db:"facility_id"`
	Kind             string  `db:"kind"`
	Technology       string  `db:"technology"`
	Megawatts        float64 `db:"mw"`
}

const upsertHolder = `
insert into holders (
    business, id, position, version, status, ic, name,
    house_number, orientation_number, street, municipality, municipality_part,
    postal_code, district, region, country,
    authorized_on, started_on, expires_on, effective_on, representative
) values (
    :business, :id, :position, :version, :status, :ic, :name,
    :house_number, :orientation_number, :street, :municipality, :municipality_part,
    :postal_code, :district, :region, :country,
    :authorized_on, :started_on, :expires_on, :effective_on, :representative
)
on conflict (business, id) do update set
    position = excluded.position,
    version = excluded.version,
    status = excluded.status,
    ic = excluded.ic,
    name = excluded.name,
    house_number = excluded.house_number,
    orientation_number = excluded.orientation_number,
    street = excluded.street,
    municipality = excluded.municipality,
    municipality_part = excluded.municipality_part,
    postal_code = excluded.postal_code,
    district = excluded.district,
    region = excluded.region,
    country = excluded.country,
    authorized_on = excluded.authorized_on,
    started_on = excluded.started_on,
    expires_on = excluded.expires_on,
    effective_on = excluded.effective_on,
    representative = excluded.representative`

func (q *Queries) UpsertHolder(ctx context.Context, row HolderRow) error {
	_, err := sqlx.NamedExecContext(ctx, q.db, upsertHolder, row)
	return err
}

func (q *Queries) ListHolders(ctx context.Context, business string) ([]HolderRow, error) {
	var rows []HolderRow
	err := sqlx.SelectContext(ctx, q.db, &rows, `select * from holders where business = ? order by position`, business)
	return rows, err
}

func (q *Queries) ListHolderIDs(ctx context.Context, business string) ([]string, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, q.db, &ids, `select id from holders where business = ? order by position`, business)
	return ids, err
}

func (q *Queries) CountHolders(ctx context.Context, business string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q.db, &count, `select count(*) from holders where business = ?`, business)
	return count, err
}

func (q *Queries) DeleteLicence(ctx context.Context, id string) error {
	for _, stmt := range []string{
		`delete from facility_capacities where licence_id = ?`,
		`delete from facilities where licence_id = ?`,
		`delete from licence_capacities where licence_id = ?`,
		`delete from licences where id = ?`,
	} {
		_, err := q.db.ExecContext(ctx, stmt, id)
		if err != nil {
			return err
		}
	}
	return nil
}

func (q *Queries) InsertLicence(ctx context.Context, row LicenceRow) error {
	_, err := sqlx.NamedExecContext(ctx, q.db,
		`insert into licences (id, business, sources) values (:id, :business, :sources)`,
		row,
	)
	return err
}

func (q *Queries) InsertLicenceCapacity(ctx context.Context, row LicenceCapacityRow) error {
	_, err := sqlx.NamedExecContext(ctx, q.db, `
		insert into licence_capacities (licence_id, position, kind, technology, mw)
		values (:licence_id, :position, :kind, :technology, :mw)`,
		row,
	)
	return err
}

func (q *Queries) InsertFacility(ctx context.Context, row FacilityRow) error {
	_, err := sqlx.NamedExecContext(ctx, q.db, `
		insert into facilities (
			licence_id, position, id, name, has_address,
			postal_code, municipality, street, house_number, district, region,
			sources, cadastral_area, cadastral_code, designation, extra
		) values (
			:licence_id, :position, :id, :name, :has_address,
			:postal_code, :municipality, :street, :house_number, :district, :region,
			:sources, :cadastral_area, :cadastral_code, :designation, :extra
		)`,
		row,
	)
	return err
}

func (q *Queries) InsertFacilityCapacity(ctx context.Context, row FacilityCapacityRow) error {
	_, err := sqlx.NamedExecContext(ctx, q.db, `
		insert into facility_capacities (licence_id, facility_position, position, facility_id, kind, technology, mw)
		values (:licence_id, :facility_position, :position, :facility_id, :kind, :technology, :mw)`,
		row,
	)
	return err
}

func (q *Queries) GetLicence(ctx context.Context, id string) (LicenceRow, error) {
	var row LicenceRow
	err := sqlx.GetContext(ctx, q.db, &row, `select id, business, sources from licences where id = ?`, id)
	return row, err
}

func (q *Queries) ListLicenceCapacities(ctx context.Context, id string) ([]LicenceCapacityRow, error) {
	var rows []LicenceCapacityRow
	err := sqlx.SelectContext(ctx, q.db, &rows,
		`select * from licence_capacities where licence_id = ? order by position`, id)
	return rows, err
}

func (q *Queries) ListFacilities(ctx context.Context, id string) ([]FacilityRow, error) {
	var rows []FacilityRow
	err := sqlx.SelectContext(ctx, q.db, &rows,
		`select * from facilities where licence_id = ? order by position`, id)
	return rows, err
}

func (q *Queries) ListFacilityCapacities(ctx context.Context, id string) ([]FacilityCapacityRow, error) {
	var rows []FacilityCapacityRow
	err := sqlx.SelectContext(ctx, q.db, &rows,
		`select * from facility_capacities where licence_id = ? order by facility_position, position`, id)
	return rows, err
}
