// Package store persists licence holders and harvested licences in sqlite
// (or a remote libsql database).
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"erulicence/lib/holders"
	"erulicence/lib/licence"
	"erulicence/lib/timezone"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var Schema string

var ErrNotFound = errors.New("not found")

type Store struct {
	db  *sqlx.DB
	qry *Queries
}

// NewStore wraps `database` and creates the tables that are missing.
func NewStore(ctx context.Context, database *sql.DB) (Store, error) {
	db := sqlx.NewDb(database, "sqlite")
	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return Store{}, fmt.Errorf("create schema: %w", err)
	}
	return Store{
		db:  db,
		qry: New(db),
	}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

func (s Store) withTx(ctx context.Context, fn func(qry *Queries) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = fn(s.qry.WithTx(tx))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := timezone.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveHolders upserts the roster of `business`, the roster order is kept.
func (s Store) SaveHolders(ctx context.Context, business string, roster []holders.Holder) error {
	return s.withTx(ctx, func(qry *Queries) error {
		for i, h := range roster {
			err := qry.UpsertHolder(ctx, HolderRow{
				Business:          business,
				ID:                h.ID,
				Position:          i,
				Version:           h.Version,
				Status:            h.Status,
				IC:                h.IC,
				Name:              h.Name,
				HouseNumber:       h.HouseNumber,
				OrientationNumber: h.OrientationNumber,
				Street:            h.Street,
				Municipality:      h.Municipality,
				MunicipalityPart:  h.MunicipalityPart,
				PostalCode:        h.PostalCode,
				District:          h.District,
				Region:            h.Region,
				Country:           h.Country,
				AuthorizedOn:      formatDate(h.AuthorizedOn),
				StartedOn:         formatDate(h.StartedOn),
				ExpiresOn:         formatDate(h.ExpiresOn),
				EffectiveOn:       formatDate(h.EffectiveOn),
				Representative:    h.Representative,
			})
			if err != nil {
				return fmt.Errorf("holder %s: %w", h.ID, err)
			}
		}
		return nil
	})
}

func (s Store) Holders(ctx context.Context, business string) ([]holders.Holder, error) {
	rows, err := s.qry.ListHolders(ctx, business)
	if err != nil {
		return nil, err
	}

	result := make([]holders.Holder, len(rows))
	for i, row := range rows {
		h := holders.Holder{
			ID:                row.ID,
			Version:           row.Version,
			Status:            row.Status,
			IC:                row.IC,
			Name:              row.Name,
			HouseNumber:       row.HouseNumber,
			OrientationNumber: row.OrientationNumber,
			Street:            row.Street,
			Municipality:      row.Municipality,
			MunicipalityPart:  row.MunicipalityPart,
			PostalCode:        row.PostalCode,
			District:          row.District,
			Region:            row.Region,
			Country:           row.Country,
			Representative:    row.Representative,
		}
		dates := []struct {
			src *string
			dst **time.Time
		}{
			{row.AuthorizedOn, &h.AuthorizedOn},
			{row.StartedOn, &h.StartedOn},
			{row.ExpiresOn, &h.ExpiresOn},
			{row.EffectiveOn, &h.EffectiveOn},
		}
		for _, d := range dates {
			*d.dst, err = parseDate(d.src)
			if err != nil {
				return nil, fmt.Errorf("holder %s: %w", row.ID, err)
			}
		}
		result[i] = h
	}
	return result, nil
}

// LicenceIDs lists the licence ids of the stored roster of `business`.
func (s Store) LicenceIDs(ctx context.Context, business string) ([]string, error) {
	return s.qry.ListHolderIDs(ctx, business)
}

func (s Store) CountHolders(ctx context.Context, business string) (int, error) {
	return s.qry.CountHolders(ctx, business)
}

// SaveLicences stores the licences in a single transaction, a licence that
// is already stored is replaced as a whole.
func (s Store) SaveLicences(ctx context.Context, lics []licence.Licence) error {
	return s.withTx(ctx, func(qry *Queries) error {
		for _, lic := range lics {
			err := saveLicence(ctx, qry, lic)
			if err != nil {
				return fmt.Errorf("licence %s: %w", lic.ID, err)
			}
		}
		return nil
	})
}

func saveLicence(ctx context.Context, qry *Queries, lic licence.Licence) error {
	err := qry.DeleteLicence(ctx, lic.ID)
	if err != nil {
		return err
	}
	err = qry.InsertLicence(ctx, LicenceRow{
		ID:       lic.ID,
		Business: lic.Business,
		Sources:  lic.Sources,
	})
	if err != nil {
		return err
	}

	for i, c := range lic.Capacities {
		err = qry.InsertLicenceCapacity(ctx, LicenceCapacityRow{
			LicenceID:  lic.ID,
			Position:   i,
			Kind:       string(c.Kind),
			Technology: c.Technology,
			Megawatts:  c.Megawatts,
		})
		if err != nil {
			return err
		}
	}

	for i, f := range lic.Facilities {
		row, err := facilityRow(lic.ID, i, f)
		if err != nil {
			return err
		}
		err = qry.InsertFacility(ctx, row)
		if err != nil {
			return err
		}

		for j, c := range f.Capacities {
			err = qry.InsertFacilityCapacity(ctx, FacilityCapacityRow{
				LicenceID:        lic.ID,
				FacilityPosition: i,
				Position:         j,
				FacilityID:       c.FacilityID,
				Kind:             string(c.Kind),
				Technology:       c.Technology,
				Megawatts:        c.Megawatts,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func facilityRow(licenceId string, position int, f licence.Facility) (FacilityRow, error) {
	row := FacilityRow{
		LicenceID:     licenceId,
		Position:      position,
		ID:            f.ID,
		Name:          f.Name,
		Sources:       f.Sources,
		CadastralArea: f.CadastralArea,
		CadastralCode: f.CadastralCode,
		Designation:   f.Designation,
	}
	if f.Address != nil {
		row.HasAddress = true
		row.PostalCode = f.Address.PostalCode
		row.Municipality = f.Address.Municipality
		row.Street = f.Address.Street
		row.HouseNumber = f.Address.HouseNumber
		row.District = f.Address.District
		row.Region = f.Address.Region
	}
	if f.Extra != nil {
		extra, err := json.Marshal(f.Extra)
		if err != nil {
			return FacilityRow{}, err
		}
		s := string(extra)
		row.Extra = &s
	}
	return row, nil
}

// Licence loads the licence tree stored under `id`.
func (s Store) Licence(ctx context.Context, id string) (licence.Licence, error) {
	row, err := s.qry.GetLicence(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return licence.Licence{}, fmt.Errorf("licence %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return licence.Licence{}, err
	}

	lic := licence.Licence{
		ID:       row.ID,
		Business: row.Business,
		Sources:  row.Sources,
	}

	capacities, err := s.qry.ListLicenceCapacities(ctx, id)
	if err != nil {
		return licence.Licence{}, err
	}
	for _, c := range capacities {
		lic.Capacities = append(lic.Capacities, licence.LicenceCapacity{
			LicenceID: c.LicenceID,
			Capacity: licence.Capacity{
				Kind:       licence.Kind(c.Kind),
				Technology: c.Technology,
				Megawatts:  c.Megawatts,
			},
		})
	}

	facilities, err := s.qry.ListFacilities(ctx, id)
	if err != nil {
		return licence.Licence{}, err
	}
	facilityCapacities, err := s.qry.ListFacilityCapacities(ctx, id)
	if err != nil {
		return licence.Licence{}, err
	}

	for _, f := range facilities {
		facility := licence.Facility{
			ID:            f.ID,
			LicenceID:     f.LicenceID,
			Name:          f.Name,
			Sources:       f.Sources,
			CadastralArea: f.CadastralArea,
			CadastralCode: f.CadastralCode,
			Designation:   f.Designation,
		}
		if f.HasAddress {
			facility.Address = &licence.Address{
				PostalCode:   f.PostalCode,
				Municipality: f.Municipality,
				Street:       f.Street,
				HouseNumber:  f.HouseNumber,
				District:     f.District,
				Region:       f.Region,
			}
		}
		if f.Extra != nil {
			err = json.Unmarshal([]byte(*f.Extra), &facility.Extra)
			if err != nil {
				return licence.Licence{}, fmt.Errorf("facility %d: extra: %w", f.ID, err)
			}
		}
		for _, c := range facilityCapacities {
			if c.FacilityPosition != f.Position {
				continue
			}
			facility.Capacities = append(facility.Capacities, licence.FacilityCapacity{
				FacilityID: c.FacilityID,
				LicenceID:  c.LicenceID,
				Capacity: licence.Capacity{
					Kind:       licence.Kind(c.Kind),
					Technology: c.Technology,
					Megawatts:  c.Megawatts,
				},
			})
		}
		lic.Facilities = append(lic.Facilities, facility)
	}

	return lic, nil
}
