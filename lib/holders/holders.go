// Package holders parses the XML roster of licence holders published by
// the regulator for every business type.
package holders

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"erulicence/lib/timezone"

	"golang.org/x/text/encoding/charmap"
)

// Holder is one licence holder (držitel licence), ID is the licence number.
type Holder struct {
	ID                string
	Version           *int
	Status            *string
	IC                *string
	Name              *string
	HouseNumber       *string
	OrientationNumber *string
	Street            *string
	Municipality      *string
	MunicipalityPart  *string
	PostalCode        *string
	District          *string
	Region            *string
	Country           *string
	AuthorizedOn      *time.Time
	StartedOn         *time.Time
	ExpiresOn         *time.Time
	EffectiveOn       *time.Time
	Representative    *string
}

// the roster marks missing values with a line of dashes
const placeholder = "-----"

func text(v string) (*string, error) {
	if strings.Contains(v, placeholder) {
		return nil, nil
	}
	return &v, nil
}

func optionalText(v string) (*string, error) {
	if v == "" {
		return nil, nil
	}
	return &v, nil
}

func date(v string) (*time.Time, error) {
	if v == "" || strings.Contains(v, placeholder) {
		return nil, nil
	}
	t, err := timezone.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func version(v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

type field struct {
	attr  string
	apply func(h *Holder, v string) error
}

func textField(attr string, target func(h *Holder) **string) field {
	return field{attr: attr, apply: func(h *Holder, v string) error {
		parsed, err := text(v)
		*target(h) = parsed
		return err
	}}
}

func dateField(attr string, target func(h *Holder) **time.Time) field {
	return field{attr: attr, apply: func(h *Holder, v string) error {
		parsed, err := date(v)
		*target(h) = parsed
		return err
	}}
}

var fields = []field{
	{attr: "cislo_licence", apply: func(h *Holder, v string) error {
		h.ID = v
		return nil
	}},
	{attr: "version", apply: func(h *Holder, v string) error {
		parsed, err := version(v)
		h.Version = parsed
		return err
	}},
	textField("version_status", func(h *Holder) **string { return &h.Status }),
	textField("subjekt_IC", func(h *Holder) **string { return &h.IC }),
	textField("subjekt_nazev", func(h *Holder) **string { return &h.Name }),
	textField("subjekt_cislo_dom", func(h *Holder) **string { return &h.HouseNumber }),
	textField("subjekt_cislo_or", func(h *Holder) **string { return &h.OrientationNumber }),
	textField("subjekt_ulice_nazev", func(h *Holder) **string { return &h.Street }),
	textField("subjekt_obec_cast", func(h *Holder) **string { return &h.MunicipalityPart }),
	textField("subjekt_obec_nazev", func(h *Holder) **string { return &h.Municipality }),
	textField("subjekt_PSC", func(h *Holder) **string { return &h.PostalCode }),
	textField("subjekt_okres", func(h *Holder) **string { return &h.District }),
	textField("subjekt_kraj", func(h *Holder) **string { return &h.Region }),
	textField("subjekt_zeme", func(h *Holder) **string { return &h.Country }),
	dateField("subjekt_den_opravneni", func(h *Holder) **time.Time { return &h.AuthorizedOn }),
	dateField("subjekt_den_zahajeni", func(h *Holder) **time.Time { return &h.StartedOn }),
	dateField("subjekt_den_zaniku", func(h *Holder) **time.Time { return &h.ExpiresOn }),
	dateField("subjekt_den_nabyti_pravni_moci", func(h *Holder) **time.Time { return &h.EffectiveOn }),
	{attr: "odpovedny_zast", apply: func(h *Holder, v string) error {
		parsed, err := optionalText(v)
		h.Representative = parsed
		return err
	}},
}

var ErrMissingAttribute = errors.New("missing attribute")

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "windows-1250", "cp1250":
		return charmap.Windows1250.NewDecoder().Reader(input), nil
	case "iso-8859-2":
		return charmap.ISO8859_2.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("unsupported charset %q", charset)
}

// Parse reads every child of the root element of the roster as a Holder.
func Parse(r io.Reader) ([]Holder, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader

	var result []Holder
	depth := 0
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster: %w", err)
		}

		switch token := token.(type) {
		case xml.StartElement:
			depth++
			if depth != 2 {
				continue
			}
			holder, err := parseHolder(token.Attr)
			if err != nil {
				return nil, fmt.Errorf("roster entry #%d: %w", len(result), err)
			}
			result = append(result, holder)
		case xml.EndElement:
			depth--
		}
	}

	return result, nil
}

func parseHolder(attrs []xml.Attr) (Holder, error) {
	values := make(map[string]string, len(attrs))
	for _, a := range attrs {
		values[a.Name.Local] = a.Value
	}

	var holder Holder
	for _, f := range fields {
		v, ok := values[f.attr]
		if !ok {
			return Holder{}, fmt.Errorf("%w %q", ErrMissingAttribute, f.attr)
		}
		err := f.apply(&holder, v)
		if err != nil {
			return Holder{}, fmt.Errorf("%s: %w", f.attr, err)
		}
	}
	return holder, nil
}
