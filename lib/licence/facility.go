package licence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"erulicence/lib/htmlutil"
	"erulicence/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

const facilityIdPrefix = "Evidenční číslo:"

// keys of the cadastral data as produced by textutil.NormalizeKey
const (
	keyCadastralArea = "katastralni_uzemi"
	keyCadastralCode = "kod_katastru"
	keyDesignation   = "vymezeni"
)

// FacilityHeader is the identification block of a facility.
type FacilityHeader struct {
	ID      int64
	Name    string
	Address *Address

	CadastralArea *string
	CadastralCode *string
	Designation   *string
	Extra         map[string]string
}

// ParseFacilityHeader reads a facility header table.
//
// the first row holds the divs: registration number, name and (optionally)
// address. when there are more than 2 rows, the second row holds the labels
// and the third row the values of the cadastral data.
func ParseFacilityHeader(table *goquery.Selection) (FacilityHeader, error) {
	rows := table.Find("tr")
	if rows.Length() == 0 {
		return FacilityHeader{}, &StructuralError{Table: "facility header", Row: -1, Reason: "no rows"}
	}

	divs := rows.First().Find("div")
	if divs.Length() < 2 {
		return FacilityHeader{}, &StructuralError{
			Table:  "facility header",
			Row:    0,
			Reason: fmt.Sprintf("expected at least 2 divs, got %d", divs.Length()),
		}
	}

	id, err := parseFacilityId(htmlutil.StrippedText(divs.Eq(0)))
	if err != nil {
		return FacilityHeader{}, err
	}

	header := FacilityHeader{
		ID:   id,
		Name: htmlutil.StrippedText(divs.Eq(1)),
	}

	if divs.Length() > 2 {
		addr, err := ParseAddress(htmlutil.StrippedText(divs.Eq(2)))
		switch {
		case errors.Is(err, ErrAddressIncomplete):
		case err != nil:
			return FacilityHeader{}, err
		default:
			header.Address = &addr
		}
	}

	if rows.Length() > 2 {
		labels := rows.Eq(1).Find("th")
		values := rows.Eq(2).Find("td")
		n := min(labels.Length(), values.Length())
		for i := 0; i < n; i++ {
			key := textutil.NormalizeKey(htmlutil.StrippedText(labels.Eq(i)))
			header.set(key, htmlutil.StrippedText(values.Eq(i)))
		}
	}

	return header, nil
}

func (h *FacilityHeader) set(key, value string) {
	switch key {
	case keyCadastralArea:
		h.CadastralArea = &value
	case keyCadastralCode:
		h.CadastralCode = &value
	case keyDesignation:
		h.Designation = &value
	default:
		if h.Extra == nil {
			h.Extra = map[string]string{}
		}
		h.Extra[key] = value
	}
}

// "Evidenční číslo: 12" -> 12
func parseFacilityId(text string) (int64, error) {
	normalized := norm.NFC.String(strings.TrimSpace(text))
	rest, found := strings.CutPrefix(normalized, facilityIdPrefix)
	if !found {
		return 0, &ParseError{
			Field: "facility id",
			Text:  text,
			Err:   fmt.Errorf("missing %q prefix", facilityIdPrefix),
		}
	}
	id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil {
		return 0, &ParseError{Field: "facility id", Text: text, Err: err}
	}
	return id, nil
}
