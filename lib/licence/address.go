package licence

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const postalCodeLength = 6

var houseNumberRegex = regexp.MustCompile(`[0-9]+/*[0-9]*`)

// SplitAddress normalizes (NFKC) an address and splits it into its comma
// separated segments. Empty segments are kept.
func SplitAddress(address string) []string {
	normalized := norm.NFKC.String(address)
	segments := strings.Split(normalized, ",")
	for i, s := range segments {
		segments[i] = strings.TrimSpace(s)
	}
	return segments
}

// DecomposeAddress interprets the segments of an address:
//
//	"<psc> <obec>, <ulice> <cp>, okres <okres>, kraj <kraj>"
func DecomposeAddress(segments []string) (Address, error) {
	if len(segments) < 2 {
		return Address{}, fmt.Errorf("%w: %d segment(s)", ErrAddressIncomplete, len(segments))
	}

	var addr Address

	first := []rune(segments[0])
	cut := min(postalCodeLength, len(first))
	addr.PostalCode = strings.ReplaceAll(
		strings.TrimRight(string(first[:cut]), " "),
		" ", "",
	)
	addr.Municipality = strings.TrimSpace(string(first[cut:]))

	addr.Street, addr.HouseNumber = splitStreet(segments[1])

	if len(segments) > 2 {
		addr.District = ptr(stripLabel(segments[2], "okres"))
	}
	if len(segments) > 3 {
		addr.Region = ptr(stripLabel(segments[3], "kraj"))
	}

	return addr, nil
}

// ParseAddress is SplitAddress followed by DecomposeAddress.
func ParseAddress(address string) (Address, error) {
	return DecomposeAddress(SplitAddress(address))
}

func splitStreet(segment string) (string, *string) {
	loc := houseNumberRegex.FindStringIndex(segment)
	if loc == nil {
		return segment, nil
	}
	street := segment[:loc[0]]
	// drop the separator between the street name and the number
	_, size := utf8.DecodeLastRuneInString(street)
	street = street[:len(street)-size]
	return street, ptr(segment[loc[0]:loc[1]])
}

// "okres Benešov" -> "Benešov", segments that don't mention the label at
// all are treated as empty.
func stripLabel(segment, label string) string {
	if !strings.Contains(segment, label) {
		return ""
	}
	return strings.ReplaceAll(segment, label+" ", "")
}
