package eru

import (
	"fmt"
	"slices"
	"strings"
)

// Business is a licensed business type, the value is the short name used on
// the command line and in output paths.
type Business string

const (
	Electricity             Business = "electricity"
	ElectricityDistribution Business = "electricity-dist"
	ElectricityTrade        Business = "electricity-trade"
	Heat                    Business = "heat"
	HeatDistribution        Business = "heat-dist"
	Gas                     Business = "gas"
	GasDistribution         Business = "gas-dist"
	GasTrade                Business = "gas-trade"
)

var businessLabels = map[Business]string{
	Electricity:             "výroba elektřiny",
	ElectricityDistribution: "distribuce elektřiny",
	ElectricityTrade:        "obchod s elektřinou",
	Heat:                    "výroba tepelné energie",
	HeatDistribution:        "rozvod tepelné energie",
	Gas:                     "výroba plynu",
	GasDistribution:         "distribuce plynu",
	GasTrade:                "obchod s plynem",
}

// Businesses lists every known business in a stable order.
func Businesses() []Business {
	result := make([]Business, 0, len(businessLabels))
	for b := range businessLabels {
		result = append(result, b)
	}
	slices.Sort(result)
	return result
}

// Label is the czech name of the business as the regulator writes it.
func (b Business) Label() string {
	return businessLabels[b]
}

func ParseBusiness(s string) (Business, error) {
	b := Business(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := businessLabels[b]; !ok {
		return "", fmt.Errorf("unknown business %q", s)
	}
	return b, nil
}
