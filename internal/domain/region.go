package domain

import "strings"

// Region is a market area with its own currency, tax rate and availability.
type Region string

const (
	RegionAM Region = "AM"
	RegionRU Region = "RU"
	RegionUS Region = "US"
	RegionEU Region = "EU"
)

// DefaultRegion is used whenever no better signal exists.
const DefaultRegion = RegionAM

var AllRegions = []Region{RegionAM, RegionRU, RegionUS, RegionEU}

func ParseRegion(s string) (Region, bool) {
	r := Region(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RegionAM, RegionRU, RegionUS, RegionEU:
		return r, true
	}
	return "", false
}

func (r Region) String() string { return string(r) }
