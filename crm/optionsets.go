package crm

import (
	"errors"
	"fmt"
)

var errUnknownOption = errors.New("value does not correspond to an enumerated option")

// OptionSet is implemented by enum-backed field types. The pointer form of a
// field type implementing OptionSet is picked up automatically by the codec
// registry, so entity packages can add their own option sets without
// registering a codec.
type OptionSet interface {
	// OptionValue returns the numeric CRM option code. ok is false when the
	// field is unset.
	OptionValue() (code int64, ok bool)
	// SetOption assigns the option from the numeric CRM code and its display
	// value.
	SetOption(code int64, formatted string) error
	// FormattedOption returns the display value last reported by the API.
	FormattedOption() string
}

// WorkRegionCode enumerates the CRM work-region option set.
type WorkRegionCode int32

const (
	WorkRegionUnspecified WorkRegionCode = iota
	WorkRegionConnecticutHudsonValley
	WorkRegionNewEngland
	WorkRegionNewYorkMetro
	WorkRegionInterRegion
	WorkRegionNationalNetwork
	WorkRegionMidAtlantic
	WorkRegionChicago
	WorkRegionInternationalNetwork
	WorkRegionKentuckyIndiana
	WorkRegionMichigan
	WorkRegionOhio
	WorkRegionWesternNewYork
	WorkRegionVirginiaCarolinas
	WorkRegionVirginia
	WorkRegionCaliforniaInlandEmpire
	WorkRegionCaliforniaLACounty
	WorkRegionCaliforniaNorthern
	WorkRegionCaliforniaOrangeCounty
	WorkRegionEasternPennsylvaniaNewJersey
	WorkRegionGeorgia
	WorkRegionLouisville
	WorkRegionMinneapolisStPaul
	WorkRegionNorthFlorida
	WorkRegionNorthernCalifornia
	WorkRegionPacificNorthWest
	WorkRegionPhoenix
	WorkRegionPittsburgh
	WorkRegionSouthFlorida
	WorkRegionSouthernCalifornia
	WorkRegionStLouis
	WorkRegionStPaul
	WorkRegionTennessee
	WorkRegionTexas
	WorkRegionRockyMountain
	WorkRegionDesertSouthwest
	WorkRegionLosAngeles
	WorkRegionSanDiego
)

// WorkRegion carries a work-region option together with its display value.
type WorkRegion struct {
	Region         WorkRegionCode `json:"region"`
	FormattedValue string         `json:"formattedValue,omitempty"`
}

// OptionValue implements OptionSet.
func (w WorkRegion) OptionValue() (int64, bool) {
	if w.Region == WorkRegionUnspecified {
		return 0, false
	}
	return int64(w.Region), true
}

// SetOption implements OptionSet.
func (w *WorkRegion) SetOption(code int64, formatted string) error {
	if code < int64(WorkRegionUnspecified) || code > int64(WorkRegionSanDiego) {
		return fmt.Errorf("crm: work region %d: %w", code, errUnknownOption)
	}
	w.Region = WorkRegionCode(code)
	w.FormattedValue = formatted
	return nil
}

// FormattedOption implements OptionSet.
func (w WorkRegion) FormattedOption() string { return w.FormattedValue }

// CreationSourceCode enumerates the CRM creation-source option set.
type CreationSourceCode int32

const (
	CreationSourceUnspecified CreationSourceCode = 0
	CreationSourceAcme        CreationSourceCode = 100000011
)

// CreationSource carries the creation-source option together with its
// display value.
type CreationSource struct {
	Source         CreationSourceCode `json:"source"`
	FormattedValue string             `json:"formattedValue,omitempty"`
}

// OptionValue implements OptionSet.
func (c CreationSource) OptionValue() (int64, bool) {
	if c.Source == CreationSourceUnspecified {
		return 0, false
	}
	return int64(c.Source), true
}

// SetOption implements OptionSet.
func (c *CreationSource) SetOption(code int64, formatted string) error {
	switch CreationSourceCode(code) {
	case CreationSourceUnspecified, CreationSourceAcme:
		c.Source = CreationSourceCode(code)
		c.FormattedValue = formatted
		return nil
	default:
		return fmt.Errorf("crm: creation source %d: %w", code, errUnknownOption)
	}
}

// FormattedOption implements OptionSet.
func (c CreationSource) FormattedOption() string { return c.FormattedValue }
