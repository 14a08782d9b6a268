package bench

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tturner/radiobench/internal/radio"
)

// Band is one RF band and its test frequencies in Hz.
type Band struct {
	Code byte
	Name string
	TX   []uint32
	RX   []uint32
}

var bands = []Band{
	{Code: 'K', Name: "VHF", TX: []uint32{136025000, 142125000, 154225000, 160125000, 168075000, 173975000}},
	{Code: 'Q', Name: "UHF1", TX: []uint32{380075000, 400125000, 420125000, 440125000, 469975000}},
	{Code: 'R', Name: "UHF2", TX: []uint32{450075000, 470125000, 485125000, 500125000, 519975000}},
	{Code: 'S', Name: "UHF2", TX: []uint32{450075000, 470125000, 485125000, 500125000, 519975000}},
	{Code: 'U', Name: "7/800", TX: []uint32{764062500, 775987500, 794012500, 805987500, 806012500, 823987500, 851012500, 869987500}},
}

// BandForModel picks the band from the band letter of a model number,
// the fourth character.
func BandForModel(model string) (Band, error) {
	if len(model) < 4 {
		return Band{}, fmt.Errorf("model number %q too short to carry a band code", model)
	}
	code := strings.ToUpper(model)[3]
	for _, b := range bands {
		if b.Code == code {
			if b.RX == nil {
				b.RX = b.TX
			}
			return b, nil
		}
	}
	return Band{}, fmt.Errorf("model number %q: unknown band code %q", model, code)
}

// Receive tests skip the transmit-only part of the 7/800 band.
const (
	txOnlyLow  = 785000000
	txOnlyHigh = 850000000
)

// ReceivableFrequency reports whether the radio can receive at hz.
func ReceivableFrequency(hz uint32) bool {
	return hz <= txOnlyLow || hz >= txOnlyHigh
}

// Family describes a radio product line: its frequency plan, which tests
// it runs in which order, and the sign of its reference oscillator
// response.
type Family struct {
	Name string
	// RefOscKp is the proportional gain of the reference oscillator loop.
	RefOscKp float64
	// SoftpotFrequencies means the radio reports the reference oscillator
	// anchor with READ_ALL_FREQ rather than using the band table.
	SoftpotFrequencies bool
	PowerEligible      func(model string) bool
	Sequence           []string
	AlignSequence      []string
	// ResetAfter restarts the radio when the sequence ends.
	ResetAfter bool
	// RSSI converts raw receiver readings to input power. Nil when the
	// family has no calibration curve.
	RSSI *radio.RSSITable
}

// RSSIDBm converts a raw receiver reading to dBm.
func (f *Family) RSSIDBm(raw int) (float64, bool) {
	if f.RSSI == nil || raw < 0 || raw > 255 {
		return 0, false
	}
	return f.RSSI.DBm(uint8(raw)), true
}

// rssiCurve is the receiver response shared by the APX and ASTRO 25
// lines, two raw units per dB.
var rssiCurve = mustRSSITable([]radio.RSSIPoint{
	{RSSI: 100, DBm: -100},
	{RSSI: 200, DBm: -50},
	{RSSI: 250, DBm: -25},
})

func mustRSSITable(points []radio.RSSIPoint) *radio.RSSITable {
	t, err := radio.NewRSSITable(points)
	if err != nil {
		panic(err)
	}
	return t
}

// TxFrequencies returns the transmit frequencies for a model.
func (f *Family) TxFrequencies(model string) ([]uint32, error) {
	b, err := BandForModel(model)
	if err != nil {
		return nil, err
	}
	return append([]uint32(nil), b.TX...), nil
}

// RxFrequencies returns the receive frequencies for a model.
func (f *Family) RxFrequencies(model string) ([]uint32, error) {
	b, err := BandForModel(model)
	if err != nil {
		return nil, err
	}
	return append([]uint32(nil), b.RX...), nil
}

func modelPrefix(prefixes ...string) func(string) bool {
	return func(model string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(strings.ToUpper(model), p) {
				return true
			}
		}
		return false
	}
}

var families = map[string]*Family{
	"apx": {
		Name:               "apx",
		RefOscKp:           -1,
		SoftpotFrequencies: true,
		PowerEligible:      modelPrefix("M20S", "H92U"),
		// power runs first to warm the PA before the reference oscillator.
		Sequence:      []string{TestPower, TestRefOsc, TestDeviation, TestTxBER, TestRSSI, TestRxBER, TestTxExtended, TestRxExtended},
		AlignSequence: []string{TestRefOsc},
		RSSI:          rssiCurve,
	},
	"astro25": {
		Name:          "astro25",
		RefOscKp:      1,
		PowerEligible: func(string) bool { return false },
		Sequence:      []string{TestRefOsc, TestDeviation, TestTxBER, TestRSSI, TestRxBER, TestTxExtended, TestRxExtended},
		AlignSequence: []string{TestRefOsc, TestDeviation},
		RSSI:          rssiCurve,
	},
	"xpr": {
		Name:          "xpr",
		RefOscKp:      1,
		PowerEligible: func(string) bool { return true },
		Sequence:      []string{TestRefOsc, TestDeviation, TestPower},
		AlignSequence: []string{TestRefOsc, TestDeviation},
		ResetAfter:    true,
	},
}

// UnknownFamilyError is returned for an unregistered family name.
type UnknownFamilyError struct {
	Name string
}

func (e *UnknownFamilyError) Error() string {
	return fmt.Sprintf("unknown radio family %q (known: %s)", e.Name, strings.Join(FamilyNames(), ", "))
}

// GetFamily returns a family by name.
func GetFamily(name string) (*Family, error) {
	f, ok := families[strings.ToLower(name)]
	if !ok {
		return nil, &UnknownFamilyError{Name: name}
	}
	return f, nil
}

// FamilyNames lists the registered families.
func FamilyNames() []string {
	names := make([]string, 0, len(families))
	for n := range families {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
