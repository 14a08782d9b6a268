// Package sim simulates a bench without hardware: an XCMP radio answering
// over a transport and an instrument measuring that radio's simulated RF
// output. Both share one State.
package sim

import (
	"math"
	"sync"

	"github.com/tturner/radiobench/internal/xcmp"
)

// Config seeds the simulated radio.
type Config struct {
	Model  string
	Serial string
	// TxFrequencies anchors the multi-point softpots and sizes the power
	// characterization table.
	TxFrequencies []uint32
	// RefOscSlope is Hz of carrier error per reference oscillator step.
	RefOscSlope float64
	// RefOscOffset is how far the stored reference oscillator value starts
	// from its ideal.
	RefOscOffset int32
	// ModBalanceOffset is how far each stored modulation balance point
	// starts from its ideal.
	ModBalanceOffset int32
	SupportsP25      bool
	// Unsolicited sends a status broadcast before every Nth reply when
	// positive.
	Unsolicited int
}

// DefaultConfig returns a UHF radio whose stored calibration is slightly
// off so alignments have work to do.
func DefaultConfig() Config {
	return Config{
		Model:            "H98QDF9PW6AN",
		Serial:           "426CSP0001",
		TxFrequencies:    []uint32{380075000, 400125000, 420125000, 440125000, 469975000},
		RefOscSlope:      0.6,
		RefOscOffset:     -40,
		ModBalanceOffset: 3,
		SupportsP25:      true,
	}
}

const (
	refOscIdeal      = 2100
	txPowerDefault   = 600
	lowToneDeviation = 2830.0
	// deviationSlope is the fractional high/low tone imbalance per
	// modulation balance step.
	deviationSlope = 0.02
	wattsPerStep   = 1.0 / 200
	rssiAtMinus50  = 200
)

type softpot struct {
	min, max  int32
	byteLen   int
	freqs     []uint32
	ideal     []int32
	persisted []int32
	current   []int32
}

func newSoftpot(min, max int32, byteLen int, freqs []uint32, ideal []int32, offset int32) *softpot {
	sp := &softpot{min: min, max: max, byteLen: byteLen, freqs: freqs, ideal: ideal}
	sp.persisted = make([]int32, len(ideal))
	for i, v := range ideal {
		sp.persisted[i] = v + offset
	}
	sp.current = append([]int32(nil), sp.persisted...)
	return sp
}

// point returns the index of the anchor nearest hz.
func (s *softpot) point(hz uint32) int {
	best, bestDist := 0, math.MaxFloat64
	for i, f := range s.freqs {
		if d := math.Abs(float64(f) - float64(hz)); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= len(s.current) {
		return 0
	}
	return best
}

// State is the physical condition of the simulated bench.
type State struct {
	mu  sync.Mutex
	cfg Config

	testMode   bool
	txHz       uint32
	rxHz       uint32
	bandwidth  xcmp.Bandwidth
	deviation  xcmp.TxDeviation
	txConfig   xcmp.TransmitConfig
	rxConfig   xcmp.ReceiveConfig
	rxEnabled  bool
	powerLevel xcmp.TxPowerLevel
	keyed      bool
	berFrames  int
	resets     int
	softpots   map[xcmp.SoftpotType]*softpot

	genHz      uint32
	genDBm     float64
	generating bool
	genP25     bool
	instRxHz   uint32
	instMode   int
}

// NewState seeds the calibration of a radio built from cfg.
func NewState(cfg Config) *State {
	if len(cfg.TxFrequencies) == 0 {
		cfg.TxFrequencies = DefaultConfig().TxFrequencies
	}
	freqs := cfg.TxFrequencies
	anchors := []uint32{freqs[0], freqs[len(freqs)/2], freqs[len(freqs)-1]}
	modIdeal := []int32{500, 512, 524}
	charPoints := make([]int32, 0, 2*len(freqs))
	for range freqs {
		charPoints = append(charPoints, 300, 1000)
	}

	s := &State{cfg: cfg, softpots: map[xcmp.SoftpotType]*softpot{
		xcmp.SoftpotRefOsc:     newSoftpot(0, 4095, 2, []uint32{freqs[len(freqs)-1]}, []int32{refOscIdeal}, cfg.RefOscOffset),
		xcmp.SoftpotModBalance: newSoftpot(0, 1023, 2, anchors, modIdeal, cfg.ModBalanceOffset),
		xcmp.SoftpotTxPower:    newSoftpot(0, 2047, 2, nil, []int32{txPowerDefault}, 0),
	}}
	s.softpots[xcmp.SoftpotTxPowerCharPoint] = newSoftpot(0, 2047, 2, nil, charPoints, 0)
	return s
}

// Config returns the seed configuration.
func (s *State) Config() Config { return s.cfg }

// Keyed reports whether the simulated transmitter is on.
func (s *State) Keyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyed
}

// TestMode reports whether the radio was put in service mode since its
// last reset.
func (s *State) TestMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.testMode
}

// Resets counts RADIO_RESET commands received.
func (s *State) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// Persisted returns the stored values of a softpot.
func (s *State) Persisted(t xcmp.SoftpotType) []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp, ok := s.softpots[t]; ok {
		return append([]int32(nil), sp.persisted...)
	}
	return nil
}

// Current returns the active values of a softpot.
func (s *State) Current(t xcmp.SoftpotType) []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp, ok := s.softpots[t]; ok {
		return append([]int32(nil), sp.current...)
	}
	return nil
}

// Ideal returns the values at which a softpot is perfectly aligned.
func (s *State) Ideal(t xcmp.SoftpotType) []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp, ok := s.softpots[t]; ok {
		return append([]int32(nil), sp.ideal...)
	}
	return nil
}

// carrierOnLocked reports whether the instrument analyzer is tuned to the
// keyed transmitter.
func (s *State) carrierOnLocked() bool {
	return s.keyed && absDiff(s.txHz, s.instRxHz) <= 12500
}

func (s *State) refOscErrorLocked() float64 {
	sp := s.softpots[xcmp.SoftpotRefOsc]
	i := sp.point(s.txHz)
	return float64(sp.current[i]-sp.ideal[i])*s.cfg.RefOscSlope + float64(int64(s.txHz)-int64(s.instRxHz))
}

func (s *State) deviationLocked() float64 {
	sp := s.softpots[xcmp.SoftpotModBalance]
	i := sp.point(s.txHz)
	switch s.txConfig {
	case xcmp.TxConfigModBalanceLowTone:
		return lowToneDeviation
	case xcmp.TxConfigModBalanceHighTone:
		return lowToneDeviation * (1 + float64(sp.current[i]-sp.ideal[i])*deviationSlope)
	case xcmp.TxConfigStandardToneTestPattern:
		return 2830
	default:
		if s.deviation == xcmp.TxDeviationNoModulation {
			return 0
		}
		return 1500
	}
}

func (s *State) powerLocked() float64 {
	return float64(s.softpots[xcmp.SoftpotTxPower].current[0]) * wattsPerStep
}

// rssiLocked is the raw receiver reading for the current generator state.
func (s *State) rssiLocked() uint8 {
	if !s.generating || s.genP25 || absDiff(s.genHz, s.rxHz) > 12500 {
		return 30
	}
	v := rssiAtMinus50 + 2*(s.genDBm+50)
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

// berSyncedLocked reports whether the receiver can lock onto the generated
// P25 pattern.
func (s *State) berSyncedLocked() bool {
	return s.generating && s.genP25 && absDiff(s.genHz, s.rxHz) <= 12500 &&
		s.rxConfig == xcmp.RxConfigStandardToneTestPattern
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
