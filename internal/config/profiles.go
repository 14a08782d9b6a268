package config

import (
	"sort"
	"time"

	"github.com/tturner/radiobench/internal/bench"
)

// TimingProfiles returns the named wait schedules a run can select.
func TimingProfiles() map[string]bench.Timing {
	standard := bench.DefaultTiming()
	return map[string]bench.Timing{
		"standard": standard,
		// fast halves the settle times for warmed-up radios on a known bench.
		"fast": {
			Settle:        standard.Settle / 2,
			Short:         standard.Short / 2,
			Carrier:       standard.Carrier / 2,
			AlignSettle:   standard.AlignSettle / 2,
			Deviation:     standard.Deviation / 2,
			ToneSettle:    standard.ToneSettle / 2,
			Cooldown:      standard.Cooldown / 2,
			PowerKeyup:    standard.PowerKeyup,
			RSSI:          standard.RSSI / 2,
			Generator:     standard.Generator / 2,
			BERKeyup:      standard.BERKeyup,
			TuningDelay:   time.Second,
			TuningTimeout: standard.TuningTimeout,
		},
		// none waits for nothing; only the simulator tolerates it.
		"none": {TuningTimeout: standard.TuningTimeout},
	}
}

// TimingProfileNames lists the profiles in sorted order.
func TimingProfileNames() []string {
	profiles := TimingProfiles()
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
