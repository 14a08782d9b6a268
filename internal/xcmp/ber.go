package xcmp

import "fmt"

const (
	// BERReportSize is the size of one frame report in RX_BER_SYNC_REPORT.
	BERReportSize = 5
	// BitsPerP25Frame is the number of payload bits in one P25 frame.
	BitsPerP25Frame = 3456
)

// BERReport is one integration report from the radio's BER engine.
type BERReport struct {
	Frame     uint8
	Sync      SyncStatus
	BitErrors uint32
}

// Synced reports whether the frame can be counted.
func (r BERReport) Synced() bool {
	return r.Sync == SyncSynced
}

// ParseBERReports splits a report payload into 5-byte records. A frame
// number of zero marks an unused slot and is dropped.
func ParseBERReports(data []byte) ([]BERReport, error) {
	if len(data)%BERReportSize != 0 {
		return nil, fmt.Errorf("%w: BER payload of %d bytes", ErrMisalignedResponse, len(data))
	}
	reports := make([]BERReport, 0, len(data)/BERReportSize)
	for i := 0; i < len(data); i += BERReportSize {
		r := BERReport{
			Frame:     data[i],
			Sync:      SyncStatus(data[i+1]),
			BitErrors: uint32(data[i+2])<<16 | uint32(data[i+3])<<8 | uint32(data[i+4]),
		}
		if r.Frame == 0 {
			continue
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// EncodeBERReports is the inverse of ParseBERReports for non-empty slots.
func EncodeBERReports(reports []BERReport) []byte {
	out := make([]byte, 0, len(reports)*BERReportSize)
	for _, r := range reports {
		e := r.BitErrors & 0xFFFFFF
		out = append(out, r.Frame, byte(r.Sync), byte(e>>16), byte(e>>8), byte(e))
	}
	return out
}

// BitErrorRate returns the error fraction over synced reports, each
// covering integrationFrames P25 frames. Reports without sync are excluded
// from numerator and denominator.
func BitErrorRate(data []byte, integrationFrames int) (float64, error) {
	if integrationFrames <= 0 {
		return 0, fmt.Errorf("integration frames must be positive, got %d", integrationFrames)
	}
	reports, err := ParseBERReports(data)
	if err != nil {
		return 0, err
	}

	var errs, bits uint64
	for _, r := range reports {
		if !r.Synced() {
			continue
		}
		errs += uint64(r.BitErrors)
		bits += uint64(BitsPerP25Frame * integrationFrames)
	}
	if bits == 0 {
		return 0, ErrNoSync
	}
	return float64(errs) / float64(bits), nil
}
