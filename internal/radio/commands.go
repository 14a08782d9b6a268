package radio

import (
	"context"
	"fmt"
	"time"

	"github.com/tturner/radiobench/internal/xcmp"
)

const (
	transmitKeyup  = 0x03
	receiveDekey   = 0x11
	receiveEnable  = 0x01
	berReportBytes = 5 * xcmp.BERReportSize
)

func (r *Radio) command(ctx context.Context, op xcmp.Opcode, payload ...byte) (xcmp.Message, error) {
	resp, err := r.session.Send(ctx, xcmp.NewRequest(op, payload...))
	if err != nil {
		return resp, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil
}

// EnterServiceMode puts the radio in test mode.
func (r *Radio) EnterServiceMode(ctx context.Context) error {
	r.log.Info("XCMP: entering service mode")
	_, err := r.command(ctx, xcmp.OpEnterTestMode)
	return err
}

// Reset restarts the radio, dropping transient softpot values.
func (r *Radio) Reset(ctx context.Context) error {
	r.log.Info("XCMP: resetting radio")
	_, err := r.command(ctx, xcmp.OpRadioReset)
	return err
}

// GetStatus returns the data of one RADIO_STATUS field.
func (r *Radio) GetStatus(ctx context.Context, op xcmp.StatusOp) ([]byte, error) {
	resp, err := r.command(ctx, xcmp.OpRadioStatus, byte(op))
	if err != nil {
		return nil, err
	}
	if len(resp.Payload) < 1 {
		return nil, fmt.Errorf("%w: empty status reply", xcmp.ErrMalformedFrame)
	}
	return resp.Payload[1:], nil
}

// GetVersion returns the data of one VERSION_INFO field.
func (r *Radio) GetVersion(ctx context.Context, op xcmp.VersionOp) (string, error) {
	resp, err := r.command(ctx, xcmp.OpVersionInfo, byte(op))
	if err != nil {
		return "", err
	}
	data := resp.Payload
	if len(data) > 0 && data[0] == byte(op) {
		data = data[1:]
	}
	return trimNUL(data), nil
}

// GetRSSI returns the raw receiver signal strength reading.
func (r *Radio) GetRSSI(ctx context.Context) (int, error) {
	data, err := r.GetStatus(ctx, xcmp.StatusRSSI)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty RSSI", xcmp.ErrMalformedFrame)
	}
	return int(data[0]), nil
}

// SetTXFrequency tunes the transmitter.
func (r *Radio) SetTXFrequency(ctx context.Context, hz uint32, bw xcmp.Bandwidth, dev xcmp.TxDeviation) error {
	r.log.Verbose("XCMP: setting TX frequency to %d Hz", hz)
	payload := append(xcmp.EncodeCommandFrequency(hz), byte(bw), byte(dev))
	_, err := r.command(ctx, xcmp.OpTxFrequency, payload...)
	return err
}

// SetRXFrequency tunes the receiver.
func (r *Radio) SetRXFrequency(ctx context.Context, hz uint32, bw xcmp.Bandwidth, mod xcmp.RxModulation) error {
	r.log.Verbose("XCMP: setting RX frequency to %d Hz", hz)
	payload := append(xcmp.EncodeCommandFrequency(hz), byte(bw), byte(mod))
	_, err := r.command(ctx, xcmp.OpRxFrequency, payload...)
	return err
}

// SetTransmitConfig selects the transmit test source.
func (r *Radio) SetTransmitConfig(ctx context.Context, cfg xcmp.TransmitConfig) error {
	_, err := r.command(ctx, xcmp.OpTransmitConfig, byte(cfg))
	return err
}

// SetReceiveConfig selects the receive test pattern and enables the
// receiver.
func (r *Radio) SetReceiveConfig(ctx context.Context, cfg xcmp.ReceiveConfig) error {
	if _, err := r.command(ctx, xcmp.OpReceiveConfig, byte(cfg)); err != nil {
		return err
	}
	_, err := r.command(ctx, xcmp.OpReceive, receiveEnable)
	return err
}

// SetTransmitPower selects the power level index.
func (r *Radio) SetTransmitPower(ctx context.Context, level xcmp.TxPowerLevel) error {
	_, err := r.command(ctx, xcmp.OpTxPowerLevel, byte(level))
	return err
}

// Keyup starts transmitting.
func (r *Radio) Keyup(ctx context.Context) error {
	r.log.Verbose("XCMP: keying radio")
	_, err := r.command(ctx, xcmp.OpTransmit, transmitKeyup)
	return err
}

// Dekey stops transmitting.
func (r *Radio) Dekey(ctx context.Context) error {
	r.log.Verbose("XCMP: dekeying radio")
	_, err := r.command(ctx, xcmp.OpReceive, receiveDekey)
	return err
}

// GetP25BER integrates frames of the P25 1011 pattern and returns the bit
// error rate in percent.
func (r *Radio) GetP25BER(ctx context.Context, frames int) (float64, error) {
	if frames < 1 || frames > 0xFF {
		return 0, fmt.Errorf("BER frame count %d out of range", frames)
	}
	r.log.Verbose("XCMP: getting %d frames of P25 BER", frames)
	if _, err := r.command(ctx, xcmp.OpReceiveConfig, xcmp.P25Pattern1011, byte(xcmp.RxModulationC4FM)); err != nil {
		return 0, err
	}
	if err := sleep(ctx, r.berTiming.PatternSettle); err != nil {
		return 0, err
	}
	if _, err := r.command(ctx, xcmp.OpRxBerControl, byte(xcmp.BerEnableContinuous), byte(frames)); err != nil {
		return 0, err
	}
	if err := sleep(ctx, r.berTiming.PerFrame*time.Duration(frames)); err != nil {
		return 0, err
	}
	resp, err := r.command(ctx, xcmp.OpRxBerSyncReport)
	if err != nil {
		return 0, err
	}
	data := resp.Payload
	if len(data) > berReportBytes {
		data = data[:berReportBytes]
	}
	rate, err := xcmp.BitErrorRate(data, frames)
	if err != nil {
		return 0, err
	}
	return rate * 100, nil
}

// TxPowerPoints returns the transmit power characterization points.
func (r *Radio) TxPowerPoints(ctx context.Context) ([]int32, error) {
	raw, err := r.ReadAllSoftpot(ctx, xcmp.SoftpotTxPowerCharPoint, 2)
	if err != nil {
		return nil, err
	}
	points := make([]int32, len(raw))
	for i, b := range raw {
		if points[i], err = xcmp.BytesToValue(b); err != nil {
			return nil, err
		}
	}
	return points, nil
}
