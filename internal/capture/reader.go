package capture

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"

	"github.com/tturner/radiobench/internal/xcmp"
)

// Record is one frame read back from a capture.
type Record struct {
	Timestamp time.Time
	Direction Direction
	Message   xcmp.Message
	Raw       []byte
	Err       error
}

// Read decodes every record in a pcap stream written by Recorder.
func Read(r io.Reader) ([]Record, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open pcap: %w", err)
	}
	if reader.LinkType() != LinkTypeXCMP {
		return nil, fmt.Errorf("unexpected link type %d", reader.LinkType())
	}

	packetSource := gopacket.NewPacketSource(reader, LayerTypeXCMP)
	var records []Record
	for packet := range packetSource.Packets() {
		if packet == nil {
			continue
		}
		rec := Record{
			Timestamp: packet.Metadata().Timestamp,
			Raw:       packet.Data(),
		}
		if layer, ok := packet.Layer(LayerTypeXCMP).(*XCMP); ok {
			rec.Direction = layer.Direction
			rec.Message = layer.Message
		} else if fail := packet.ErrorLayer(); fail != nil {
			rec.Err = fail.Error()
			if len(rec.Raw) > 0 {
				rec.Direction = Direction(rec.Raw[0])
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadFile decodes a capture file.
func ReadFile(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	defer file.Close()
	return Read(file)
}
