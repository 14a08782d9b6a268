package capture

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/tturner/radiobench/internal/xcmp"
)

// Direction tells which side sent a recorded frame.
type Direction uint8

const (
	ToRadio   Direction = 0x00
	FromRadio Direction = 0x01
)

func (d Direction) String() string {
	switch d {
	case ToRadio:
		return "->"
	case FromRadio:
		return "<-"
	default:
		return fmt.Sprintf("dir(%d)", uint8(d))
	}
}

// LinkTypeXCMP is DLT_USER0. Each record is a one-byte direction pseudo
// header followed by one XCMP frame.
const LinkTypeXCMP = layers.LinkType(147)

// LayerTypeXCMP decodes capture records into XCMP layers.
var LayerTypeXCMP = gopacket.RegisterLayerType(2147, gopacket.LayerTypeMetadata{
	Name:    "XCMP",
	Decoder: gopacket.DecodeFunc(decodeXCMP),
})

// XCMP is a decoded capture record.
type XCMP struct {
	layers.BaseLayer
	Direction Direction
	Message   xcmp.Message
}

// LayerType returns LayerTypeXCMP.
func (x *XCMP) LayerType() gopacket.LayerType { return LayerTypeXCMP }

func decodeXCMP(data []byte, p gopacket.PacketBuilder) error {
	if len(data) < 1 {
		return fmt.Errorf("empty capture record")
	}
	msg, err := xcmp.Decode(data[1:])
	if err != nil {
		return err
	}
	p.AddLayer(&XCMP{
		BaseLayer: layers.BaseLayer{Contents: data},
		Direction: Direction(data[0]),
		Message:   msg,
	})
	return nil
}
