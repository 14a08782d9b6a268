package xcmp

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcode identifies an XCMP command.
type Opcode uint16

const (
	OpSoftpot         Opcode = 0x01
	OpTransmitConfig  Opcode = 0x02
	OpReceiveConfig   Opcode = 0x03
	OpTransmit        Opcode = 0x04
	OpReceive         Opcode = 0x05
	OpTxPowerLevel    Opcode = 0x06
	OpPreemphDeemph   Opcode = 0x07
	OpSquelchControl  Opcode = 0x08
	OpVolumeControl   Opcode = 0x09
	OpRxFrequency     Opcode = 0x0A
	OpTxFrequency     Opcode = 0x0B
	OpEnterTestMode   Opcode = 0x0C
	OpRadioReset      Opcode = 0x0D
	OpRadioStatus     Opcode = 0x0E
	OpVersionInfo     Opcode = 0x0F
	OpModelNumber     Opcode = 0x10
	OpSerialNumber    Opcode = 0x11
	OpReadUUID        Opcode = 0x12
	OpRxBerControl    Opcode = 0x16
	OpRxBerSyncReport Opcode = 0x17
	OpAFCControl      Opcode = 0x1C
	OpAttenControl    Opcode = 0x1E
	OpISHRead         Opcode = 0x100
	OpEnterBootMode   Opcode = 0x200
)

var opcodeNames = map[Opcode]string{
	OpSoftpot:         "SOFTPOT",
	OpTransmitConfig:  "TRANSMIT_CONFIG",
	OpReceiveConfig:   "RECEIVE_CONFIG",
	OpTransmit:        "TRANSMIT",
	OpReceive:         "RECEIVE",
	OpTxPowerLevel:    "TX_POWER_LEVEL_INDEX",
	OpPreemphDeemph:   "PREEMPH_DEEMPH",
	OpSquelchControl:  "SQUELCH_CONTROL",
	OpVolumeControl:   "VOLUME_CONTROL",
	OpRxFrequency:     "RX_FREQUENCY",
	OpTxFrequency:     "TX_FREQUENCY",
	OpEnterTestMode:   "ENTER_TEST_MODE",
	OpRadioReset:      "RADIO_RESET",
	OpRadioStatus:     "RADIO_STATUS",
	OpVersionInfo:     "VERSION_INFO",
	OpModelNumber:     "MODEL_NUMBER",
	OpSerialNumber:    "SERIAL_NUMBER",
	OpReadUUID:        "READ_UUID",
	OpRxBerControl:    "RX_BER_CONTROL",
	OpRxBerSyncReport: "RX_BER_SYNC_REPORT",
	OpAFCControl:      "AFC_CONTROL",
	OpAttenControl:    "ATTEN_CONTROL",
	OpISHRead:         "ISH_READ",
	OpEnterBootMode:   "ENTER_BOOT_MODE",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("OPCODE_0x%03X", uint16(o))
}

// ParseOpcode resolves an opcode by name, case insensitive, or by numeric
// value such as "0x0E".
func ParseOpcode(s string) (Opcode, error) {
	for op, name := range opcodeNames {
		if strings.EqualFold(name, s) {
			return op, nil
		}
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil || v > MaxOpcode {
		return 0, fmt.Errorf("unknown opcode %q", s)
	}
	return Opcode(v), nil
}

// Result is the status byte carried by every response.
type Result uint8

const (
	ResultSuccess                 Result = 0x00
	ResultFailure                 Result = 0x01
	ResultIncorrectMode           Result = 0x02
	ResultOpcodeNotSupported      Result = 0x03
	ResultInvalidParameter        Result = 0x04
	ResultReplyTooBig             Result = 0x05
	ResultSecurityLocked          Result = 0x06
	ResultFactoryInfoMaxTypes     Result = 0x08
	ResultSoftpotOpNotSupported   Result = 0x40
	ResultSoftpotTypeNotSupported Result = 0x41
	ResultSoftpotValueOutOfRange  Result = 0x42
	ResultFlashWriteFailure       Result = 0x80
	ResultISHItemNotFound         Result = 0x81
	ResultISHOffsetOutOfRange     Result = 0x82
	ResultISHInsufficientSpace    Result = 0x83
	ResultISHPartitionNotExist    Result = 0x84
	ResultISHPartitionReadOnly    Result = 0x85
	ResultISHReorgNeeded          Result = 0x86
)

var resultNames = map[Result]string{
	ResultSuccess:                 "SUCCESS",
	ResultFailure:                 "FAILURE",
	ResultIncorrectMode:           "INCORRECT_MODE",
	ResultOpcodeNotSupported:      "OPCODE_NOT_SUPPORTED",
	ResultInvalidParameter:        "INVALID_PARAMETER",
	ResultReplyTooBig:             "REPLY_TOO_BIG",
	ResultSecurityLocked:          "SECURITY_LOCKED",
	ResultFactoryInfoMaxTypes:     "FACTORY_INFO_MAX_TYPES",
	ResultSoftpotOpNotSupported:   "SOFTPOT_OP_NOT_SUPPORTED",
	ResultSoftpotTypeNotSupported: "SOFTPOT_TYPE_NOT_SUPPORTED",
	ResultSoftpotValueOutOfRange:  "SOFTPOT_VALUE_OUT_OF_RANGE",
	ResultFlashWriteFailure:       "FLASH_WRITE_FAILURE",
	ResultISHItemNotFound:         "ISH_ITEM_NOT_FOUND",
	ResultISHOffsetOutOfRange:     "ISH_OFFSET_OUT_OF_RANGE",
	ResultISHInsufficientSpace:    "ISH_INSUFFICIENT_SPACE",
	ResultISHPartitionNotExist:    "ISH_PARTITION_NOT_EXIST",
	ResultISHPartitionReadOnly:    "ISH_PARTITION_READ_ONLY",
	ResultISHReorgNeeded:          "ISH_REORG_NEEDED",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RESULT_0x%02X", uint8(r))
}

// SoftpotOp is the first byte of a softpot payload.
type SoftpotOp uint8

const (
	SoftpotRead        SoftpotOp = 0x00
	SoftpotWrite       SoftpotOp = 0x01
	SoftpotUpdate      SoftpotOp = 0x02
	SoftpotReadAll     SoftpotOp = 0x03
	SoftpotWriteAll    SoftpotOp = 0x04
	SoftpotAutotune    SoftpotOp = 0x05
	SoftpotReadMin     SoftpotOp = 0x06
	SoftpotReadMax     SoftpotOp = 0x07
	SoftpotReadAllFreq SoftpotOp = 0x08
)

func (o SoftpotOp) String() string {
	switch o {
	case SoftpotRead:
		return "READ"
	case SoftpotWrite:
		return "WRITE"
	case SoftpotUpdate:
		return "UPDATE"
	case SoftpotReadAll:
		return "READ_ALL"
	case SoftpotWriteAll:
		return "WRITE_ALL"
	case SoftpotAutotune:
		return "AUTOTUNE"
	case SoftpotReadMin:
		return "READ_MIN"
	case SoftpotReadMax:
		return "READ_MAX"
	case SoftpotReadAllFreq:
		return "READ_ALL_FREQ"
	default:
		return fmt.Sprintf("SOFTPOT_OP_0x%02X", uint8(o))
	}
}

// SoftpotType identifies a device calibration parameter.
type SoftpotType uint8

const (
	SoftpotRefOsc           SoftpotType = 0x00
	SoftpotTxPower          SoftpotType = 0x01
	SoftpotModBalance       SoftpotType = 0x02
	SoftpotFrontendFilt1    SoftpotType = 0x03
	SoftpotCurrentLimit     SoftpotType = 0x04
	SoftpotModLimit         SoftpotType = 0x05
	SoftpotTempComp         SoftpotType = 0x06
	SoftpotTxPowerChar      SoftpotType = 0x07
	SoftpotBattCal          SoftpotType = 0x08
	SoftpotRFPABias1        SoftpotType = 0x09
	SoftpotRFPABias2        SoftpotType = 0x0A
	SoftpotRFPABias3        SoftpotType = 0x0B
	SoftpotRFPABias4        SoftpotType = 0x0C
	SoftpotFrontendFilt2    SoftpotType = 0x0D
	SoftpotFrontendFilt3    SoftpotType = 0x0E
	SoftpotRFPAGainCal      SoftpotType = 0x0F
	SoftpotRFPAGainCalPoint SoftpotType = 0x10
	SoftpotTxPowerCharPoint SoftpotType = 0x11
	SoftpotIntMicGain       SoftpotType = 0x12
	SoftpotExtMicGain       SoftpotType = 0x13
	SoftpotTxIQBal          SoftpotType = 0x14
	SoftpotMaxTunedPwr      SoftpotType = 0x15
	SoftpotHPDRSSIComp      SoftpotType = 0x16
	SoftpotHPDRFPABias1     SoftpotType = 0x17
	SoftpotHPDRFPABias2     SoftpotType = 0x18
	SoftpotHPDRFPABias3     SoftpotType = 0x19
	SoftpotHPDRFPABias4     SoftpotType = 0x1A
	SoftpotHPDCurrentLimit  SoftpotType = 0x1B
	SoftpotHPDTxPower       SoftpotType = 0x1C
	SoftpotHPDPhaseComp     SoftpotType = 0x1D
	SoftpotHPDAmpComp       SoftpotType = 0x1E
	SoftpotRxAttComp        SoftpotType = 0x1F
	SoftpotFrontEndGain     SoftpotType = 0x20
	SoftpotStepAtten        SoftpotType = 0x21
	SoftpotVolume           SoftpotType = 0x22
	SoftpotPwrCtrlAttOff    SoftpotType = 0x23
	SoftpotDACn             SoftpotType = 0x24
	SoftpotIntTempADC       SoftpotType = 0x25
	SoftpotBattVoltADC      SoftpotType = 0x26
	SoftpotPAVoltLimit      SoftpotType = 0x27
	SoftpotPAMaxIset        SoftpotType = 0x28
	SoftpotPwrCtrlBattParam SoftpotType = 0x29
	SoftpotBattVoltCutSlope SoftpotType = 0x2A
	SoftpotLowPortMod       SoftpotType = 0x2B
	SoftpotPASatRef         SoftpotType = 0x2C
	SoftpotSpurSetting      SoftpotType = 0x2D
	SoftpotIntRDAC          SoftpotType = 0x2E
	SoftpotRDACPwrChar      SoftpotType = 0x2F
)

var softpotNames = map[SoftpotType]string{
	SoftpotRefOsc:           "RefOsc",
	SoftpotTxPower:          "TxPower",
	SoftpotModBalance:       "ModBalance",
	SoftpotFrontendFilt1:    "FrontendFilt1",
	SoftpotCurrentLimit:     "CurrentLimit",
	SoftpotModLimit:         "ModLimit",
	SoftpotTempComp:         "TempComp",
	SoftpotTxPowerChar:      "TxPowerChar",
	SoftpotBattCal:          "BattCal",
	SoftpotRFPABias1:        "RFPABias1",
	SoftpotRFPABias2:        "RFPABias2",
	SoftpotRFPABias3:        "RFPABias3",
	SoftpotRFPABias4:        "RFPABias4",
	SoftpotFrontendFilt2:    "FrontendFilt2",
	SoftpotFrontendFilt3:    "FrontendFilt3",
	SoftpotRFPAGainCal:      "RFPAGainCal",
	SoftpotRFPAGainCalPoint: "RFPAGainCalPoint",
	SoftpotTxPowerCharPoint: "TxPowerCharPoint",
	SoftpotIntMicGain:       "IntMicGain",
	SoftpotExtMicGain:       "ExtMicGain",
	SoftpotTxIQBal:          "TxIQBal",
	SoftpotMaxTunedPwr:      "MaxTunedPwr",
	SoftpotHPDRSSIComp:      "HPDRSSIComp",
	SoftpotHPDRFPABias1:     "HPDRFPABias1",
	SoftpotHPDRFPABias2:     "HPDRFPABias2",
	SoftpotHPDRFPABias3:     "HPDRFPABias3",
	SoftpotHPDRFPABias4:     "HPDRFPABias4",
	SoftpotHPDCurrentLimit:  "HPDCurrentLimit",
	SoftpotHPDTxPower:       "HPDTxPower",
	SoftpotHPDPhaseComp:     "HPDPhaseComp",
	SoftpotHPDAmpComp:       "HPDAmpComp",
	SoftpotRxAttComp:        "RxAttComp",
	SoftpotFrontEndGain:     "FrontEndGain",
	SoftpotStepAtten:        "StepAtten",
	SoftpotVolume:           "Volume",
	SoftpotPwrCtrlAttOff:    "PwrCtrlAttOff",
	SoftpotDACn:             "DACn",
	SoftpotIntTempADC:       "IntTempADC",
	SoftpotBattVoltADC:      "BattVoltADC",
	SoftpotPAVoltLimit:      "PAVoltLimit",
	SoftpotPAMaxIset:        "PAMaxIset",
	SoftpotPwrCtrlBattParam: "PwrCtrlBattParam",
	SoftpotBattVoltCutSlope: "BattVoltCutSlope",
	SoftpotLowPortMod:       "LowPortMod",
	SoftpotPASatRef:         "PASatRef",
	SoftpotSpurSetting:      "SpurSetting",
	SoftpotIntRDAC:          "IntRDAC",
	SoftpotRDACPwrChar:      "RDACPwrChar",
}

func (s SoftpotType) String() string {
	if name, ok := softpotNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Softpot0x%02X", uint8(s))
}

// ParseSoftpotType resolves a softpot by name (case sensitive) or by
// numeric value such as "0x02".
func ParseSoftpotType(s string) (SoftpotType, error) {
	for t, name := range softpotNames {
		if name == s {
			return t, nil
		}
	}
	var v uint8
	if _, err := fmt.Sscanf(s, "0x%x", &v); err == nil {
		return SoftpotType(v), nil
	}
	if _, err := fmt.Sscanf(s, "%d", &v); err == nil {
		return SoftpotType(v), nil
	}
	return 0, fmt.Errorf("unknown softpot %q", s)
}

// StatusOp selects the RADIO_STATUS field.
type StatusOp uint8

const (
	StatusRSSI         StatusOp = 0x02
	StatusBatteryLevel StatusOp = 0x03
	StatusLowBattery   StatusOp = 0x04
	StatusModelNumber  StatusOp = 0x07
	StatusSerialNumber StatusOp = 0x08
	StatusESN          StatusOp = 0x09
	StatusRadioID      StatusOp = 0x0E
	StatusRFPATemp     StatusOp = 0x1D
)

// VersionOp selects the VERSION_INFO field.
type VersionOp uint8

const (
	VersionHostSoftware VersionOp = 0x00
	VersionDSPSoftware  VersionOp = 0x10
	VersionUCMSoftware  VersionOp = 0x20
	VersionMACESoftware VersionOp = 0x23
	VersionBootloader   VersionOp = 0x30
	VersionTuning       VersionOp = 0x40
	VersionCP           VersionOp = 0x42
	VersionRFBand       VersionOp = 0x63
	VersionRFPowerLevel VersionOp = 0x65
)

// BerControl is the first RX_BER_CONTROL parameter.
type BerControl uint8

const (
	BerDisable          BerControl = 0x00
	BerEnableSingle     BerControl = 0x01
	BerEnableContinuous BerControl = 0x02
)

// Bandwidth is the channel bandwidth code.
type Bandwidth uint8

const (
	Bandwidth6p25kHz Bandwidth = 0x16
	Bandwidth12p5kHz Bandwidth = 0x32
	Bandwidth25kHz   Bandwidth = 0x64
)

// TxDeviation selects modulated or unmodulated carrier.
type TxDeviation uint8

const (
	TxDeviationDefault      TxDeviation = 0x00
	TxDeviationNoModulation TxDeviation = 0x01
)

// TxPowerLevel is the TX_POWER_LEVEL_INDEX argument.
type TxPowerLevel uint8

const (
	TxPowerHigh   TxPowerLevel = 0x00
	TxPowerMid    TxPowerLevel = 0x01
	TxPowerLow    TxPowerLevel = 0x02
	TxPowerLowNew TxPowerLevel = 0x03
)

// Microphone selects the audio source used while keyed.
type Microphone uint8

const (
	MicInternalUnmuted Microphone = 0x00
	MicInternalMuted   Microphone = 0x01
	MicExternalUnmuted Microphone = 0x02
	MicExternalMuted   Microphone = 0x03
)

// RxModulation is the receiver demodulation mode.
type RxModulation uint8

const (
	RxModulationC4FM      RxModulation = 0x00
	RxModulationCQPSK     RxModulation = 0x01
	RxModulationWidePulse RxModulation = 0x02
)

// TransmitConfig is the TRANSMIT_CONFIG test source.
type TransmitConfig uint8

const (
	TxConfigPaBiasTune                  TransmitConfig = 1
	TxConfigAnalogCsq                   TransmitConfig = 16
	TxConfigModBalanceLowTone           TransmitConfig = 17
	TxConfigModBalanceHighTone          TransmitConfig = 18
	TxConfigAnalogTpl                   TransmitConfig = 19
	TxConfigAnalogDpl                   TransmitConfig = 20
	TxConfigDigitalVoice                TransmitConfig = 32
	TxConfigStandardToneTestPattern     TransmitConfig = 33
	TxConfigStandardTxTestPattern       TransmitConfig = 37
	TxConfigC4FMModulationFidelity      TransmitConfig = 38
	TxConfigPhase2Digital1031TxTestPatt TransmitConfig = 112
)

// ReceiveConfig is the RECEIVE_CONFIG test source.
type ReceiveConfig uint8

const (
	RxConfigAnalogCsq               ReceiveConfig = 16
	RxConfigAnalogTpl               ReceiveConfig = 19
	RxConfigAnalogDpl               ReceiveConfig = 20
	RxConfigDigitalVoice            ReceiveConfig = 32
	RxConfigStandardToneTestPattern ReceiveConfig = 33
	RxConfigInterferenceTestPattern ReceiveConfig = 37
	RxConfigDigitalTestPattern1031  ReceiveConfig = 112
)

// SyncStatus is the per-frame sync state in a BER report.
type SyncStatus uint8

const (
	SyncSynced SyncStatus = 0x00
	SyncLost   SyncStatus = 0x01
	SyncNone   SyncStatus = 0x02
)

// P25Pattern1011 selects the standard 1011 Hz P25 tone test pattern.
const P25Pattern1011 = 0x21
