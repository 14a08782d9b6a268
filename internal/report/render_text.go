package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	tableInner = 101
	border     = "~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~=~="
)

// Columns is the header of the result table.
var Columns = [6]string{"Measurement Type", "Value", "Target", "Limits", "Frequency", "Result"}

var labels = map[ResultType]string{
	RefOsc:             "Reference Oscillator",
	FreqError:          "Frequency Error",
	TxPower:            "Transmit Power",
	TxDeviation:        "Transmit Deviation",
	TxDeviationBalance: "Deviation Balance",
	BitErrorRate:       "Bit Error Rate (BER)",
	RSSI:               "Received Signal Strength",
}

// Label is the human readable name of a result type.
func (t ResultType) Label() string {
	if l, ok := labels[t]; ok {
		return l
	}
	return t.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Tolerance renders the limits relative to the target: "±x" when
// symmetric, "+u/+l" when the lower limit is above the target and "+u/-l"
// otherwise.
func (r TestResult) Tolerance() string {
	below := r.Target - r.LowerLimit
	above := r.UpperLimit - r.Target
	if below == above {
		return "±" + num(above)
	}
	if below < 0 {
		return "+" + num(above) + "/+" + num(-below)
	}
	return "+" + num(above) + "/-" + num(below)
}

// FrequencyString renders the frequency in MHz.
func (r TestResult) FrequencyString() string {
	if r.Frequency < 0 {
		return "N/A"
	}
	return num(float64(r.Frequency)/1e6) + " MHz"
}

// Row returns the table cells for the result, in Columns order.
func (r TestResult) Row() [6]string {
	tol := r.Tolerance()
	var value, target, limits string
	switch r.Type {
	case RefOsc, FreqError:
		value, target, limits = fmt.Sprintf("%.2f Hz", r.Measured), fmt.Sprintf("%.2f Hz", r.Target), tol+" Hz"
	case TxPower:
		value, target, limits = fmt.Sprintf("%.2f W", r.Measured), "N/A", tol+" W"
		if r.Target > 0 {
			target = fmt.Sprintf("%.2f W", r.Target)
		}
	case TxDeviation:
		value, target, limits = fmt.Sprintf("%.3f Hz", r.Measured), fmt.Sprintf("%.3f Hz", r.Target), tol+" Hz"
	case TxDeviationBalance, BitErrorRate:
		value, target, limits = fmt.Sprintf("%.2f%%", r.Measured), fmt.Sprintf("%.2f%%", r.Target), tol+" %"
	default:
		value, target, limits = num(r.Measured), num(r.Target), tol
	}
	return [6]string{r.Type.Label(), value, target, limits, r.FrequencyString(), string(r.Verdict())}
}

// Row returns the table cells for an error.
func (e TestError) Row() [6]string {
	return [6]string{e.Type.Label(), "", "", "", "", string(Error)}
}

func boxLine(b *strings.Builder, format string, args ...any) {
	content := fmt.Sprintf(format, args...)
	fmt.Fprintf(b, "| %-*s|\n", tableInner, content)
}

func tableRow(b *strings.Builder, c [6]string) {
	boxLine(b, "%-34s%-12s%-12s%-12s%-16s%-8s", c[0], c[1], c[2], c[3], c[4], c[5])
}

// Title is the report heading for its type.
func (d Document) Title() string {
	if d.Type == TypeAlignment {
		return "radiobench Auto-Align Report"
	}
	return "radiobench Test Report"
}

// Text renders the fixed-width ASCII report.
func (d Document) Text() string {
	var b strings.Builder
	model := d.Radio.Model
	if model == "" {
		model = "No Radio"
	}

	b.WriteString(border + "\n")
	boxLine(&b, "%s", d.Title())
	boxLine(&b, "")
	boxLine(&b, "Radio: %-23s Serial: %s", model, d.Radio.Serial)
	if d.Instrument != "" {
		boxLine(&b, "Instrument: %s", d.Instrument)
	}
	b.WriteString(border + "\n")
	boxLine(&b, "Report Start: %-19s | End: %-19s | Duration: %s", formatTime(d), formatEnd(d), d.Duration)
	b.WriteString(border + "\n")
	tableRow(&b, Columns)
	b.WriteString(border + "\n")
	for _, r := range d.Results {
		tableRow(&b, r.Row())
	}
	for _, e := range d.Errors {
		tableRow(&b, e.Row())
	}
	b.WriteString(border + "\n")
	boxLine(&b, "Overall Result: %s", d.Verdict)
	for _, e := range d.Errors {
		boxLine(&b, "Error (%s): %s", e.Type, e.Message)
	}
	if d.Comments != "" {
		boxLine(&b, "Comments: %s", d.Comments)
	}
	b.WriteString(border + "\n")
	return b.String()
}

func formatTime(d Document) string {
	if d.Start.IsZero() {
		return "-"
	}
	return d.Start.Format(tableTime)
}

func formatEnd(d Document) string {
	if d.End.IsZero() {
		return "-"
	}
	return d.End.Format(tableTime)
}

// WriteText writes the ASCII report to w.
func WriteText(w io.Writer, d Document) error {
	if _, err := io.WriteString(w, d.Text()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
