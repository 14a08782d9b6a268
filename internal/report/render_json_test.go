package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleDocument() Document {
	r := newFixedReport(TypeTest)
	r.Begin(RadioInfo{Model: "H98QDF9PW6AN", Serial: "426CSP0001"}, "Simulated Test Set")
	r.AddResult(RefOsc, 12.5, 0, -50, 50, 469975000)
	r.AddResult(RSSI, 200, 150, 140, 255, 420125000)
	r.Finish()
	return r.Snapshot()
}

func TestWriteJSON(t *testing.T) {
	d := sampleDocument()
	var buf bytes.Buffer
	if err := WriteJSON(&buf, d); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var decoded Document
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded.Type != TypeTest || decoded.Verdict != Pass {
		t.Errorf("type %s verdict %s", decoded.Type, decoded.Verdict)
	}
	if len(decoded.Results) != 2 || decoded.Results[1].Type != RSSI {
		t.Fatalf("results = %+v", decoded.Results)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"type": "REF_OSC"`)) {
		t.Error("result type should serialize by name")
	}
	if decoded.Duration != "00:00:03" {
		t.Errorf("duration = %q", decoded.Duration)
	}
}

func TestWriteJSONFile(t *testing.T) {
	d := sampleDocument()
	path := filepath.Join(t.TempDir(), "reports", FileName(d)+".json")
	if err := WriteJSONFile(path, d); err != nil {
		t.Fatalf("WriteJSONFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	var decoded Document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Output file is not valid JSON: %v", err)
	}
	if decoded.Radio.Serial != "426CSP0001" {
		t.Errorf("serial = %q", decoded.Radio.Serial)
	}
}

func TestFileName(t *testing.T) {
	d := Document{Type: TypeAlignment, Radio: RadioInfo{Serial: "ABC"}, Start: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)}
	if got := FileName(d); got != "ABC_ALIGNMENT_20260304T050607Z" {
		t.Fatalf("FileName = %q", got)
	}
}
