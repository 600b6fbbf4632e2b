package ssfpatch

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestBuildReportBlocks(t *testing.T) {
	t.Parallel()

	file := craneSave(t)
	r, err := BuildReport("rb_map_08", file, ReportOptions{IncludeBlocks: true, Contains: "Crane"})
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}

	if r.Format != "SSF1" || r.HeaderLength != 96 || r.PayloadKind != "binary" {
		t.Errorf("report = %+v", r)
	}
	if r.ExpectedTotalUncompressed != int32(r.ActualDecompressedBytes) {
		t.Errorf("expected %d, actual %d", r.ExpectedTotalUncompressed, r.ActualDecompressedBytes)
	}
	if len(r.Checksum) != checksumLen || len(r.PayloadDigest) != 64 {
		t.Errorf("checksum %q digest %q", r.Checksum, r.PayloadDigest)
	}

	wantBlocks := []BlockSummary{
		{Name: "session.meta", PayloadSize: len(`{"version":3}`), JSON: true},
		{Name: "infrastructure.request-system", PayloadSize: len(`{"requests":[{"Establish_Task_Build_Crane":{"isFinished":true}}]}`), JSON: true},
	}
	if len(r.Blocks) != len(wantBlocks) {
		t.Fatalf("blocks = %+v", r.Blocks)
	}
	for i := range wantBlocks {
		if r.Blocks[i] != wantBlocks[i] {
			t.Errorf("block %d = %+v, want %+v", i, r.Blocks[i], wantBlocks[i])
		}
	}

	if len(r.JSONFragments) == 0 {
		t.Fatal("no JSON fragments extracted from binary payload")
	}
	if len(r.Strings) == 0 {
		t.Error("no printable strings collected")
	}
}

func TestBuildReportJSONPayload(t *testing.T) {
	t.Parallel()

	file := testSave(t, 64, []byte(`  {"root":{"n":12345678901234567890}}`), 0)
	r, err := BuildReport("plain.json", file, ReportOptions{IncludeBlocks: true})
	if err != nil {
		t.Fatal(err)
	}
	if r.PayloadKind != "json" || r.Payload == nil {
		t.Fatalf("payload kind %q", r.PayloadKind)
	}
	if r.JSONFragments != nil || r.Strings != nil {
		t.Error("fragments collected for a JSON payload")
	}
	if len(r.Notes) == 0 || !strings.Contains(r.Notes[len(r.Notes)-1], "no SMBH block") {
		t.Errorf("missing block note: %v", r.Notes)
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "12345678901234567890") {
		t.Error("large number not preserved in report")
	}
	var back map[string]any
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if back["sourceFile"] != "plain.json" {
		t.Errorf("sourceFile = %v", back["sourceFile"])
	}
}

func TestBuildReportRejectsNonContainer(t *testing.T) {
	t.Parallel()

	if _, err := BuildReport("x", []byte("plain text, not a save"), ReportOptions{}); err == nil {
		t.Fatal("expected error")
	}
}
