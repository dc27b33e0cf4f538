package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestStripEscapeSequencesRemovesCSIAndOSC(t *testing.T) {
	input := "\x1b[31mred\x1b[0m text \x1b]0;title\x07done"
	got := StripEscapeSequences(input)
	want := "red text done"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestStripEscapeSequencesReplacesInvalidUTF8(t *testing.T) {
	input := "valid\xffbyte"
	got := StripEscapeSequences(input)
	if got == input {
		t.Fatalf("expected invalid byte to be replaced")
	}
}

func TestWriterAppendWritesValidNDJSONLine(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir)

	record := NewRecord("proj-1", "planner", "agent-1", "claude", DirectionAgent, EventStart)
	if err := writer.Append(record); err != nil {
		t.Fatalf("append: %v", err)
	}

	path := writer.PathFor("proj-1", "planner")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
	if filepath.Base(path) != "planner.ndjson" {
		t.Fatalf("expected planner.ndjson, got %q", filepath.Base(path))
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatal("expected one line")
	}
	var decoded Record
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if decoded.Event != EventStart {
		t.Fatalf("expected event start, got %q", decoded.Event)
	}
}

func TestWriterAppendConcurrentWritersDoNotCorrupt(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record := NewRecord("proj-1", "worker", "agent-1", "claude", DirectionAgent, EventStdoutLine).WithText("line")
			_ = writer.Append(record)
		}(i)
	}
	wg.Wait()

	file, err := os.Open(writer.PathFor("proj-1", "worker"))
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	count := 0
	for scanner.Scan() {
		var decoded Record
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", count, err)
		}
		count++
	}
	if count != n {
		t.Fatalf("expected %d lines, got %d", n, count)
	}
}

func TestEndRecordCarriesExitCodeAndDuration(t *testing.T) {
	record := NewRecord("proj-1", "planner", "agent-1", "claude", DirectionAgent, EventEnd).WithExitCode(0).WithDuration(120)
	if record.ExitCode == nil || *record.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %v", record.ExitCode)
	}
	if record.DurMS == nil || *record.DurMS != 120 {
		t.Fatalf("expected dur_ms 120, got %v", record.DurMS)
	}
}
