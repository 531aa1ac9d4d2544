package cli

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestSimpleProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "Checking providers")

	progress.Start(3)
	progress.Update(2)
	progress.Finish()

	output := buf.String()
	for _, want := range []string{"Checking providers:", "2/3", "3/3"} {
		if !strings.Contains(output, want) {
			t.Errorf("output %q missing %q", output, want)
		}
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("Finish() should end the line")
	}
}

func TestSimpleProgress_Clamps(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "").(*SimpleProgress)

	progress.Start(4)
	progress.Update(10)
	if progress.current != 4 {
		t.Errorf("current = %d, want 4", progress.current)
	}
	progress.Update(-1)
	if progress.current != 0 {
		t.Errorf("current = %d, want 0", progress.current)
	}
	if !strings.Contains(buf.String(), "Progress:") {
		t.Error("default label not used")
	}
}

func TestSimpleProgress_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "x")

	progress.Start(0)
	progress.Update(0)
	progress.Finish()

	if strings.TrimSpace(buf.String()) != "" {
		t.Errorf("output = %q, want only a newline", buf.String())
	}
}

func TestSimpleProgress_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "x")

	progress.Start(100)
	progress.Error(fmt.Errorf("test error"))

	if output := buf.String(); !strings.Contains(output, "Error: test error") {
		t.Errorf("output = %q", output)
	}
}

func TestSimpleProgress_Concurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "x")
	progress.Start(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				progress.Update(int64(start*100 + j))
			}
		}(i)
	}
	wg.Wait()
	progress.Finish()

	if !strings.Contains(buf.String(), "1000/1000") {
		t.Error("expected final progress line")
	}
}
