package monitoring

import (
	"sync"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestWarnfPrefix(t *testing.T) {
	rec, restore := Capture()
	defer restore()

	Warnf("%d rays clamped", 4)

	lines := rec.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0] != "WARNING: 4 rays clamped" {
		t.Errorf("unexpected line %q", lines[0])
	}
}

func TestCaptureRestores(t *testing.T) {
	var outer int
	SetLogger(func(string, ...interface{}) { outer++ })
	defer SetLogger(nil)

	rec, restore := Capture()
	Logf("inside\n")
	restore()
	Logf("outside")

	if !rec.Contains("inside") || rec.Contains("outside") {
		t.Errorf("recorder saw %v", rec.Lines())
	}
	if outer != 1 {
		t.Errorf("expected previous logger to receive 1 line, got %d", outer)
	}
}

func TestRecorderConcurrent(t *testing.T) {
	var rec Recorder
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec.Logf("worker %d", i)
		}(i)
	}
	wg.Wait()
	if got := len(rec.Lines()); got != 8 {
		t.Errorf("expected 8 lines, got %d", got)
	}
}
