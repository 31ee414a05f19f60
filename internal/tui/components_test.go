package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/tessro/sandexec/internal/daemon"
)

func TestProcessList_SelectionSurvivesRefresh(t *testing.T) {
	l := NewProcessList()
	l.SetProcesses([]daemon.ProcessInfo{{Handle: "a"}, {Handle: "b"}, {Handle: "c"}})
	l.MoveDown()
	l.MoveDown()
	if got := l.SelectedHandle(); got != "c" {
		t.Fatalf("selected = %q, want c", got)
	}

	l.SetProcesses([]daemon.ProcessInfo{{Handle: "c"}, {Handle: "d"}})
	if got := l.SelectedHandle(); got != "c" {
		t.Errorf("selected after refresh = %q, want c", got)
	}

	l.SetProcesses([]daemon.ProcessInfo{{Handle: "d"}})
	if got := l.SelectedHandle(); got != "d" {
		t.Errorf("selected after removal = %q, want d", got)
	}
}

func TestProcessList_Counts(t *testing.T) {
	l := NewProcessList()
	l.SetProcesses([]daemon.ProcessInfo{
		{Handle: "a", State: "running"},
		{Handle: "b", State: "running"},
	})
	l.MarkExited("a", 0)

	total, running := l.Counts()
	if total != 2 || running != 1 {
		t.Errorf("Counts() = %d, %d; want 2, 1", total, running)
	}
}

func TestProcessList_DismissOnlyExited(t *testing.T) {
	l := NewProcessList()
	l.SetProcesses([]daemon.ProcessInfo{{Handle: "a", State: "running"}})
	if l.DismissSelected() {
		t.Error("running process must not be dismissed")
	}
	l.MarkExited("a", 1)
	if !l.DismissSelected() {
		t.Error("exited process should be dismissed")
	}
	if l.Selected() != nil {
		t.Error("list should be empty")
	}
}

func TestProcessList_Navigation(t *testing.T) {
	l := NewProcessList()
	l.MoveDown()
	l.MoveUp()
	if l.Selected() != nil {
		t.Fatal("empty list should have no selection")
	}

	l.SetProcesses([]daemon.ProcessInfo{{Handle: "a"}, {Handle: "b"}, {Handle: "c"}})
	l.MoveToBottom()
	if got := l.SelectedHandle(); got != "c" {
		t.Errorf("bottom = %q", got)
	}
	l.MoveDown()
	if got := l.SelectedHandle(); got != "c" {
		t.Errorf("past bottom = %q", got)
	}
	l.MoveToTop()
	if got := l.SelectedHandle(); got != "a" {
		t.Errorf("top = %q", got)
	}
}

func TestOutputView_BuffersPerHandle(t *testing.T) {
	v := NewOutputView()
	v.SetSize(60, 20)
	v.SetProcess("a", "echo")

	v.Append(daemon.StreamEvent{Type: daemon.EventStdout, Handle: "a", Line: "one"})
	v.Append(daemon.StreamEvent{Type: daemon.EventStdout, Handle: "b", Line: "two"})

	if v.Lines("a") != 1 || v.Lines("b") != 1 {
		t.Fatalf("lines = %d, %d", v.Lines("a"), v.Lines("b"))
	}
	if !strings.Contains(v.View(), "one") {
		t.Error("view should show selected process output")
	}

	v.SetProcess("b", "echo")
	if !strings.Contains(v.View(), "two") {
		t.Error("view should switch to b's output")
	}

	v.Forget("b")
	if v.Lines("b") != 0 {
		t.Error("Forget should drop buffer")
	}
}

func TestOutputView_CapsBuffer(t *testing.T) {
	v := NewOutputView()
	for i := 0; i < maxBufferedLines+50; i++ {
		v.Append(daemon.StreamEvent{Type: daemon.EventStdout, Handle: "a", Line: "x"})
	}
	if got := v.Lines("a"); got != maxBufferedLines {
		t.Errorf("lines = %d, want %d", got, maxBufferedLines)
	}
}

func TestOutputView_EmptySelection(t *testing.T) {
	v := NewOutputView()
	v.SetSize(40, 10)
	if !strings.Contains(v.View(), "Select a process") {
		t.Error("expected placeholder")
	}
}

func TestInputLine_History(t *testing.T) {
	il := NewInputLine()

	il.AddToHistory("")
	if len(il.history) != 0 {
		t.Error("empty string should not be added to history")
	}

	il.AddToHistory("first")
	il.AddToHistory("second")
	il.AddToHistory("second")
	if len(il.history) != 2 {
		t.Fatalf("history length = %d, want 2", len(il.history))
	}

	il.SetValue("draft")
	if !il.HistoryUp() || il.Value() != "second" {
		t.Errorf("up = %q, want second", il.Value())
	}
	if !il.HistoryUp() || il.Value() != "first" {
		t.Errorf("up = %q, want first", il.Value())
	}
	if il.HistoryUp() {
		t.Error("up at oldest should not change input")
	}
	il.HistoryDown()
	if !il.HistoryDown() || il.Value() != "draft" {
		t.Errorf("down past newest = %q, want draft", il.Value())
	}
	if il.HistoryDown() {
		t.Error("down when not browsing should not change input")
	}
}

func TestInputLine_HistoryMaxSize(t *testing.T) {
	il := NewInputLine()
	for i := 0; i < maxHistorySize+10; i++ {
		il.AddToHistory(string(rune('a' + i%26)))
	}
	if len(il.history) > maxHistorySize {
		t.Errorf("history length = %d, should not exceed %d", len(il.history), maxHistorySize)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"hello", 1, "h"},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestOutputView_SeedKeepsNewerLiveEvents(t *testing.T) {
	v := NewOutputView()
	v.SetSize(80, 20)
	v.SetProcess("h", "cmd")

	base := time.Now()
	v.Append(daemon.StreamEvent{Type: daemon.EventStdout, Handle: "h", Line: "dup", At: base})
	v.Append(daemon.StreamEvent{Type: daemon.EventStdout, Handle: "h", Line: "new", At: base.Add(time.Second)})

	v.Seed("h", []daemon.StreamEvent{
		{Type: daemon.EventStdout, Handle: "h", Line: "first", At: base.Add(-time.Second)},
		{Type: daemon.EventStdout, Handle: "h", Line: "dup", At: base},
	})

	if got := v.Lines("h"); got != 3 {
		t.Errorf("Lines() = %d, want 3", got)
	}

	v.Seed("h", nil)
	if got := v.Lines("h"); got != 3 {
		t.Errorf("empty seed changed buffer: Lines() = %d", got)
	}
}
