package tui

import (
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tessro/sandexec/internal/daemon"
)

type fakeClient struct {
	mu      sync.Mutex
	writes  []string
	stopped []string
	fetched []string
	procs   []daemon.ProcessInfo
	history map[string][]daemon.StreamEvent
	stopErr error
}

func (f *fakeClient) Connect() error    { return nil }
func (f *fakeClient) Close() error      { return nil }
func (f *fakeClient) IsConnected() bool { return true }

func (f *fakeClient) StreamEvents(handles []string) (<-chan daemon.EventResult, error) {
	return make(chan daemon.EventResult), nil
}

func (f *fakeClient) StopEventStream() {}

func (f *fakeClient) List() (*daemon.ProcessListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &daemon.ProcessListResponse{Processes: f.procs}, nil
}

func (f *fakeClient) Output(handle string, lines int) (*daemon.OutputResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, handle)
	return &daemon.OutputResponse{Handle: handle, Events: f.history[handle]}, nil
}

func (f *fakeClient) Write(handle, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, handle+"|"+text)
	return nil
}

func (f *fakeClient) Stop(handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, handle)
	return f.stopErr
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model, cmd
}

func newTestModel(t *testing.T, client *fakeClient) Model {
	t.Helper()
	m := New(client)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m, _ = update(t, m, processListMsg{Processes: []daemon.ProcessInfo{
		{Handle: "aaaa-1111", Command: "sleep 60", State: "running", LaunchedAt: time.Now()},
		{Handle: "bbbb-2222", Command: "cat", State: "running", LaunchedAt: time.Now()},
	}})
	return m
}

func TestModel_ViewBeforeReady(t *testing.T) {
	m := New(&fakeClient{})
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q, want Loading...", got)
	}
}

func TestModel_SelectionFollowsList(t *testing.T) {
	m := newTestModel(t, &fakeClient{})

	if got := m.output.Handle(); got != "aaaa-1111" {
		t.Fatalf("output handle = %q, want first process", got)
	}

	m, _ = update(t, m, runes("j"))
	if got := m.output.Handle(); got != "bbbb-2222" {
		t.Errorf("after down, output handle = %q", got)
	}

	m, _ = update(t, m, runes("k"))
	if got := m.output.Handle(); got != "aaaa-1111" {
		t.Errorf("after up, output handle = %q", got)
	}
}

func TestModel_WriteToStdin(t *testing.T) {
	client := &fakeClient{}
	m := newTestModel(t, client)

	m, _ = update(t, m, runes("i"))
	if m.focus != FocusInput {
		t.Fatalf("focus = %v, want FocusInput", m.focus)
	}

	m.inputLine.SetValue("hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected write command")
	}
	msg := cmd()
	res, ok := msg.(writeResultMsg)
	if !ok {
		t.Fatalf("cmd produced %T, want writeResultMsg", msg)
	}
	if res.Err != nil {
		t.Errorf("write error: %v", res.Err)
	}
	if len(client.writes) != 1 || client.writes[0] != "aaaa-1111|hello" {
		t.Errorf("writes = %v", client.writes)
	}
	if m.inputLine.Value() != "" {
		t.Errorf("input not cleared: %q", m.inputLine.Value())
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.focus != FocusOutput {
		t.Errorf("focus after esc = %v, want FocusOutput", m.focus)
	}
}

func TestModel_StopRequiresConfirmation(t *testing.T) {
	client := &fakeClient{}
	m := newTestModel(t, client)

	m, cmd := update(t, m, runes("x"))
	if cmd != nil {
		t.Fatal("stop should wait for confirmation")
	}
	if m.confirmStop != "aaaa-1111" {
		t.Fatalf("confirmStop = %q", m.confirmStop)
	}

	m, _ = update(t, m, runes("n"))
	if m.confirmStop != "" {
		t.Error("reject should clear confirmation")
	}

	m, _ = update(t, m, runes("x"))
	m, cmd = update(t, m, runes("y"))
	if cmd == nil {
		t.Fatal("expected stop command")
	}
	if _, ok := cmd().(stopResultMsg); !ok {
		t.Fatal("expected stopResultMsg")
	}
	if len(client.stopped) != 1 || client.stopped[0] != "aaaa-1111" {
		t.Errorf("stopped = %v", client.stopped)
	}
	if m.confirmStop != "" {
		t.Error("confirmation should clear after approve")
	}
}

func TestModel_StopErrorShown(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m, _ = update(t, m, stopResultMsg{Handle: "aaaa-1111", Err: errors.New("boom")})
	if m.err == nil {
		t.Fatal("expected error to be recorded")
	}
	m, _ = update(t, m, clearErrorMsg{})
	if m.err != nil {
		t.Error("error should clear")
	}
}

func TestModel_StreamEvents(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	ch := make(chan daemon.EventResult)
	m, _ = update(t, m, streamStartMsg{EventChan: ch})

	m, _ = update(t, m, streamEventMsg{Event: &daemon.StreamEvent{
		Type: daemon.EventStdout, Handle: "aaaa-1111", Line: "hi",
	}})
	if got := m.output.Lines("aaaa-1111"); got != 1 {
		t.Errorf("buffered lines = %d, want 1", got)
	}

	m, _ = update(t, m, streamEventMsg{Event: &daemon.StreamEvent{
		Type: daemon.EventExit, Handle: "aaaa-1111", Code: 3,
	}})
	code, ok := m.procList.ExitCode("aaaa-1111")
	if !ok || code != 3 {
		t.Errorf("exit code = %d, %v; want 3, true", code, ok)
	}
	if m.selectedRunning() != "" {
		t.Error("exited process should not accept input")
	}

	// An exited process stays listed after the daemon drops it.
	m, _ = update(t, m, processListMsg{Processes: []daemon.ProcessInfo{
		{Handle: "bbbb-2222", Command: "cat", State: "running"},
	}})
	if !m.procList.Contains("aaaa-1111") {
		t.Error("exited process should remain until dismissed")
	}

	m, _ = update(t, m, runes("d"))
	if m.procList.Contains("aaaa-1111") {
		t.Error("dismiss should remove exited process")
	}
	if m.output.Lines("aaaa-1111") != 0 {
		t.Error("dismiss should drop buffered output")
	}
}

func TestModel_UnknownHandleTriggersRefresh(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	ch := make(chan daemon.EventResult)
	m, _ = update(t, m, streamStartMsg{EventChan: ch})

	_, cmd := update(t, m, streamEventMsg{Event: &daemon.StreamEvent{
		Type: daemon.EventStdout, Handle: "cccc-3333", Line: "new",
	}})
	if cmd == nil {
		t.Fatal("expected follow-up commands")
	}
}

func TestModel_StreamLossReconnects(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m, cmd := update(t, m, streamEventMsg{Err: errors.New("closed")})
	if m.connState != ConnectionReconnecting {
		t.Errorf("connState = %v, want reconnecting", m.connState)
	}
	if cmd == nil {
		t.Error("expected reconnect command")
	}

	m.maxReconnects = 1
	m, _ = update(t, m, reconnectMsg{Err: errors.New("refused")})
	if m.connState != ConnectionDisconnected {
		t.Errorf("connState = %v, want disconnected", m.connState)
	}
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	_, cmd := update(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModel_BackfillsHistoryOnSelection(t *testing.T) {
	base := time.Now()
	client := &fakeClient{history: map[string][]daemon.StreamEvent{
		"bbbb-2222": {
			{Type: daemon.EventStdout, Handle: "bbbb-2222", Line: "old-1", At: base},
			{Type: daemon.EventStdout, Handle: "bbbb-2222", Line: "old-2", At: base.Add(time.Millisecond)},
		},
	}}
	m := newTestModel(t, client)

	// A live event arrives before the history is fetched.
	m, _ = update(t, m, streamEventMsg{Event: &daemon.StreamEvent{
		Type: daemon.EventStdout, Handle: "bbbb-2222", Line: "live", At: base.Add(time.Second),
	}})

	m, cmd := update(t, m, runes("j"))
	if cmd == nil {
		t.Fatal("expected history fetch on selection")
	}
	msg, ok := cmd().(outputMsg)
	if !ok {
		t.Fatalf("cmd produced %T, want outputMsg", msg)
	}
	m, _ = update(t, m, msg)

	if got := m.output.Lines("bbbb-2222"); got != 3 {
		t.Errorf("buffered lines = %d, want 3", got)
	}

	// Selecting the same process again does not refetch.
	m, _ = update(t, m, runes("k"))
	m, _ = update(t, m, runes("j"))
	count := 0
	for _, h := range client.fetched {
		if h == "bbbb-2222" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("fetched bbbb-2222 %d times, want 1", count)
	}
}
