package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tessro/sandexec/internal/daemon"
	"github.com/tessro/sandexec/internal/executor"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
}

// writeStructured renders v as JSON or YAML. It returns false for the table
// format so the caller can print its own layout.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

// joinCommand rebuilds a command line from positional args.
func joinCommand(args []string) string {
	return strings.Join(args, " ")
}

// shortHandle abbreviates a handle for display.
func shortHandle(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

// toEvent converts a wire event back to an executor event.
func toEvent(ev *daemon.StreamEvent) executor.Event {
	return executor.Event{
		Kind:   executor.EventKind(ev.Type),
		Handle: executor.Handle(ev.Handle),
		Line:   ev.Line,
		Code:   ev.Code,
		Reason: ev.Reason,
		At:     ev.At,
	}
}

// formatEvent renders one event for attach output. Raw mode keeps the
// "stdout:line" form; withHandle prefixes the abbreviated handle.
func formatEvent(ev *daemon.StreamEvent, raw, withHandle bool) string {
	var line string
	if raw {
		line = toEvent(ev).String()
	} else {
		switch ev.Type {
		case daemon.EventStdout:
			line = ev.Line
		case daemon.EventStderr:
			line = stderrStyle.Render(ev.Line)
		case daemon.EventExit:
			line = exitStyle.Render(fmt.Sprintf("exited with code %d", ev.Code))
		default:
			line = errorStyle.Render("error: " + ev.Reason)
		}
	}
	if withHandle {
		return handleStyle.Render("["+shortHandle(ev.Handle)+"]") + " " + line
	}
	return line
}

// formatAge renders how long ago t was, truncated to seconds.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return time.Since(t).Truncate(time.Second).String()
}
