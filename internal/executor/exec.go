package executor

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Exec runs command to completion and returns its trimmed stdout.
// Nothing is registered and no events are emitted. A non-zero exit yields
// a *CommandError carrying the trimmed stderr, or "Command exited with
// code: N" when stderr is empty.
func (e *Executor) Exec(command string, sandboxed bool) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", &LaunchError{Command: command, Err: errEmptyCommand}
	}

	log := e.log.With("command", command, "sandboxed", sandboxed)
	cmd := e.command(command, sandboxed)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", &LaunchError{Command: command, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", &LaunchError{Command: command, Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		log.Warn("exec launch failed", "error", err)
		return "", &LaunchError{Command: command, Err: err}
	}

	// Both streams drain concurrently so a chatty stderr cannot stall
	// the child while stdout is being read.
	var outLines, errLines []string
	var g errgroup.Group
	g.Go(func() error {
		var err error
		outLines, err = readLines(stdout, e.maxLineBytes)
		return err
	})
	g.Go(func() error {
		var err error
		errLines, err = readLines(stderr, e.maxLineBytes)
		return err
	})
	readErr := g.Wait()
	waitErr := cmd.Wait()

	if readErr != nil {
		log.Warn("exec read failed", "error", readErr)
		return "", &IOError{Op: "read", Err: readErr}
	}
	code, err := exitStatus(waitErr)
	if err != nil {
		log.Error("exec wait failed", "error", err)
		return "", &IOError{Op: "wait", Err: err}
	}

	log.Debug("exec finished", "code", code)
	if code == 0 {
		return strings.TrimSpace(strings.Join(outLines, "\n")), nil
	}

	msg := strings.TrimSpace(strings.Join(errLines, "\n"))
	if msg == "" {
		msg = fmt.Sprintf("Command exited with code: %d", code)
	}
	return "", &CommandError{Code: code, Message: msg}
}

// readLines collects r line by line. On failure the remainder of r is
// discarded so the writer is never left blocked.
func readLines(r io.Reader, maxLineBytes int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLineBytes)), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return lines, err
	}
	return lines, nil
}
