// Package command fetches event payloads by running an external program.
// The program receives the event id as its last argument and must print the
// raw JSON payload on stdout.
package command

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Source runs Path with Args followed by the event id.
type Source struct {
	Path string
	Args []string
}

// FetchEvent runs the command and returns its stdout.
func (s *Source) FetchEvent(ctx context.Context, eventID string) ([]byte, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("command source: no program configured")
	}
	args := append(append([]string{}, s.Args...), eventID)
	cmd := exec.CommandContext(ctx, s.Path, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("command source %s failed: %s\n%s", s.Path, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("command source %s: %w", s.Path, err)
	}
	return out, nil
}

// ParseCommandLine splits a configured command line on whitespace into a Source.
func ParseCommandLine(line string) (*Source, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("command source: empty command line")
	}
	return &Source{Path: fields[0], Args: fields[1:]}, nil
}
