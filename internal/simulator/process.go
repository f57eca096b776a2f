package simulator

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/bodysim/internal/security"
)

// DefaultInterpreter runs plugins that do not name one.
const DefaultInterpreter = "python3"

// ProcessSimulator runs a plugin file as a child process.
type ProcessSimulator struct {
	Plugin Plugin
	// Dir is the directory holding plugin files.
	Dir string
}

// Name implements Simulator.
func (s *ProcessSimulator) Name() string { return s.Plugin.Name }

// Command returns the process the simulator would start.
func (s *ProcessSimulator) Command(ctx context.Context, trajectoryPath string, params Params) *exec.Cmd {
	interp := s.Plugin.Interpreter
	if interp == "" {
		interp = DefaultInterpreter
	}
	args := []string{
		filepath.Join(s.Dir, s.Plugin.File),
		trajectoryPath,
		strconv.Itoa(params.fps()),
	}
	args = append(args, params.Variables...)
	return exec.CommandContext(ctx, interp, args...)
}

// Run implements Simulator. The plugin file must resolve inside Dir, so a
// symlink cannot point it elsewhere. The child's combined output is logged.
func (s *ProcessSimulator) Run(ctx context.Context, trajectoryPath string, params Params) error {
	if _, err := security.ResolveWithin(s.Dir, s.Plugin.File); err != nil {
		return fmt.Errorf("%s: %w", s.Plugin.Name, err)
	}
	cmd := s.Command(ctx, trajectoryPath, params)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logf("%s: %s", s.Plugin.Name, strings.Join(cmd.Args, " "))
	err := cmd.Run()
	if text := strings.TrimSpace(out.String()); text != "" {
		logf("%s output: %s", s.Plugin.Name, text)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", s.Plugin.Name, err)
	}
	return nil
}
