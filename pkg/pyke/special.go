package pyke

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// CommandRunner executes an external command and reports back its exit
// code and captured output. It is the narrow interface the spec's
// "opaque process-runner collaborator" (§4.8) takes in this
// implementation, grounded directly in
// original_source/pyke/special.py's run_cmd (a thin wrapper over
// subprocess.Popen) reimplemented with os/exec, the idiomatic Go
// equivalent. Defined as an interface so check_command/command/
// general_command stay testable without spawning a real process.
type CommandRunner interface {
	Run(ctx context.Context, cmd []string, cwd string, stdin string, hasStdin bool) (exitCode int, stdout, stderr string, err error)
}

// execCommandRunner is the default CommandRunner, backed by os/exec.
type execCommandRunner struct{}

func (execCommandRunner) Run(ctx context.Context, cmd []string, cwd string, stdin string, hasStdin bool) (int, string, string, error) {
	if len(cmd) == 0 {
		return -1, "", "", fmt.Errorf("pyke: empty command")
	}
	c := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	if cwd != "" {
		c.Dir = cwd
	}
	if hasStdin {
		c.Stdin = strings.NewReader(stdin)
	}
	var out, errBuf bytes.Buffer
	c.Stdout = &out
	c.Stderr = &errBuf

	runErr := c.Run()
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return -1, out.String(), errBuf.String(), runErr
		}
	}
	return exitCode, out.String(), errBuf.String(), nil
}

// specialKB is the §4.8 special-predicates pseudo-KB: a fixed set of
// named built-ins (claim_goal, check_command, command, general_command)
// each responding to Prove with the same resumable-iterator contract as
// a FactKB or RuleBaseKB, grounded directly in
// original_source/pyke/special.py's special_knowledge_base and its
// claim_goal/check_command/command/general_command quartet.
type specialKB struct {
	engine *Engine
	runner CommandRunner
	logger hclog.Logger
}

func newSpecialKB(e *Engine, logger hclog.Logger) *specialKB {
	return &specialKB{engine: e, runner: execCommandRunner{}, logger: logger}
}

func (kb *specialKB) Name() string { return "special" }

// SetCommandRunner overrides the CommandRunner used by check_command,
// command, and general_command — the seam tests use to avoid spawning
// real processes.
func (kb *specialKB) SetCommandRunner(r CommandRunner) { kb.runner = r }

func (kb *specialKB) Prove(ctx context.Context, entity string, pattern *Tuple, trail *Context) *Cursor {
	switch entity {
	case "claim_goal":
		return kb.proveClaimGoal(ctx)
	case "check_command":
		return kb.proveCheckCommand(ctx, pattern, trail)
	case "command":
		return kb.proveCommand(ctx, pattern, trail)
	case "general_command":
		return kb.proveGeneralCommand(ctx, pattern, trail)
	default:
		return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
			self.err = fmt.Errorf("pyke: unknown special predicate %q", entity)
		})
	}
}

// proveClaimGoal implements claim_goal's two-phase contract exactly as
// original_source/pyke/special.py's generator does: yield once, then
// raise StopProof on the next advance. Here that second advance simply
// sets the Cursor's stopped flag instead of panicking — the Go
// analogue threads the same signal through Cursor.Stopped() that every
// other control combinator in this package already uses, rather than
// a panic crossing the producer goroutine boundary.
func (kb *specialKB) proveClaimGoal(ctx context.Context) *Cursor {
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		if !emit() {
			return
		}
		self.stopped = true
	})
}

func (kb *specialKB) proveCheckCommand(ctx context.Context, pattern *Tuple, trail *Context) *Cursor {
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		args := pattern.Head()
		if len(args) < 1 {
			return
		}
		cmd, cwd, stdin, hasStdin, err := kb.resolveCommandArgs(trail, args, 0)
		if err != nil {
			self.err = err
			return
		}
		exitCode, _, _, err := kb.runner.Run(ctx, cmd, cwd, stdin, hasStdin)
		if err != nil {
			self.err = &ExternalError{Command: strings.Join(cmd, " "), Cause: err}
			return
		}
		if exitCode == 0 {
			emit()
		}
	})
}

func (kb *specialKB) proveCommand(ctx context.Context, pattern *Tuple, trail *Context) *Cursor {
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		args := pattern.Head()
		if len(args) < 2 {
			return
		}
		cmd, cwd, stdin, hasStdin, err := kb.resolveCommandArgs(trail, args, 1)
		if err != nil {
			self.err = err
			return
		}
		exitCode, stdout, _, err := kb.runner.Run(ctx, cmd, cwd, stdin, hasStdin)
		if err != nil {
			self.err = &ExternalError{Command: strings.Join(cmd, " "), Cause: err}
			return
		}
		if exitCode != 0 {
			self.err = &ExternalError{Command: strings.Join(cmd, " "), Cause: fmt.Errorf("exit status %d", exitCode)}
			return
		}

		mark := trail.Mark()
		lines := splitOutputLines(stdout)
		data := make([]interface{}, len(lines))
		for i, l := range lines {
			data[i] = l
		}
		if args[0].MatchData(trail, trail, data) {
			if !emit() {
				trail.UndoToMark(mark)
				return
			}
		}
		trail.UndoToMark(mark)
	})
}

func (kb *specialKB) proveGeneralCommand(ctx context.Context, pattern *Tuple, trail *Context) *Cursor {
	return runCursor(ctx, func(ctx context.Context, self *Cursor, emit func() bool) {
		args := pattern.Head()
		if len(args) < 2 {
			return
		}
		cmd, cwd, stdin, hasStdin, err := kb.resolveCommandArgs(trail, args, 1)
		if err != nil {
			self.err = err
			return
		}
		exitCode, stdout, stderr, err := kb.runner.Run(ctx, cmd, cwd, stdin, hasStdin)
		if err != nil {
			self.err = &ExternalError{Command: strings.Join(cmd, " "), Cause: err}
			return
		}

		mark := trail.Mark()
		triple := []interface{}{int64(exitCode), stdout, stderr}
		if args[0].MatchData(trail, trail, triple) {
			if !emit() {
				trail.UndoToMark(mark)
				return
			}
		}
		trail.UndoToMark(mark)
	})
}

// resolveCommandArgs resolves args[cmdIdx] (the command tuple) and the
// optional cwd/stdin patterns that follow it, per special.py's run_cmd
// signature (cmd, cwd=None, stdin=None).
func (kb *specialKB) resolveCommandArgs(trail *Context, args []Term, cmdIdx int) (cmd []string, cwd string, stdin string, hasStdin bool, err error) {
	cmdData, err := args[cmdIdx].AsData(trail, false, nil)
	if err != nil {
		return nil, "", "", false, err
	}
	cmd, err = toStringSlice(cmdData)
	if err != nil {
		return nil, "", "", false, err
	}

	if len(args) > cmdIdx+1 {
		cwdData, err := args[cmdIdx+1].AsData(trail, false, nil)
		if err != nil {
			return nil, "", "", false, err
		}
		if s, ok := cwdData.(string); ok {
			cwd = s
		}
	}
	if len(args) > cmdIdx+2 {
		stdinData, err := args[cmdIdx+2].AsData(trail, false, nil)
		if err != nil {
			return nil, "", "", false, err
		}
		if s, ok := stdinData.(string); ok {
			stdin, hasStdin = s, true
		}
	}
	return cmd, cwd, stdin, hasStdin, nil
}

func toStringSlice(data interface{}) ([]string, error) {
	elems, ok := data.([]interface{})
	if !ok {
		return nil, fmt.Errorf("pyke: command argument must resolve to a tuple of strings, got %T", data)
	}
	out := make([]string, len(elems))
	for i, e := range elems {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("pyke: command argument element %d is %T, not a string", i, e)
		}
		out[i] = s
	}
	return out, nil
}

// splitOutputLines mirrors run_cmd's "out.rstrip('\n').split('\n')" so
// command's bound answer tuple matches the original's line-splitting
// exactly, including the empty-output -> single empty-string-line case.
func splitOutputLines(out string) []string {
	return strings.Split(strings.TrimRight(out, "\n"), "\n")
}

// ClaimGoal is the premise form of special.claim_goal (§4.8): it
// succeeds exactly once with no bindings, and on backtrack signals
// Stopped() so the enclosing rule's remaining When alternatives — and
// the enclosing goal's remaining candidate rules/facts — are never
// tried (§4.6 "claim_goal ... suppresses further alternatives for the
// enclosing goal"). Implemented as its own Premise, rather than routed
// through a PositiveGoal to special.claim_goal, because proveEntity
// deliberately absorbs a subgoal's Stopped signal at its own dispatch
// boundary (so one goal's internal cut never reaches whatever premise
// invoked it as a subgoal) — exactly the opposite of what a claim_goal
// premise of the *current* rule needs.
type ClaimGoal struct{}

func (p *ClaimGoal) eval(ctx context.Context, e *Engine, trail *Context) *Cursor {
	return e.special.proveClaimGoal(ctx)
}
