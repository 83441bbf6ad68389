package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/sweetpotato0/pinecone/errors"
	"github.com/sweetpotato0/pinecone/sandbox"
	"github.com/sweetpotato0/pinecone/tool"
)

const (
	// ShellToolName is the registered name of the shell tool
	ShellToolName = "shell"

	defaultShellTimeout = 30 * time.Second
	defaultMaxChars     = 4000
)

// DefaultAllowedCommands is the allow-list used when none is configured.
var DefaultAllowedCommands = []string{"ls", "find"}

// forbiddenChars covers ; && || | & backticks and line breaks.
const forbiddenChars = ";|&`\n\r"

// deniedFlags blocks options that turn a read-only command into a writer
// or a process launcher.
var deniedFlags = map[string][]string{
	"find": {"-exec", "-execdir", "-ok", "-okdir", "-delete", "-fprint", "-fprint0", "-fprintf", "-fls"},
	"rg":   {"--pre"},
}

// ShellConfig configures the shell tool
type ShellConfig struct {
	Sandbox         *sandbox.Sandbox
	AllowedCommands []string
	Timeout         time.Duration
	MaxOutputChars  int
}

type shellArgs struct {
	Command string   `json:"command" jsonschema:"required,description=Command line to run. The first word must be an allowed command. Chaining and pipes are rejected."`
	Args    []string `json:"args,omitempty" jsonschema:"description=Extra arguments appended to the command"`
	Cwd     string   `json:"cwd,omitempty" jsonschema:"description=Working directory relative to the workspace root"`
}

// ShellResult is the JSON document returned to the model
type ShellResult struct {
	Cmd       string `json:"cmd"`
	ExitCode  int    `json:"exit_code"`
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	Truncated bool   `json:"truncated,omitempty"`
}

type shellTool struct {
	sandbox  *sandbox.Sandbox
	allowed  map[string]bool
	timeout  time.Duration
	maxChars int
}

// NewShell builds the confined shell tool.
func NewShell(cfg ShellConfig) (*tool.Tool, error) {
	if cfg.Sandbox == nil {
		return nil, fmt.Errorf("shell tool: sandbox is required")
	}
	allowedList := cfg.AllowedCommands
	if len(allowedList) == 0 {
		allowedList = DefaultAllowedCommands
	}
	st := &shellTool{
		sandbox:  cfg.Sandbox,
		allowed:  make(map[string]bool, len(allowedList)),
		timeout:  cfg.Timeout,
		maxChars: cfg.MaxOutputChars,
	}
	for _, c := range allowedList {
		st.allowed[c] = true
	}
	if st.timeout <= 0 {
		st.timeout = defaultShellTimeout
	}
	if st.maxChars <= 0 {
		st.maxChars = defaultMaxChars
	}

	return &tool.Tool{
		Name: ShellToolName,
		Description: fmt.Sprintf(
			"Execute a read-only command inside the workspace (allowed: %s). "+
				`Arguments: {"command": "ls -la docs"}. Returns JSON with exit_code, stdout and stderr.`,
			strings.Join(allowedList, ", ")),
		Parameters: []tool.Parameter{
			{Name: "command", Type: "string", Description: "Command line to run", Required: true},
		},
		InputSchema: tool.MustSchemaFor[shellArgs](),
		Handler:     st.run,
	}, nil
}

func (s *shellTool) run(ctx context.Context, args map[string]interface{}) (string, error) {
	line, _ := args["command"].(string)
	line = strings.TrimSpace(line)
	if line == "" {
		return "", tool.Errorf(nil, "shell command is required")
	}

	extra, err := stringList(args["args"])
	if err != nil {
		return "", tool.Errorf(nil, "args: %v", err)
	}

	argv, err := s.parse(line, extra)
	if err != nil {
		return "", err
	}

	dir := s.sandbox.Root()
	if cwd := firstString(args, "cwd", "working_dir"); cwd != "" {
		dir, err = s.sandbox.ResolveDir(cwd)
		if err != nil {
			return "", tool.Errorf(kindOf(err), "working directory: %v", err)
		}
	}

	if err := s.confine(argv, dir); err != nil {
		return "", err
	}

	result, err := s.exec(ctx, argv, dir)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode shell result: %w", err)
	}
	return string(out), nil
}

// parse validates the command line before anything is spawned.
func (s *shellTool) parse(line string, extra []string) ([]string, error) {
	if strings.ContainsAny(line, forbiddenChars) {
		return nil, tool.Errorf(errors.ErrCommandNotAllowed, "command chaining and special characters are not allowed")
	}
	for _, a := range extra {
		if strings.ContainsAny(a, forbiddenChars) {
			return nil, tool.Errorf(errors.ErrCommandNotAllowed, "command chaining and special characters are not allowed")
		}
	}

	argv, err := shlex.Split(line)
	if err != nil {
		return nil, tool.Errorf(nil, "invalid command: %v", err)
	}
	argv = append(argv, extra...)
	if len(argv) == 0 {
		return nil, tool.Errorf(nil, "shell command is required")
	}

	name := argv[0]
	if !s.allowed[name] {
		return nil, tool.Errorf(errors.ErrCommandNotAllowed, "command '%s' is not permitted", name)
	}

	for _, arg := range argv[1:] {
		for _, flag := range deniedFlags[name] {
			if arg == flag || strings.HasPrefix(arg, flag+"=") {
				return nil, tool.Errorf(errors.ErrCommandNotAllowed, "option %s is not permitted for %s", flag, name)
			}
		}
	}
	return argv, nil
}

// confine checks every operand, and every --flag=value, against the root.
// Operands are resolved relative to the working directory the command runs in.
func (s *shellTool) confine(argv []string, dir string) error {
	for _, arg := range argv[1:] {
		p := pathPart(arg)
		if p == "" || (strings.HasPrefix(p, "-") && p == arg) {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		if _, err := s.sandbox.Resolve(p); err != nil {
			return tool.Errorf(kindOf(err), "argument %q: %v", arg, err)
		}
	}
	return nil
}

func (s *shellTool) exec(ctx context.Context, argv []string, dir string) (*ShellResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	limit := s.maxChars * 4
	stdout := &cappedBuffer{limit: limit}
	stderr := &cappedBuffer{limit: limit}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, tool.Errorf(errors.ErrTimeout, "command timed out after %s", s.timeout)
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, tool.Errorf(nil, "failed to launch %s: %v", argv[0], err)
		}
		exitCode = exitErr.ExitCode()
	}

	outText, outCut := ClampText(stdout.String(), s.maxChars)
	errText, errCut := ClampText(stderr.String(), s.maxChars/2)
	return &ShellResult{
		Cmd:       strings.Join(argv, " "),
		ExitCode:  exitCode,
		Stdout:    outText,
		Stderr:    errText,
		Truncated: outCut || errCut || stdout.dropped || stderr.dropped,
	}, nil
}

// cappedBuffer keeps at most limit bytes and silently drops the rest.
type cappedBuffer struct {
	buf     bytes.Buffer
	limit   int
	dropped bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.dropped = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.dropped = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}

// pathPart strips a --flag= prefix so option values are checked too.
func pathPart(arg string) string {
	if strings.HasPrefix(arg, "-") {
		if i := strings.IndexByte(arg, '='); i >= 0 {
			return arg[i+1:]
		}
	}
	return arg
}

func kindOf(err error) error {
	for _, kind := range []error{errors.ErrPathEscape, errors.ErrNotFound, errors.ErrInvalidInput} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
