package slither

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/auditdapps/slither-api/pkg/core"
	"github.com/auditdapps/slither-api/pkg/errors"
)

const (
	// DefaultBinary is the default slither binary name.
	DefaultBinary = "slither"

	// DefaultTimeout is the wall-clock budget for one analyzer run.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxSourceBytes is the upper bound on submitted source size.
	DefaultMaxSourceBytes = 200_000

	// DefaultFileName is used when the caller supplies no usable file name.
	DefaultFileName = "Contract.sol"
)

// Scanner invokes slither against submitted source text. Each Run gets its
// own temp directory and subprocess; Scanner itself holds no per-request
// state and is safe for concurrent use.
type Scanner struct {
	Binary         string        // Path to slither binary (default: "slither")
	Timeout        time.Duration // Subprocess wall-clock limit (default: 60s)
	MaxSourceBytes int           // Source size limit in bytes (default: 200000)
	Logger         core.Logger

	mu      sync.Mutex
	version string
}

// NewScanner creates a scanner with default settings.
func NewScanner() *Scanner {
	return &Scanner{
		Binary:         DefaultBinary,
		Timeout:        DefaultTimeout,
		MaxSourceBytes: DefaultMaxSourceBytes,
		Logger:         &core.NopLogger{},
	}
}

// Name returns the analyzer name.
func (s *Scanner) Name() string {
	return ToolName
}

// Version returns the analyzer version discovered by IsInstalled.
func (s *Scanner) Version() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// IsInstalled checks if the slither binary is available.
func (s *Scanner) IsInstalled(ctx context.Context) (bool, string, error) {
	binary := s.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	cmd := exec.CommandContext(ctx, binary, "--version")
	output, err := cmd.Output()
	if err != nil {
		return false, "", err
	}
	version := strings.TrimSpace(string(output))
	s.mu.Lock()
	s.version = version
	s.mu.Unlock()
	return true, version, nil
}

// Run writes sourceText to an isolated temp file and executes the analyzer
// against it, capturing stdout, stderr and the exit code without
// interpreting them. Ordinary tool failure (non-zero exit, garbage output)
// is not an error; only invalid input and infrastructure failure are.
// On timeout the subprocess is killed and the result carries TimedOut along
// with whatever partial output was captured.
func (s *Scanner) Run(ctx context.Context, sourceText, fileName string) (*InvocationResult, error) {
	if strings.TrimSpace(sourceText) == "" {
		return nil, errors.ErrEmptySource
	}
	maxBytes := s.MaxSourceBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxSourceBytes
	}
	if len(sourceText) > maxBytes {
		return nil, errors.ErrSourceTooLarge
	}

	dir, err := os.MkdirTemp("", "slither-")
	if err != nil {
		return nil, errors.E(errors.KindInternal, "slither.Run", "create temp directory", err)
	}
	defer os.RemoveAll(dir)

	target := filepath.Join(dir, SanitizeFileName(fileName))
	if err := os.WriteFile(target, []byte(sourceText), 0o600); err != nil {
		return nil, errors.E(errors.KindInternal, "slither.Run", "write source file", err)
	}

	binary := s.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	timeout := s.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := buildArgs(target)
	s.Logger.Debug("running %s %s", binary, strings.Join(args, " "))

	cmd := exec.CommandContext(execCtx, binary, args...)
	cmd.Dir = dir
	// Bounds the pipe wait when a child of the analyzer survives the kill.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()

	result := &InvocationResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if execCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		s.Logger.Warn("analyzer exceeded %s budget, killed after %s", timeout, time.Since(start).Round(time.Millisecond))
		return result, nil
	}

	if runErr != nil {
		exitErr, ok := runErr.(*exec.ExitError)
		if !ok {
			// Not a tool failure: the process never ran (missing binary,
			// permission problem).
			return nil, errors.E(errors.KindInternal, "slither.Run", "start analyzer", runErr)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	s.Logger.Debug("analyzer finished in %s (exit code: %d)", time.Since(start).Round(time.Millisecond), result.ExitCode)
	return result, nil
}

// Analyze runs the analyzer and normalizes its report in one step.
func (s *Scanner) Analyze(ctx context.Context, sourceText, fileName string) (*Analysis, error) {
	start := time.Now()
	result, err := s.Run(ctx, sourceText, fileName)
	if err != nil {
		return nil, err
	}

	findings, err := ParseFindings(result)
	if err != nil {
		return nil, err
	}

	if result.ExitCode != 0 {
		// A parseable report wins over the exit status.
		s.Logger.Warn("analyzer exited %d but produced a valid report (%d findings)", result.ExitCode, len(findings))
	}

	return &Analysis{
		Findings:   findings,
		ExitCode:   result.ExitCode,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// buildArgs builds the slither command arguments: JSON report to stdout,
// dependency-only findings excluded.
func buildArgs(target string) []string {
	return []string{target, "--json", "-", "--exclude-dependencies"}
}

// SanitizeFileName reduces a caller-supplied file name to a safe base name
// so the written file cannot escape the temp directory. Unusable names fall
// back to DefaultFileName.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.ReplaceAll(name, "\x00", "")
	base := path.Base(name)
	if base == "" || base == "." || base == ".." || base == "/" {
		return DefaultFileName
	}
	return base
}
