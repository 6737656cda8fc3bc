package locate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zr-tex8r/ZRTeXtor/core"
)

// Capture holds the separately collected output streams of a spawned
// command.
type Capture struct {
	Stdout []byte
	Stderr []byte
}

// Runner spawns external commands. Tests substitute a deterministic
// stub.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Capture, error)
}

type execRunner struct{}

// Run spawns the command with stdout and stderr piped into separate
// buffers. The exit status is deliberately not consulted; success is
// judged by the caller from the produced files and the stderr content.
func (execRunner) Run(ctx context.Context, name string, args ...string) (Capture, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outbuf, errbuf bytes.Buffer
	cmd.Stdout = &outbuf
	cmd.Stderr = &errbuf
	err := cmd.Run()
	capt := Capture{Stdout: outbuf.Bytes(), Stderr: errbuf.Bytes()}
	if err != nil {
		exitErr := &exec.ExitError{}
		if errors.As(err, &exitErr) {
			tracer().Debugf("%s exited with %v (ignored)", name, exitErr)
			return capt, nil
		}
		return capt, core.WrapError(err, core.EEXTERNAL, "cannot spawn %s", name)
	}
	return capt, nil
}

// DefaultRunner spawns real processes.
var DefaultRunner Runner = execRunner{}

// benignStderr lists the stderr fragments that do not indicate
// failure.
var benignStderr = []string{
	"I had to round some",
	"Input file is in kanji",
	"LIG",
}

// UnexpectedStderr returns the stderr lines that are neither empty nor
// benign.
func UnexpectedStderr(stderr []byte) []string {
	var bad []string
	for _, line := range strings.Split(string(stderr), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		benign := false
		for _, pat := range benignStderr {
			if strings.Contains(line, pat) {
				benign = true
				break
			}
		}
		if !benign {
			bad = append(bad, line)
		}
	}
	return bad
}

// RunTool invokes a toolchain command and decides success the way the
// surrounding tools do: the expected output file must exist afterwards
// and stderr must carry no unexpected lines.
func RunTool(ctx context.Context, r Runner, tool string, args []string, expect string) (Capture, error) {
	if r == nil {
		r = DefaultRunner
	}
	name := Command(tool)
	tracer().Debugf("spawning %s %v", name, args)
	capt, err := r.Run(ctx, name, args...)
	if err != nil {
		return capt, err
	}
	if bad := UnexpectedStderr(capt.Stderr); len(bad) > 0 {
		return capt, core.Error(core.EEXTERNAL, "%s complained: %s", name, bad[0])
	}
	if expect != "" {
		if _, err := os.Stat(expect); err != nil {
			return capt, core.WrapError(err, core.EEXTERNAL,
				"%s did not produce %s", name, filepath.Base(expect))
		}
	}
	return capt, nil
}

// --- Temporary files -------------------------------------------------------

var (
	tmpMu    sync.Mutex
	tmpInfix [6]byte
)

func init() {
	// derive the initial infix from the process id
	pid := os.Getpid()
	for i := range tmpInfix {
		tmpInfix[i] = byte('a' + (pid+i*7)%26)
	}
}

// TempName builds a collision-free temporary file name from a fixed
// prefix, the process id and a six-letter infix that is permuted
// between calls, so concurrent invocations in one directory do not
// clash.
func TempName(dir, suffix string) string {
	tmpMu.Lock()
	// rotate and nudge the infix
	first := tmpInfix[0]
	copy(tmpInfix[:], tmpInfix[1:])
	tmpInfix[5] = 'a' + (first-'a'+1)%26
	infix := string(tmpInfix[:])
	tmpMu.Unlock()
	return filepath.Join(dir, fmt.Sprintf("zrtx%d%s%s", os.Getpid(), infix, suffix))
}
