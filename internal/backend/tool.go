package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/AndreyAkinshin/vdiff/internal/imgio"
	"github.com/AndreyAkinshin/vdiff/internal/logging"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// varPattern matches ${name} placeholders in command templates.
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// escapePlaceholder temporarily stands in for "$${" while placeholders are replaced.
// NUL cannot appear in a JSON config string, so it never collides with user text.
const escapePlaceholder = "\x00ESCAPED\x00"

// maxDetailBytes bounds how much tool stderr is kept in a RenderError.
const maxDetailBytes = 2048

// waitDelay bounds how long a killed tool may hold its output pipes open.
const waitDelay = 2 * time.Second

// ToolConfig configures a ToolRenderer.
type ToolConfig struct {
	Tool    string            // Substituted for ${tool}
	Command string            // Command template
	Env     map[string]string // Added on top of the process environment
	Timeout time.Duration     // Per-render limit; zero means no limit beyond ctx
	WorkDir string            // Working directory for the tool; empty means current
}

// ToolRenderer renders by running an external executable.
//
// Template placeholders:
//   - ${tool}: the configured tool path
//   - ${input}: absolute SVG path
//   - ${output}: PNG path the tool must write; without it the image is read from stdout
//   - ${width}, ${height}: target raster size in pixels
//   - ${view_size}: logical viewport size
//
// "$${name}" produces a literal "${name}".
type ToolRenderer struct {
	backend model.Backend
	cfg     ToolConfig
}

// NewToolRenderer creates a renderer for backend b.
func NewToolRenderer(b model.Backend, cfg ToolConfig) *ToolRenderer {
	return &ToolRenderer{backend: b, cfg: cfg}
}

func (r *ToolRenderer) Backend() model.Backend { return r.backend }
func (r *ToolRenderer) Tool() string           { return r.cfg.Tool }

// Available reports whether the template's executable can be found in PATH.
func (r *ToolRenderer) Available() bool {
	args, err := r.argv(map[string]string{"tool": r.cfg.Tool})
	if err != nil || len(args) == 0 {
		return false
	}
	return isCommandAvailable(args[0])
}

// Render runs the tool once for data and decodes its output.
func (r *ToolRenderer) Render(ctx context.Context, data RenderData) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Backend: r.backend, Reason: ReasonCanceled, Err: err}
	}

	tmpDir, err := os.MkdirTemp("", "vdiff-"+r.backend.Key()+"-")
	if err != nil {
		return nil, &RenderError{Backend: r.backend, Reason: ReasonExitStatus, Err: err}
	}
	defer os.RemoveAll(tmpDir)

	tool := r.cfg.Tool
	if data.ToolPath != "" {
		tool = data.ToolPath
	}
	outPath := filepath.Join(tmpDir, "out.png")
	vars := map[string]string{
		"tool":      tool,
		"input":     data.ImgPath,
		"output":    outPath,
		"width":     strconv.Itoa(data.ImageSize.X),
		"height":    strconv.Itoa(data.ImageSize.Y),
		"view_size": strconv.Itoa(data.ViewSize),
	}

	args, err := r.argv(vars)
	if err != nil {
		return nil, &RenderError{Backend: r.backend, Reason: ReasonExitStatus, Detail: "invalid command template", Err: err}
	}
	if len(args) == 0 {
		return nil, &RenderError{Backend: r.backend, Reason: ReasonExitStatus, Detail: "empty command template"}
	}
	if !isCommandAvailable(args[0]) {
		return nil, &RenderError{Backend: r.backend, Reason: ReasonToolNotFound, Detail: args[0]}
	}

	runCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = r.cfg.WorkDir
	cmd.WaitDelay = waitDelay
	cmd.Env = os.Environ()
	for k, v := range r.cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Logger().Debug("running renderer", "backend", r.backend.Key(), "args", args)
	start := time.Now()
	runErr := cmd.Run()
	logging.Logger().Debug("renderer exited", "backend", r.backend.Key(), "elapsed", time.Since(start), "err", runErr)

	if runErr != nil {
		switch {
		case ctx.Err() != nil:
			return nil, &RenderError{Backend: r.backend, Reason: ReasonCanceled, Err: ctx.Err()}
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			return nil, &RenderError{Backend: r.backend, Reason: ReasonTimeout, Err: fmt.Errorf("exceeded %s", r.cfg.Timeout)}
		default:
			return nil, &RenderError{Backend: r.backend, Reason: ReasonExitStatus, Detail: trimDetail(stderr.Bytes()), Err: runErr}
		}
	}

	var out []byte
	if r.writesFile() {
		out, err = os.ReadFile(outPath)
		if err != nil {
			return nil, &RenderError{Backend: r.backend, Reason: ReasonBadOutput, Err: err}
		}
	} else {
		out = stdout.Bytes()
	}

	img, _, err := imgio.Decode(out)
	if err != nil {
		return nil, &RenderError{Backend: r.backend, Reason: ReasonBadOutput, Err: err}
	}
	return img, nil
}

// writesFile reports whether the template references ${output}.
func (r *ToolRenderer) writesFile() bool {
	return strings.Contains(strings.ReplaceAll(r.cfg.Command, "$${", escapePlaceholder), "${output}")
}

// argv splits the template into words, then substitutes placeholders inside each word
// so values containing spaces stay a single argument.
func (r *ToolRenderer) argv(vars map[string]string) ([]string, error) {
	escaped := strings.ReplaceAll(r.cfg.Command, "$${", escapePlaceholder)
	words, err := shellwords.Parse(escaped)
	if err != nil {
		return nil, err
	}
	for i, w := range words {
		words[i] = strings.ReplaceAll(interpolateVars(w, vars), escapePlaceholder, "${")
	}
	return words, nil
}

// interpolateVars replaces ${name} with vars[name], leaving unknown names untouched.
func interpolateVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := vars[name]; ok {
			return val
		}
		return match
	})
}

// isCommandAvailable checks if an executable exists, either as a path or in PATH.
func isCommandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func trimDetail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxDetailBytes {
		s = s[len(s)-maxDetailBytes:]
	}
	return s
}
