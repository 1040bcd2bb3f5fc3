package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/feichai0017/paper-extractor/pkg/logger"
)

// Runner lets tests stub external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

// Renderer rasterises single pages with poppler's pdftoppm.
type Renderer struct {
	binary string
	runner Runner
	logger logger.Logger
}

// NewRenderer returns a renderer invoking binary ("pdftoppm" when empty).
func NewRenderer(binary string, log logger.Logger) *Renderer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Renderer{binary: binary, runner: execRunner{}, logger: log.Named("renderer")}
}

// WithRunner swaps the command runner.
func (r *Renderer) WithRunner(runner Runner) *Renderer {
	r.runner = runner
	return r
}

// RenderPage implements document.Renderer.
func (r *Renderer) RenderPage(ctx context.Context, path string, index, dpi int) (image.Image, error) {
	tmpDir, err := os.MkdirTemp("", "px-render-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create render dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	page := strconv.Itoa(index + 1)
	prefix := filepath.Join(tmpDir, "page")

	// pdftoppm -r 300 -png -f N -l N -singlefile <in.pdf> <tmp/page>
	start := time.Now()
	_, stderr, err := r.runner.Run(ctx, r.binary,
		"-r", strconv.Itoa(dpi), "-png", "-f", page, "-l", page, "-singlefile", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %s: %w: %s", page, err, truncate(strings.TrimSpace(string(stderr)), 512))
	}

	img, err := imaging.Open(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered page %s: %w", page, err)
	}

	r.logger.Debug("Page rendered",
		logger.String("path", path),
		logger.Int("page", index+1),
		logger.Int("dpi", dpi),
		logger.Duration("duration", time.Since(start)),
	)
	return img, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
