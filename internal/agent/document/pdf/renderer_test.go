package pdf

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	name string
	args []string
	err  error
	// write controls whether the stub produces the expected PNG.
	write bool
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.name, s.args = name, args
	if s.err != nil {
		return nil, []byte("Syntax Error: Couldn't find trailer dictionary"), s.err
	}
	if s.write {
		img := image.NewGray(image.Rect(0, 0, 8, 6))
		if err := imaging.Save(img, args[len(args)-1]+".png"); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, nil
}

func TestRenderer_RenderPage(t *testing.T) {
	runner := &stubRunner{write: true}
	r := NewRenderer("", nil).WithRunner(runner)

	img, err := r.RenderPage(context.Background(), "/data/paper.pdf", 2, 300)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())

	assert.Equal(t, "pdftoppm", runner.name)
	assert.Equal(t, []string{"-r", "300", "-png", "-f", "3", "-l", "3", "-singlefile", "/data/paper.pdf"}, runner.args[:9])
}

func TestRenderer_CommandFailure(t *testing.T) {
	runner := &stubRunner{err: errors.New("exit status 1")}
	r := NewRenderer("/usr/bin/pdftoppm", nil).WithRunner(runner)

	_, err := r.RenderPage(context.Background(), "broken.pdf", 0, 150)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailer dictionary")
	assert.Equal(t, "/usr/bin/pdftoppm", runner.name)
}

func TestRenderer_MissingOutput(t *testing.T) {
	r := NewRenderer("", nil).WithRunner(&stubRunner{})

	_, err := r.RenderPage(context.Background(), "paper.pdf", 0, 300)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode rendered page")
}

func TestProcessor_OpenMissingFile(t *testing.T) {
	_, err := NewProcessor(nil).Open("/nonexistent/paper.pdf")
	require.Error(t, err)
}
