package document

import (
	"context"
	"image"
)

// Source is an opened PDF whose pages can be read one at a time.
type Source interface {
	// Path is the file the source was opened from.
	Path() string

	// NumPages returns the page count.
	NumPages() int

	// PageText returns the native text layer of a zero-based page.
	PageText(index int) (string, error)

	// Close releases the underlying file.
	Close() error
}

// Opener opens a PDF file as a Source.
type Opener interface {
	Open(path string) (Source, error)
}

// Renderer rasterises one zero-based page of a PDF at the given resolution.
type Renderer interface {
	RenderPage(ctx context.Context, path string, index, dpi int) (image.Image, error)
}

// Recognizer turns a page image into text.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}
