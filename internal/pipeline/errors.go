package pipeline

import "errors"

// ErrDocumentUnreadable means the PDF could not be opened at all. The
// document is skipped; other documents are unaffected.
var ErrDocumentUnreadable = errors.New("document unreadable")
