package ragcore

import "errors"

var (
	// ErrDocumentNotFound is returned when a document path is not tracked.
	ErrDocumentNotFound = errors.New("ragcore: document not found")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("ragcore: unsupported document format")

	// ErrRAGDisabled is returned when a query arrives before any index has
	// ever been built (NO_DB startup state with load-only mode).
	ErrRAGDisabled = errors.New("ragcore: rag is disabled, no index loaded")

	// ErrIntegrityFailure is returned when a loaded index fails an
	// internal consistency check (e.g. the uuid map size does not match
	// the ANN item count) — the engine refuses to serve queries rather
	// than risk silently wrong nearest-neighbor results.
	ErrIntegrityFailure = errors.New("ragcore: index integrity check failed")

	// ErrQAGenerationUnavailable is returned when GenerateQA is called
	// without a chat LLM provider configured.
	ErrQAGenerationUnavailable = errors.New("ragcore: no chat provider configured for q&a generation")
)
