package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid")
	ErrInternal     = errors.New("internal")

	// Pipeline taxonomy. Extraction and index failures abort before any
	// completion call; completion failures abort after retrieval.
	ErrExtraction = errors.New("extraction failed")
	ErrIndex      = errors.New("retrieval index failed")
	ErrCompletion = errors.New("completion failed")
	ErrStore      = errors.New("store failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsExtraction(err error) bool {
	return errors.Is(err, ErrExtraction)
}

func IsCompletion(err error) bool {
	return errors.Is(err, ErrCompletion)
}
