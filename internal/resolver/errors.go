package resolver

import (
	"errors"
	"fmt"

	"manualhub/pkg/models"
)

// Each failure the resolver can signal is its own sentinel so callers
// can branch with errors.Is and log a distinct outcome per stage.
var (
	// ErrValidation rejects empty required inputs. Handlers validate
	// first; this is the defensive backstop.
	ErrValidation = errors.New("required input missing or empty")

	// ErrProductNotFound: no product row matches the serial number
	// (plus manual code, for downloads).
	ErrProductNotFound = errors.New("product not found")

	// ErrManualNotFound: a product matched but no manual row matches
	// its code/revision/language combination.
	ErrManualNotFound = errors.New("manual not found")

	// ErrFileNotAvailable: the manual row exists but no PDF has been
	// uploaded for it.
	ErrFileNotAvailable = errors.New("file not available")
)

// StoreError wraps a failed store query. Never swallowed, never
// retried; the current call fails with no partial results.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// DownloadOutcome maps a ResolveDownload error to the audit-log
// outcome classification. nil means success.
func DownloadOutcome(err error) string {
	switch {
	case err == nil:
		return models.DownloadOutcomeSuccess
	case errors.Is(err, ErrProductNotFound):
		return models.DownloadOutcomeProductNotFound
	case errors.Is(err, ErrManualNotFound):
		return models.DownloadOutcomeManualNotFound
	case errors.Is(err, ErrFileNotAvailable):
		return models.DownloadOutcomeFileNotAvailable
	default:
		return models.DownloadOutcomeError
	}
}
