package sigdex

import (
	"errors"
	"fmt"

	"github.com/hupe1980/sigdex/epoch"
	"github.com/hupe1980/sigdex/index"
)

var (
	// ErrNotImplemented marks operations that are declared but reserved.
	ErrNotImplemented = errors.New("sigdex: not implemented")

	// ErrDuplicateDocument is returned by Add for an id already in the index.
	ErrDuplicateDocument = errors.New("sigdex: duplicate document id")

	// ErrShutdown is returned once Shutdown has begun.
	ErrShutdown = errors.New("sigdex: ingestor is shut down")

	// ErrNoFileManager is returned by WriteStatistics when no FileManager
	// was configured.
	ErrNoFileManager = errors.New("sigdex: no file manager configured")
)

// translateError normalizes errors from the inner packages onto the root
// sentinels so callers match with errors.Is. The original error stays
// reachable via errors.Unwrap.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, index.ErrDuplicateDocument) {
		return fmt.Errorf("%w: %w", ErrDuplicateDocument, err)
	}
	if errors.Is(err, epoch.ErrShutdown) {
		return fmt.Errorf("%w: %w", ErrShutdown, err)
	}

	return err
}
