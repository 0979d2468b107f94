package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/opensource-finance/harrier/internal/casedb"
	"github.com/opensource-finance/harrier/internal/dataset"
)

// ErrInconsistentAlert indicates the case rows contain no row whose own
// alert id equals the queried one. Data integrity issue, fatal to the run.
var ErrInconsistentAlert = errors.New("inconsistent alert: representative row missing")

// Error kinds surfaced in RunResult.
const (
	KindNotFound          = "NOT_FOUND"
	KindInconsistentAlert = "INCONSISTENT_ALERT"
	KindConnection        = "CONNECTION"
	KindQuery             = "QUERY"
	KindValidation        = "VALIDATION"
)

// classify maps an error to its taxonomy kind for the run result.
func classify(err error) string {
	switch {
	case errors.Is(err, casedb.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInconsistentAlert):
		return KindInconsistentAlert
	case errors.Is(err, dataset.ErrValidation):
		return KindValidation
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindConnection
	default:
		return KindQuery
	}
}

func stageErr(stage string, err error) error {
	return fmt.Errorf("%s: %w", stage, err)
}
