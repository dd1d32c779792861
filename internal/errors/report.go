package errors

import (
	"github.com/systmms/envvault/internal/logging"
)

// Report logs err together with the operation and configuration key it came
// from, then returns err unchanged. It never swallows: a non-nil input is
// always the return value.
func Report(logger *logging.Logger, op, key string, err error) error {
	if err == nil {
		return nil
	}
	if key != "" {
		logger.Error("%s failed for %s: %v", op, key, err)
	} else {
		logger.Error("%s failed: %v", op, err)
	}
	return err
}
