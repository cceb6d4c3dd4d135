package services

import (
	"errors"

	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"gorm.io/gorm"
)

// dbError maps a missing row onto NotFound, a unique violation onto Conflict
// and passes service errors through. Anything else is an internal failure.
func dbError(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(notFoundMsg)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("record already exists")
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal("database error", err)
}
