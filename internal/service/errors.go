package service

import (
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"taskward/internal/apperr"
	"taskward/internal/model"
)

// lookupErr classifies an error from a load-by-id call.
func lookupErr(log zerolog.Logger, op, entity string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return storageErr(log, op, err)
}

// storageErr passes classified errors through and turns everything else
// into a storage failure, logging the full cause.
func storageErr(log zerolog.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	log.Error().Err(err).Str("op", op).Msg("storage failure")
	return apperr.Storage(op, err)
}

// validationErr turns a model validation failure into an apperr.
func validationErr(err error) error {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return apperr.New(apperr.KindValidation, ve.Error(), err)
	}
	return apperr.New(apperr.KindValidation, err.Error(), err)
}
