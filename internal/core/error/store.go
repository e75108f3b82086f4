package errx

import (
	"database/sql"
	"errors"
	"net/http"
)

// WrapStore maps persistence gateway errors to the unified Error type.
// sql.ErrNoRows becomes the ErrNotFound kind so callers can treat a miss
// as a legitimate empty result rather than a fault.
func WrapStore(err error) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return New(ErrNotFound, http.StatusNotFound, StoreNotFoundMessage)
	}

	return New(err, http.StatusBadGateway, StoreErrorMessage)
}
