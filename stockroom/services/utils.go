package services

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gerald-spec/novastock/stockroom/schema"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

func checkWorkspaceExists(txn *gorm.DB, workspaceId uuid.UUID) error {
	if _, err := schema.GetWorkspace(workspaceId, txn); err != nil {
		if errors.Is(err, schema.ErrWorkspaceNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkUserExists(txn *gorm.DB, userId uuid.UUID) error {
	if _, err := schema.GetUser(userId, txn); err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkSupplierExists(txn *gorm.DB, workspaceId, supplierId uuid.UUID) error {
	if _, err := schema.GetSupplier(workspaceId, supplierId, txn); err != nil {
		if errors.Is(err, schema.ErrSupplierNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}
