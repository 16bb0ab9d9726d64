package services

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// apiError carries the HTTP status of a validation failure raised inside a
// transaction, so the handler can roll back and still answer with the right
// code (404 missing reference, 400 invalid state).
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return e.Message }

func notFound(format string, args ...interface{}) *apiError {
	return &apiError{Status: fiber.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...interface{}) *apiError {
	return &apiError{Status: fiber.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// respondError maps a transaction error to the response: apiErrors keep their
// status, anything else is a 500.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	if apiErr, ok := err.(*apiError); ok {
		return c.Status(apiErr.Status).JSON(fiber.Map{"error": apiErr.Message})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback, "details": err.Error()})
}

// lockForUpdate applies a SELECT ... FOR UPDATE row lock on dialects that
// support it. The sqlite dialect used by the test suite has a single-writer
// model and no row-lock syntax, so the clause is skipped there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
