package postgres

import (
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/jwalitptl/health-enrollment/pkg/errors"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// translate maps driver errors onto application errors. Anything it does
// not recognise is wrapped with the operation name.
func translate(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound(resource, err)
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			if pqErr.Constraint == "clients_national_id_key" {
				return errors.NewConflict("client with this national ID already exists", err)
			}
			return errors.NewConflict(fmt.Sprintf("%s already exists", resource), err)
		case foreignKeyViolation:
			return errors.NotFound(referencedBy(pqErr.Constraint), err)
		}
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}

func referencedBy(constraint string) string {
	switch constraint {
	case "enrollments_client_id_fkey":
		return "client"
	case "enrollments_program_id_fkey":
		return "program"
	}
	return "referenced record"
}
