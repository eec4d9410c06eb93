package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/traslados-api/internal/domain"
)

// Querier lo que necesitan los repositorios; lo cumplen *pgxpool.Pool y pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeLockNotAvailable     = "55P03"
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// isLockFailure lock_timeout agotado, deadlock detectado o fallo de serialización.
func isLockFailure(err error) bool {
	switch pgCode(err) {
	case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure:
		return true
	}
	return false
}

// mapError traduce errores de PostgreSQL a errores de dominio. Los errores que ya son
// de dominio se devuelven intactos.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isLockFailure(err):
		return fmt.Errorf("%w: %v", domain.ErrLockTimeout, err)
	case isUniqueViolation(err) && !errors.Is(err, domain.ErrDuplicate):
		return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
	case pgCode(err) == codeCheckViolation && !errors.Is(err, domain.ErrInsufficientStock):
		return fmt.Errorf("%w: %v", domain.ErrInsufficientStock, err)
	}
	return err
}

// sortedUnique copia ids sin duplicados ni vacíos, en orden ascendente.
func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// appendPage agrega LIMIT/OFFSET como parámetros. limit <= 0 no limita y offset <= 0 se omite.
func appendPage(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
