package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/traslados-api/internal/domain"
)

func TestSortedUnique(t *testing.T) {
	got := sortedUnique([]string{"c", "a", "", "b", "a", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Empty(t, sortedUnique(nil))
}

func TestMapError_Bloqueos(t *testing.T) {
	for _, code := range []string{"55P03", "40P01", "40001"} {
		err := fmt.Errorf("lock variations: %w", &pgconn.PgError{Code: code})
		mapped := mapError(err)
		assert.ErrorIs(t, mapped, domain.ErrLockTimeout, code)
		assert.True(t, domain.IsRetryable(mapped), code)
	}
}

func TestMapError_Constraints(t *testing.T) {
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23505"}), domain.ErrDuplicate)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23514"}), domain.ErrInsufficientStock)
}

func TestMapError_DominioIntacto(t *testing.T) {
	nf := domain.NewNotFoundError("traslado", "t-1")
	assert.Same(t, nf, mapError(nf))

	var target *domain.NotFoundError
	assert.True(t, errors.As(mapError(fmt.Errorf("x: %w", nf)), &target))
	assert.Nil(t, mapError(nil))
}
