package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

func TestAppendPage(t *testing.T) {
	cases := []struct {
		name          string
		limit, offset int
		wantSuffix    string
		wantArgs      []any
	}{
		{"sin límite", 0, 0, "ORDER BY x", []any{"a"}},
		{"límite negativo con offset", -1, 5, "ORDER BY x OFFSET $2", []any{"a", 5}},
		{"límite y offset", 10, 20, "ORDER BY x LIMIT $2 OFFSET $3", []any{"a", 10, 20}},
		{"solo límite", 10, 0, "ORDER BY x LIMIT $2", []any{"a", 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			query, args := appendPage("SELECT 1 WHERE y = $1 ORDER BY x", []any{"a"}, tc.limit, tc.offset)
			assert.True(t, strings.HasSuffix(query, tc.wantSuffix), query)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func TestListTransfersQuery_SinLimiteDevuelveTodo(t *testing.T) {
	query, args := listTransfersQuery(repository.TransferFilter{})
	assert.NotContains(t, query, "LIMIT")
	assert.NotContains(t, query, "OFFSET")
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestListTransfersQuery_FiltrosYPaginacion(t *testing.T) {
	query, args := listTransfersQuery(repository.TransferFilter{
		Status:   entity.TransferStatusInTransit,
		BranchID: "br-norte",
		Limit:    20,
		Offset:   40,
	})
	assert.Contains(t, query, "WHERE status = $1 AND (origin_branch_id = $2 OR destination_branch_id = $2)")
	assert.True(t, strings.HasSuffix(query, "ORDER BY created_at DESC, id LIMIT $3 OFFSET $4"), query)
	assert.Equal(t, []any{string(entity.TransferStatusInTransit), "br-norte", 20, 40}, args)
}
