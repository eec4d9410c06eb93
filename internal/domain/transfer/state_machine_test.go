package transfer_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/transfer"
)

func TestCanTransition_Tabla(t *testing.T) {
	cases := []struct {
		from, to entity.TransferStatus
		ok       bool
	}{
		{entity.TransferStatusPending, entity.TransferStatusInTransit, true},
		{entity.TransferStatusPending, entity.TransferStatusCancelled, true},
		{entity.TransferStatusPending, entity.TransferStatusCompleted, false},
		{entity.TransferStatusInTransit, entity.TransferStatusCompleted, true},
		{entity.TransferStatusInTransit, entity.TransferStatusCancelled, true},
		{entity.TransferStatusInTransit, entity.TransferStatusPending, false},
		{entity.TransferStatusCompleted, entity.TransferStatusCancelled, false},
		{entity.TransferStatusCompleted, entity.TransferStatusCompleted, false},
		{entity.TransferStatusCancelled, entity.TransferStatusCompleted, false},
		{entity.TransferStatusCancelled, entity.TransferStatusInTransit, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, transfer.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransition_EstadoTerminalDevuelveInvalidState(t *testing.T) {
	tr := &entity.StockTransfer{ID: "t-1", Status: entity.TransferStatusCompleted}

	err := transfer.Transition(tr, entity.TransferStatusCancelled)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	var stateErr *domain.InvalidStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "completed", stateErr.Current)
	assert.Equal(t, "cancelled", stateErr.Target)
	assert.Equal(t, entity.TransferStatusCompleted, tr.Status, "Transition no debe mutar el traslado")
}

func TestTerminalYMovesStock(t *testing.T) {
	assert.True(t, entity.TransferStatusCompleted.Terminal())
	assert.True(t, entity.TransferStatusCancelled.Terminal())
	assert.False(t, entity.TransferStatusInTransit.Terminal())
	assert.False(t, entity.TransferStatus("otro").Valid())

	assert.True(t, transfer.MovesStock(entity.TransferStatusInTransit))
	assert.False(t, transfer.MovesStock(entity.TransferStatusPending))
}
