// Package transfer contiene la máquina de estados del traslado entre sucursales.
//
//	pending ──► in_transit ──► completed
//	   │            │
//	   └────────────┴────────► cancelled
//
// completed y cancelled son terminales: ninguna transición sale de ellos.
package transfer

import (
	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
)

var transitions = map[entity.TransferStatus][]entity.TransferStatus{
	entity.TransferStatusPending:   {entity.TransferStatusInTransit, entity.TransferStatusCancelled},
	entity.TransferStatusInTransit: {entity.TransferStatusCompleted, entity.TransferStatusCancelled},
}

// CanTransition indica si from -> to es una transición permitida.
func CanTransition(from, to entity.TransferStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition valida la transición del traslado hacia to y devuelve *domain.InvalidStateError si no procede.
// No modifica el traslado.
func Transition(t *entity.StockTransfer, to entity.TransferStatus) error {
	if !CanTransition(t.Status, to) {
		return &domain.InvalidStateError{
			TransferID: t.ID,
			Current:    t.Status.String(),
			Target:     to.String(),
		}
	}
	return nil
}

// MovesStock indica si un traslado en este estado tiene stock descontado en origen
// y reservado en destino (y por tanto la cancelación debe compensarlo).
func MovesStock(s entity.TransferStatus) bool {
	return s == entity.TransferStatusInTransit
}
