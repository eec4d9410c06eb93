package transfer

import (
	"context"
	"fmt"

	"github.com/jhoicas/traslados-api/internal/application/ports"
	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

// DispatchNoteUseCase genera la remisión en PDF que acompaña la mercancía de un traslado.
type DispatchNoteUseCase struct {
	uow       ports.UnitOfWork
	generator DispatchNoteGenerator
}

// NewDispatchNoteUseCase construye el caso de uso.
func NewDispatchNoteUseCase(uow ports.UnitOfWork, generator DispatchNoteGenerator) *DispatchNoteUseCase {
	return &DispatchNoteUseCase{uow: uow, generator: generator}
}

// Download arma los datos de la remisión y genera el PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil) si todo sale bien.
//   - *domain.NotFoundError     si el traslado o alguna sucursal no existe.
//   - *domain.InvalidStateError si el traslado fue cancelado (no hay mercancía que acompañar).
func (uc *DispatchNoteUseCase) Download(ctx context.Context, transferID string) ([]byte, string, error) {
	var note DispatchNote
	err := uc.uow.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		t, err := r.Transfers().GetByID(ctx, transferID)
		if err != nil {
			return err
		}
		if t.Status == entity.TransferStatusCancelled {
			return &domain.InvalidStateError{TransferID: t.ID, Current: t.Status.String(), Target: "dispatch_note"}
		}
		origin, err := r.Branches().GetByID(ctx, t.OriginBranchID)
		if err != nil {
			return err
		}
		destination, err := r.Branches().GetByID(ctx, t.DestinationBranchID)
		if err != nil {
			return err
		}
		if origin == nil || destination == nil {
			return domain.NewNotFoundError("sucursal", t.OriginBranchID+"/"+t.DestinationBranchID)
		}

		lines := make([]DispatchNoteLine, 0, len(t.Items))
		for _, it := range t.Items {
			v, err := r.Stock().GetByID(ctx, it.ProductVariationID)
			if err != nil {
				return err
			}
			lines = append(lines, DispatchNoteLine{
				SKU:      v.SKU,
				Barcode:  v.Barcode,
				Color:    v.Attributes.Color,
				Size:     v.Attributes.Size,
				Quantity: it.Quantity,
			})
		}
		note = DispatchNote{Transfer: t, Origin: origin, Destination: destination, Lines: lines}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	pdf, err := uc.generator.GenerateDispatchNote(ctx, note)
	if err != nil {
		return nil, "", fmt.Errorf("remisión: generar pdf: %w", err)
	}
	return pdf, fmt.Sprintf("remision-%s.pdf", note.Transfer.ID), nil
}
