package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/traslados-api/internal/application/transfer"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
)

func TestGenerateDispatchNote_GeneraPDF(t *testing.T) {
	note := transfer.DispatchNote{
		Transfer: &entity.StockTransfer{
			ID: "3f1c2a10-0000-4000-8000-000000000001", Status: entity.TransferStatusInTransit,
			Notes: "Reposición de temporada", CreatedAt: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		},
		Origin:      &entity.Branch{ID: "b-1", Name: "Centro", Address: "Calle 10 # 5-20"},
		Destination: &entity.Branch{ID: "b-2", Name: "Norte"},
		Lines: []transfer.DispatchNoteLine{
			{SKU: "CAM-R-M", Barcode: "7700001", Color: "rojo", Size: "M", Quantity: 4},
			{SKU: "CAM-A-S", Quantity: 1},
		},
	}

	out, err := NewDispatchNoteGenerator().GenerateDispatchNote(context.Background(), note)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerateDispatchNote_Incompleta(t *testing.T) {
	_, err := NewDispatchNoteGenerator().GenerateDispatchNote(context.Background(), transfer.DispatchNote{})
	assert.Error(t, err)
}
