// Package pdf genera la remisión de traslado que acompaña la mercancía entre sucursales.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  REMISIÓN DE TRASLADO        │  N° traslado + fecha + estado │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ORIGEN: sucursal + dirección │ DESTINO: sucursal + dirección │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: SKU | Código | Color | Talla | Cantidad              │
//	│  TOTAL UNIDADES                                              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  QR del traslado + firmas despacha / recibe                  │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/traslados-api/internal/application/transfer"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
)

var _ transfer.DispatchNoteGenerator = (*DispatchNoteGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var statusLabels = map[entity.TransferStatus]string{
	entity.TransferStatusPending:   "Pendiente",
	entity.TransferStatusInTransit: "En tránsito",
	entity.TransferStatusCompleted: "Recibido",
	entity.TransferStatusCancelled: "Anulado",
}

// DispatchNoteGenerator implementa transfer.DispatchNoteGenerator con Maroto v2.
type DispatchNoteGenerator struct{}

// NewDispatchNoteGenerator construye el generador.
func NewDispatchNoteGenerator() *DispatchNoteGenerator { return &DispatchNoteGenerator{} }

// GenerateDispatchNote arma el documento y devuelve sus bytes.
func (g *DispatchNoteGenerator) GenerateDispatchNote(_ context.Context, note transfer.DispatchNote) ([]byte, error) {
	if note.Transfer == nil || note.Origin == nil || note.Destination == nil {
		return nil, fmt.Errorf("pdf: remisión incompleta")
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Remisión de traslado "+note.Transfer.ID, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(headerRow(note.Transfer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(branchesRow(note.Origin, note.Destination))
	if note.Transfer.Notes != "" {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("Observaciones: "+note.Transfer.Notes, props.Text{Size: 8, Top: 2, Color: colorGray}),
		)))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	var total int64
	for _, l := range note.Lines {
		m.AddRows(lineRow(l))
		total += l.Quantity
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(row.New(8).Add(
		col.New(9).Add(text.New("TOTAL UNIDADES:", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 1, Right: 2, Color: colorPrimary,
		})),
		col.New(3).Add(text.New(strconv.FormatInt(total, 10), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Center, Top: 1, Color: colorPrimary,
		})),
	))

	m.AddRows(line.NewRow(6))
	m.AddRows(footerRow(note.Transfer))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(t *entity.StockTransfer) core.Row {
	status := statusLabels[t.Status]
	if status == "" {
		status = t.Status.String()
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New("REMISIÓN DE TRASLADO", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Mercancía entre sucursales, sin valor comercial", props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(t.ID, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 1,
			}),
			text.New("Fecha: "+t.CreatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 7, Color: colorGray,
			}),
			text.New("Estado: "+status, props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 12, Color: colorPrimary,
			}),
		),
	)
}

func branchesRow(origin, destination *entity.Branch) core.Row {
	block := func(title string, b *entity.Branch) core.Col {
		return col.New(6).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(b.Name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(nonEmpty(b.Address, "—"), props.Text{Size: 8, Top: 12, Color: colorGray}),
		)
	}
	return row.New(18).Add(block("SUCURSAL ORIGEN", origin), block("SUCURSAL DESTINO", destination))
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("SKU", 3, align.Left),
		h("Código de barras", 3, align.Left),
		h("Color", 2, align.Left),
		h("Talla", 1, align.Center),
		h("Cantidad", 3, align.Center),
	)
}

func lineRow(l transfer.DispatchNoteLine) core.Row {
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	return row.New(7).Add(
		cell(nonEmpty(l.SKU, "—"), 3, align.Left),
		cell(nonEmpty(l.Barcode, "—"), 3, align.Left),
		cell(nonEmpty(l.Color, "—"), 2, align.Left),
		cell(nonEmpty(l.Size, "—"), 1, align.Center),
		cell(strconv.FormatInt(l.Quantity, 10), 3, align.Center),
	)
}

// footerRow QR con el ID del traslado (lo escanea quien recibe) y espacio para firmas.
func footerRow(t *entity.StockTransfer) core.Row {
	signature := func(label string) core.Col {
		return col.New(4).Add(
			text.New("_____________________________", props.Text{Size: 8, Align: align.Center, Top: 22}),
			text.New(label, props.Text{Size: 8, Align: align.Center, Top: 27, Color: colorGray}),
		)
	}
	return row.New(36).Add(
		col.New(4).Add(code.NewQr(t.ID, props.Rect{Percent: 90, Center: true})),
		signature("Despacha"),
		signature("Recibe"),
	)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
