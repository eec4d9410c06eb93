// Package memory implementa la unidad de trabajo y los repositorios en memoria.
// Las transacciones se serializan; un error en fn restaura el estado previo. Además exige
// que toda fila de variación se bloquee (LockForUpdate) antes de mutarla y registra el
// orden de bloqueo para poder verificarlo en pruebas.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/traslados-api/internal/application/ports"
	"github.com/jhoicas/traslados-api/internal/domain"
	"github.com/jhoicas/traslados-api/internal/domain/entity"
	"github.com/jhoicas/traslados-api/internal/domain/repository"
)

var _ ports.UnitOfWork = (*Store)(nil)

// Store estado completo del inventario en memoria.
type Store struct {
	sem         chan struct{}
	lockTimeout time.Duration

	branches   map[string]entity.Branch
	variations map[string]entity.ProductVariation
	transfers  map[string]entity.StockTransfer
	movements  []entity.StockMovement

	lockLog         [][]string
	orderViolations int
}

// Option configura el Store.
type Option func(*Store)

// WithLockTimeout espera máxima para iniciar una transacción mientras otra está abierta.
// Si se agota, Run devuelve domain.ErrLockTimeout. Cero espera indefinidamente.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// NewStore construye un almacén vacío.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sem:        make(chan struct{}, 1),
		branches:   make(map[string]entity.Branch),
		variations: make(map[string]entity.ProductVariation),
		transfers:  make(map[string]entity.StockTransfer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ejecuta fn en exclusiva. Si fn falla, el estado vuelve a como estaba antes de Run.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, r repository.TxRepos) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	snap := s.snapshot()
	tx := &memTx{s: s, locked: make(map[string]struct{})}
	err := fn(ctx, tx)
	tx.closed = true
	if err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		t := time.NewTimer(s.lockTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return fmt.Errorf("%w: transacción en memoria ocupada", domain.ErrLockTimeout)
	}
}

func (s *Store) release() { <-s.sem }

type state struct {
	branches   map[string]entity.Branch
	variations map[string]entity.ProductVariation
	transfers  map[string]entity.StockTransfer
	movements  []entity.StockMovement
}

func (s *Store) snapshot() state {
	st := state{
		branches:   make(map[string]entity.Branch, len(s.branches)),
		variations: make(map[string]entity.ProductVariation, len(s.variations)),
		transfers:  make(map[string]entity.StockTransfer, len(s.transfers)),
		movements:  append([]entity.StockMovement(nil), s.movements...),
	}
	for k, v := range s.branches {
		st.branches[k] = v
	}
	for k, v := range s.variations {
		st.variations[k] = v
	}
	for k, v := range s.transfers {
		st.transfers[k] = cloneTransfer(v)
	}
	return st
}

func (s *Store) restore(st state) {
	s.branches = st.branches
	s.variations = st.variations
	s.transfers = st.transfers
	s.movements = st.movements
}

// ── Helpers para preparar y observar datos (pruebas y arranque local) ───────

// AddBranch registra una sucursal.
func (s *Store) AddBranch(b entity.Branch) {
	s.sem <- struct{}{}
	defer s.release()
	s.branches[b.ID] = b
}

// AddVariation registra una variación con sus cantidades iniciales.
func (s *Store) AddVariation(v entity.ProductVariation) {
	s.sem <- struct{}{}
	defer s.release()
	s.variations[v.ID] = v
}

// AddTransfer registra un traslado tal cual (por ejemplo uno en pending creado por otro proceso).
func (s *Store) AddTransfer(t entity.StockTransfer) {
	s.sem <- struct{}{}
	defer s.release()
	s.transfers[t.ID] = cloneTransfer(t)
}

// Variation devuelve una copia de la variación.
func (s *Store) Variation(id string) (entity.ProductVariation, bool) {
	s.sem <- struct{}{}
	defer s.release()
	v, ok := s.variations[id]
	return v, ok
}

// Variations devuelve todas las variaciones.
func (s *Store) Variations() []entity.ProductVariation {
	s.sem <- struct{}{}
	defer s.release()
	out := make([]entity.ProductVariation, 0, len(s.variations))
	for _, v := range s.variations {
		out = append(out, v)
	}
	return out
}

// TransferCount número de traslados persistidos.
func (s *Store) TransferCount() int {
	s.sem <- struct{}{}
	defer s.release()
	return len(s.transfers)
}

// AllMovements copia del kardex completo en orden de registro.
func (s *Store) AllMovements() []entity.StockMovement {
	s.sem <- struct{}{}
	defer s.release()
	return append([]entity.StockMovement(nil), s.movements...)
}

// LockLog ids bloqueados por cada llamada a LockForUpdate, en el orden en que se tomaron.
func (s *Store) LockLog() [][]string {
	s.sem <- struct{}{}
	defer s.release()
	out := make([][]string, len(s.lockLog))
	for i, ids := range s.lockLog {
		out[i] = append([]string(nil), ids...)
	}
	return out
}

// LockOrderViolations veces que una transacción bloqueó un ID menor que otro que ya tenía.
func (s *Store) LockOrderViolations() int {
	s.sem <- struct{}{}
	defer s.release()
	return s.orderViolations
}

// BranchRepository acceso a sucursales fuera de una unidad de trabajo explícita.
func (s *Store) BranchRepository() repository.BranchRepository {
	return branchRepo{s: s}
}

type branchRepo struct{ s *Store }

func (r branchRepo) Create(ctx context.Context, b *entity.Branch) error {
	return r.s.Run(ctx, func(ctx context.Context, tx repository.TxRepos) error {
		return tx.Branches().Create(ctx, b)
	})
}

func (r branchRepo) GetByID(ctx context.Context, id string) (*entity.Branch, error) {
	var out *entity.Branch
	err := r.s.Run(ctx, func(ctx context.Context, tx repository.TxRepos) error {
		b, err := tx.Branches().GetByID(ctx, id)
		out = b
		return err
	})
	return out, err
}

func (r branchRepo) List(ctx context.Context, limit, offset int) ([]*entity.Branch, error) {
	var out []*entity.Branch
	err := r.s.Run(ctx, func(ctx context.Context, tx repository.TxRepos) error {
		list, err := tx.Branches().List(ctx, limit, offset)
		out = list
		return err
	})
	return out, err
}

func cloneTransfer(t entity.StockTransfer) entity.StockTransfer {
	c := t
	c.Items = append([]entity.StockTransferItem(nil), t.Items...)
	c.ApprovedByUserID = cloneString(t.ApprovedByUserID)
	c.CancelledByUserID = cloneString(t.CancelledByUserID)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.CancelledAt = cloneTime(t.CancelledAt)
	return c
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
