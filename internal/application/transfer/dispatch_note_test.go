package transfer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/traslados-api/internal/application/transfer"
	"github.com/jhoicas/traslados-api/internal/domain"
)

type generatorMock struct{ mock.Mock }

func (m *generatorMock) GenerateDispatchNote(ctx context.Context, note transfer.DispatchNote) ([]byte, error) {
	args := m.Called(ctx, note)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func TestDispatchNote_Download(t *testing.T) {
	s := newStore(t)
	wf := transfer.NewWorkflow(s, nil, nil)
	tr, err := wf.Create(context.Background(), createInput(4))
	require.NoError(t, err)

	gen := new(generatorMock)
	gen.On("GenerateDispatchNote", mock.Anything, mock.MatchedBy(func(n transfer.DispatchNote) bool {
		return n.Transfer.ID == tr.ID &&
			n.Origin.Name == "Centro" &&
			n.Destination.Name == "Norte" &&
			len(n.Lines) == 1 &&
			n.Lines[0].SKU == "CAM-R-M" &&
			n.Lines[0].Quantity == 4
	})).Return([]byte("%PDF-1.4"), nil).Once()

	uc := transfer.NewDispatchNoteUseCase(s, gen)
	pdf, name, err := uc.Download(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), pdf)
	assert.Equal(t, "remision-"+tr.ID+".pdf", name)
	gen.AssertExpectations(t)
}

func TestDispatchNote_TrasladoCancelado(t *testing.T) {
	s := newStore(t)
	wf := transfer.NewWorkflow(s, nil, nil)
	tr, err := wf.Create(context.Background(), createInput(4))
	require.NoError(t, err)
	_, err = wf.Cancel(context.Background(), tr.ID, user)
	require.NoError(t, err)

	gen := new(generatorMock)
	_, _, err = transfer.NewDispatchNoteUseCase(s, gen).Download(context.Background(), tr.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	gen.AssertNotCalled(t, "GenerateDispatchNote", mock.Anything, mock.Anything)
}

func TestDispatchNote_ErrorDelGenerador(t *testing.T) {
	s := newStore(t)
	tr, err := transfer.NewWorkflow(s, nil, nil).Create(context.Background(), createInput(1))
	require.NoError(t, err)

	gen := new(generatorMock)
	gen.On("GenerateDispatchNote", mock.Anything, mock.Anything).Return(nil, errors.New("fuente no encontrada"))

	_, _, err = transfer.NewDispatchNoteUseCase(s, gen).Download(context.Background(), tr.ID)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestDispatchNote_Inexistente(t *testing.T) {
	_, _, err := transfer.NewDispatchNoteUseCase(newStore(t), new(generatorMock)).Download(context.Background(), "t-x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
