package equipmentservice_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
	"pioerp/internal/repository/memstore"
	"pioerp/internal/service/equipmentservice"
)

// MockEquipmentReader é uma implementação mock da interface EquipmentReader
type MockEquipmentReader struct {
	mock.Mock
}

func (m *MockEquipmentReader) List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.EquipmentDetail, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.EquipmentDetail), args.Error(1)
}

func (m *MockEquipmentReader) GetByID(ctx context.Context, id int64) (domain.EquipmentDetail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.EquipmentDetail), args.Error(1)
}

type recordingNotifier struct {
	movements []domain.Movement
}

func (r *recordingNotifier) MovementsCommitted(_ context.Context, movements []domain.Movement) {
	r.movements = append(r.movements, movements...)
}

type fixture struct {
	store    *memstore.Store
	svc      *equipmentservice.Service
	notifier *recordingNotifier
	itemID   int64
	locID    int64
	boxID    int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	f := &fixture{store: st, notifier: &recordingNotifier{}}
	f.itemID = st.AddCatalogItem(domain.CatalogItem{Name: "Notebook Dell", Category: "TI", MinStock: 2, MaxStock: 10, Active: true})
	f.locID = st.AddLocation(domain.Location{Code: "PP-01", Level: domain.LevelRack, Active: true})
	palletID := st.AddPallet(domain.Pallet{Code: "P01", LocationID: f.locID, Active: true})
	f.boxID = st.AddBox(domain.Box{Code: "P01-CX01", PalletID: palletID, Active: true})
	f.svc = equipmentservice.NewService(new(MockEquipmentReader), st, f.notifier, logger.NewLoggerTo(&bytes.Buffer{}, "error"))
	return f
}

func (f *fixture) addEquipment(status domain.EquipmentStatus) int64 {
	loc := f.locID
	return f.store.AddEquipment(domain.Equipment{
		CatalogItemID: f.itemID,
		SerialNumber:  "SN",
		AssetTag:      "PAT",
		Status:        status,
		LocationID:    &loc,
	})
}

func int64p(v int64) *int64 { return &v }

func TestRegisterEntry_Purchase(t *testing.T) {
	f := newFixture(t)

	eq, err := f.svc.RegisterEntry(context.Background(), domain.EntryInput{
		CatalogItemID: f.itemID,
		SerialNumber:  " SN001 ",
		AssetTag:      "PAT001",
		BoxID:         int64p(f.boxID),
		EntryType:     "entrada_compra",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusReposicao, eq.Status)
	assert.Equal(t, "SN001", eq.SerialNumber)
	assert.Equal(t, f.boxID, *eq.BoxID)

	movs := f.store.Movements()
	require.Len(t, movs, 1)
	assert.Nil(t, movs[0].PreviousStatus)
	assert.Equal(t, domain.StatusReposicao, movs[0].NewStatus)
	assert.Equal(t, domain.MovementPurchase, movs[0].Type)
	assert.Len(t, f.notifier.movements, 1)
}

func TestRegisterEntry_ReceivingGoesToPreTriage(t *testing.T) {
	f := newFixture(t)

	eq, err := f.svc.RegisterEntry(context.Background(), domain.EntryInput{
		CatalogItemID: f.itemID,
		SerialNumber:  "SN002",
		AssetTag:      "PAT002",
		LocationID:    int64p(f.locID),
		EntryType:     "entrada_recebimento",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreTriagem, eq.Status)
}

func TestRegisterEntry_Validation(t *testing.T) {
	f := newFixture(t)
	base := domain.EntryInput{CatalogItemID: f.itemID, SerialNumber: "SN", AssetTag: "PAT", LocationID: int64p(f.locID)}

	cases := map[string]func(in *domain.EntryInput){
		"sem catálogo":      func(in *domain.EntryInput) { in.CatalogItemID = 0 },
		"série em branco":   func(in *domain.EntryInput) { in.SerialNumber = "   " },
		"sem imobilizado":   func(in *domain.EntryInput) { in.AssetTag = "" },
		"sem destino":       func(in *domain.EntryInput) { in.LocationID = nil },
		"tipo desconhecido": func(in *domain.EntryInput) { in.EntryType = "doacao" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			mutate(&in)
			_, err := f.svc.RegisterEntry(context.Background(), in)
			assert.True(t, apperror.IsValidation(err), "erro inesperado: %v", err)
		})
	}
	assert.Empty(t, f.store.Movements())
}

func TestRegisterEntry_InactiveReferences(t *testing.T) {
	f := newFixture(t)
	inactiveItem := f.store.AddCatalogItem(domain.CatalogItem{Name: "Antigo", Category: "TI", Active: false})
	inactiveLoc := f.store.AddLocation(domain.Location{Code: "PP-99", Level: domain.LevelRack, Active: false})

	_, err := f.svc.RegisterEntry(context.Background(), domain.EntryInput{
		CatalogItemID: inactiveItem, SerialNumber: "SN", AssetTag: "PAT", LocationID: int64p(f.locID),
	})
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.svc.RegisterEntry(context.Background(), domain.EntryInput{
		CatalogItemID: f.itemID, SerialNumber: "SN", AssetTag: "PAT", LocationID: int64p(inactiveLoc),
	})
	assert.True(t, apperror.IsNotFound(err))
	assert.Empty(t, f.store.Movements())
}

func TestRegisterEntry_HistoryFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("InsertMovement", 1, apperror.NewDBError("falha simulada", errors.New("conexão perdida")))

	_, err := f.svc.RegisterEntry(context.Background(), domain.EntryInput{
		CatalogItemID: f.itemID, SerialNumber: "SN", AssetTag: "PAT", LocationID: int64p(f.locID),
	})

	require.Error(t, err)
	// O id 5 seria o primeiro equipamento inserido após as seeds.
	_, found := f.store.Equipment(5)
	assert.False(t, found)
	assert.Empty(t, f.notifier.movements)
}

func TestTransitionStatus_TriageOpensSingleRepair(t *testing.T) {
	f := newFixture(t)
	id := f.addEquipment(domain.StatusReposicao)

	res, err := f.svc.TransitionStatus(context.Background(), id, domain.ExitInput{Destination: "ag_triagem", Note: "Tela quebrada"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAgTriagem, res.NewStatus)
	require.NotNil(t, res.Repair)
	assert.Equal(t, domain.RepairWaiting, res.Repair.Status)
	assert.Equal(t, "Tela quebrada", *res.Repair.ProblemDescription)

	res, err = f.svc.TransitionStatus(context.Background(), id, domain.ExitInput{Destination: "ag_triagem"})
	require.NoError(t, err)
	assert.Nil(t, res.Repair)
	assert.Len(t, f.store.Repairs(id), 1)
	assert.Len(t, f.store.Movements(), 2)
}

func TestTransitionStatus_LeavingWarehouseClearsPlacement(t *testing.T) {
	f := newFixture(t)

	for _, dest := range []string{"saida_uso", "venda"} {
		id := f.addEquipment(domain.StatusReposicao)
		res, err := f.svc.TransitionStatus(context.Background(), id, domain.ExitInput{
			Destination: dest,
			LocationID:  int64p(f.locID),
			BoxID:       int64p(f.boxID),
		})
		require.NoError(t, err)

		eq, _ := f.store.Equipment(id)
		assert.Nil(t, eq.LocationID, dest)
		assert.Nil(t, eq.BoxID, dest)
		assert.Equal(t, res.NewStatus, eq.Status)
	}
}

func TestTransitionStatus_KeepsOrReplacesPlacement(t *testing.T) {
	f := newFixture(t)
	id := f.addEquipment(domain.StatusAgTriagem)

	_, err := f.svc.TransitionStatus(context.Background(), id, domain.ExitInput{Destination: "pre_venda"})
	require.NoError(t, err)
	eq, _ := f.store.Equipment(id)
	assert.Equal(t, f.locID, *eq.LocationID)

	_, err = f.svc.TransitionStatus(context.Background(), id, domain.ExitInput{Destination: "reposicao", BoxID: int64p(f.boxID)})
	require.NoError(t, err)
	eq, _ = f.store.Equipment(id)
	assert.Nil(t, eq.LocationID)
	assert.Equal(t, f.boxID, *eq.BoxID)

	movs := f.store.Movements()
	last := movs[len(movs)-1]
	assert.Equal(t, domain.MovementRepairReturn, last.Type)
	assert.Equal(t, domain.StatusPreVenda, *last.PreviousStatus)
	assert.Equal(t, f.locID, *last.FromLocationID)
	assert.Equal(t, f.boxID, *last.ToBoxID)
}

func TestTransitionStatus_Errors(t *testing.T) {
	f := newFixture(t)
	id := f.addEquipment(domain.StatusReposicao)

	_, err := f.svc.TransitionStatus(context.Background(), id, domain.ExitInput{})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.TransitionStatus(context.Background(), id, domain.ExitInput{Destination: "perdido"})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.TransitionStatus(context.Background(), 999, domain.ExitInput{Destination: "venda"})
	assert.True(t, apperror.IsNotFound(err))

	assert.Empty(t, f.store.Movements())
}

func TestTransitionStatus_RepairFailureRollsBackStatus(t *testing.T) {
	f := newFixture(t)
	id := f.addEquipment(domain.StatusReposicao)
	f.store.FailOn("InsertRepair", 1, apperror.NewDBError("falha simulada", errors.New("timeout")))

	_, err := f.svc.TransitionStatus(context.Background(), id, domain.ExitInput{Destination: "ag_triagem"})

	require.Error(t, err)
	eq, _ := f.store.Equipment(id)
	assert.Equal(t, domain.StatusReposicao, eq.Status)
	assert.Empty(t, f.store.Movements())
	assert.Empty(t, f.store.Repairs(id))
}

func TestAssembleLot_Success(t *testing.T) {
	f := newFixture(t)
	a := f.addEquipment(domain.StatusPreTriagem)
	b := f.addEquipment(domain.StatusPreVenda)

	res, err := f.svc.AssembleLot(context.Background(), domain.LotInput{
		EquipmentIDs: []int64{b, a, a},
		BoxID:        int64p(f.boxID),
		Destination:  domain.StatusAgTriagem,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Transferred)
	assert.Equal(t, 2, res.RepairsOpened)
	assert.Equal(t, "2 equipamento(s) transferidos para Ag. Triagem.", equipmentservice.LotMessage(res))

	for _, id := range []int64{a, b} {
		eq, _ := f.store.Equipment(id)
		assert.Equal(t, domain.StatusAgTriagem, eq.Status)
		assert.Equal(t, f.boxID, *eq.BoxID)
		assert.Len(t, f.store.Repairs(id), 1)
	}
	for _, m := range f.store.Movements() {
		assert.Equal(t, domain.MovementLotTransfer, m.Type)
	}
	assert.Len(t, f.notifier.movements, 2)
}

func TestAssembleLot_SaleClearsPlacement(t *testing.T) {
	f := newFixture(t)
	a := f.addEquipment(domain.StatusPreVenda)

	res, err := f.svc.AssembleLot(context.Background(), domain.LotInput{
		EquipmentIDs: []int64{a},
		LocationID:   int64p(f.locID),
		Destination:  domain.StatusVenda,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, res.RepairsOpened)
	eq, _ := f.store.Equipment(a)
	assert.Nil(t, eq.LocationID)
	assert.Empty(t, f.store.Repairs(a))
}

func TestAssembleLot_InvalidSourceAbortsWholeBatch(t *testing.T) {
	f := newFixture(t)
	ok := f.addEquipment(domain.StatusPreTriagem)
	inUse := f.addEquipment(domain.StatusEmUso)

	_, err := f.svc.AssembleLot(context.Background(), domain.LotInput{
		EquipmentIDs: []int64{ok, inUse},
		LocationID:   int64p(f.locID),
		Destination:  domain.StatusAgTriagem,
	})

	assert.True(t, apperror.IsConflict(err))
	eqOK, _ := f.store.Equipment(ok)
	eqUse, _ := f.store.Equipment(inUse)
	assert.Equal(t, domain.StatusPreTriagem, eqOK.Status)
	assert.Equal(t, domain.StatusEmUso, eqUse.Status)
	assert.Empty(t, f.store.Movements())
	assert.Empty(t, f.store.Repairs(ok))
}

func TestAssembleLot_MidBatchFailureRollsBackAll(t *testing.T) {
	f := newFixture(t)
	a := f.addEquipment(domain.StatusPreTriagem)
	b := f.addEquipment(domain.StatusPreTriagem)
	f.store.FailOn("InsertMovement", 2, apperror.NewDBError("falha simulada", errors.New("deadlock")))

	_, err := f.svc.AssembleLot(context.Background(), domain.LotInput{
		EquipmentIDs: []int64{a, b},
		LocationID:   int64p(f.locID),
		Destination:  domain.StatusAgTriagem,
	})

	require.Error(t, err)
	for _, id := range []int64{a, b} {
		eq, _ := f.store.Equipment(id)
		assert.Equal(t, domain.StatusPreTriagem, eq.Status)
		assert.Empty(t, f.store.Repairs(id))
	}
	assert.Empty(t, f.store.Movements())
}

func TestAssembleLot_Validation(t *testing.T) {
	f := newFixture(t)
	a := f.addEquipment(domain.StatusPreTriagem)

	_, err := f.svc.AssembleLot(context.Background(), domain.LotInput{LocationID: int64p(f.locID), Destination: domain.StatusVenda})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.AssembleLot(context.Background(), domain.LotInput{EquipmentIDs: []int64{a}, Destination: domain.StatusVenda})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.AssembleLot(context.Background(), domain.LotInput{EquipmentIDs: []int64{a}, LocationID: int64p(f.locID), Destination: domain.StatusReposicao})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.AssembleLot(context.Background(), domain.LotInput{EquipmentIDs: []int64{a, 999}, LocationID: int64p(f.locID), Destination: domain.StatusVenda})
	assert.True(t, apperror.IsNotFound(err))
}

func TestRegisterEntry_RepeatedSerialAccepted(t *testing.T) {
	f := newFixture(t)
	in := domain.EntryInput{CatalogItemID: f.itemID, SerialNumber: "SN-REP", AssetTag: "PAT-1", BoxID: int64p(f.boxID)}

	first, err := f.svc.RegisterEntry(context.Background(), in)
	require.NoError(t, err)

	in.AssetTag = "PAT-2"
	second, err := f.svc.RegisterEntry(context.Background(), in)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, f.store.Movements(), 2)
}

func TestAssembleLot_InvalidIDsRejectWholeLot(t *testing.T) {
	f := newFixture(t)
	a := f.addEquipment(domain.StatusPreTriagem)

	_, err := f.svc.AssembleLot(context.Background(), domain.LotInput{
		EquipmentIDs: []int64{a, 0, -7},
		LocationID:   int64p(f.locID),
		Destination:  domain.StatusAgTriagem,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	eq, ok := f.store.Equipment(a)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPreTriagem, eq.Status)
	assert.Empty(t, f.store.Movements())
	assert.Empty(t, f.store.Repairs(a))
}

func TestList_InvalidStatus(t *testing.T) {
	reader := new(MockEquipmentReader)
	svc := equipmentservice.NewService(reader, memstore.New(), &recordingNotifier{}, logger.NewLoggerTo(&bytes.Buffer{}, "error"))

	_, err := svc.List(context.Background(), domain.EquipmentFilter{Status: "quebrado"})
	assert.True(t, apperror.IsValidation(err))
	reader.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestList_DelegatesToReader(t *testing.T) {
	reader := new(MockEquipmentReader)
	svc := equipmentservice.NewService(reader, memstore.New(), &recordingNotifier{}, logger.NewLoggerTo(&bytes.Buffer{}, "error"))
	filter := domain.EquipmentFilter{Status: domain.StatusReposicao}
	expected := []domain.EquipmentDetail{{Equipment: domain.Equipment{ID: 1, Status: domain.StatusReposicao}, Model: "Notebook"}}

	reader.On("List", mock.Anything, filter).Return(expected, nil)

	got, err := svc.List(context.Background(), filter)
	assert.NoError(t, err)
	assert.Equal(t, expected, got)
	reader.AssertExpectations(t)
}
