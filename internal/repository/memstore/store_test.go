package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/repository/memstore"
)

func TestWithinTx_RollbackRestoresState(t *testing.T) {
	st := memstore.New()
	itemID := st.AddCatalogItem(domain.CatalogItem{Name: "Notebook", Category: "TI", Active: true})
	eqID := st.AddEquipment(domain.Equipment{CatalogItemID: itemID, Status: domain.StatusReposicao})

	boom := errors.New("falha simulada")
	err := st.WithinTx(context.Background(), func(ctx context.Context, tx domain.TxStore) error {
		e, err := tx.GetEquipmentForUpdate(ctx, eqID)
		require.NoError(t, err)
		e.Status = domain.StatusVenda
		_, err = tx.UpdateEquipment(ctx, e)
		require.NoError(t, err)
		_, err = tx.InsertMovement(ctx, domain.Movement{EquipmentID: eqID, Type: domain.MovementExitSale, NewStatus: domain.StatusVenda})
		require.NoError(t, err)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	e, _ := st.Equipment(eqID)
	assert.Equal(t, domain.StatusReposicao, e.Status)
	assert.Empty(t, st.Movements())
}

func TestFailOn_NthCall(t *testing.T) {
	st := memstore.New()
	itemID := st.AddCatalogItem(domain.CatalogItem{Name: "Monitor", Category: "TI", Active: true})
	boom := errors.New("insert falhou")
	st.FailOn("InsertEquipment", 2, boom)

	err := st.WithinTx(context.Background(), func(ctx context.Context, tx domain.TxStore) error {
		for i := 0; i < 3; i++ {
			if _, err := tx.InsertEquipment(ctx, domain.Equipment{CatalogItemID: itemID, Status: domain.StatusReposicao}); err != nil {
				return err
			}
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestPartialUniqueIndexes(t *testing.T) {
	st := memstore.New()
	itemID := st.AddCatalogItem(domain.CatalogItem{Name: "Leitor", Category: "Coleta", Active: true})
	eqID := st.AddEquipment(domain.Equipment{CatalogItemID: itemID, Status: domain.StatusAgTriagem})
	ctx := context.Background()

	err := st.WithinTx(ctx, func(ctx context.Context, tx domain.TxStore) error {
		_, err := tx.InsertRepair(ctx, domain.Repair{EquipmentID: eqID, Status: domain.RepairWaiting})
		require.NoError(t, err)
		_, err = tx.InsertRepair(ctx, domain.Repair{EquipmentID: eqID, Status: domain.RepairWaiting})
		return err
	})
	assert.True(t, apperror.IsConflict(err))
	assert.Empty(t, st.Repairs(eqID))

	repairID := st.AddRepair(domain.Repair{EquipmentID: eqID, Status: domain.RepairPaused})
	err = st.WithinTx(ctx, func(ctx context.Context, tx domain.TxStore) error {
		_, err := tx.OpenSession(ctx, repairID, time.Now())
		require.NoError(t, err)
		_, err = tx.OpenSession(ctx, repairID, time.Now())
		return err
	})
	assert.True(t, apperror.IsConflict(err))

	err = st.WithinTx(ctx, func(ctx context.Context, tx domain.TxStore) error {
		_, err := tx.InsertRequest(ctx, domain.ReplenishmentRequest{CatalogItemID: itemID, Status: domain.RequestPending})
		require.NoError(t, err)
		_, err = tx.InsertRequest(ctx, domain.ReplenishmentRequest{CatalogItemID: itemID, Status: domain.RequestInProgress})
		return err
	})
	assert.True(t, apperror.IsConflict(err))
}

func TestCloseOpenSessions_ComputesMinutes(t *testing.T) {
	st := memstore.New()
	itemID := st.AddCatalogItem(domain.CatalogItem{Name: "Tablet", Category: "TI", Active: true})
	eqID := st.AddEquipment(domain.Equipment{CatalogItemID: itemID, Status: domain.StatusAgTriagem})
	repairID := st.AddRepair(domain.Repair{EquipmentID: eqID, Status: domain.RepairInProgress})
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	var closed []domain.RepairSession
	err := st.WithinTx(context.Background(), func(ctx context.Context, tx domain.TxStore) error {
		if _, err := tx.OpenSession(ctx, repairID, start); err != nil {
			return err
		}
		var err error
		closed, err = tx.CloseOpenSessions(ctx, repairID, start.Add(125*time.Second))
		return err
	})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, 2, *closed[0].Minutes)
	assert.NotNil(t, st.Sessions(repairID)[0].End)
}
