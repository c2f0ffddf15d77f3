package domain

import (
	"context"
	"fmt"
	"time"

	apperror "pioerp/internal/errors"
)

// TxStore reúne as operações usadas dentro de uma transação de movimentação.
// Toda leitura "ForUpdate" bloqueia a linha até o fim da transação.
type TxStore interface {
	IsCatalogItemActive(ctx context.Context, id int64) (bool, error)
	IsLocationActive(ctx context.Context, id int64) (bool, error)
	IsBoxActive(ctx context.Context, id int64) (bool, error)

	// GetEquipmentForUpdate retorna NotFoundError quando o equipamento não existe.
	GetEquipmentForUpdate(ctx context.Context, id int64) (Equipment, error)
	// GetEquipmentsForUpdate devolve apenas os ids encontrados.
	GetEquipmentsForUpdate(ctx context.Context, ids []int64) ([]Equipment, error)
	InsertEquipment(ctx context.Context, e Equipment) (Equipment, error)
	UpdateEquipment(ctx context.Context, e Equipment) (Equipment, error)
	InsertMovement(ctx context.Context, m Movement) (Movement, error)

	FindActiveRepair(ctx context.Context, equipmentID int64) (Repair, bool, error)
	InsertRepair(ctx context.Context, r Repair) (Repair, error)
	GetRepairForUpdate(ctx context.Context, id int64) (Repair, error)
	UpdateRepair(ctx context.Context, r Repair) (Repair, error)
	// CloseOpenSessions fecha as sessões abertas do reparo em end e devolve as que foram fechadas.
	CloseOpenSessions(ctx context.Context, repairID int64, end time.Time) ([]RepairSession, error)
	OpenSession(ctx context.Context, repairID int64, start time.Time) (RepairSession, error)

	FindActiveRequest(ctx context.Context, catalogItemID int64) (ReplenishmentRequest, bool, error)
	InsertRequest(ctx context.Context, r ReplenishmentRequest) (ReplenishmentRequest, error)
	GetRequestForUpdate(ctx context.Context, id int64) (ReplenishmentRequest, error)
	UpdateRequest(ctx context.Context, r ReplenishmentRequest) (ReplenishmentRequest, error)
}

// Transactor executa fn numa transação: commit se fn retorna nil, rollback caso contrário.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
}

// BoxCode gera o código da n-ésima caixa de um pallet (ex.: P01-CX03).
func BoxCode(palletCode string, n int) string {
	return fmt.Sprintf("%s-CX%02d", palletCode, n)
}

// ValidatePlacement confere que o endereço e a caixa informados existem e estão ativos.
func ValidatePlacement(ctx context.Context, tx TxStore, p Placement) error {
	if p.LocationID != nil {
		ok, err := tx.IsLocationActive(ctx, *p.LocationID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NewNotFoundError("Endereço de destino não encontrado ou inativo.")
		}
	}
	if p.BoxID != nil {
		ok, err := tx.IsBoxActive(ctx, *p.BoxID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NewNotFoundError("Caixa de destino não encontrada ou inativa.")
		}
	}
	return nil
}
