package requestservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// RequestReader lista a fila de solicitações com os dados do modelo.
type RequestReader interface {
	List(ctx context.Context, status domain.RequestStatus) ([]domain.ReplenishmentDetail, error)
}

// Service implementa a fila de solicitações de lote (reposição).
type Service struct {
	reader RequestReader
	tx     domain.Transactor
	logger logger.Logger
	now    func() time.Time
}

// NewService cria o serviço; now nil usa time.Now.
func NewService(reader RequestReader, tx domain.Transactor, logger logger.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{reader: reader, tx: tx, logger: logger, now: now}
}

func validStatuses() string {
	parts := make([]string, len(domain.RequestStatuses))
	for i, s := range domain.RequestStatuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// List devolve a fila ordenada: pendente, em_andamento, atendida, cancelada; mais recentes primeiro.
func (s *Service) List(ctx context.Context, status domain.RequestStatus) ([]domain.ReplenishmentDetail, error) {
	if status != "" && !status.Valid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("Status inválido. Aceitos: %s", validStatuses()))
	}
	return s.reader.List(ctx, status)
}

// Create abre uma solicitação para um modelo; só pode haver uma ativa por modelo.
func (s *Service) Create(ctx context.Context, in domain.ReplenishmentInput) (domain.ReplenishmentRequest, error) {
	if in.CatalogItemID <= 0 {
		return domain.ReplenishmentRequest{}, apperror.NewValidationError(`"item_catalogo_id" é obrigatório.`)
	}

	var created domain.ReplenishmentRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.TxStore) error {
		active, err := tx.IsCatalogItemActive(ctx, in.CatalogItemID)
		if err != nil {
			return err
		}
		if !active {
			return apperror.NewNotFoundError("Item de catálogo não encontrado ou inativo.")
		}
		if _, found, err := tx.FindActiveRequest(ctx, in.CatalogItemID); err != nil {
			return err
		} else if found {
			return apperror.NewConflictError("Já existe uma solicitação ativa para este modelo.")
		}

		created, err = tx.InsertRequest(ctx, domain.ReplenishmentRequest{
			CatalogItemID: in.CatalogItemID,
			Status:        domain.RequestPending,
			Note:          domain.OptionalString(in.Note),
		})
		return err
	})
	if err != nil {
		return domain.ReplenishmentRequest{}, err
	}

	s.logger.Info("Solicitação de lote criada.", map[string]interface{}{"solicitacao_id": created.ID, "item_catalogo_id": created.CatalogItemID})
	return created, nil
}

// UpdateStatus muda o status; atendida e cancelada são finais.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status domain.RequestStatus) (domain.ReplenishmentRequest, error) {
	if !status.Valid() {
		return domain.ReplenishmentRequest{}, apperror.NewValidationError(fmt.Sprintf("Status inválido. Aceitos: %s", validStatuses()))
	}

	var updated domain.ReplenishmentRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.TxStore) error {
		r, err := tx.GetRequestForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status == status {
			updated = r
			return nil
		}
		if !r.Status.Active() {
			return apperror.NewConflictError(fmt.Sprintf("Solicitação já está %s e não pode ser alterada.", r.Status))
		}

		if status == domain.RequestFulfilled {
			now := s.now()
			r.FulfilledAt = &now
		}
		r.Status = status
		updated, err = tx.UpdateRequest(ctx, r)
		return err
	})
	if err != nil {
		return domain.ReplenishmentRequest{}, err
	}

	s.logger.Info("Status da solicitação atualizado.", map[string]interface{}{"solicitacao_id": id, "status": status})
	return updated, nil
}
