package internalizationservice

import (
	"context"
	"fmt"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// InternalizationReader define as consultas da tela de internalização.
type InternalizationReader interface {
	ListPending(ctx context.Context) ([]domain.EquipmentDetail, error)
	BoxesForModel(ctx context.Context, catalogItemID int64) ([]domain.BoxLocation, error)
}

// MovementNotifier recebe as movimentações após o commit.
type MovementNotifier interface {
	MovementsCommitted(ctx context.Context, movements []domain.Movement)
}

// Service aprova equipamentos que voltaram do reparo para o estoque da filial.
type Service struct {
	reader   InternalizationReader
	tx       domain.Transactor
	notifier MovementNotifier
	logger   logger.Logger
	branch   string
}

// NewService cria o serviço; branch vazio usa o código padrão de filial.
func NewService(reader InternalizationReader, tx domain.Transactor, notifier MovementNotifier, logger logger.Logger, branch string) *Service {
	if branch == "" {
		branch = domain.InternalizationBranchCode
	}
	return &Service{reader: reader, tx: tx, notifier: notifier, logger: logger, branch: branch}
}

// ListPending lista os equipamentos aguardando internalização, mais antigos primeiro.
func (s *Service) ListPending(ctx context.Context) ([]domain.EquipmentDetail, error) {
	return s.reader.ListPending(ctx)
}

// BoxesForModel sugere caixas que já guardam o modelo em reposição.
func (s *Service) BoxesForModel(ctx context.Context, catalogItemID int64) ([]domain.BoxLocation, error) {
	if catalogItemID <= 0 {
		return nil, apperror.NewValidationError(`"catalogo_id" inválido.`)
	}
	return s.reader.BoxesForModel(ctx, catalogItemID)
}

// Approve coloca o equipamento na caixa escolhida, em reposição, com a filial configurada.
func (s *Service) Approve(ctx context.Context, id int64, boxID *int64) (domain.Equipment, error) {
	if boxID == nil || *boxID <= 0 {
		return domain.Equipment{}, apperror.NewValidationError(`"caixa_id" é obrigatório para aprovar a internalização.`)
	}

	var approved domain.Equipment
	var movement domain.Movement
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.TxStore) error {
		eq, err := tx.GetEquipmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if eq.Status != domain.StatusAgInternalizacao {
			return apperror.NewConflictError("Equipamento não está aguardando internalização.")
		}
		active, err := tx.IsBoxActive(ctx, *boxID)
		if err != nil {
			return err
		}
		if !active {
			return apperror.NewNotFoundError("Caixa não encontrada.")
		}

		previous := eq.Status
		from := eq.Placement()
		branch := s.branch
		eq.Status = domain.StatusReposicao
		eq.BranchCode = &branch
		eq.SetPlacement(domain.Placement{BoxID: boxID})
		if approved, err = tx.UpdateEquipment(ctx, eq); err != nil {
			return err
		}

		note := fmt.Sprintf("Internalização aprovada pelo administrador. Filial alterada para %s.", branch)
		movement, err = tx.InsertMovement(ctx, domain.NewMovement(eq.ID, domain.MovementTransfer, &previous, eq.Status, from, eq.Placement(), note))
		return err
	})
	if err != nil {
		s.logger.Warn("Aprovação de internalização não concluída.", map[string]interface{}{"equipamento_id": id, "error": err.Error()})
		return domain.Equipment{}, err
	}

	s.notifier.MovementsCommitted(ctx, []domain.Movement{movement})
	s.logger.Info("Internalização aprovada.", map[string]interface{}{"equipamento_id": id, "caixa_id": *boxID, "filial": s.branch})
	return approved, nil
}
