package repairservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// RepairReader define as consultas de leitura do fluxo de reparo.
type RepairReader interface {
	GetByID(ctx context.Context, id int64) (domain.RepairDetail, error)
	Priorities(ctx context.Context) ([]domain.RepairPriority, error)
	CriticalModels(ctx context.Context) ([]domain.CriticalModel, error)
}

// MovementNotifier recebe as movimentações após o commit.
type MovementNotifier interface {
	MovementsCommitted(ctx context.Context, movements []domain.Movement)
}

// Service implementa o fluxo de reparo e o cronômetro de sessões.
type Service struct {
	reader   RepairReader
	tx       domain.Transactor
	notifier MovementNotifier
	logger   logger.Logger
	now      func() time.Time
}

// NewService cria o serviço de reparo. now é o relógio usado nas sessões;
// nil usa time.Now.
func NewService(reader RepairReader, tx domain.Transactor, notifier MovementNotifier, logger logger.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{reader: reader, tx: tx, notifier: notifier, logger: logger, now: now}
}

// GetByID devolve o reparo com as sessões e o tempo decorrido ao vivo.
func (s *Service) GetByID(ctx context.Context, id int64) (domain.RepairDetail, error) {
	detail, err := s.reader.GetByID(ctx, id)
	if err != nil {
		return domain.RepairDetail{}, err
	}
	for i, session := range detail.Sessions {
		if session.End != nil && session.Minutes == nil {
			m := domain.SessionMinutes(session.Start, *session.End)
			detail.Sessions[i].Minutes = &m
		}
	}
	if detail.Sessions == nil {
		detail.Sessions = []domain.RepairSession{}
	}
	detail.ElapsedSeconds = domain.ElapsedSeconds(detail.TotalMinutes, detail.Sessions, s.now())
	return detail, nil
}

// Priorities devolve a fila de reparos já ordenada pela persistência.
func (s *Service) Priorities(ctx context.Context) ([]domain.RepairPriority, error) {
	return s.reader.Priorities(ctx)
}

// CriticalModels lista os modelos abaixo do estoque mínimo.
func (s *Service) CriticalModels(ctx context.Context) ([]domain.CriticalModel, error) {
	return s.reader.CriticalModels(ctx)
}

// Update altera os campos descritivos; campos nil mantêm o valor atual.
func (s *Service) Update(ctx context.Context, id int64, in domain.RepairUpdate) (domain.Repair, error) {
	var updated domain.Repair
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.TxStore) error {
		r, err := tx.GetRepairForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.ProblemDescription != nil {
			r.ProblemDescription = domain.OptionalString(*in.ProblemDescription)
		}
		if in.Diagnosis != nil {
			r.Diagnosis = domain.OptionalString(*in.Diagnosis)
		}
		if in.FinalNotes != nil {
			r.FinalNotes = domain.OptionalString(*in.FinalNotes)
		}
		updated, err = tx.UpdateRepair(ctx, r)
		return err
	})
	if err != nil {
		return domain.Repair{}, err
	}
	return updated, nil
}

// Start inicia ou retoma um reparo abrindo uma nova sessão. Sessões abertas
// esquecidas são fechadas sem somar minutos.
func (s *Service) Start(ctx context.Context, id int64) (domain.StartResult, error) {
	var result domain.StartResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.TxStore) error {
		r, err := tx.GetRepairForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch r.Status {
		case domain.RepairFinished:
			return apperror.NewConflictError("Este reparo já foi finalizado.")
		case domain.RepairInProgress:
			return apperror.NewConflictError("Reparo já está em progresso.")
		}

		now := s.now()
		stray, err := tx.CloseOpenSessions(ctx, id, now)
		if err != nil {
			return err
		}
		if len(stray) > 0 {
			s.logger.Warn("Sessões abertas encontradas ao iniciar reparo foram fechadas.", map[string]interface{}{"reparo_id": id, "sessoes": len(stray)})
		}

		if result.Session, err = tx.OpenSession(ctx, id, now); err != nil {
			return err
		}

		result.Resumed = r.Status == domain.RepairPaused
		r.Status = domain.RepairInProgress
		if r.StartedAt == nil {
			r.StartedAt = &now
		}
		result.Repair, err = tx.UpdateRepair(ctx, r)
		return err
	})
	if err != nil {
		return domain.StartResult{}, err
	}

	s.logger.Info("Sessão de reparo aberta.", map[string]interface{}{"reparo_id": id, "retomado": result.Resumed})
	return result, nil
}

// StartMessage é a mensagem exibida ao iniciar/retomar.
func StartMessage(r domain.StartResult) string {
	if r.Resumed {
		return "Reparo retomado."
	}
	return "Reparo iniciado."
}

// Pause fecha a sessão corrente e acumula seus minutos no total.
func (s *Service) Pause(ctx context.Context, id int64) (domain.PauseResult, error) {
	var result domain.PauseResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.TxStore) error {
		r, err := tx.GetRepairForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != domain.RepairInProgress {
			return apperror.NewConflictError("Só é possível pausar um reparo em andamento.")
		}

		closed, err := tx.CloseOpenSessions(ctx, id, s.now())
		if err != nil {
			return err
		}
		result.SessionMinutes = domain.ClosedMinutes(closed)

		r.Status = domain.RepairPaused
		r.TotalMinutes += result.SessionMinutes
		result.Repair, err = tx.UpdateRepair(ctx, r)
		return err
	})
	if err != nil {
		return domain.PauseResult{}, err
	}

	s.logger.Info("Reparo pausado.", map[string]interface{}{"reparo_id": id, "minutos_sessao": result.SessionMinutes})
	return result, nil
}

// PauseMessage é a mensagem exibida ao pausar.
func PauseMessage(r domain.PauseResult) string {
	return fmt.Sprintf("Reparo pausado. +%d minutos registrados.", r.SessionMinutes)
}

func finishAllowed(d domain.Destination) bool {
	for _, v := range domain.FinishDestinations {
		if v == d {
			return true
		}
	}
	return false
}

// Finish encerra o reparo e move o equipamento para o destino escolhido.
func (s *Service) Finish(ctx context.Context, id int64, in domain.FinishInput) (domain.FinishResult, error) {
	dest := domain.Destination(strings.TrimSpace(in.Destination))
	if dest == "" {
		dest = domain.DestinationStock
	}
	if !finishAllowed(dest) {
		parts := make([]string, len(domain.FinishDestinations))
		for i, d := range domain.FinishDestinations {
			parts[i] = string(d)
		}
		return domain.FinishResult{}, apperror.NewValidationError(fmt.Sprintf(`"status_destino" inválido. Aceitos: %s`, strings.Join(parts, ", ")))
	}
	tr, _ := domain.ResolveTransition(dest)
	requested := domain.Placement{LocationID: in.LocationID, BoxID: in.BoxID}

	result := domain.FinishResult{Destination: dest}
	var movement domain.Movement
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.TxStore) error {
		r, err := tx.GetRepairForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status == domain.RepairFinished {
			return apperror.NewConflictError("Este reparo já foi finalizado.")
		}

		now := s.now()
		closed, err := tx.CloseOpenSessions(ctx, id, now)
		if err != nil {
			return err
		}
		if r.Status == domain.RepairInProgress {
			r.TotalMinutes += domain.ClosedMinutes(closed)
		}

		r.Status = domain.RepairFinished
		r.FinishedAt = &now
		if in.Diagnosis != nil {
			if v := domain.OptionalString(*in.Diagnosis); v != nil {
				r.Diagnosis = v
			}
		}
		if in.FinalNotes != nil {
			if v := domain.OptionalString(*in.FinalNotes); v != nil {
				r.FinalNotes = v
			}
		}
		if result.Repair, err = tx.UpdateRepair(ctx, r); err != nil {
			return err
		}
		result.TotalMinutes = r.TotalMinutes

		eq, err := tx.GetEquipmentForUpdate(ctx, r.EquipmentID)
		if err != nil {
			return err
		}
		if !tr.Status.LeavesWarehouse() {
			if err := domain.ValidatePlacement(ctx, tx, requested); err != nil {
				return err
			}
		}
		previous := eq.Status
		from := eq.Placement()
		eq.Status = tr.Status
		eq.SetPlacement(domain.NextPlacement(tr.Status, requested, from))
		if result.Equipment, err = tx.UpdateEquipment(ctx, eq); err != nil {
			return err
		}

		note := fmt.Sprintf("Reparo finalizado. Tempo: %d min. Destino: %s.", r.TotalMinutes, dest)
		if r.FinalNotes != nil {
			note += " " + *r.FinalNotes
		}
		movement, err = tx.InsertMovement(ctx, domain.NewMovement(eq.ID, tr.Movement, &previous, tr.Status, from, eq.Placement(), note))
		return err
	})
	if err != nil {
		s.logger.Warn("Finalização de reparo não concluída.", map[string]interface{}{"reparo_id": id, "error": err.Error()})
		return domain.FinishResult{}, err
	}

	s.notifier.MovementsCommitted(ctx, []domain.Movement{movement})
	s.logger.Info("Reparo finalizado.", map[string]interface{}{"reparo_id": id, "total_minutos": result.TotalMinutes, "destino": dest})
	return result, nil
}

// FinishMessage é a mensagem exibida ao finalizar.
func FinishMessage(r domain.FinishResult) string {
	return fmt.Sprintf("Reparo finalizado. Tempo total: %d minutos. Destino: %s", r.TotalMinutes, r.Destination)
}
