package equipmentservice

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// EquipmentReader define as consultas de leitura que o serviço espera da persistência.
type EquipmentReader interface {
	List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.EquipmentDetail, error)
	GetByID(ctx context.Context, id int64) (domain.EquipmentDetail, error)
}

// MovementNotifier recebe as movimentações após o commit.
type MovementNotifier interface {
	MovementsCommitted(ctx context.Context, movements []domain.Movement)
}

// Service implementa o registro de equipamentos e a máquina de estados.
type Service struct {
	reader   EquipmentReader
	tx       domain.Transactor
	notifier MovementNotifier
	logger   logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Equipamentos.
func NewService(reader EquipmentReader, tx domain.Transactor, notifier MovementNotifier, logger logger.Logger) *Service {
	return &Service{reader: reader, tx: tx, notifier: notifier, logger: logger}
}

// List devolve os equipamentos filtrados, mais recentes primeiro.
func (s *Service) List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.EquipmentDetail, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("Status inválido. Aceitos: %s", joinStatuses(domain.EquipmentStatuses)))
	}
	return s.reader.List(ctx, filter)
}

// GetByID busca um equipamento com catálogo e localização.
func (s *Service) GetByID(ctx context.Context, id int64) (domain.EquipmentDetail, error) {
	return s.reader.GetByID(ctx, id)
}

// RegisterEntry registra a entrada de um equipamento e o primeiro histórico.
func (s *Service) RegisterEntry(ctx context.Context, in domain.EntryInput) (domain.Equipment, error) {
	s.logger.Debug("Iniciando entrada de equipamento no serviço.", map[string]interface{}{
		"item_catalogo_id": in.CatalogItemID,
		"numero_serie":     in.SerialNumber,
	})

	serial := strings.TrimSpace(in.SerialNumber)
	assetTag := strings.TrimSpace(in.AssetTag)
	switch {
	case in.CatalogItemID <= 0:
		return domain.Equipment{}, apperror.NewValidationError(`"item_catalogo_id" é obrigatório.`)
	case serial == "":
		return domain.Equipment{}, apperror.NewValidationError(`"numero_serie" é obrigatório.`)
	case assetTag == "":
		return domain.Equipment{}, apperror.NewValidationError(`"imobilizado" é obrigatório.`)
	}
	placement := domain.Placement{LocationID: in.LocationID, BoxID: in.BoxID}
	if placement.IsEmpty() {
		return domain.Equipment{}, apperror.NewValidationError(`"endereco_id" ou "caixa_id" é obrigatório.`)
	}
	entryType, err := domain.ParseEntryType(in.EntryType)
	if err != nil {
		return domain.Equipment{}, apperror.NewValidationError(err.Error())
	}

	var created domain.Equipment
	var movement domain.Movement
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.TxStore) error {
		active, err := tx.IsCatalogItemActive(ctx, in.CatalogItemID)
		if err != nil {
			return err
		}
		if !active {
			return apperror.NewNotFoundError("Item de catálogo não encontrado ou inativo.")
		}
		if err := domain.ValidatePlacement(ctx, tx, placement); err != nil {
			return err
		}

		status := entryType.InitialStatus()
		created, err = tx.InsertEquipment(ctx, domain.Equipment{
			CatalogItemID: in.CatalogItemID,
			SerialNumber:  serial,
			AssetTag:      assetTag,
			Status:        status,
			LocationID:    placement.LocationID,
			BoxID:         placement.BoxID,
			Notes:         domain.OptionalString(in.Note),
		})
		if err != nil {
			return err
		}

		movement, err = tx.InsertMovement(ctx, domain.NewMovement(
			created.ID, domain.MovementType(entryType), nil, status, domain.Placement{}, placement, in.Note,
		))
		return err
	})
	if err != nil {
		s.logger.Warn("Entrada de equipamento não concluída.", map[string]interface{}{"numero_serie": serial, "error": err.Error()})
		return domain.Equipment{}, err
	}

	s.notifier.MovementsCommitted(ctx, []domain.Movement{movement})
	s.logger.Info("Equipamento registrado com sucesso.", map[string]interface{}{"equipamento_id": created.ID, "status": created.Status})
	return created, nil
}

// TransitionStatus aplica a tabela de transições a um equipamento.
func (s *Service) TransitionStatus(ctx context.Context, id int64, in domain.ExitInput) (domain.TransitionResult, error) {
	dest := domain.Destination(strings.TrimSpace(in.Destination))
	if dest == "" {
		return domain.TransitionResult{}, apperror.NewValidationError(`"status_destino" é obrigatório.`)
	}
	tr, ok := domain.ResolveTransition(dest)
	if !ok {
		return domain.TransitionResult{}, apperror.NewValidationError(fmt.Sprintf(`"status_destino" inválido. Aceitos: %s`, joinDestinations(domain.Destinations)))
	}
	requested := domain.Placement{LocationID: in.LocationID, BoxID: in.BoxID}

	result := domain.TransitionResult{EquipmentID: id, NewStatus: tr.Status, Description: tr.Description}
	var movement domain.Movement
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.TxStore) error {
		eq, err := tx.GetEquipmentForUpdate(ctx, id)
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

		movement, err = tx.InsertMovement(ctx, domain.NewMovement(eq.ID, tr.Movement, &previous, tr.Status, from, eq.Placement(), in.Note))
		if err != nil {
			return err
		}

		if tr.Status == domain.StatusAgTriagem {
			repair, opened, err := ensureRepair(ctx, tx, eq.ID, in.Note)
			if err != nil {
				return err
			}
			if opened {
				result.Repair = &repair
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("Transição de status não concluída.", map[string]interface{}{"equipamento_id": id, "destino": dest, "error": err.Error()})
		return domain.TransitionResult{}, err
	}

	s.notifier.MovementsCommitted(ctx, []domain.Movement{movement})
	s.logger.Info("Status do equipamento alterado.", map[string]interface{}{
		"equipamento_id": id,
		"status_novo":    tr.Status,
		"reparo_aberto":  result.Repair != nil,
	})
	return result, nil
}

// lotSources são os status de origem aceitos na montagem de pallet.
var lotSources = map[domain.EquipmentStatus]bool{
	domain.StatusPreTriagem: true,
	domain.StatusPreVenda:   true,
}

// AssembleLot transfere um lote de equipamentos das prateleiras intermediárias
// para triagem ou venda. Qualquer item inválido aborta o lote inteiro.
func (s *Service) AssembleLot(ctx context.Context, in domain.LotInput) (domain.LotResult, error) {
	ids := dedupe(in.EquipmentIDs)
	if len(ids) == 0 {
		return domain.LotResult{}, apperror.NewValidationError(`"equipamento_ids" deve ser um array não vazio.`)
	}
	requested := domain.Placement{LocationID: in.LocationID, BoxID: in.BoxID}
	if requested.IsEmpty() {
		return domain.LotResult{}, apperror.NewValidationError(`"endereco_destino_id" é obrigatório.`)
	}
	if in.Destination != domain.StatusAgTriagem && in.Destination != domain.StatusVenda {
		return domain.LotResult{}, apperror.NewValidationError(fmt.Sprintf(`"status_destino" inválido. Aceitos: %s, %s`, domain.StatusAgTriagem, domain.StatusVenda))
	}

	result := domain.LotResult{Destination: in.Destination, EquipmentIDs: []int64{}}
	var movements []domain.Movement
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx domain.TxStore) error {
		if err := domain.ValidatePlacement(ctx, tx, requested); err != nil {
			return err
		}

		items, err := tx.GetEquipmentsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if len(items) != len(ids) {
			return apperror.NewNotFoundError("Um ou mais equipamentos não foram encontrados.")
		}
		invalid := 0
		for _, eq := range items {
			if !lotSources[eq.Status] {
				invalid++
			}
		}
		if invalid > 0 {
			return apperror.NewConflictError(fmt.Sprintf("%d equipamento(s) não estão em pré-triagem ou pré-venda e não podem ser transferidos.", invalid))
		}

		for _, eq := range items {
			previous := eq.Status
			from := eq.Placement()
			eq.Status = in.Destination
			eq.SetPlacement(domain.NextPlacement(in.Destination, requested, from))
			if _, err := tx.UpdateEquipment(ctx, eq); err != nil {
				return err
			}

			m, err := tx.InsertMovement(ctx, domain.NewMovement(eq.ID, domain.MovementLotTransfer, &previous, in.Destination, from, eq.Placement(), in.Note))
			if err != nil {
				return err
			}
			movements = append(movements, m)

			if in.Destination == domain.StatusAgTriagem {
				_, opened, err := ensureRepair(ctx, tx, eq.ID, in.Note)
				if err != nil {
					return err
				}
				if opened {
					result.RepairsOpened++
				}
			}
			result.EquipmentIDs = append(result.EquipmentIDs, eq.ID)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("Montagem de pallet não concluída.", map[string]interface{}{"equipamentos": len(ids), "error": err.Error()})
		return domain.LotResult{}, err
	}

	result.Transferred = len(result.EquipmentIDs)
	s.notifier.MovementsCommitted(ctx, movements)
	s.logger.Info("Lote transferido.", map[string]interface{}{"transferidos": result.Transferred, "status_destino": in.Destination})
	return result, nil
}

// LotMessage é a mensagem exibida ao final da montagem de pallet.
func LotMessage(r domain.LotResult) string {
	label := "Venda"
	if r.Destination == domain.StatusAgTriagem {
		label = "Ag. Triagem"
	}
	return fmt.Sprintf("%d equipamento(s) transferidos para %s.", r.Transferred, label)
}

// ensureRepair abre um reparo "aguardando" apenas se o equipamento não tiver um ativo.
func ensureRepair(ctx context.Context, tx domain.TxStore, equipmentID int64, note string) (domain.Repair, bool, error) {
	if _, found, err := tx.FindActiveRepair(ctx, equipmentID); err != nil || found {
		return domain.Repair{}, false, err
	}
	repair, err := tx.InsertRepair(ctx, domain.Repair{
		EquipmentID:        equipmentID,
		Status:             domain.RepairWaiting,
		ProblemDescription: domain.OptionalString(note),
	})
	if err != nil {
		return domain.Repair{}, false, err
	}
	return repair, true, nil
}

// dedupe remove ids repetidos. Ids inválidos são mantidos para falharem na
// conferência de existência do lote.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinStatuses(statuses []domain.EquipmentStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func joinDestinations(dests []domain.Destination) string {
	parts := make([]string, len(dests))
	for i, d := range dests {
		parts[i] = string(d)
	}
	return strings.Join(parts, ", ")
}
