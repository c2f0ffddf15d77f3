package locationservice

import (
	"context"
	"fmt"
	"strings"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// LocationRepository define o contrato de persistência de endereços, pallets e caixas.
type LocationRepository interface {
	ListLocations(ctx context.Context, filter domain.LocationFilter) ([]domain.Location, error)
	// GetLocation retorna NotFoundError quando o endereço não existe.
	GetLocation(ctx context.Context, id int64) (domain.Location, error)
	CreateLocation(ctx context.Context, l domain.Location) (domain.Location, error)
	UpdateLocation(ctx context.Context, l domain.Location) (domain.Location, error)
	DeactivateLocation(ctx context.Context, id int64) error

	ListPallets(ctx context.Context, locationID *int64) ([]domain.Pallet, error)
	GetPallet(ctx context.Context, id int64) (domain.Pallet, error)
	CreatePallet(ctx context.Context, p domain.Pallet) (domain.Pallet, error)
	DeactivatePallet(ctx context.Context, id int64) error

	ListBoxes(ctx context.Context, palletID *int64) ([]domain.Box, error)
	GetBox(ctx context.Context, id int64) (domain.Box, error)
	CountBoxes(ctx context.Context, palletID int64) (int, error)
	CreateBox(ctx context.Context, b domain.Box) (domain.Box, error)
	DeactivateBox(ctx context.Context, id int64) error
}

// Service implementa as regras de endereçamento físico.
type Service struct {
	repo   LocationRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Endereços.
func NewService(repo LocationRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func joinLevels() string {
	names := make([]string, len(domain.LocationLevels))
	for i, l := range domain.LocationLevels {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}

// List devolve os endereços filtrados por nível e situação.
func (s *Service) List(ctx context.Context, filter domain.LocationFilter) ([]domain.Location, error) {
	if filter.Level != "" && !filter.Level.Valid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("Nível inválido. Valores aceitos: %s", joinLevels()))
	}
	return s.repo.ListLocations(ctx, filter)
}

// Tree devolve a floresta de endereços ativos.
func (s *Service) Tree(ctx context.Context) ([]*domain.LocationNode, error) {
	rows, err := s.repo.ListLocations(ctx, domain.LocationFilter{Active: true})
	if err != nil {
		return nil, err
	}
	return domain.BuildLocationTree(rows), nil
}

// Create cadastra um endereço respeitando a hierarquia de níveis.
func (s *Service) Create(ctx context.Context, in domain.LocationInput) (domain.Location, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return domain.Location{}, apperror.NewValidationError(`"codigo" é obrigatório.`)
	}
	if !in.Level.Valid() {
		return domain.Location{}, apperror.NewValidationError(`"nivel" inválido.`)
	}

	if in.ParentID != nil {
		expected, ok := in.Level.ParentLevel()
		if !ok {
			return domain.Location{}, apperror.NewValidationError("Endereço do nível porta_pallet não pode ter pai.")
		}
		parent, err := s.repo.GetLocation(ctx, *in.ParentID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return domain.Location{}, apperror.NewNotFoundError("Endereço pai não encontrado.")
			}
			return domain.Location{}, err
		}
		if !parent.Active {
			return domain.Location{}, apperror.NewNotFoundError("Endereço pai não encontrado.")
		}
		if parent.Level != expected {
			return domain.Location{}, apperror.NewValidationError(
				fmt.Sprintf("Endereço pai deve ser do nível %s para um endereço %s.", expected, in.Level))
		}
	}

	created, err := s.repo.CreateLocation(ctx, domain.Location{
		Code:        code,
		Description: domain.OptionalString(in.Description),
		Level:       in.Level,
		ParentID:    in.ParentID,
		Active:      true,
	})
	if err != nil {
		return domain.Location{}, err
	}
	s.logger.Info("Endereço criado.", map[string]interface{}{"endereco_id": created.ID, "codigo": created.Code, "nivel": created.Level})
	return created, nil
}

// Update altera código, descrição e situação; campos omitidos mantêm o valor atual.
func (s *Service) Update(ctx context.Context, id int64, in domain.LocationUpdate) (domain.Location, error) {
	current, err := s.repo.GetLocation(ctx, id)
	if err != nil {
		return domain.Location{}, err
	}

	if in.Code != nil {
		code := strings.TrimSpace(*in.Code)
		if code == "" {
			return domain.Location{}, apperror.NewValidationError(`"codigo" não pode ser vazio.`)
		}
		current.Code = code
	}
	if in.Description != nil {
		current.Description = domain.OptionalString(*in.Description)
	}
	if in.Active != nil {
		current.Active = *in.Active
	}
	return s.repo.UpdateLocation(ctx, current)
}

// Deactivate desativa o endereço (soft delete).
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.DeactivateLocation(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Endereço desativado.", map[string]interface{}{"endereco_id": id})
	return nil
}

// ListPallets lista os pallets ativos, opcionalmente de um endereço.
func (s *Service) ListPallets(ctx context.Context, locationID *int64) ([]domain.Pallet, error) {
	return s.repo.ListPallets(ctx, locationID)
}

// GetPallet busca um pallet pelo id.
func (s *Service) GetPallet(ctx context.Context, id int64) (domain.Pallet, error) {
	return s.repo.GetPallet(ctx, id)
}

// CreatePallet cadastra um pallet com código em maiúsculas num endereço ativo.
func (s *Service) CreatePallet(ctx context.Context, in domain.PalletInput) (domain.Pallet, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		return domain.Pallet{}, apperror.NewValidationError(`"codigo" é obrigatório.`)
	}
	if in.LocationID <= 0 {
		return domain.Pallet{}, apperror.NewValidationError(`"endereco_id" é obrigatório.`)
	}

	loc, err := s.repo.GetLocation(ctx, in.LocationID)
	if err != nil {
		return domain.Pallet{}, err
	}
	if !loc.Active {
		return domain.Pallet{}, apperror.NewNotFoundError("Endereço não encontrado.")
	}

	created, err := s.repo.CreatePallet(ctx, domain.Pallet{Code: code, LocationID: in.LocationID, Active: true})
	if err != nil {
		return domain.Pallet{}, err
	}
	created.LocationCode = loc.Code
	s.logger.Info("Pallet criado.", map[string]interface{}{"pallet_id": created.ID, "codigo": created.Code})
	return created, nil
}

// DeactivatePallet desativa o pallet (soft delete).
func (s *Service) DeactivatePallet(ctx context.Context, id int64) error {
	return s.repo.DeactivatePallet(ctx, id)
}

// ListBoxes lista as caixas ativas, opcionalmente de um pallet.
func (s *Service) ListBoxes(ctx context.Context, palletID *int64) ([]domain.Box, error) {
	return s.repo.ListBoxes(ctx, palletID)
}

// GetBox busca uma caixa pelo id.
func (s *Service) GetBox(ctx context.Context, id int64) (domain.Box, error) {
	return s.repo.GetBox(ctx, id)
}

func (s *Service) activePallet(ctx context.Context, id int64) (domain.Pallet, error) {
	p, err := s.repo.GetPallet(ctx, id)
	if err != nil {
		return domain.Pallet{}, err
	}
	if !p.Active {
		return domain.Pallet{}, apperror.NewNotFoundError("Pallet não encontrado.")
	}
	return p, nil
}

// CreateBox cadastra uma caixa com código informado num pallet ativo.
func (s *Service) CreateBox(ctx context.Context, in domain.BoxInput) (domain.Box, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		return domain.Box{}, apperror.NewValidationError(`"codigo" é obrigatório.`)
	}
	if in.PalletID <= 0 {
		return domain.Box{}, apperror.NewValidationError(`"pallet_id" é obrigatório.`)
	}
	pallet, err := s.activePallet(ctx, in.PalletID)
	if err != nil {
		return domain.Box{}, err
	}
	return s.insertBox(ctx, pallet, code)
}

// AutoCreateBox cria a próxima caixa do pallet com código sequencial (ex.: P01-CX03).
func (s *Service) AutoCreateBox(ctx context.Context, palletID int64) (domain.Box, error) {
	if palletID <= 0 {
		return domain.Box{}, apperror.NewValidationError(`"pallet_id" é obrigatório.`)
	}
	pallet, err := s.activePallet(ctx, palletID)
	if err != nil {
		return domain.Box{}, err
	}
	n, err := s.repo.CountBoxes(ctx, pallet.ID)
	if err != nil {
		return domain.Box{}, err
	}
	return s.insertBox(ctx, pallet, domain.BoxCode(pallet.Code, n+1))
}

func (s *Service) insertBox(ctx context.Context, pallet domain.Pallet, code string) (domain.Box, error) {
	created, err := s.repo.CreateBox(ctx, domain.Box{Code: code, PalletID: pallet.ID, Active: true})
	if err != nil {
		return domain.Box{}, err
	}
	created.PalletCode = pallet.Code
	created.LocationID = pallet.LocationID
	created.LocationCode = pallet.LocationCode
	s.logger.Info("Caixa criada.", map[string]interface{}{"caixa_id": created.ID, "codigo": created.Code})
	return created, nil
}

// DeactivateBox desativa a caixa (soft delete).
func (s *Service) DeactivateBox(ctx context.Context, id int64) error {
	return s.repo.DeactivateBox(ctx, id)
}
