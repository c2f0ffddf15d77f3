package catalogservice

import (
	"context"
	"strings"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/logger"
)

// CatalogRepository define o contrato que o Serviço de Catálogo espera da camada de Persistência.
type CatalogRepository interface {
	List(ctx context.Context) ([]domain.CatalogStock, error)
	GetByID(ctx context.Context, id int64) (domain.CatalogStock, error)
	Create(ctx context.Context, item domain.CatalogItem) (domain.CatalogItem, error)
	Update(ctx context.Context, item domain.CatalogItem) (domain.CatalogItem, error)
	// Deactivate retorna ConflictError se houver equipamento fora de venda vinculado.
	Deactivate(ctx context.Context, id int64) (domain.CatalogItem, error)
}

// Service é a estrutura que implementa as regras do catálogo.
type Service struct {
	repo   CatalogRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Catálogo.
func NewService(repo CatalogRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func validate(item domain.CatalogItem) error {
	switch {
	case strings.TrimSpace(item.Name) == "":
		return apperror.NewValidationError(`Campo "nome" é obrigatório.`)
	case strings.TrimSpace(item.Category) == "":
		return apperror.NewValidationError(`Campo "categoria" é obrigatório.`)
	case item.MinStock < 0 || item.MaxStock < 0:
		return apperror.NewValidationError("Estoque mínimo e máximo não podem ser negativos.")
	case item.MaxStock < item.MinStock:
		return apperror.NewValidationError("Estoque máximo não pode ser menor que o mínimo.")
	}
	return nil
}

// List devolve o catálogo com as contagens, críticos primeiro.
func (s *Service) List(ctx context.Context) ([]domain.CatalogStock, error) {
	return s.repo.List(ctx)
}

// GetByID busca um item com suas contagens.
func (s *Service) GetByID(ctx context.Context, id int64) (domain.CatalogStock, error) {
	return s.repo.GetByID(ctx, id)
}

// Create valida e cadastra um novo item, sempre ativo.
func (s *Service) Create(ctx context.Context, in domain.CatalogInput) (domain.CatalogItem, error) {
	item := in.Apply(domain.CatalogItem{})
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	item.Active = true
	if err := validate(item); err != nil {
		s.logger.Debug("Item de catálogo rejeitado na validação.", map[string]interface{}{"nome": item.Name, "error": err.Error()})
		return domain.CatalogItem{}, err
	}

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	s.logger.Info("Item de catálogo criado.", map[string]interface{}{"item_catalogo_id": created.ID, "nome": created.Name})
	return created, nil
}

// Update mescla os campos informados ao item atual e revalida o resultado.
func (s *Service) Update(ctx context.Context, id int64, in domain.CatalogInput) (domain.CatalogItem, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.CatalogItem{}, err
	}

	merged := in.Apply(current.CatalogItem)
	merged.Name = strings.TrimSpace(merged.Name)
	merged.Category = strings.TrimSpace(merged.Category)
	if err := validate(merged); err != nil {
		return domain.CatalogItem{}, err
	}
	return s.repo.Update(ctx, merged)
}

// Deactivate desativa o item (soft delete).
func (s *Service) Deactivate(ctx context.Context, id int64) (domain.CatalogItem, error) {
	item, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	s.logger.Info("Item de catálogo desativado.", map[string]interface{}{"item_catalogo_id": id})
	return item, nil
}
