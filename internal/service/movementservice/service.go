package movementservice

import (
	"context"

	"golang.org/x/sync/errgroup"

	"pioerp/internal/domain"
	"pioerp/internal/pkg/logger"
)

// recentMovements é a quantidade de movimentações exibidas no painel.
const recentMovements = 10

// MovementReader define as consultas do histórico e dos indicadores de estoque.
type MovementReader interface {
	List(ctx context.Context, filter domain.MovementFilter) ([]domain.MovementDetail, error)
	CriticalStock(ctx context.Context) ([]domain.CatalogStock, error)
	CountCritical(ctx context.Context) (int, error)
	StatusTotals(ctx context.Context) (domain.DashboardTotals, error)
}

// Service expõe o histórico de movimentação e o painel.
type Service struct {
	reader MovementReader
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Movimentação.
func NewService(reader MovementReader, logger logger.Logger) *Service {
	return &Service{reader: reader, logger: logger}
}

// List devolve o histórico filtrado, mais recente primeiro.
func (s *Service) List(ctx context.Context, filter domain.MovementFilter) ([]domain.MovementDetail, error) {
	return s.reader.List(ctx, filter.Normalize())
}

// CriticalStock lista os modelos abaixo do estoque mínimo, maior déficit primeiro.
func (s *Service) CriticalStock(ctx context.Context) ([]domain.CatalogStock, error) {
	return s.reader.CriticalStock(ctx)
}

// Dashboard reúne totais, alertas e as últimas movimentações em consultas paralelas.
func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var dash domain.Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		totals, err := s.reader.StatusTotals(gctx)
		dash.Totals = totals
		return err
	})
	g.Go(func() error {
		n, err := s.reader.CountCritical(gctx)
		dash.CriticalAlerts = n
		return err
	})
	g.Go(func() error {
		recent, err := s.reader.List(gctx, domain.MovementFilter{Limit: recentMovements})
		dash.RecentMovements = recent
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Falha ao montar o painel.", err)
		return domain.Dashboard{}, err
	}
	if dash.RecentMovements == nil {
		dash.RecentMovements = []domain.MovementDetail{}
	}
	return dash, nil
}
