//go:build integration

package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
	"pioerp/internal/pkg/database"
	"pioerp/internal/pkg/events"
	"pioerp/internal/pkg/logger"
	"pioerp/internal/pkg/metrics"
	"pioerp/internal/pkg/token"
	"pioerp/internal/repository/catalogrepo"
	"pioerp/internal/repository/equipmentrepo"
	"pioerp/internal/repository/locationrepo"
	"pioerp/internal/repository/movementrepo"
	"pioerp/internal/repository/operatorrepo"
	"pioerp/internal/repository/pgstore"
	"pioerp/internal/repository/repairrepo"
	"pioerp/internal/repository/requestrepo"
	"pioerp/internal/service/catalogservice"
	"pioerp/internal/service/equipmentservice"
	"pioerp/internal/service/internalizationservice"
	"pioerp/internal/service/locationservice"
	"pioerp/internal/service/movementservice"
	"pioerp/internal/service/operatorservice"
	"pioerp/internal/service/repairservice"
	"pioerp/internal/service/requestservice"
)

const testPort = 15433

var testDB *sql.DB

func TestMain(m *testing.M) {
	runtime, err := os.MkdirTemp("", "pioerp-pg-")
	if err != nil {
		log.Fatalf("diretório temporário: %v", err)
	}

	pg := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		Port(testPort).
		Database("pioerp_test").
		Username("postgres").
		Password("postgres").
		RuntimePath(runtime).
		Logger(io.Discard))
	if err := pg.Start(); err != nil {
		log.Fatalf("embedded postgres: %v", err)
	}

	code := func() int {
		defer func() {
			_ = pg.Stop()
			_ = os.RemoveAll(runtime)
		}()

		testDB, err = database.NewPostgresDB(database.PoolConfig{
			DSN:          fmt.Sprintf("host=localhost port=%d user=postgres password=postgres dbname=pioerp_test sslmode=disable", testPort),
			MaxOpenConns: 10,
		})
		if err != nil {
			log.Printf("conexão: %v", err)
			return 1
		}
		defer testDB.Close()

		if err := goose.SetDialect("postgres"); err != nil {
			log.Printf("goose: %v", err)
			return 1
		}
		if err := goose.Up(testDB, "../../sql"); err != nil {
			log.Printf("migrações: %v", err)
			return 1
		}
		return m.Run()
	}()
	os.Exit(code)
}

// fakeClock avança manualmente para medir sessões de reparo.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type stack struct {
	catalog         *catalogservice.Service
	locations       *locationservice.Service
	equipment       *equipmentservice.Service
	repairs         *repairservice.Service
	requests        *requestservice.Service
	internalization *internalizationservice.Service
	movements       *movementservice.Service
	operators       *operatorservice.Service
	clock           *fakeClock
}

func newStack(t *testing.T) stack {
	t.Helper()
	log := logger.NewLoggerTo(io.Discard, "error")
	timeout := 5 * time.Second

	store := pgstore.NewStore(testDB, timeout, log)
	equipRepo := equipmentrepo.NewEquipmentRepository(testDB, timeout, log)
	notifier := events.NewDispatcher(events.NopPublisher{}, metrics.New(), log)
	clock := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}

	return stack{
		catalog:         catalogservice.NewService(catalogrepo.NewCatalogRepository(testDB, timeout, log), log),
		locations:       locationservice.NewService(locationrepo.NewLocationRepository(testDB, timeout, log), log),
		equipment:       equipmentservice.NewService(equipRepo, store, notifier, log),
		repairs:         repairservice.NewService(repairrepo.NewRepairRepository(testDB, timeout, log), store, notifier, log, clock.Now),
		requests:        requestservice.NewService(requestrepo.NewRequestRepository(testDB, timeout, log), store, log, clock.Now),
		internalization: internalizationservice.NewService(equipRepo, store, notifier, log, domain.InternalizationBranchCode),
		movements:       movementservice.NewService(movementrepo.NewMovementRepository(testDB, timeout, log), log),
		operators:       operatorservice.NewService(operatorrepo.NewOperatorRepository(testDB, timeout, log), token.NewService("segredo", time.Hour), log),
		clock:           clock,
	}
}

func strp(s string) *string { return &s }
func intp(i int) *int { return &i }

// unique evita colisões de códigos entre testes que compartilham o banco.
func unique(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

type fixture struct {
	catalogID int64
	location  domain.Location
	pallet    domain.Pallet
	box       domain.Box
}

func seed(t *testing.T, ctx context.Context, s stack, min int) fixture {
	t.Helper()
	item, err := s.catalog.Create(ctx, domain.CatalogInput{
		Name:     strp(unique("Notebook")),
		Category: strp("TI"),
		MinStock: intp(min),
		MaxStock: intp(min + 5),
	})
	require.NoError(t, err)

	loc, err := s.locations.Create(ctx, domain.LocationInput{Code: unique("PP"), Level: domain.LevelRack})
	require.NoError(t, err)

	pallet, err := s.locations.CreatePallet(ctx, domain.PalletInput{Code: unique("p"), LocationID: loc.ID})
	require.NoError(t, err)

	box, err := s.locations.AutoCreateBox(ctx, pallet.ID)
	require.NoError(t, err)

	return fixture{catalogID: item.ID, location: loc, pallet: pallet, box: box}
}

func TestLocationHierarchyAndBoxCodes(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	f := seed(t, ctx, s, 1)

	assert.Equal(t, domain.BoxCode(f.pallet.Code, 1), f.box.Code)

	second, err := s.locations.AutoCreateBox(ctx, f.pallet.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BoxCode(f.pallet.Code, 2), second.Code)

	// Caixa desativada continua contando para a numeração.
	require.NoError(t, s.locations.DeactivateBox(ctx, second.ID))
	third, err := s.locations.AutoCreateBox(ctx, f.pallet.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BoxCode(f.pallet.Code, 3), third.Code)

	_, err = s.locations.Create(ctx, domain.LocationInput{Code: unique("CX"), Level: domain.LevelBox, ParentID: &f.location.ID})
	assert.True(t, apperror.IsValidation(err), "caixa não pode ser filha direta de porta_pallet")

	section, err := s.locations.Create(ctx, domain.LocationInput{Code: unique("S"), Level: domain.LevelSection, ParentID: &f.location.ID})
	require.NoError(t, err)

	_, err = s.locations.Create(ctx, domain.LocationInput{Code: unique("PL"), Level: domain.LevelPallet, ParentID: &section.ID})
	require.NoError(t, err)

	rows, err := s.locations.List(ctx, domain.LocationFilter{Active: true})
	require.NoError(t, err)
	for i := 1; i < len(rows); i++ {
		assert.LessOrEqual(t, rows[i-1].Level.Rank(), rows[i].Level.Rank(), "listagem deve seguir a hierarquia")
	}

	tree, err := s.locations.Tree(ctx)
	require.NoError(t, err)
	var found bool
	for _, root := range tree {
		if root.ID == f.location.ID {
			for _, child := range root.Children {
				found = found || child.ID == section.ID
			}
		}
	}
	assert.True(t, found, "sessão deve aparecer sob o porta_pallet")
}

func TestEquipmentLifecycle_RepairAndInternalization(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	f := seed(t, ctx, s, 2)

	equip, err := s.equipment.RegisterEntry(ctx, domain.EntryInput{
		CatalogItemID: f.catalogID,
		SerialNumber:  unique("SN"),
		AssetTag:      unique("IMB"),
		BoxID:         &f.box.ID,
		EntryType:     string(domain.EntryPurchase),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReposicao, equip.Status)

	moved, err := s.equipment.TransitionStatus(ctx, equip.ID, domain.ExitInput{Destination: string(domain.DestinationTriage), BoxID: &f.box.ID, Note: "tela quebrada"})
	require.NoError(t, err)
	require.NotNil(t, moved.Repair)
	repairID := moved.Repair.ID

	// Modelo crítico (mínimo 2, nenhum em reposição) aparece nas prioridades.
	prios, err := s.repairs.Priorities(ctx)
	require.NoError(t, err)
	var prio *domain.RepairPriority
	for i := range prios {
		if prios[i].RepairID == repairID {
			prio = &prios[i]
		}
	}
	require.NotNil(t, prio)
	assert.True(t, prio.Critical)
	assert.Equal(t, 2, prio.Deficit)

	_, err = s.repairs.Start(ctx, repairID)
	require.NoError(t, err)
	_, err = s.repairs.Start(ctx, repairID)
	assert.True(t, apperror.IsConflict(err))

	s.clock.Advance(25 * time.Minute)
	paused, err := s.repairs.Pause(ctx, repairID)
	require.NoError(t, err)
	assert.Equal(t, 25, paused.SessionMinutes)

	started, err := s.repairs.Start(ctx, repairID)
	require.NoError(t, err)
	assert.True(t, started.Resumed)

	s.clock.Advance(10 * time.Minute)
	finished, err := s.repairs.Finish(ctx, repairID, domain.FinishInput{Destination: string(domain.DestinationInternalization), Diagnosis: strp("troca de tela")})
	require.NoError(t, err)
	assert.Equal(t, 35, finished.TotalMinutes)
	assert.Equal(t, domain.StatusAgInternalizacao, finished.Equipment.Status)

	detail, err := s.repairs.GetByID(ctx, repairID)
	require.NoError(t, err)
	assert.Len(t, detail.Sessions, 2)
	assert.Equal(t, domain.RepairFinished, detail.Status)

	pending, err := s.internalization.ListPending(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, pending)

	approved, err := s.internalization.Approve(ctx, equip.ID, &f.box.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReposicao, approved.Status)
	require.NotNil(t, approved.BranchCode)
	assert.Equal(t, domain.InternalizationBranchCode, *approved.BranchCode)

	boxes, err := s.internalization.BoxesForModel(ctx, f.catalogID)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, 1, boxes[0].Quantity)

	history, err := s.movements.List(ctx, domain.MovementFilter{EquipmentID: &equip.ID})
	require.NoError(t, err)
	assert.Len(t, history, 4) // entrada, triagem, finalização, aprovação

	// Catálogo com equipamento fora de venda não pode ser desativado.
	_, err = s.catalog.Deactivate(ctx, f.catalogID)
	assert.True(t, apperror.IsConflict(err))
}

func TestAssembleLot_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	f := seed(t, ctx, s, 0)

	var ids []int64
	for i := 0; i < 2; i++ {
		e, err := s.equipment.RegisterEntry(ctx, domain.EntryInput{
			CatalogItemID: f.catalogID,
			SerialNumber:  unique("LOT"),
			AssetTag:      unique("IMB"),
			BoxID:         &f.box.ID,
			EntryType:     string(domain.EntryReceiving),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPreTriagem, e.Status)
		ids = append(ids, e.ID)
	}
	stocked, err := s.equipment.RegisterEntry(ctx, domain.EntryInput{CatalogItemID: f.catalogID, SerialNumber: unique("LOT"), AssetTag: unique("IMB"), BoxID: &f.box.ID})
	require.NoError(t, err)

	_, err = s.equipment.AssembleLot(ctx, domain.LotInput{
		EquipmentIDs: append(ids, stocked.ID),
		BoxID:        &f.box.ID,
		Destination:  domain.StatusAgTriagem,
	})
	assert.True(t, apperror.IsConflict(err))

	for _, id := range ids {
		d, err := s.equipment.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPreTriagem, d.Status, "lote rejeitado não altera nenhum item")
	}

	result, err := s.equipment.AssembleLot(ctx, domain.LotInput{EquipmentIDs: ids, BoxID: &f.box.ID, Destination: domain.StatusAgTriagem})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Transferred)
	assert.Equal(t, 2, result.RepairsOpened)
}

func TestReplenishmentQueue(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	f := seed(t, ctx, s, 3)

	req, err := s.requests.Create(ctx, domain.ReplenishmentInput{CatalogItemID: f.catalogID, Note: "urgente"})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, req.Status)

	_, err = s.requests.Create(ctx, domain.ReplenishmentInput{CatalogItemID: f.catalogID})
	assert.True(t, apperror.IsConflict(err), "apenas uma solicitação ativa por modelo")

	critical, err := s.repairs.CriticalModels(ctx)
	require.NoError(t, err)
	for _, c := range critical {
		if c.CatalogItemID == f.catalogID {
			assert.True(t, c.HasActiveRequest)
		}
	}

	done, err := s.requests.UpdateStatus(ctx, req.ID, domain.RequestFulfilled)
	require.NoError(t, err)
	assert.NotNil(t, done.FulfilledAt)

	_, err = s.requests.UpdateStatus(ctx, req.ID, domain.RequestPending)
	assert.True(t, apperror.IsConflict(err))

	again, err := s.requests.Create(ctx, domain.ReplenishmentInput{CatalogItemID: f.catalogID})
	require.NoError(t, err)
	assert.NotEqual(t, req.ID, again.ID)

	rows, err := s.requests.List(ctx, domain.RequestPending)
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, domain.RequestPending, r.Status)
	}
}

func TestOperators(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	email := unique("admin") + "@pio.com"

	created, err := s.operators.EnsureAdmin(ctx, email, "segredo1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.operators.EnsureAdmin(ctx, email, "segredo1")
	require.NoError(t, err)
	assert.False(t, created)

	resp, err := s.operators.Login(ctx, domain.LoginRequest{Email: email, Password: "segredo1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, domain.RoleAdmin, resp.Operator.Role)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	seed(t, ctx, s, 1)

	d, err := s.movements.Dashboard(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, d.CriticalAlerts, 1)
	assert.LessOrEqual(t, len(d.RecentMovements), 10)
}
