// Package memstore implementa domain.Transactor em memória. Cada transação
// trabalha sobre o estado real e, em caso de erro, restaura a cópia tirada no
// início. Os índices únicos parciais do banco são reproduzidos nas inserções.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pioerp/internal/domain"
	apperror "pioerp/internal/errors"
)

type state struct {
	catalog   map[int64]domain.CatalogItem
	locations map[int64]domain.Location
	pallets   map[int64]domain.Pallet
	boxes     map[int64]domain.Box
	equipment map[int64]domain.Equipment
	movements []domain.Movement
	repairs   map[int64]domain.Repair
	sessions  map[int64]domain.RepairSession
	requests  map[int64]domain.ReplenishmentRequest
	seq       int64
}

func newState() state {
	return state{
		catalog:   map[int64]domain.CatalogItem{},
		locations: map[int64]domain.Location{},
		pallets:   map[int64]domain.Pallet{},
		boxes:     map[int64]domain.Box{},
		equipment: map[int64]domain.Equipment{},
		repairs:   map[int64]domain.Repair{},
		sessions:  map[int64]domain.RepairSession{},
		requests:  map[int64]domain.ReplenishmentRequest{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.catalog {
		c.catalog[k] = v
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.pallets {
		c.pallets[k] = v
	}
	for k, v := range s.boxes {
		c.boxes[k] = v
	}
	for k, v := range s.equipment {
		c.equipment[k] = v
	}
	c.movements = append([]domain.Movement(nil), s.movements...)
	for k, v := range s.repairs {
		c.repairs[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	c.seq = s.seq
	return c
}

type failure struct {
	nth   int
	calls int
	err   error
}

// Store é o armazenamento em memória. O mutex serializa as transações,
// equivalente ao bloqueio de linhas do PostgreSQL para os cenários de teste.
type Store struct {
	mu       sync.Mutex
	state    state
	failures map[string]*failure
	now      func() time.Time
}

// New cria um Store vazio.
func New() *Store {
	return &Store{state: newState(), failures: map[string]*failure{}, now: time.Now}
}

// SetClock define o relógio usado em created_at/updated_at.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailOn faz a n-ésima chamada (a partir de 1) de method devolver err.
func (s *Store) FailOn(method string, nth int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = &failure{nth: nth, err: err}
}

// WithinTx executa fn e restaura o estado anterior se fn falhar.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, &txStore{s: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) nextID() int64 {
	s.state.seq++
	return s.state.seq
}

func (s *Store) check(method string) error {
	f, ok := s.failures[method]
	if !ok {
		return nil
	}
	f.calls++
	if f.calls == f.nth {
		return f.err
	}
	return nil
}

// --- Seeds e inspeção (uso em testes) ---

// AddCatalogItem cadastra um item e devolve o id atribuído.
func (s *Store) AddCatalogItem(item domain.CatalogItem) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.nextID()
	s.state.catalog[item.ID] = item
	return item.ID
}

// AddLocation cadastra um endereço.
func (s *Store) AddLocation(loc domain.Location) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc.ID = s.nextID()
	s.state.locations[loc.ID] = loc
	return loc.ID
}

// AddPallet cadastra um pallet.
func (s *Store) AddPallet(p domain.Pallet) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID()
	s.state.pallets[p.ID] = p
	return p.ID
}

// AddBox cadastra uma caixa.
func (s *Store) AddBox(b domain.Box) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.nextID()
	s.state.boxes[b.ID] = b
	return b.ID
}

// AddEquipment cadastra um equipamento sem gerar histórico.
func (s *Store) AddEquipment(e domain.Equipment) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID()
	s.state.equipment[e.ID] = e
	return e.ID
}

// AddRepair cadastra um reparo.
func (s *Store) AddRepair(r domain.Repair) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.nextID()
	s.state.repairs[r.ID] = r
	return r.ID
}

// Equipment devolve o equipamento armazenado.
func (s *Store) Equipment(id int64) (domain.Equipment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.state.equipment[id]
	return e, ok
}

// Movements devolve o histórico na ordem de inserção.
func (s *Store) Movements() []domain.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Movement(nil), s.state.movements...)
}

// Repair devolve o reparo armazenado.
func (s *Store) Repair(id int64) (domain.Repair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.repairs[id]
	return r, ok
}

// Repairs devolve os reparos de um equipamento ordenados por id.
func (s *Store) Repairs(equipmentID int64) []domain.Repair {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Repair
	for _, r := range s.state.repairs {
		if r.EquipmentID == equipmentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Sessions devolve as sessões de um reparo ordenadas por id.
func (s *Store) Sessions(repairID int64) []domain.RepairSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RepairSession
	for _, rs := range s.state.sessions {
		if rs.RepairID == repairID {
			out = append(out, rs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Request devolve a solicitação armazenada.
func (s *Store) Request(id int64) (domain.ReplenishmentRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.requests[id]
	return r, ok
}

// txStore é a visão transacional; o mutex do Store já está travado por WithinTx.
type txStore struct {
	s *Store
}

func (t *txStore) IsCatalogItemActive(_ context.Context, id int64) (bool, error) {
	if err := t.s.check("IsCatalogItemActive"); err != nil {
		return false, err
	}
	item, ok := t.s.state.catalog[id]
	return ok && item.Active, nil
}

func (t *txStore) IsLocationActive(_ context.Context, id int64) (bool, error) {
	if err := t.s.check("IsLocationActive"); err != nil {
		return false, err
	}
	loc, ok := t.s.state.locations[id]
	return ok && loc.Active, nil
}

func (t *txStore) IsBoxActive(_ context.Context, id int64) (bool, error) {
	if err := t.s.check("IsBoxActive"); err != nil {
		return false, err
	}
	b, ok := t.s.state.boxes[id]
	if !ok || !b.Active {
		return false, nil
	}
	p, ok := t.s.state.pallets[b.PalletID]
	return ok && p.Active, nil
}

func (t *txStore) GetEquipmentForUpdate(_ context.Context, id int64) (domain.Equipment, error) {
	if err := t.s.check("GetEquipmentForUpdate"); err != nil {
		return domain.Equipment{}, err
	}
	e, ok := t.s.state.equipment[id]
	if !ok {
		return domain.Equipment{}, apperror.NewNotFoundError("Equipamento não encontrado.")
	}
	return e, nil
}

func (t *txStore) GetEquipmentsForUpdate(_ context.Context, ids []int64) ([]domain.Equipment, error) {
	if err := t.s.check("GetEquipmentsForUpdate"); err != nil {
		return nil, err
	}
	out := []domain.Equipment{}
	for _, id := range ids {
		if e, ok := t.s.state.equipment[id]; ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *txStore) InsertEquipment(_ context.Context, e domain.Equipment) (domain.Equipment, error) {
	if err := t.s.check("InsertEquipment"); err != nil {
		return domain.Equipment{}, err
	}
	if _, ok := t.s.state.catalog[e.CatalogItemID]; !ok {
		return domain.Equipment{}, fkViolation("item_catalogo")
	}
	e.ID = t.s.nextID()
	e.CreatedAt = t.s.now()
	e.UpdatedAt = e.CreatedAt
	t.s.state.equipment[e.ID] = e
	return e, nil
}

func (t *txStore) UpdateEquipment(_ context.Context, e domain.Equipment) (domain.Equipment, error) {
	if err := t.s.check("UpdateEquipment"); err != nil {
		return domain.Equipment{}, err
	}
	cur, ok := t.s.state.equipment[e.ID]
	if !ok {
		return domain.Equipment{}, apperror.NewNotFoundError("Equipamento não encontrado.")
	}
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = t.s.now()
	t.s.state.equipment[e.ID] = e
	return e, nil
}

func (t *txStore) InsertMovement(_ context.Context, m domain.Movement) (domain.Movement, error) {
	if err := t.s.check("InsertMovement"); err != nil {
		return domain.Movement{}, err
	}
	if _, ok := t.s.state.equipment[m.EquipmentID]; !ok {
		return domain.Movement{}, fkViolation("equipamento_fisico")
	}
	m.ID = t.s.nextID()
	m.CreatedAt = t.s.now()
	t.s.state.movements = append(t.s.state.movements, m)
	return m, nil
}

func (t *txStore) FindActiveRepair(_ context.Context, equipmentID int64) (domain.Repair, bool, error) {
	if err := t.s.check("FindActiveRepair"); err != nil {
		return domain.Repair{}, false, err
	}
	for _, r := range t.s.state.repairs {
		if r.EquipmentID == equipmentID && r.Status != domain.RepairFinished {
			return r, true, nil
		}
	}
	return domain.Repair{}, false, nil
}

func (t *txStore) InsertRepair(ctx context.Context, r domain.Repair) (domain.Repair, error) {
	if err := t.s.check("InsertRepair"); err != nil {
		return domain.Repair{}, err
	}
	if r.Status != domain.RepairFinished {
		for _, cur := range t.s.state.repairs {
			if cur.EquipmentID == r.EquipmentID && cur.Status != domain.RepairFinished {
				return domain.Repair{}, apperror.NewConflictError("Já existe um reparo ativo para este equipamento.")
			}
		}
	}
	r.ID = t.s.nextID()
	r.CreatedAt = t.s.now()
	r.UpdatedAt = r.CreatedAt
	t.s.state.repairs[r.ID] = r
	return r, nil
}

func (t *txStore) GetRepairForUpdate(_ context.Context, id int64) (domain.Repair, error) {
	if err := t.s.check("GetRepairForUpdate"); err != nil {
		return domain.Repair{}, err
	}
	r, ok := t.s.state.repairs[id]
	if !ok {
		return domain.Repair{}, apperror.NewNotFoundError("Reparo não encontrado.")
	}
	return r, nil
}

func (t *txStore) UpdateRepair(_ context.Context, r domain.Repair) (domain.Repair, error) {
	if err := t.s.check("UpdateRepair"); err != nil {
		return domain.Repair{}, err
	}
	cur, ok := t.s.state.repairs[r.ID]
	if !ok {
		return domain.Repair{}, apperror.NewNotFoundError("Reparo não encontrado.")
	}
	if r.TotalMinutes < 0 {
		return domain.Repair{}, apperror.NewConflictError("Violação de regra de negócio (reparo_total_minutos_trabalhados_check).")
	}
	r.CreatedAt = cur.CreatedAt
	r.UpdatedAt = t.s.now()
	t.s.state.repairs[r.ID] = r
	return r, nil
}

func (t *txStore) CloseOpenSessions(_ context.Context, repairID int64, end time.Time) ([]domain.RepairSession, error) {
	if err := t.s.check("CloseOpenSessions"); err != nil {
		return nil, err
	}
	closed := []domain.RepairSession{}
	for id, rs := range t.s.state.sessions {
		if rs.RepairID != repairID || rs.End != nil {
			continue
		}
		fim := end
		if fim.Before(rs.Start) {
			fim = rs.Start
		}
		minutes := domain.SessionMinutes(rs.Start, fim)
		rs.End = &fim
		rs.Minutes = &minutes
		t.s.state.sessions[id] = rs
		closed = append(closed, rs)
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].ID < closed[j].ID })
	return closed, nil
}

func (t *txStore) OpenSession(_ context.Context, repairID int64, start time.Time) (domain.RepairSession, error) {
	if err := t.s.check("OpenSession"); err != nil {
		return domain.RepairSession{}, err
	}
	for _, rs := range t.s.state.sessions {
		if rs.RepairID == repairID && rs.End == nil {
			return domain.RepairSession{}, apperror.NewConflictError("Já existe uma sessão aberta para este reparo.")
		}
	}
	rs := domain.RepairSession{ID: t.s.nextID(), RepairID: repairID, Start: start}
	t.s.state.sessions[rs.ID] = rs
	return rs, nil
}

func (t *txStore) FindActiveRequest(_ context.Context, catalogItemID int64) (domain.ReplenishmentRequest, bool, error) {
	if err := t.s.check("FindActiveRequest"); err != nil {
		return domain.ReplenishmentRequest{}, false, err
	}
	for _, r := range t.s.state.requests {
		if r.CatalogItemID == catalogItemID && r.Status.Active() {
			return r, true, nil
		}
	}
	return domain.ReplenishmentRequest{}, false, nil
}

func (t *txStore) InsertRequest(_ context.Context, r domain.ReplenishmentRequest) (domain.ReplenishmentRequest, error) {
	if err := t.s.check("InsertRequest"); err != nil {
		return domain.ReplenishmentRequest{}, err
	}
	if r.Status.Active() {
		for _, cur := range t.s.state.requests {
			if cur.CatalogItemID == r.CatalogItemID && cur.Status.Active() {
				return domain.ReplenishmentRequest{}, apperror.NewConflictError("Já existe uma solicitação ativa para este modelo.")
			}
		}
	}
	r.ID = t.s.nextID()
	r.CreatedAt = t.s.now()
	r.UpdatedAt = r.CreatedAt
	t.s.state.requests[r.ID] = r
	return r, nil
}

func (t *txStore) GetRequestForUpdate(_ context.Context, id int64) (domain.ReplenishmentRequest, error) {
	if err := t.s.check("GetRequestForUpdate"); err != nil {
		return domain.ReplenishmentRequest{}, err
	}
	r, ok := t.s.state.requests[id]
	if !ok {
		return domain.ReplenishmentRequest{}, apperror.NewNotFoundError("Solicitação não encontrada.")
	}
	return r, nil
}

func (t *txStore) UpdateRequest(_ context.Context, r domain.ReplenishmentRequest) (domain.ReplenishmentRequest, error) {
	if err := t.s.check("UpdateRequest"); err != nil {
		return domain.ReplenishmentRequest{}, err
	}
	cur, ok := t.s.state.requests[r.ID]
	if !ok {
		return domain.ReplenishmentRequest{}, apperror.NewNotFoundError("Solicitação não encontrada.")
	}
	r.CreatedAt = cur.CreatedAt
	r.UpdatedAt = t.s.now()
	t.s.state.requests[r.ID] = r
	return r, nil
}

func fkViolation(table string) error {
	return apperror.NewConflictError(fmt.Sprintf("Operação bloqueada: referência inválida para %s.", table))
}
