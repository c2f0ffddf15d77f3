package domain

import "time"

// RepairStatus é o estado de um reparo: aguardando → em_progresso ⇄ pausado → finalizado.
type RepairStatus string

const (
	RepairWaiting    RepairStatus = "aguardando"
	RepairInProgress RepairStatus = "em_progresso"
	RepairPaused     RepairStatus = "pausado"
	RepairFinished   RepairStatus = "finalizado"
)

// Repair é o ticket de um episódio de triagem/reparo de um equipamento.
type Repair struct {
	ID                 int64        `json:"id"`
	EquipmentID        int64        `json:"equipamento_id"`
	Status             RepairStatus `json:"status"`
	ProblemDescription *string      `json:"descricao_problema"`
	Diagnosis          *string      `json:"diagnostico"`
	FinalNotes         *string      `json:"observacoes_finais"`
	TotalMinutes       int          `json:"total_minutos_trabalhados"`
	StartedAt          *time.Time   `json:"iniciado_em"`
	FinishedAt         *time.Time   `json:"finalizado_em"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// RepairSession é um intervalo de trabalho cronometrado dentro de um reparo.
type RepairSession struct {
	ID       int64      `json:"id"`
	RepairID int64      `json:"reparo_id"`
	Start    time.Time  `json:"inicio"`
	End      *time.Time `json:"fim"`
	Minutes  *int       `json:"minutos"`
}

// SessionMinutes devolve os minutos inteiros de um intervalo: floor(segundos/60), nunca negativo.
func SessionMinutes(start, end time.Time) int {
	seconds := int64(end.Sub(start) / time.Second)
	if seconds <= 0 {
		return 0
	}
	return int(seconds / 60)
}

// ClosedMinutes soma a contribuição das sessões fechadas.
func ClosedMinutes(sessions []RepairSession) int {
	total := 0
	for _, s := range sessions {
		if s.End != nil {
			total += SessionMinutes(s.Start, *s.End)
		}
	}
	return total
}

// ElapsedSeconds é o tempo exibido ao cliente: minutos acumulados mais a
// sessão aberta, se houver. Não é persistido.
func ElapsedSeconds(accumulatedMinutes int, sessions []RepairSession, now time.Time) int64 {
	elapsed := int64(accumulatedMinutes) * 60
	for _, s := range sessions {
		if s.End == nil {
			if d := now.Sub(s.Start); d > 0 {
				elapsed += int64(d / time.Second)
			}
		}
	}
	return elapsed
}

// RepairDetail é o reparo com dados do equipamento e suas sessões.
type RepairDetail struct {
	Repair
	SerialNumber    string          `json:"numero_serie"`
	AssetTag        string          `json:"imobilizado"`
	EquipmentStatus EquipmentStatus `json:"status_equip"`
	Model           string          `json:"modelo"`
	Category        string          `json:"categoria"`
	Sessions        []RepairSession `json:"sessoes"`
	ElapsedSeconds  int64           `json:"tempo_decorrido_segundos"`
}

// RepairUpdate traz os campos descritivos editáveis; nil mantém o valor atual.
type RepairUpdate struct {
	ProblemDescription *string `json:"descricao_problema"`
	Diagnosis          *string `json:"diagnostico"`
	FinalNotes         *string `json:"observacoes_finais"`
}

// StartResult é o retorno de iniciar/retomar um reparo.
type StartResult struct {
	Repair  Repair        `json:"reparo"`
	Session RepairSession `json:"sessao"`
	Resumed bool          `json:"-"`
}

// PauseResult é o retorno de pausar um reparo.
type PauseResult struct {
	Repair         Repair `json:"reparo"`
	SessionMinutes int    `json:"minutos_sessao"`
}

// FinishInput é o payload de POST /reparo/{id}/finalizar.
type FinishInput struct {
	Diagnosis   *string `json:"diagnostico"`
	FinalNotes  *string `json:"observacoes_finais"`
	Destination string  `json:"status_destino"`
	LocationID  *int64  `json:"endereco_destino_id"`
	BoxID       *int64  `json:"caixa_destino_id"`
}

// FinishDestinations são os destinos aceitos ao finalizar um reparo.
var FinishDestinations = []Destination{
	DestinationStock, DestinationPreSale, DestinationSale, DestinationInternalization,
}

// FinishResult é o retorno de finalizar um reparo.
type FinishResult struct {
	Repair       Repair      `json:"reparo"`
	TotalMinutes int         `json:"total_minutos"`
	Destination  Destination `json:"status_destino"`
	Equipment    Equipment   `json:"equipamento"`
}

// RepairPriority é uma linha da fila de prioridades de reparo.
type RepairPriority struct {
	RepairID           int64        `json:"reparo_id"`
	RepairStatus       RepairStatus `json:"status_reparo"`
	EquipmentID        int64        `json:"equipamento_id"`
	SerialNumber       string       `json:"numero_serie"`
	AssetTag           string       `json:"imobilizado"`
	CatalogItemID      int64        `json:"item_catalogo_id"`
	Model              string       `json:"modelo"`
	Category           string       `json:"categoria"`
	ProblemDescription *string      `json:"descricao_problema"`
	TotalMinutes       int          `json:"total_minutos_trabalhados"`
	StartedAt          *time.Time   `json:"iniciado_em"`
	CreatedAt          time.Time    `json:"created_at"`
	InStock            int          `json:"qtd_reposicao"`
	MinStock           int          `json:"estoque_minimo"`
	Deficit            int          `json:"deficit"`
	Critical           bool         `json:"critico"`
	LocationCode       *string      `json:"endereco_codigo"`
	BoxCode            *string      `json:"caixa_codigo"`
}

// CriticalModel é um modelo abaixo do estoque mínimo, com as contagens de triagem pendente.
type CriticalModel struct {
	CatalogItemID    int64  `json:"id"`
	Name             string `json:"nome"`
	Category         string `json:"categoria"`
	MinStock         int    `json:"estoque_minimo"`
	InStock          int    `json:"qtd_reposicao"`
	PreTriage        int    `json:"qtd_pre_triagem"`
	AwaitingTriage   int    `json:"qtd_ag_triagem"`
	Deficit          int    `json:"deficit"`
	HasActiveRequest bool   `json:"tem_solicitacao_ativa"`
}
