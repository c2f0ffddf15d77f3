// Package events publica as movimentações gravadas para consumidores externos (NATS).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"pioerp/internal/domain"
	"pioerp/internal/pkg/logger"
)

// SubjectPrefix é o prefixo dos assuntos publicados; o tipo da movimentação completa o assunto.
const SubjectPrefix = "pioerp.movimentacao"

// Subject devolve o assunto de um tipo de movimentação.
func Subject(tipo domain.MovementType) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, tipo)
}

// Publisher envia uma mensagem para um assunto.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close()
}

// NATSPublisher publica via conexão NATS core.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher conecta ao servidor NATS informado.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("pioerp-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// Publish verifica o contexto antes de publicar; a publicação NATS core não bloqueia.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("contexto cancelado antes de publicar: %w", err)
	}
	return p.conn.Publish(subject, data)
}

// Close drena as mensagens pendentes e fecha a conexão.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// NopPublisher descarta as mensagens (NATS_URL vazio).
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte) error { return nil }
func (NopPublisher) Close()                                        {}

// MovementCounter é o gancho de métricas chamado para cada movimentação.
type MovementCounter interface {
	MovementRecorded(tipo string)
}

// Dispatcher notifica movimentações já commitadas. Falhas de publicação são
// registradas em log e nunca desfazem a operação.
type Dispatcher struct {
	pub     Publisher
	counter MovementCounter
	logger  logger.Logger
}

// NewDispatcher cria o Dispatcher; counter pode ser nil.
func NewDispatcher(pub Publisher, counter MovementCounter, log logger.Logger) *Dispatcher {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Dispatcher{pub: pub, counter: counter, logger: log}
}

// MovementsCommitted publica cada movimentação e atualiza o contador.
func (d *Dispatcher) MovementsCommitted(ctx context.Context, movements []domain.Movement) {
	for _, m := range movements {
		if d.counter != nil {
			d.counter.MovementRecorded(string(m.Type))
		}

		payload, err := json.Marshal(m)
		if err != nil {
			d.logger.Error("Falha ao serializar evento de movimentação.", err)
			continue
		}
		if err := d.pub.Publish(ctx, Subject(m.Type), payload); err != nil {
			d.logger.Warn("Falha ao publicar evento de movimentação.", map[string]interface{}{
				"movimentacao_id": m.ID,
				"equipamento_id":  m.EquipmentID,
				"tipo":            m.Type,
				"error":           err.Error(),
			})
		}
	}
}
