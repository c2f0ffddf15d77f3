package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "pioerp/docs" // registra a especificação Swagger

	"pioerp/internal/api/auth"
	"pioerp/internal/api/catalog"
	"pioerp/internal/api/equipment"
	"pioerp/internal/api/internalization"
	"pioerp/internal/api/location"
	"pioerp/internal/api/movement"
	"pioerp/internal/api/repair"
	"pioerp/internal/api/response"
	"pioerp/internal/domain"
	"pioerp/internal/pkg/cache"
	"pioerp/internal/pkg/logger"
	"pioerp/internal/pkg/middleware"
)

// Handlers reúne os handlers já inicializados por injeção de dependências.
type Handlers struct {
	Catalog         *catalog.Handler
	Location        *location.Handler
	Equipment       *equipment.Handler
	Movement        *movement.Handler
	Repair          *repair.Handler
	Internalization *internalization.Handler
	Auth            *auth.Handler
}

// Pinger é usado pelo health check para conferir o banco.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configura a infraestrutura do roteador. Cache nil desliga o rate
// limit e Tokens nil desliga a autenticação.
type Options struct {
	Logger      logger.Logger
	Metrics     middleware.RequestObserver
	Exporter    http.Handler
	Cache       cache.Client
	RateLimit   int
	RateWindow  time.Duration
	Tokens      middleware.TokenValidator
	CORSOrigins []string
	DB          Pinger
}

// NewRouter configura e retorna o roteador HTTP principal.
func NewRouter(h Handlers, opts Options) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.Use(middleware.RequestID, middleware.Recovery(opts.Logger), middleware.Logging(opts.Logger))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
	}

	// --- Plataforma ---
	if opts.Exporter != nil {
		r.Handle("/metrics", opts.Exporter).Methods(http.MethodGet)
	}
	r.PathPrefix("/swagger/").Handler(httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	api := r.PathPrefix("/api").Subrouter()
	if opts.Cache != nil {
		api.Use(middleware.RateLimiter(opts.Cache, opts.RateLimit, opts.RateWindow, opts.Logger))
	}

	// --- Rotas públicas ---
	api.HandleFunc("/health", health(opts.DB)).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", h.Auth.Login).Methods(http.MethodPost)

	// --- Rotas protegidas (quando a autenticação está ativa) ---
	protected := api.NewRoute().Subrouter()
	adminOnly := func(next http.HandlerFunc) http.Handler { return next }
	if opts.Tokens != nil {
		protected.Use(middleware.Auth(opts.Tokens))
		requireAdmin := middleware.RequireRole(domain.RoleAdmin)
		adminOnly = func(next http.HandlerFunc) http.Handler { return requireAdmin(next) }
	}

	protected.Handle("/auth/register", adminOnly(h.Auth.Register)).Methods(http.MethodPost)

	// Catálogo
	protected.HandleFunc("/catalogo", h.Catalog.List).Methods(http.MethodGet)
	protected.HandleFunc("/catalogo", h.Catalog.Create).Methods(http.MethodPost)
	protected.HandleFunc("/catalogo/{id:[0-9]+}", h.Catalog.Get).Methods(http.MethodGet)
	protected.HandleFunc("/catalogo/{id:[0-9]+}", h.Catalog.Update).Methods(http.MethodPut)
	protected.HandleFunc("/catalogo/{id:[0-9]+}", h.Catalog.Delete).Methods(http.MethodDelete)

	// Endereços, pallets e caixas
	protected.HandleFunc("/endereco", h.Location.ListLocations).Methods(http.MethodGet)
	protected.HandleFunc("/endereco", h.Location.CreateLocation).Methods(http.MethodPost)
	protected.HandleFunc("/endereco/arvore", h.Location.Tree).Methods(http.MethodGet)
	protected.HandleFunc("/endereco/{id:[0-9]+}", h.Location.UpdateLocation).Methods(http.MethodPut)
	protected.HandleFunc("/endereco/{id:[0-9]+}", h.Location.DeleteLocation).Methods(http.MethodDelete)

	protected.HandleFunc("/pallets", h.Location.ListPallets).Methods(http.MethodGet)
	protected.HandleFunc("/pallets", h.Location.CreatePallet).Methods(http.MethodPost)
	protected.HandleFunc("/pallets/{id:[0-9]+}", h.Location.DeletePallet).Methods(http.MethodDelete)
	protected.HandleFunc("/pallets/{id:[0-9]+}/etiquetas", h.Location.PalletLabels).Methods(http.MethodGet)

	protected.HandleFunc("/caixas", h.Location.ListBoxes).Methods(http.MethodGet)
	protected.HandleFunc("/caixas", h.Location.CreateBox).Methods(http.MethodPost)
	protected.HandleFunc("/caixas/auto", h.Location.AutoCreateBox).Methods(http.MethodPost)
	protected.HandleFunc("/caixas/{id:[0-9]+}", h.Location.DeleteBox).Methods(http.MethodDelete)
	protected.HandleFunc("/caixas/{id:[0-9]+}/etiqueta", h.Location.BoxLabel).Methods(http.MethodGet)

	// Equipamentos (rotas em inglês são aliases)
	for _, p := range []struct{ base, entry, exit string }{
		{"/equipamento", "/entrada", "/saida"},
		{"/equipment", "/entry", "/exit"},
	} {
		protected.HandleFunc(p.base, h.Equipment.List).Methods(http.MethodGet)
		protected.HandleFunc(p.base+p.entry, h.Equipment.Entry).Methods(http.MethodPost)
		protected.HandleFunc(p.base+"/montar-pallet", h.Equipment.AssembleLot).Methods(http.MethodPost)
		protected.HandleFunc(p.base+"/{id:[0-9]+}", h.Equipment.Get).Methods(http.MethodGet)
		protected.HandleFunc(p.base+"/{id:[0-9]+}"+p.exit, h.Equipment.Exit).Methods(http.MethodPost)
	}

	// Movimentações
	protected.HandleFunc("/movimentacao", h.Movement.List).Methods(http.MethodGet)
	protected.HandleFunc("/movimentacao/estoque-critico", h.Movement.CriticalStock).Methods(http.MethodGet)
	protected.HandleFunc("/movimentacao/dashboard", h.Movement.Dashboard).Methods(http.MethodGet)

	// Reparo e fila de solicitações
	for _, base := range []string{"/reparo", "/repair"} {
		protected.HandleFunc(base+"/prioridades", h.Repair.Priorities).Methods(http.MethodGet)
		protected.HandleFunc(base+"/criticos", h.Repair.Critical).Methods(http.MethodGet)
		protected.HandleFunc(base+"/solicitacoes", h.Repair.ListRequests).Methods(http.MethodGet)
		protected.HandleFunc(base+"/solicitar-lote", h.Repair.CreateRequest).Methods(http.MethodPost)
		protected.HandleFunc(base+"/solicitacoes/{id:[0-9]+}", h.Repair.UpdateRequest).Methods(http.MethodPut)
		protected.HandleFunc(base+"/{id:[0-9]+}", h.Repair.Get).Methods(http.MethodGet)
		protected.HandleFunc(base+"/{id:[0-9]+}", h.Repair.Update).Methods(http.MethodPut)
		protected.HandleFunc(base+"/{id:[0-9]+}/iniciar", h.Repair.Start).Methods(http.MethodPost)
		protected.HandleFunc(base+"/{id:[0-9]+}/pausar", h.Repair.Pause).Methods(http.MethodPost)
		protected.HandleFunc(base+"/{id:[0-9]+}/finalizar", h.Repair.Finish).Methods(http.MethodPost)
	}

	// Internalização
	protected.HandleFunc("/internalizacao", h.Internalization.List).Methods(http.MethodGet)
	protected.HandleFunc("/internalizacao/locais-por-modelo/{catalogo_id:[0-9]+}", h.Internalization.BoxesForModel).Methods(http.MethodGet)
	protected.Handle("/internalizacao/{id:[0-9]+}/aprovar", adminOnly(h.Internalization.Approve)).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

// health responde {status, timestamp}; com banco configurado, um ping falho vira 503.
func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	response.WriteError(w, http.StatusNotFound, "Rota não encontrada: "+r.Method+" "+r.URL.Path)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	response.WriteError(w, http.StatusMethodNotAllowed, "Método não permitido.")
}
