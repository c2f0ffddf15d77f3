package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Infraestrutura e utilitários
	"pioerp/config"
	"pioerp/internal/pkg/cache"
	"pioerp/internal/pkg/database"
	"pioerp/internal/pkg/events"
	"pioerp/internal/pkg/logger"
	"pioerp/internal/pkg/metrics"
	"pioerp/internal/pkg/token"

	// Handlers
	"pioerp/internal/api/auth"
	"pioerp/internal/api/catalog"
	"pioerp/internal/api/equipment"
	"pioerp/internal/api/internalization"
	"pioerp/internal/api/location"
	"pioerp/internal/api/movement"
	"pioerp/internal/api/repair"
	"pioerp/internal/api/response"
	"pioerp/internal/api/router"

	// Acesso a dados
	"pioerp/internal/repository/catalogrepo"
	"pioerp/internal/repository/equipmentrepo"
	"pioerp/internal/repository/locationrepo"
	"pioerp/internal/repository/movementrepo"
	"pioerp/internal/repository/operatorrepo"
	"pioerp/internal/repository/pgstore"
	"pioerp/internal/repository/repairrepo"
	"pioerp/internal/repository/requestrepo"

	// Lógica de negócio
	"pioerp/internal/service/catalogservice"
	"pioerp/internal/service/equipmentservice"
	"pioerp/internal/service/internalizationservice"
	"pioerp/internal/service/labelservice"
	"pioerp/internal/service/locationservice"
	"pioerp/internal/service/movementservice"
	"pioerp/internal/service/operatorservice"
	"pioerp/internal/service/repairservice"
	"pioerp/internal/service/requestservice"
)

func main() {
	// 0. Variáveis de ambiente (.env). Sem o arquivo, seguimos apenas com o ambiente do sistema (ex: Docker).
	if err := godotenv.Load(); err != nil {
		log.Println("Aviso: arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuração inválida: %v", err)
	}
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Inicializando PIOERP API...", map[string]interface{}{"env": cfg.Environment})

	// 1. Recursos de infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(database.PoolConfig{
		DSN:            cfg.DatabaseURL,
		MaxOpenConns:   cfg.DBPoolMax,
		IdleTimeout:    cfg.DBIdleTimeout,
		ConnectTimeout: cfg.DBConnectTimeout,
	})
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis), opcional: sem ele o rate limit fica desligado.
	var cacheClient cache.Client
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisClient(cfg.RedisAddr, cfg.CacheTimeout)
		if err != nil {
			log.Warn("Redis indisponível; rate limit desativado.", map[string]interface{}{"error": err.Error()})
		} else {
			defer rc.Close()
			cacheClient = rc
			log.Info("Conexão Redis estabelecida.", map[string]interface{}{"addr": cfg.RedisAddr})
		}
	}

	// C. Eventos (NATS) e métricas
	m := metrics.New()
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		np, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			log.Warn("NATS indisponível; eventos de movimentação não serão publicados.", map[string]interface{}{"error": err.Error()})
		} else {
			publisher = np
			log.Info("Conexão NATS estabelecida.", map[string]interface{}{"url": cfg.NATSURL})
		}
	}
	defer publisher.Close()
	dispatcher := events.NewDispatcher(publisher, m, log)

	// 2. Injeção de dependências: Repository -> Service -> Handler
	store := pgstore.NewStore(db, cfg.DBTimeout, log)
	catalogRepo := catalogrepo.NewCatalogRepository(db, cfg.DBTimeout, log)
	locationRepo := locationrepo.NewLocationRepository(db, cfg.DBTimeout, log)
	equipmentRepo := equipmentrepo.NewEquipmentRepository(db, cfg.DBTimeout, log)
	movementRepo := movementrepo.NewMovementRepository(db, cfg.DBTimeout, log)
	repairRepo := repairrepo.NewRepairRepository(db, cfg.DBTimeout, log)
	requestRepo := requestrepo.NewRequestRepository(db, cfg.DBTimeout, log)
	operatorRepo := operatorrepo.NewOperatorRepository(db, cfg.DBTimeout, log)
	log.Debug("Repositórios inicializados.", nil)

	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)

	catalogSvc := catalogservice.NewService(catalogRepo, log)
	locationSvc := locationservice.NewService(locationRepo, log)
	labelSvc := labelservice.NewService(locationRepo, log)
	equipmentSvc := equipmentservice.NewService(equipmentRepo, store, dispatcher, log)
	movementSvc := movementservice.NewService(movementRepo, log)
	repairSvc := repairservice.NewService(repairRepo, store, dispatcher, log, time.Now)
	requestSvc := requestservice.NewService(requestRepo, store, log, time.Now)
	internalizationSvc := internalizationservice.NewService(equipmentRepo, store, dispatcher, log, cfg.InternalizationBranch)
	operatorSvc := operatorservice.NewService(operatorRepo, tokenSvc, log)
	log.Debug("Serviços inicializados.", nil)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DBTimeout)
		created, err := operatorSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		cancel()
		if err != nil {
			log.Error("Falha ao garantir o administrador inicial.", err)
		} else if created {
			log.Info("Administrador inicial criado.", map[string]interface{}{"email": cfg.AdminEmail})
		}
	}

	resp := response.NewWriter(log, cfg.IsDevelopment())
	handlers := router.Handlers{
		Catalog:         catalog.NewHandler(catalogSvc, resp),
		Location:        location.NewHandler(locationSvc, labelSvc, resp),
		Equipment:       equipment.NewHandler(equipmentSvc, resp),
		Movement:        movement.NewHandler(movementSvc, resp),
		Repair:          repair.NewHandler(repairSvc, requestSvc, resp),
		Internalization: internalization.NewHandler(internalizationSvc, resp),
		Auth:            auth.NewHandler(operatorSvc, resp),
	}

	// 3. Roteador e servidor
	opts := router.Options{
		Logger:      log,
		Metrics:     m,
		Exporter:    m.Handler(),
		Cache:       cacheClient,
		RateLimit:   cfg.RateLimitMaxRequests,
		RateWindow:  cfg.RateLimitPeriod,
		CORSOrigins: cfg.CORSOrigins,
		DB:          db,
	}
	if cfg.AuthEnabled {
		opts.Tokens = tokenSvc
		log.Info("Autenticação JWT ativada.", nil)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(handlers, opts),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 4. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor PIOERP ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
