package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config armazena todas as configurações do PIOERP.
// Precedência: variáveis de ambiente > arquivo YAML (CONFIG_FILE) > padrões.
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string
	CORSOrigins []string

	// Banco de Dados (PostgreSQL)
	DatabaseURL      string
	DBTimeout        time.Duration
	DBPoolMax        int
	DBIdleTimeout    time.Duration
	DBConnectTimeout time.Duration

	// Cache (Redis) e Rate Limiting. RedisAddr vazio desliga o limitador.
	RedisAddr            string
	CacheTimeout         time.Duration
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration

	// Segurança (JWT)
	AuthEnabled   bool
	JWTSecretKey  string
	TokenExpiry   time.Duration
	AdminEmail    string
	AdminPassword string

	// Eventos (NATS). Vazio desliga a publicação.
	NATSURL string

	// Código de filial aplicado na aprovação de internalização.
	InternalizationBranch string
}

// IsDevelopment indica se detalhes de erros internos podem ser expostos ao cliente.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// fileConfig espelha o arquivo YAML opcional.
type fileConfig struct {
	Server struct {
		Port        string   `yaml:"port"`
		Environment string   `yaml:"environment"`
		LogLevel    string   `yaml:"log_level"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Database struct {
		URL                 string `yaml:"url"`
		Host                string `yaml:"host"`
		Port                string `yaml:"port"`
		Name                string `yaml:"name"`
		User                string `yaml:"user"`
		Password            string `yaml:"password"`
		SSLMode             string `yaml:"sslmode"`
		PoolMax             int    `yaml:"pool_max"`
		IdleTimeoutMS       int    `yaml:"idle_timeout_ms"`
		ConnectionTimeoutMS int    `yaml:"connection_timeout_ms"`
		TimeoutSec          int    `yaml:"timeout_sec"`
	} `yaml:"database"`
	Redis struct {
		Addr                 string `yaml:"addr"`
		CacheTimeoutSec      int    `yaml:"cache_timeout_sec"`
		RateLimitMaxRequests int    `yaml:"rate_limit_max_requests"`
		RateLimitPeriodMin   int    `yaml:"rate_limit_period_min"`
	} `yaml:"redis"`
	Auth struct {
		Enabled       *bool  `yaml:"enabled"`
		JWTSecretKey  string `yaml:"jwt_secret_key"`
		JWTExpiryMin  int    `yaml:"jwt_expiry_min"`
		AdminEmail    string `yaml:"admin_email"`
		AdminPassword string `yaml:"admin_password"`
	} `yaml:"auth"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Internalizacao struct {
		Filial string `yaml:"filial"`
	} `yaml:"internalizacao"`
}

// values achata o arquivo nos mesmos nomes das variáveis de ambiente,
// para que os helpers resolvam as duas fontes da mesma forma.
func (f fileConfig) values() map[string]string {
	v := map[string]string{}
	put := func(key, value string) {
		if value != "" {
			v[key] = value
		}
	}
	putInt := func(key string, value int) {
		if value != 0 {
			v[key] = strconv.Itoa(value)
		}
	}

	put("PORT", f.Server.Port)
	put("ENV", f.Server.Environment)
	put("LOG_LEVEL", f.Server.LogLevel)
	put("CORS_ORIGINS", strings.Join(f.Server.CORSOrigins, ","))

	put("DATABASE_URL", f.Database.URL)
	put("DB_HOST", f.Database.Host)
	put("DB_PORT", f.Database.Port)
	put("DB_NAME", f.Database.Name)
	put("DB_USER", f.Database.User)
	put("DB_PASSWORD", f.Database.Password)
	put("DB_SSLMODE", f.Database.SSLMode)
	putInt("DB_POOL_MAX", f.Database.PoolMax)
	putInt("DB_IDLE_TIMEOUT_MS", f.Database.IdleTimeoutMS)
	putInt("DB_CONNECTION_TIMEOUT_MS", f.Database.ConnectionTimeoutMS)
	putInt("DB_TIMEOUT_SEC", f.Database.TimeoutSec)

	put("REDIS_ADDR", f.Redis.Addr)
	putInt("CACHE_TIMEOUT_SEC", f.Redis.CacheTimeoutSec)
	putInt("RATE_LIMIT_MAX_REQUESTS", f.Redis.RateLimitMaxRequests)
	putInt("RATE_LIMIT_PERIOD_MIN", f.Redis.RateLimitPeriodMin)

	if f.Auth.Enabled != nil {
		v["AUTH_ENABLED"] = strconv.FormatBool(*f.Auth.Enabled)
	}
	put("JWT_SECRET_KEY", f.Auth.JWTSecretKey)
	putInt("JWT_EXPIRY_MIN", f.Auth.JWTExpiryMin)
	put("ADMIN_EMAIL", f.Auth.AdminEmail)
	put("ADMIN_PASSWORD", f.Auth.AdminPassword)

	put("NATS_URL", f.NATS.URL)
	put("INTERNALIZACAO_FILIAL", f.Internalizacao.Filial)
	return v
}

// source resolve uma chave no ambiente e, em seguida, no arquivo.
type source struct {
	file map[string]string
}

// LoadConfig carrega as configurações do arquivo YAML opcional e das variáveis de ambiente.
func LoadConfig() (*Config, error) {
	src := source{file: map[string]string{}}

	if path, ok := os.LookupEnv("CONFIG_FILE"); ok && path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("falha ao ler arquivo de configuração %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("arquivo de configuração %s inválido: %w", path, err)
		}
		src.file = fc.values()
	}

	cfg := &Config{
		// 1. Geral
		Port:        src.getEnv("PORT", "3000"),
		Environment: src.getEnv("ENV", src.getEnv("NODE_ENV", "development")),
		LogLevel:    src.getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(src.getEnv("CORS_ORIGINS", "*")),

		// 2. Banco de Dados (PostgreSQL)
		DatabaseURL:      src.databaseURL(),
		DBTimeout:        src.getDurationEnv("DB_TIMEOUT_SEC", 5) * time.Second,
		DBPoolMax:        src.getIntEnv("DB_POOL_MAX", 20),
		DBIdleTimeout:    src.getDurationEnv("DB_IDLE_TIMEOUT_MS", 30000) * time.Millisecond,
		DBConnectTimeout: src.getDurationEnv("DB_CONNECTION_TIMEOUT_MS", 2000) * time.Millisecond,

		// 3. Cache (Redis)
		RedisAddr:            src.getEnv("REDIS_ADDR", ""),
		CacheTimeout:         src.getDurationEnv("CACHE_TIMEOUT_SEC", 10) * time.Second,
		RateLimitMaxRequests: src.getIntEnv("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitPeriod:      src.getDurationEnv("RATE_LIMIT_PERIOD_MIN", 1) * time.Minute,

		// 4. Segurança (JWT)
		AuthEnabled:   src.getBoolEnv("AUTH_ENABLED", false),
		JWTSecretKey:  src.getEnv("JWT_SECRET_KEY", ""),
		TokenExpiry:   src.getDurationEnv("JWT_EXPIRY_MIN", 60) * time.Minute,
		AdminEmail:    src.getEnv("ADMIN_EMAIL", ""),
		AdminPassword: src.getEnv("ADMIN_PASSWORD", ""),

		// 5. Eventos
		NATSURL: src.getEnv("NATS_URL", ""),

		InternalizationBranch: src.getEnv("INTERNALIZACAO_FILIAL", "324"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("❌ Erro de Configuração: defina DATABASE_URL ou DB_HOST/DB_NAME/DB_USER")
	}
	if cfg.AuthEnabled && cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("❌ Erro de Configuração: JWT_SECRET_KEY é obrigatória quando AUTH_ENABLED=true")
	}

	return cfg, nil
}

// databaseURL usa DATABASE_URL ou monta a DSN a partir das variáveis DB_*.
func (s source) databaseURL() string {
	if dsn := s.getEnv("DATABASE_URL", ""); dsn != "" {
		return dsn
	}

	host := s.getEnv("DB_HOST", "")
	name := s.getEnv("DB_NAME", "")
	user := s.getEnv("DB_USER", "")
	if host == "" || name == "" || user == "" {
		return ""
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, s.getEnv("DB_PASSWORD", "")),
		Host:   host + ":" + s.getEnv("DB_PORT", "5432"),
		Path:   "/" + name,
	}
	q := u.Query()
	q.Set("sslmode", s.getEnv("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

// Funções Helpers (Auxiliares)

// getEnv lê a variável de ambiente, depois o arquivo, ou retorna um valor padrão.
func (s source) getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if value, exists := s.file[key]; exists {
		return value
	}
	return defaultValue
}

// getDurationEnv lê uma variável numérica e retorna-a como time.Duration (sem unidade).
func (s source) getDurationEnv(key string, defaultValue int) time.Duration {
	return time.Duration(s.getIntEnv(key, defaultValue))
}

// getIntEnv lê uma variável numérica e retorna-a como int.
func (s source) getIntEnv(key string, defaultValue int) int {
	valueStr := s.getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é um número inteiro válido. Usando padrão (%d).", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// getBoolEnv lê uma variável booleana ("true", "1", "false"...).
func (s source) getBoolEnv(key string, defaultValue bool) bool {
	valueStr := s.getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é booleano. Usando padrão (%t).", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
