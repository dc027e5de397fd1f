package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ORDERBOT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Store        StoreConfig
	NLU          NLUConfig
	Notify       NotifyConfig
	Maps         MapsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlags
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERBOT_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERBOT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORDERBOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERBOT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERBOT_DB_DSN"`
	Driver string `envconfig:"ORDERBOT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ORDERBOT_DB_HOST"`
	Port     int    `envconfig:"ORDERBOT_DB_PORT" default:"5432"`
	User     string `envconfig:"ORDERBOT_DB_USER"`
	Password string `envconfig:"ORDERBOT_DB_PASSWORD"`
	Name     string `envconfig:"ORDERBOT_DB_NAME"`
	SSLMode  string `envconfig:"ORDERBOT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERBOT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERBOT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERBOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERBOT_DB_CONN_MAX_IDLE_TIME" default:"15m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, val := range map[string]string{
		"ORDERBOT_DB_HOST": db.Host,
		"ORDERBOT_DB_USER": db.User,
		"ORDERBOT_DB_NAME": db.Name,
	} {
		if val == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("database configuration incomplete: set ORDERBOT_DB_DSN or %s", strings.Join(missing, ", "))
	}

	db.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(db.User),
		url.QueryEscape(db.Password),
		db.Host,
		db.Port,
		db.Name,
		db.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERBOT_REDIS_URL"`
	Address      string        `envconfig:"ORDERBOT_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERBOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERBOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERBOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERBOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERBOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERBOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERBOT_REDIS_WRITE_TIMEOUT" default:"5s"`
	SessionTTL   time.Duration `envconfig:"ORDERBOT_REDIS_SESSION_TTL" default:"2h"`
}

// StoreConfig carries the storefront facts the conversation engine quotes to
// customers plus the pricing knobs for checkout.
type StoreConfig struct {
	Name    string `envconfig:"ORDERBOT_STORE_NAME" default:"The Bagel Shop"`
	Address string `envconfig:"ORDERBOT_STORE_ADDRESS" default:"123 Main Street"`
	Phone   string `envconfig:"ORDERBOT_STORE_PHONE" default:"(555) 123-4567"`
	Hours   string `envconfig:"ORDERBOT_STORE_HOURS" default:"7am - 3pm, Monday through Sunday"`

	CityTaxRate  float64 `envconfig:"ORDERBOT_STORE_CITY_TAX_RATE" default:"0"`
	StateTaxRate float64 `envconfig:"ORDERBOT_STORE_STATE_TAX_RATE" default:"0"`
	DeliveryFee  float64 `envconfig:"ORDERBOT_STORE_DELIVERY_FEE" default:"2.99"`

	MenuRefresh time.Duration `envconfig:"ORDERBOT_STORE_MENU_REFRESH" default:"1m"`
}

type NLUConfig struct {
	Endpoint string        `envconfig:"ORDERBOT_NLU_ENDPOINT"`
	APIKey   string        `envconfig:"ORDERBOT_NLU_API_KEY"`
	Timeout  time.Duration `envconfig:"ORDERBOT_NLU_TIMEOUT" default:"2s"`
}

type NotifyConfig struct {
	Endpoint string        `envconfig:"ORDERBOT_NOTIFY_ENDPOINT"`
	APIKey   string        `envconfig:"ORDERBOT_NOTIFY_API_KEY"`
	From     string        `envconfig:"ORDERBOT_NOTIFY_FROM" default:"orders@bagelworks.example"`
	Timeout  time.Duration `envconfig:"ORDERBOT_NOTIFY_TIMEOUT" default:"5s"`
}

// MapsConfig configures address verification for delivery orders. An
// empty APIKey disables verification; addresses are then accepted as
// given. DeliveryZips is the comma-separated set of zip codes the shop
// delivers to; empty means deliver anywhere.
type MapsConfig struct {
	APIKey       string        `envconfig:"ORDERBOT_MAPS_API_KEY"`
	Timeout      time.Duration `envconfig:"ORDERBOT_MAPS_TIMEOUT" default:"3s"`
	DeliveryZips []string      `envconfig:"ORDERBOT_DELIVERY_ZIPS"`
}

type FeatureFlags struct {
	AutoMigrate bool `envconfig:"ORDERBOT_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ORDERBOT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	ActionsTopic string `envconfig:"ORDERBOT_PUBSUB_ACTIONS_TOPIC"`
}
