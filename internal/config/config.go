package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"footballhub/internal/alerts"
	"footballhub/internal/models"
	"footballhub/internal/providers"
	"footballhub/internal/rate"
	"footballhub/internal/routing"
	"footballhub/internal/services"
)

const DefaultPath = "config/config.yaml"

// Драйверы хранилища кодов
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
)

type ProvidersConfig struct {
	Mobizon      providers.MobizonConfig      `yaml:"mobizon"`
	TemplatedSMS providers.TemplatedSMSConfig `yaml:"templated_sms"`
	OTPSMS       providers.OTPSMSConfig       `yaml:"otp_sms"`
	WhatsApp     providers.WhatsAppConfig     `yaml:"whatsapp"`
	Green        providers.GreenConfig        `yaml:"green"`
	// Timeout: общий таймаут HTTP для адаптеров без собственного.
	Timeout time.Duration `yaml:"timeout"`
}

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Store struct {
		Driver      string `yaml:"driver"`
		RedisPrefix string `yaml:"redis_prefix"`
		DynamoTable string `yaml:"dynamo_table"`
		AWSRegion   string `yaml:"aws_region"`
	} `yaml:"store"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Reports struct {
		FontPath string `yaml:"font_path"`
	} `yaml:"reports"`

	OTP       services.OTPPolicy `yaml:"otp"`
	RateLimit rate.Config        `yaml:"rate_limit"`
	Routing   routing.Config     `yaml:"routing"`
	Providers ProvidersConfig    `yaml:"providers"`
	Alerts    alerts.Config      `yaml:"alerts"`
}

// LoadConfig читает YAML, затем .env и переменные окружения поверх него.
// Отсутствие файла по пути по умолчанию не ошибка: всё можно задать через env.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// .env необязателен
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.DynamoTable, "DYNAMO_TABLE")
	setString(&c.Store.AWSRegion, "AWS_REGION")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setInt(&c.Server.Port, "PORT")
	setBool(&c.OTP.DevMode, "OTP_DEV_MODE")

	p := &c.Providers
	setString(&p.Mobizon.APIKey, "MOBIZON_API_KEY")
	setString(&p.Mobizon.SenderID, "MOBIZON_SENDER_ID")
	setBool(&p.Mobizon.DryRun, "MOBIZON_DRY_RUN")
	setString(&p.TemplatedSMS.Token, "TEMPLATED_SMS_TOKEN")
	setString(&p.TemplatedSMS.TemplateID, "TEMPLATED_SMS_TEMPLATE_ID")
	setString(&p.TemplatedSMS.BaseURL, "TEMPLATED_SMS_BASE_URL")
	setString(&p.OTPSMS.Token, "OTP_SMS_TOKEN")
	setString(&p.OTPSMS.BaseURL, "OTP_SMS_BASE_URL")
	setString(&p.WhatsApp.Token, "WHATSAPP_TOKEN")
	setString(&p.WhatsApp.PhoneNumberID, "WHATSAPP_PHONE_NUMBER_ID")
	setString(&p.WhatsApp.Template, "WHATSAPP_TEMPLATE")
	setString(&p.Green.InstanceID, "GREEN_INSTANCE_ID")
	setString(&p.Green.Token, "GREEN_TOKEN")

	setString(&c.Alerts.Telegram.Token, "ALERTS_TELEGRAM_TOKEN")
	setInt64(&c.Alerts.Telegram.ChatID, "ALERTS_TELEGRAM_CHAT_ID")
	setString(&c.Alerts.Email.Password, "ALERTS_SMTP_PASSWORD")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreMemory
		if c.Database.DSN != "" {
			c.Store.Driver = StorePostgres
		}
	}
	if c.Store.RedisPrefix == "" {
		c.Store.RedisPrefix = "otp"
	}
	if c.Store.AWSRegion == "" {
		c.Store.AWSRegion = "us-east-1"
	}
	c.OTP = c.OTP.WithDefaults()
	if c.Routing.Default.Primary == models.ChannelNone {
		c.Routing.Default = models.ChannelPlan{Primary: models.ChannelWhatsApp}
	}
	if c.Routing.DualCountries == nil {
		c.Routing.DualCountries = []string{"20"}
	}
	if c.Routing.UnknownCountry == "" {
		c.Routing.UnknownCountry = routing.UnknownCountryDefault
	}
	if c.Providers.Timeout <= 0 {
		c.Providers.Timeout = providers.DefaultTimeout
	}
	p := &c.Providers
	for _, t := range []*time.Duration{&p.Mobizon.Timeout, &p.TemplatedSMS.Timeout, &p.OTPSMS.Timeout, &p.WhatsApp.Timeout, &p.Green.Timeout} {
		if *t <= 0 {
			*t = p.Timeout
		}
	}
}

func (c *Config) Validate() error {
	if c.OTP.CodeLength < services.MinCodeLength || c.OTP.CodeLength > services.MaxCodeLength {
		return fmt.Errorf("otp.code_length must be between %d and %d", services.MinCodeLength, services.MaxCodeLength)
	}
	switch c.Routing.UnknownCountry {
	case routing.UnknownCountryDefault, routing.UnknownCountryReject:
	default:
		return fmt.Errorf("routing.unknown_country: unsupported value %q", c.Routing.UnknownCountry)
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Database.DSN == "" {
			return errors.New("store.driver=postgres requires database.url")
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			return errors.New("store.driver=redis requires redis.addr")
		}
	case StoreDynamoDB:
		if c.Store.DynamoTable == "" {
			return errors.New("store.driver=dynamodb requires store.dynamo_table")
		}
	default:
		return fmt.Errorf("store.driver: unsupported driver %q", c.Store.Driver)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}
