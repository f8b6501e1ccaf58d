package configuration

import (
	"fmt"
	"os"
	"strconv"

	"contentpilot/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Notify      Notify      `json:"notify"`
	Worker      Worker      `json:"worker"`
	Platforms   Platforms   `json:"platforms"`
	Stream      Stream      `json:"stream"`
	Crypto      Crypto      `json:"crypto"`
}

type App struct {
	Port         int    `json:"port"`
	SecretKey    string `json:"secretKey"`
	WorkerSecret string `json:"workerSecret"`
}

type Database struct {
	Psql Db `json:"psql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Notify selects the accelerator transport. The store stays authoritative no
// matter which transport is configured, or whether it works at all.
type Notify struct {
	Transport       string `json:"transport"` // redis | pubsub | servicebus | none
	Channel         string `json:"channel"`
	PubsubProjectID string `json:"pubsubProjectID"`
	PubsubTopic     string `json:"pubsubTopic"`
	ServiceBusNS    string `json:"serviceBusNamespace"`
	ServiceBusQueue string `json:"serviceBusQueue"`
}

type Worker struct {
	TickIntervalSec   int `json:"tickIntervalSec"`
	BatchSize         int `json:"batchSize"`
	RetryBaseDelaySec int `json:"retryBaseDelaySec"`
}

type Platforms struct {
	Instagram Instagram `json:"instagram"`
	Facebook  Facebook  `json:"facebook"`
}

type Instagram struct {
	BaseURL         string `json:"baseURL"`
	PollIntervalSec int    `json:"pollIntervalSec"`
	PollMaxAttempts int    `json:"pollMaxAttempts"`
}

type Facebook struct {
	BaseURL string `json:"baseURL"`
}

type Stream struct {
	HeartbeatSec int `json:"heartbeatSec"`
}

type Crypto struct {
	// TokenKey is a hex-encoded 32-byte AES key for sealing access tokens.
	TokenKey string `json:"tokenKey"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initWorker(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = "5432"
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = "localhost"
	}
}

func initApp(C *Config) {
	// Env overrides config when provided
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	if v := os.Getenv("WORKER_SECRET"); v != "" {
		C.App.WorkerSecret = v
	}
	if v := os.Getenv("TOKEN_KEY"); v != "" {
		C.Crypto.TokenKey = v
	}
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
	if C.App.WorkerSecret == "" {
		logger.GetLogger().Warn("App.WorkerSecret not set; the scheduler trigger endpoint will reject all requests.")
	}
}

func initWorker(C *Config) {
	if C.Worker.TickIntervalSec == 0 {
		C.Worker.TickIntervalSec = 15
	}
	if C.Worker.BatchSize == 0 {
		C.Worker.BatchSize = 10
	}
	if C.Worker.RetryBaseDelaySec == 0 {
		C.Worker.RetryBaseDelaySec = 30
	}
	if C.Platforms.Instagram.BaseURL == "" {
		C.Platforms.Instagram.BaseURL = "https://graph.facebook.com/v19.0"
	}
	if C.Platforms.Instagram.PollIntervalSec == 0 {
		C.Platforms.Instagram.PollIntervalSec = 5
	}
	if C.Platforms.Instagram.PollMaxAttempts == 0 {
		C.Platforms.Instagram.PollMaxAttempts = 20
	}
	if C.Platforms.Facebook.BaseURL == "" {
		C.Platforms.Facebook.BaseURL = "https://graph.facebook.com/v19.0"
	}
	if C.Stream.HeartbeatSec == 0 {
		C.Stream.HeartbeatSec = 30
	}
	if C.Notify.Channel == "" {
		C.Notify.Channel = "jobs:wake"
	}
	if C.Notify.Transport == "" {
		C.Notify.Transport = "redis"
	}
}
