package config

import "fmt"

type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Workflow      WorkflowConfig          `mapstructure:"workflow"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Server        ServerConfig            `mapstructure:"server"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type WorkflowConfig struct {
	MaxTxAttempts           int `mapstructure:"max_tx_attempts"`
	DefaultOJTHoursRequired int `mapstructure:"default_ojt_hours_required"`
	GatewayStatusCacheTTL   int `mapstructure:"gateway_status_cache_ttl"` // milliseconds
	AssignmentCacheTTL      int `mapstructure:"assignment_cache_ttl"`     // milliseconds

	WorkQueue WorkQueueConfig `mapstructure:"work_queue"`
}

type WorkQueueConfig struct {
	SourceTimeout int    `mapstructure:"source_timeout"` // milliseconds
	CacheTTL      int    `mapstructure:"cache_ttl"`      // milliseconds
	ILPIndex      string `mapstructure:"ilp_index"`
}

type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
	Region  string `mapstructure:"region"`

	SNS struct {
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`

	Email struct {
		Enabled           bool     `mapstructure:"enabled"`
		FromEmail         string   `mapstructure:"from_email"`
		GatewayRecipients []string `mapstructure:"gateway_recipients"`
	} `mapstructure:"email"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}
