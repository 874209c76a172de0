package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了定投调度器运行所需的全部配置项。
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Broker      BrokerConfig      `mapstructure:"broker"`
	MarketHours MarketHoursConfig `mapstructure:"market_hours"`
	Paper       PaperConfig       `mapstructure:"paper"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
	DataDir     string `mapstructure:"data_dir"`
}

// BrokerConfig 描述券商连接信息。
type BrokerConfig struct {
	Mode        string        `mapstructure:"mode"`
	Exchange    string        `mapstructure:"exchange"`
	UseSandbox  bool          `mapstructure:"use_sandbox"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	Retry       RetryConfig   `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// MarketHoursConfig 描述交易时段，格式 HH:MM。
type MarketHoursConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Timezone string   `mapstructure:"timezone"`
	Open     string   `mapstructure:"open"`
	Close    string   `mapstructure:"close"`
	Weekdays []string `mapstructure:"weekdays"`
	Holidays []string `mapstructure:"holidays"`
}

// PaperConfig 控制模拟券商。
type PaperConfig struct {
	Prices     map[string]float64 `mapstructure:"prices"`
	MarketOpen bool               `mapstructure:"market_open"`
	MfaRounds  int                `mapstructure:"mfa_rounds"`
}

// CredentialsConfig 控制凭证读取位置。
type CredentialsConfig struct {
	Backend        string `mapstructure:"backend"`
	KeyringService string `mapstructure:"keyring_service"`
}

// NotifyConfig 控制下单成功后的通知渠道。
type NotifyConfig struct {
	Log      bool           `mapstructure:"log"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 通知参数。
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  int64  `mapstructure:"chat_id"`
}

// DatabaseConfig 管理运行日志数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// SchedulerConfig 控制常驻模式下的批量执行节奏。
type SchedulerConfig struct {
	Cron       string `mapstructure:"cron"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// MonitorConfig 控制监控接口。
type MonitorConfig struct {
	Port int `mapstructure:"port"`
}

const (
	BrokerModePaper = "paper"
	BrokerModeCCXT  = "ccxt"

	CredentialBackendFile    = "file"
	CredentialBackendKeyring = "keyring"
)

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.App.DataDir == "" {
		err = multierr.Append(err, errors.New("app.data_dir 不能为空"))
	}

	switch strings.ToLower(c.Broker.Mode) {
	case BrokerModePaper:
	case BrokerModeCCXT:
		if c.Broker.Exchange == "" {
			err = multierr.Append(err, errors.New("broker.exchange 不能为空"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("broker.mode 不支持: %q", c.Broker.Mode))
	}
	if c.Broker.CallTimeout < 0 {
		err = multierr.Append(err, errors.New("broker.call_timeout 不能为负"))
	}
	if c.Broker.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("broker.retry.max_attempts 必须大于0"))
	}
	if c.Broker.Retry.MinDelay <= 0 || c.Broker.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("broker.retry.delay 必须为正"))
	}
	if c.Broker.Retry.MinDelay > c.Broker.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("broker.retry.min_delay 不能大于 max_delay"))
	}

	if c.MarketHours.Enabled {
		if _, locErr := time.LoadLocation(c.MarketHours.Timezone); locErr != nil {
			err = multierr.Append(err, fmt.Errorf("market_hours.timezone 无效: %w", locErr))
		}
		if c.MarketHours.Open == "" || c.MarketHours.Close == "" {
			err = multierr.Append(err, errors.New("market_hours.open/close 不能为空"))
		}
	}

	if c.Paper.MfaRounds < 0 {
		err = multierr.Append(err, errors.New("paper.mfa_rounds 不能为负"))
	}

	switch strings.ToLower(c.Credentials.Backend) {
	case CredentialBackendFile:
	case CredentialBackendKeyring:
		if c.Credentials.KeyringService == "" {
			err = multierr.Append(err, errors.New("credentials.keyring_service 不能为空"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("credentials.backend 不支持: %q", c.Credentials.Backend))
	}

	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.Token == "" || c.Notify.Telegram.ChatID == 0 {
			err = multierr.Append(err, errors.New("telegram 通知需要配置 token 与 chat_id"))
		}
	}

	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}

	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if c.Scheduler.Cron == "" {
		err = multierr.Append(err, errors.New("scheduler.cron 不能为空"))
	}
	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		err = multierr.Append(err, errors.New("monitor.port 应位于[0,65535]"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
