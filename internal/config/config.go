package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "dca"
	appDirName        = "bourso-dca"
)

// Load 读取配置文件并结合环境变量返回 Config。
// 默认路径下的配置文件不存在时直接使用默认值，显式指定的路径必须存在。
func Load(path string) (*Config, error) {
	v := viper.New()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist):
			if explicit {
				return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
			}
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if cfg.App.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.App.DataDir = dir
	}
	if cfg.Database.Path == "" && !cfg.Database.InMemory {
		cfg.Database.Path = filepath.Join(cfg.App.DataDir, "journal.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.data_dir", "")

	v.SetDefault("broker.mode", BrokerModePaper)
	v.SetDefault("broker.exchange", "binanceusdm")
	v.SetDefault("broker.use_sandbox", false)
	v.SetDefault("broker.call_timeout", "30s")
	v.SetDefault("broker.retry.max_attempts", 3)
	v.SetDefault("broker.retry.min_delay", "500ms")
	v.SetDefault("broker.retry.max_delay", "5s")

	v.SetDefault("market_hours.enabled", false)
	v.SetDefault("market_hours.timezone", "Europe/Paris")
	v.SetDefault("market_hours.open", "09:00")
	v.SetDefault("market_hours.close", "17:30")
	v.SetDefault("market_hours.weekdays", []string{"mon", "tue", "wed", "thu", "fri"})
	v.SetDefault("market_hours.holidays", []string{})

	v.SetDefault("paper.market_open", true)
	v.SetDefault("paper.mfa_rounds", 0)

	v.SetDefault("credentials.backend", CredentialBackendFile)
	v.SetDefault("credentials.keyring_service", appDirName)

	v.SetDefault("notify.log", true)
	v.SetDefault("notify.telegram.enabled", false)

	v.SetDefault("database.path", "")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.output_paths", []string{"stderr"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})

	v.SetDefault("scheduler.cron", "*/5 * * * *")
	v.SetDefault("scheduler.run_on_start", true)

	v.SetDefault("monitor.port", 0)
}

func defaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("获取用户配置目录失败: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
