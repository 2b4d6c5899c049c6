package config

import (
	"fmt"
	"os"
	"strings"

	confv1 "rpcenable/internal/conf/v1"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// EnvPrefix 环境变量前缀，例如 RPCENABLE_DATA_DATABASE_PASSWORD 覆盖 data.database.password
const EnvPrefix = "RPCENABLE"

// Module 提供 Fx 模块
var Module = fx.Module("config",
	fx.Provide(
		func() (*confv1.Bootstrap, error) {
			configPath := getConfigPath()
			conf, err := Load(configPath)
			if err != nil {
				return nil, err
			}
			// 使用标准输出，logger 依赖配置尚未创建
			fmt.Printf("Configuration loaded successfully from: %s\n", configPath)
			return conf, nil
		},
	),
)

// Load 读取 YAML 配置文件，文件中已有的键可被同名环境变量覆盖
func Load(configPath string) (*confv1.Bootstrap, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
	}

	conf := &confv1.Bootstrap{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		// 配置结构体按 json tag 匹配 snake_case 键
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           conf,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return conf, nil
}

// getConfigPath 从环境变量获取配置路径
func getConfigPath() string {
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}

	// 容器内配置位于 /app/configs，开发环境位于 configs/
	if isRunningInContainer() {
		return "/app/configs/config.yaml"
	}
	return "configs/config.yaml"
}

// isRunningInContainer 检查是否在容器中运行
func isRunningInContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	if cgroup, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		s := string(cgroup)
		if strings.Contains(s, "docker") || strings.Contains(s, "kubepods") {
			return true
		}
	}
	return os.Getenv("KUBERNETES_SERVICE_HOST") != "" || os.Getenv("CONTAINER") != ""
}

// ValidateConfig 验证配置的完整性
func ValidateConfig(conf *confv1.Bootstrap) error {
	if conf == nil {
		return fmt.Errorf("configuration is nil")
	}

	if conf.Server == nil || conf.Server.Http == nil || conf.Server.Http.Addr == "" {
		return fmt.Errorf("server configuration is required")
	}

	// 用户目录保存在 PostgreSQL
	if conf.Data == nil || conf.Data.Database == nil {
		return fmt.Errorf("database configuration is required")
	}

	if nc := conf.Data.NonceCache; nc != nil {
		switch nc.Driver {
		case "", "memory":
		case "redis":
			if conf.Data.Redis == nil {
				return fmt.Errorf("nonce cache driver redis requires redis configuration")
			}
		default:
			return fmt.Errorf("unknown nonce cache driver %q", nc.Driver)
		}
		if nc.Size < 0 {
			return fmt.Errorf("nonce cache size must not be negative")
		}
	}

	if a := conf.Auth; a != nil {
		if a.NonceMinLength < 0 || a.ValidityWindowSeconds < 0 || a.SecretLength < 0 {
			return fmt.Errorf("auth settings must not be negative")
		}
	}

	if l := conf.Log; l != nil {
		switch l.Format {
		case "", "json", "console":
		default:
			return fmt.Errorf("unknown log format %q", l.Format)
		}
	}

	if c := conf.Registry; c != nil && c.Consul != nil && c.Consul.Enabled && c.Consul.Address == "" {
		return fmt.Errorf("consul address is required when registry is enabled")
	}
	return nil
}
