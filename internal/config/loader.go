package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix 为环境变量覆盖的前缀，例如 DROPVIEW_LISTENPORT、DROPVIEW_REDIS_ADDR。
const EnvPrefix = "DROPVIEW"

// DefaultRoutePrefix 是视图拦截使用的路径标记。
const DefaultRoutePrefix = "/__view__/"

// DefaultMaxBundleSize 是控制通道单次请求体的默认上限（512MiB）。
const DefaultMaxBundleSize ByteSize = 512 << 20

// Load 读取并解析 TOML 配置文件，同时注入默认值、环境变量覆盖与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	hooks := mapstructure.ComposeDecodeHookFunc(durationDecodeHook(), byteSizeDecodeHook())
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absStorage, err := filepath.Abs(cfg.Global.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析存储目录: %w", err)
	}
	cfg.Global.StoragePath = absStorage

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "json")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogMaxAgeDays", 0)
	v.SetDefault("LogCompress", true)
	v.SetDefault("Backend", BackendSQLite)
	v.SetDefault("StoragePath", "./storage")
	v.SetDefault("RoutePrefix", DefaultRoutePrefix)
	v.SetDefault("NotFoundMessage", "File not found in Allure Report")
	v.SetDefault("MaxBundleSize", "512MiB")
	v.SetDefault("ShutdownTimeout", "10s")

	v.SetDefault("Redis.Addr", "")
	v.SetDefault("Redis.Password", "")
	v.SetDefault("Redis.DB", 0)
	v.SetDefault("Redis.KeyPrefix", "dropview:")
	v.SetDefault("Redis.DialTimeout", "5s")
}

func applyDefaults(cfg *Config) {
	g := &cfg.Global
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	g.Backend = strings.ToLower(strings.TrimSpace(g.Backend))
	if g.Backend == "" {
		g.Backend = BackendSQLite
	}
	if strings.TrimSpace(g.RoutePrefix) == "" {
		g.RoutePrefix = DefaultRoutePrefix
	}
	if g.MaxBundleSize == 0 {
		g.MaxBundleSize = DefaultMaxBundleSize
	}
	if g.ShutdownTimeout.DurationValue() <= 0 {
		g.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Redis.DialTimeout.DurationValue() <= 0 {
		cfg.Redis.DialTimeout = Duration(5 * time.Second)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(ByteSize(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return parseByteSize(v)
		case int:
			return ByteSize(v), nil
		case int64:
			return ByteSize(v), nil
		case float64:
			return ByteSize(v), nil
		case ByteSize:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的字节数类型: %T", v)
		}
	}
}
