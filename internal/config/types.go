package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// ByteSize 表示字节数，配置中可写纯整数（字节）或 "512MiB"、"1GB" 等带单位的写法。
type ByteSize int64

// UnmarshalText 解析带单位的字节数。
func (b *ByteSize) UnmarshalText(text []byte) error {
	parsed, err := parseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Int 返回 int 形式的字节数，供 Fiber 等只接受 int 的参数使用。
func (b ByteSize) Int() int {
	return int(b)
}

func parseByteSize(raw string) (ByteSize, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size value: %s", raw)
	}
	return ByteSize(n), nil
}

// 持久层后端标识。
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// GlobalConfig 描述进程级运行参数：监听端口、日志、持久层与视图前缀。
type GlobalConfig struct {
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFormat       string   `mapstructure:"LogFormat"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogMaxAgeDays   int      `mapstructure:"LogMaxAgeDays"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	Backend         string   `mapstructure:"Backend"`
	StoragePath     string   `mapstructure:"StoragePath"`
	RoutePrefix     string   `mapstructure:"RoutePrefix"`
	NotFoundMessage string   `mapstructure:"NotFoundMessage"`
	MaxBundleSize   ByteSize `mapstructure:"MaxBundleSize"`
	ShutdownTimeout Duration `mapstructure:"ShutdownTimeout"`
}

// RedisConfig 对应 [Redis] 表，仅在 Backend = "redis" 时生效。
type RedisConfig struct {
	Addr        string   `mapstructure:"Addr"`
	Password    string   `mapstructure:"Password"`
	DB          int      `mapstructure:"DB"`
	KeyPrefix   string   `mapstructure:"KeyPrefix"`
	DialTimeout Duration `mapstructure:"DialTimeout"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Redis  RedisConfig  `mapstructure:"Redis"`
}

// SQLitePath 返回 sqlite 数据库文件位置：StoragePath 下的 dropview.db。
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Global.StoragePath, "dropview.db")
}
