package config

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// maxBodyLimit 保证 MaxBundleSize 可安全转换为 int。
const maxBodyLimit = 1<<31 - 1

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("LogLevel", "无法识别的日志级别: "+g.LogLevel)
	}
	if g.LogMaxSize < 0 || g.LogMaxBackups < 0 || g.LogMaxAgeDays < 0 {
		return newFieldError("LogMaxSize/LogMaxBackups/LogMaxAgeDays", "不能为负数")
	}
	if strings.TrimSpace(g.StoragePath) == "" {
		return newFieldError("StoragePath", "不能为空")
	}
	if err := validateRoutePrefix(g.RoutePrefix); err != nil {
		return err
	}
	if g.MaxBundleSize < 0 || int64(g.MaxBundleSize) > int64(maxBodyLimit) {
		return newFieldError("MaxBundleSize", "必须在 0-2GiB 之间")
	}

	switch g.Backend {
	case BackendSQLite:
	case BackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return newFieldError(redisField("Addr"), "Backend 为 redis 时必填")
		}
		if c.Redis.DB < 0 {
			return newFieldError(redisField("DB"), "不能为负数")
		}
	default:
		return newFieldError("Backend", "仅支持 sqlite|redis")
	}

	return nil
}

func validateRoutePrefix(prefix string) error {
	if !strings.HasPrefix(prefix, "/") || !strings.HasSuffix(prefix, "/") {
		return newFieldError("RoutePrefix", "必须以 / 开头并以 / 结尾")
	}
	if strings.Trim(prefix, "/") == "" {
		return newFieldError("RoutePrefix", "不能只包含 /")
	}
	if strings.ContainsAny(prefix, " ?#") {
		return newFieldError("RoutePrefix", "不允许包含空格、? 或 #")
	}
	return nil
}
