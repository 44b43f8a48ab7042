package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供虚拟路径/命中层/状态码字段，供 view 请求日志复用。
// tier 为空表示两层均未命中或读取失败。
func RequestFields(path, tier string, status int) logrus.Fields {
	return logrus.Fields{
		"path":      path,
		"tier":      tier,
		"cache_hit": tier != "",
		"status":    status,
	}
}
