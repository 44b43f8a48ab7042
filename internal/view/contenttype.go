package view

import (
	"path"
	"strings"

	"github.com/dropview/dropview/internal/cache"
)

// extensionTypes 是未声明类型时按扩展名推断的固定映射。
var extensionTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

// ContentType 决定响应类型：声明了具体类型时原样使用，否则按扩展名推断，
// 未映射的扩展名保持通用类型。
func ContentType(filePath, declared string) string {
	if declared != "" && declared != cache.DefaultMimeType {
		return declared
	}
	if ct, ok := extensionTypes[strings.ToLower(path.Ext(filePath))]; ok {
		return ct
	}
	return cache.DefaultMimeType
}
