package view

import (
	"fmt"
	"net/url"
	"strings"
)

// ExtractKey 判断请求路径是否包含视图标记。标记可出现在路径任意位置，
// 首次出现之后的部分经百分号解码后作为查找 key。
// 未包含标记时 claimed 为 false；解码失败时 claimed 为 true 且返回错误。
func ExtractKey(rawPath, marker string) (key string, claimed bool, err error) {
	if marker == "" {
		return "", false, nil
	}
	if idx := strings.IndexAny(rawPath, "?#"); idx >= 0 {
		rawPath = rawPath[:idx]
	}
	_, rest, found := strings.Cut(rawPath, marker)
	if !found {
		return "", false, nil
	}
	decoded, err := url.PathUnescape(rest)
	if err != nil {
		return "", true, fmt.Errorf("decode view key %q: %w", rest, err)
	}
	return decoded, true, nil
}
