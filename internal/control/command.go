package control

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"sort"

	"github.com/dropview/dropview/internal/cache"
)

// 控制通道上的命令类型。
const (
	TypeFileList         = "FILE_LIST"
	TypeClearPersistence = "CLEAR_PERSISTENCE"
)

// Command 是解码后的控制命令。Type 为空或 FILE_LIST 缺少 Files 时视为无效命令。
type Command struct {
	Type  string
	Files cache.FileSet
}

// Valid 报告命令是否可被 Dispatch 执行。
func (c Command) Valid() bool {
	switch c.Type {
	case TypeFileList:
		return c.Files != nil
	case TypeClearPersistence:
		return true
	default:
		return false
	}
}

type fileObject struct {
	Content []byte  `json:"content"`
	Text    *string `json:"text"`
	Type    string  `json:"type"`
}

// DecodeCommand 解析 JSON 控制载荷：
//
//	{"type":"FILE_LIST","files":{"index.html":"<base64>","app.css":{"content":"<base64>","type":"text/css"}}}
//	{"type":"FILE_LIST","files":{"readme.txt":{"text":"hello","type":"text/plain"}}}
//	{"type":"CLEAR_PERSISTENCE"}
//
// 对象条目中 text 为 UTF-8 原文，同时出现时优先于 content。
//
// 无法识别的载荷返回零值 Command（调用方静默忽略）；单个文件条目解码失败时跳过，
// 其 path 通过 skipped 返回。
func DecodeCommand(data []byte) (cmd Command, skipped []string) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil || envelope == nil {
		return Command{}, nil
	}

	var kind string
	if err := json.Unmarshal(envelope["type"], &kind); err != nil {
		return Command{}, nil
	}

	switch kind {
	case TypeClearPersistence:
		return Command{Type: TypeClearPersistence}, nil
	case TypeFileList:
		raw := bytes.TrimSpace(envelope["files"])
		if len(raw) == 0 || raw[0] != '{' {
			return Command{}, nil
		}
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return Command{}, nil
		}
		set := make(cache.FileSet, len(entries))
		for p, value := range entries {
			blob, ok := decodeBlob(value)
			if !ok || p == "" {
				skipped = append(skipped, p)
				continue
			}
			set[p] = blob
		}
		sort.Strings(skipped)
		return Command{Type: TypeFileList, Files: set}, skipped
	default:
		return Command{}, nil
	}
}

func decodeBlob(raw json.RawMessage) (cache.Blob, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return cache.Blob{}, false
	}

	switch raw[0] {
	case '"':
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return cache.Blob{}, false
		}
		content, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return cache.Blob{}, false
		}
		return cache.Blob{Content: content}, true
	case '{':
		var obj fileObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return cache.Blob{}, false
		}
		content := obj.Content
		if obj.Text != nil {
			content = []byte(*obj.Text)
		}
		return cache.Blob{Content: content, MimeType: obj.Type}, true
	default:
		return cache.Blob{}, false
	}
}
