package main

import (
	"bytes"
	"path/filepath"
	"testing"
)

// captureOutput 把 CLI 的 stdout/stderr 重定向到内存缓冲，测试结束后恢复。
func captureOutput(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr := stdOut, stdErr
	stdOut, stdErr = out, errOut
	t.Cleanup(func() {
		stdOut, stdErr = prevOut, prevErr
	})
	return out, errOut
}

// configFixture 指向 internal/config 的样例配置；go test 以包目录（模块根）为工作目录。
func configFixture(name string) string {
	return filepath.Join("internal", "config", "testdata", name)
}
