package fsx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func noTempLeft(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "."+name+".tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFile_CreatesParentAndReplaces(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "reports", "last.json")

	if err := WriteFile(p, []byte("v1")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := WriteFile(p, []byte("v2")); err != nil {
		t.Fatalf("覆盖写入不期望错误：%v", err)
	}

	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "v2" {
		t.Fatalf("内容应被覆盖为 v2，实际 %q", string(b))
	}
	noTempLeft(t, filepath.Dir(p), "last.json")
}

func TestWriteFileAtomicReplace_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	err := WriteFileAtomicReplace(dir, "sheet.xlsx", []byte("x"))
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("期望包装 rename 错误，实际：%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sheet.xlsx")); !os.IsNotExist(err) {
		t.Fatalf("不应写出最终文件：%v", err)
	}
	noTempLeft(t, dir, "sheet.xlsx")
}

func TestWriteFileAtomicReplace_TargetIsDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "report.json"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	err := WriteFileAtomicReplace(dir, "report.json", []byte("{}"))
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}
