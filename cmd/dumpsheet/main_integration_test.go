package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestCLI_OnceAgainstLocalWorkbook(t *testing.T) {
	// 锁定端到端行为：读取工作簿 -> 请求接口 -> 写回 -> 退出码 0。
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/7654321_abcdef12/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"items":[{"title":"kat","date":"2019-03-28T12:00:00+01:00",
			"stats":{"views_total":10,"kudos_total":3},"nsfw":true,
			"media":[{"duration":65,"variants":[{"version":"mobile","uri":"m"},{"version":"720p","uri":"hd"}]}],
			"stills":{"still":"s.jpg"}}]}`))
	}))
	defer srv.Close()

	root := t.TempDir()
	book := filepath.Join(root, "videos.xlsx")
	f := excelize.NewFile()
	header := []string{"nummer", "dumpert-link", "titel", "views", "nsfw", "lengte", "media-url"}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue("Sheet1", cell, h)
	}
	_ = f.SetCellValue("Sheet1", "A2", "1")
	_ = f.SetCellValue("Sheet1", "B2", "https://www.dumpert.nl/mediabase/7654321/abcdef12/kat.html")
	_ = f.SetCellValue("Sheet1", "A3", "2")
	if err := f.SaveAs(book); err != nil {
		t.Fatalf("写入工作簿失败：%v", err)
	}
	_ = f.Close()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))
	bin := filepath.Join(root, "dumpsheet")

	build := exec.Command("go", "build", "-o", bin, "./cmd/dumpsheet")
	build.Dir = repoRoot
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("构建失败：%v\n%s", err, out)
	}

	cmd := exec.Command(bin, "run", "--once", "--xlsx", book)
	cmd.Dir = root
	cmd.Env = append(os.Environ(),
		"API_BASE_URL="+srv.URL,
		"TIMEZONE=UTC",
		"LOG_FORMAT=json",
		"REPORT_PATH="+filepath.Join(root, "report.json"),
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("命令执行失败：%v\nstderr=%s", err, stderr.String())
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("期望请求接口 1 次，实际 %d", n)
	}
	if !strings.Contains(stderr.String(), "对账完成") {
		t.Fatalf("stderr 缺少对账摘要：%s", stderr.String())
	}
	if _, err := os.Stat(filepath.Join(root, "report.json")); err != nil {
		t.Fatalf("报告文件未写出：%v", err)
	}

	f, err = excelize.OpenFile(book)
	if err != nil {
		t.Fatalf("打开工作簿失败：%v", err)
	}
	defer f.Close()
	want := map[string]string{"C2": "kat", "D2": "10", "E2": "Ja", "F2": "00:01:05", "G2": "hd", "C3": ""}
	for cell, v := range want {
		got, _ := f.GetCellValue("Sheet1", cell)
		if got != v {
			t.Fatalf("%s 期望 %q，实际 %q", cell, v, got)
		}
	}
}
