package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/John-Robertt/dumpsheet/internal/app/run"
	"github.com/John-Robertt/dumpsheet/internal/cache"
	"github.com/John-Robertt/dumpsheet/internal/config"
	"github.com/John-Robertt/dumpsheet/internal/infra/httpx"
	"github.com/John-Robertt/dumpsheet/internal/link"
	"github.com/John-Robertt/dumpsheet/internal/logx"
	"github.com/John-Robertt/dumpsheet/internal/mapping"
	"github.com/John-Robertt/dumpsheet/internal/mediainfo"
	"github.com/John-Robertt/dumpsheet/internal/scheduler"
	"github.com/John-Robertt/dumpsheet/internal/table"
	"github.com/John-Robertt/dumpsheet/internal/table/sheets"
	"github.com/John-Robertt/dumpsheet/internal/table/xlsx"
	"github.com/John-Robertt/dumpsheet/internal/writeback"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	case "resolve":
		if code := resolveCmd(os.Stdout, args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath: ra.ConfigPath,
		Backend:    ra.Backend,
		XLSXPath:   ra.XLSXPath,
		Once:       ra.Once,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置错误（%s）：%v\n", config.Code(err), err)
		return 1
	}

	log, err := logx.New(logx.Config{Level: eff.LogLevel, Format: eff.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败：%v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logConfig(log, eff)

	tbl, err := openTable(ctx, eff)
	if err != nil {
		log.Error("打开表格失败", zap.String("backend", eff.Backend), zap.Error(err))
		return 1
	}
	apiClient, err := httpx.NewAPIClient(eff.ProxyURL, eff.HTTPTimeout)
	if err != nil {
		log.Error("初始化 HTTP client 失败", zap.Error(err))
		return 1
	}

	obs := newLogObserver(log)

	queue := writeback.New(tbl, writeback.Options{Workers: eff.WriteWorkers})
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for res := range queue.Results() {
			obs.OnWriteDone(res)
		}
	}()
	drain := func() {
		queue.Close()
		<-consumed
	}

	cycle := &run.Cycle{
		Table: tbl,
		Reconciler: &run.Reconciler{
			Cache: cache.New(),
			Fetch: mediainfo.Client{BaseURL: eff.APIBaseURL, HTTP: apiClient},
			Mapper: mapping.Mapper{
				Location: eff.Location,
				Yes:      eff.NSFWYes,
				No:       eff.NSFWNo,
			},
			Writer: queue,
			Obs:    obs,
		},
		Obs:        obs,
		ReportPath: eff.ReportPath,
	}

	if eff.Once {
		rr, err := cycle.RunOnce(ctx)
		drain()
		if err != nil || rr.Summary.Failed > 0 || obs.WriteFailures() > 0 {
			return 1
		}
		return 0
	}

	sch, err := scheduler.New(eff.PollInterval, func(ctx context.Context) {
		_, _ = cycle.RunOnce(ctx)
	}, scheduler.Options{Overlap: eff.Overlap, Logger: log})
	if err != nil {
		drain()
		log.Error("初始化调度器失败", zap.Error(err))
		return 1
	}
	sch.Start(ctx)
	drain()
	return 0
}

func openTable(ctx context.Context, eff config.EffectiveConfig) (table.Table, error) {
	switch eff.Backend {
	case config.BackendXLSX:
		return xlsx.Open(eff.XLSXPath, eff.Sheets.WorksheetIndex)
	default:
		base, err := httpx.NewSheetsClient(eff.ProxyURL, eff.HTTPTimeout)
		if err != nil {
			return nil, err
		}
		// 令牌刷新不随退出信号取消：退出时仍要排空写回队列。
		return sheets.New(context.WithoutCancel(ctx), sheets.Config{
			ClientEmail:    eff.Sheets.ClientEmail,
			PrivateKey:     eff.Sheets.PrivateKey,
			DocumentKey:    eff.Sheets.DocumentKey,
			WorksheetIndex: eff.Sheets.WorksheetIndex,
			HTTPClient:     base,
		})
	}
}

// resolveCmd 打印每个链接对应的 media id（不访问网络）；有无效链接时返回 1。
func resolveCmd(w io.Writer, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "resolve 需要至少一个链接")
		return 2
	}
	code := 0
	for _, a := range args {
		if isHelp(a) {
			printUsage()
			return 0
		}
		if id, ok := link.Resolve(a); ok {
			fmt.Fprintf(w, "%s\t%s\n", a, id)
			continue
		}
		fmt.Fprintf(w, "%s\tinvalid\n", a)
		code = 1
	}
	return code
}

type runArgs struct {
	ConfigPath string
	Backend    string
	XLSXPath   string
	Once       bool
}

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}

	value := func(i *int, name string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s 需要一个值", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		a := args[i]
		var err error
		switch {
		case a == "--config":
			ra.ConfigPath, err = value(&i, a)
		case strings.HasPrefix(a, "--config="):
			ra.ConfigPath = strings.TrimPrefix(a, "--config=")
		case a == "--backend":
			ra.Backend, err = value(&i, a)
		case strings.HasPrefix(a, "--backend="):
			ra.Backend = strings.TrimPrefix(a, "--backend=")
		case a == "--xlsx":
			ra.XLSXPath, err = value(&i, a)
		case strings.HasPrefix(a, "--xlsx="):
			ra.XLSXPath = strings.TrimPrefix(a, "--xlsx=")
		case a == "--once":
			ra.Once = true
		case strings.HasPrefix(a, "-"):
			return runArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			return runArgs{}, fmt.Errorf("多余的参数 %q", a)
		}
		if err != nil {
			return runArgs{}, err
		}
	}

	switch ra.Backend {
	case "", config.BackendSheets, config.BackendXLSX:
	default:
		return runArgs{}, fmt.Errorf("--backend 只能是 sheets 或 xlsx，实际是 %q", ra.Backend)
	}
	return ra, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  dumpsheet run [--config path] [--backend sheets|xlsx] [--xlsx path] [--once]
  dumpsheet resolve <url>...

命令：
  run      轮询表格，为带 dumpert-link 的行补全元数据
  resolve  打印链接对应的 media id（不访问网络）

使用 "dumpsheet run --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  dumpsheet run [--config path] [--backend sheets|xlsx] [--xlsx path] [--once]

参数：
  --config    配置文件（yaml/json）；未指定时查找 ./dumpsheet.yaml|yml|json（可选）
  --backend   表格后端：sheets|xlsx（默认 sheets）
  --xlsx      本地工作簿路径（隐含 --backend xlsx）
  --once      只执行一轮，等待写回完成后退出
  -h, --help  显示帮助

环境变量（也可写在 ./.env）：
  CLIENT_EMAIL PRIVATE_KEY DOCUMENT_KEY WORKSHEET_INDEX BACKEND XLSX_PATH
  API_BASE_URL POLL_INTERVAL OVERLAP HTTP_TIMEOUT PROXY_URL TIMEZONE
  NSFW_YES NSFW_NO WRITE_WORKERS REPORT_PATH LOG_LEVEL LOG_FORMAT
`)
}
