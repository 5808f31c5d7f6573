package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // 容器镜像里可能没有 zoneinfo

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingCredentials 表示 sheets 后端缺少服务账号或文档 id。
	ErrCodeMissingCredentials = "config_missing_credentials"
)

const (
	BackendSheets = "sheets"
	BackendXLSX   = "xlsx"

	OverlapAllow = "allow"
	OverlapSkip  = "skip"
)

// 未指定 --config 时在 cwd 下按顺序查找（都不存在也不算错误）。
var defaultFiles = []string{"dumpsheet.yaml", "dumpsheet.yml", "dumpsheet.json"}

// CLIArgs 是命令行可以覆盖的几项，保留"是否显式指定"的信息。
type CLIArgs struct {
	ConfigPath string

	Backend  string
	XLSXPath string

	Once bool
}

// FileConfig 是配置文件与环境变量的绑定结构（环境变量优先于文件）。
type FileConfig struct {
	Backend string       `yaml:"backend" json:"backend" env:"BACKEND" env-default:"sheets"`
	Sheets  SheetsConfig `yaml:"sheets" json:"sheets"`

	XLSXPath string `yaml:"xlsx_path" json:"xlsx_path" env:"XLSX_PATH"`

	APIBaseURL  string `yaml:"api_base_url" json:"api_base_url" env:"API_BASE_URL"`
	HTTPTimeout string `yaml:"http_timeout" json:"http_timeout" env:"HTTP_TIMEOUT" env-default:"20s"`
	ProxyURL    string `yaml:"proxy_url" json:"proxy_url" env:"PROXY_URL"`

	PollInterval string `yaml:"poll_interval" json:"poll_interval" env:"POLL_INTERVAL" env-default:"15s"`
	Overlap      string `yaml:"overlap" json:"overlap" env:"OVERLAP" env-default:"allow"`

	Timezone string `yaml:"timezone" json:"timezone" env:"TIMEZONE" env-default:"Local"`
	NSFWYes  string `yaml:"nsfw_yes" json:"nsfw_yes" env:"NSFW_YES" env-default:"Ja"`
	NSFWNo   string `yaml:"nsfw_no" json:"nsfw_no" env:"NSFW_NO" env-default:"Nee"`

	WriteWorkers int    `yaml:"write_workers" json:"write_workers" env:"WRITE_WORKERS" env-default:"1"`
	ReportPath   string `yaml:"report_path" json:"report_path" env:"REPORT_PATH"`

	LogLevel  string `yaml:"log_level" json:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" json:"log_format" env:"LOG_FORMAT" env-default:"console"`
}

type SheetsConfig struct {
	ClientEmail    string `yaml:"client_email" json:"client_email" env:"CLIENT_EMAIL"`
	PrivateKey     string `yaml:"private_key" json:"private_key" env:"PRIVATE_KEY"`
	DocumentKey    string `yaml:"document_key" json:"document_key" env:"DOCUMENT_KEY"`
	WorksheetIndex int    `yaml:"worksheet_index" json:"worksheet_index" env:"WORKSHEET_INDEX" env-default:"0"`
}

// EffectiveConfig 是合并、校验后的最终配置（实现层直接消费，不再做二次默认判断）。
type EffectiveConfig struct {
	Source string // 实际读取的配置文件；只用环境变量时为空

	Backend string
	Sheets  SheetsConfig

	XLSXPath string

	APIBaseURL  string
	HTTPTimeout time.Duration
	ProxyURL    string

	PollInterval time.Duration
	Overlap      string
	Once         bool

	Location *time.Location
	NSFWYes  string
	NSFWNo   string

	WriteWorkers int
	ReportPath   string

	LogLevel  string
	LogFormat string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeMissingCredentials:
		return fmt.Sprintf("%s：sheets 后端需要 CLIENT_EMAIL / PRIVATE_KEY / DOCUMENT_KEY：%v", e.Code, e.Err)
	case ErrCodeInvalid:
		if e.Path != "" && e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取配置并与 CLI 参数合并。
//
// 顺序（后者覆盖前者）：
// 1) <cwd>/.env 注入进程环境（不存在忽略；不覆盖已存在的环境变量）
// 2) 配置文件：--config 指定（必须存在），否则 cwd 下 dumpsheet.yaml|yml|json（可选）
// 3) 环境变量
// 4) CLI：--backend / --xlsx / --once
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if err := godotenv.Load(filepath.Join(cwdAbs, ".env")); err != nil && !os.IsNotExist(err) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: filepath.Join(cwdAbs, ".env"), Err: err}
	}

	cfgPath, err := discover(cwdAbs, cli.ConfigPath)
	if err != nil {
		return EffectiveConfig{}, err
	}

	var fc FileConfig
	if cfgPath != "" {
		err = cleanenv.ReadConfig(cfgPath, &fc)
	} else {
		err = cleanenv.ReadEnv(&fc)
	}
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

func discover(cwd, explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		p := absCleanFrom(cwd, explicit)
		fi, err := os.Stat(p)
		if err != nil {
			return "", &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		if fi.IsDir() {
			return "", &Error{Code: ErrCodeInvalid, Path: p, Err: errors.New("是目录而不是文件")}
		}
		return p, nil
	}
	for _, name := range defaultFiles {
		p := filepath.Join(cwd, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", nil
}

func merge(cwd string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	backend := strings.ToLower(strings.TrimSpace(fc.Backend))
	if strings.TrimSpace(cli.Backend) != "" {
		backend = strings.ToLower(strings.TrimSpace(cli.Backend))
	}
	xlsxPath := strings.TrimSpace(fc.XLSXPath)
	if strings.TrimSpace(cli.XLSXPath) != "" {
		xlsxPath = strings.TrimSpace(cli.XLSXPath)
		// 只给 --xlsx 时隐含 xlsx 后端。
		if strings.TrimSpace(cli.Backend) == "" {
			backend = BackendXLSX
		}
	}

	sc := fc.Sheets
	sc.ClientEmail = strings.TrimSpace(sc.ClientEmail)
	sc.DocumentKey = strings.TrimSpace(sc.DocumentKey)
	sc.PrivateKey = NormalizePrivateKey(sc.PrivateKey)

	switch backend {
	case BackendSheets:
		var missing []string
		if sc.ClientEmail == "" {
			missing = append(missing, "CLIENT_EMAIL")
		}
		if sc.PrivateKey == "" {
			missing = append(missing, "PRIVATE_KEY")
		}
		if sc.DocumentKey == "" {
			missing = append(missing, "DOCUMENT_KEY")
		}
		if len(missing) > 0 {
			return EffectiveConfig{}, &Error{Code: ErrCodeMissingCredentials, Path: cfgPath, Err: fmt.Errorf("缺少 %s", strings.Join(missing, ", "))}
		}
		if sc.WorksheetIndex < 0 {
			return EffectiveConfig{}, invalid("worksheet_index 不能为负数：%d", sc.WorksheetIndex)
		}
	case BackendXLSX:
		if xlsxPath == "" {
			return EffectiveConfig{}, invalid("xlsx 后端需要 xlsx_path（或 --xlsx）")
		}
		xlsxPath = absCleanFrom(cwd, xlsxPath)
	default:
		return EffectiveConfig{}, invalid("backend 只能是 sheets 或 xlsx，实际是 %q", backend)
	}

	apiBase := strings.TrimRight(strings.TrimSpace(fc.APIBaseURL), "/")
	if apiBase != "" {
		u, err := url.Parse(apiBase)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return EffectiveConfig{}, invalid("api_base_url 必须是 http/https 地址：%q", fc.APIBaseURL)
		}
	}

	proxyURL := strings.TrimSpace(fc.ProxyURL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, invalid("proxy_url 无效：%q", proxyURL)
		}
	}

	interval, err := parsePositiveDuration(fc.PollInterval)
	if err != nil {
		return EffectiveConfig{}, invalid("poll_interval 无效：%v", err)
	}
	// 调度精度为秒。
	if interval < time.Second || interval%time.Second != 0 {
		return EffectiveConfig{}, invalid("poll_interval 必须是整数秒：%s", fc.PollInterval)
	}
	timeout, err := parsePositiveDuration(fc.HTTPTimeout)
	if err != nil {
		return EffectiveConfig{}, invalid("http_timeout 无效：%v", err)
	}

	overlap := strings.ToLower(strings.TrimSpace(fc.Overlap))
	if overlap != OverlapAllow && overlap != OverlapSkip {
		return EffectiveConfig{}, invalid("overlap 只能是 allow 或 skip，实际是 %q", fc.Overlap)
	}

	loc, err := loadLocation(fc.Timezone)
	if err != nil {
		return EffectiveConfig{}, invalid("timezone 无效：%v", err)
	}

	if strings.TrimSpace(fc.NSFWYes) == "" || strings.TrimSpace(fc.NSFWNo) == "" {
		return EffectiveConfig{}, invalid("nsfw_yes / nsfw_no 不能为空")
	}

	workers := fc.WriteWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > 8 {
		workers = 8
	}

	reportPath := strings.TrimSpace(fc.ReportPath)
	if reportPath != "" {
		reportPath = absCleanFrom(cwd, reportPath)
	}

	return EffectiveConfig{
		Source:       cfgPath,
		Backend:      backend,
		Sheets:       sc,
		XLSXPath:     xlsxPath,
		APIBaseURL:   apiBase,
		HTTPTimeout:  timeout,
		ProxyURL:     proxyURL,
		PollInterval: interval,
		Overlap:      overlap,
		Once:         cli.Once,
		Location:     loc,
		NSFWYes:      fc.NSFWYes,
		NSFWNo:       fc.NSFWNo,
		WriteWorkers: workers,
		ReportPath:   reportPath,
		LogLevel:     strings.ToLower(strings.TrimSpace(fc.LogLevel)),
		LogFormat:    strings.ToLower(strings.TrimSpace(fc.LogFormat)),
	}, nil
}

// NormalizePrivateKey 把 .env 中常见的字面量 "\n" 还原为换行，并去掉首尾引号/空白。
func NormalizePrivateKey(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return strings.ReplaceAll(s, `\n`, "\n")
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("必须大于 0：%s", s)
	}
	return d, nil
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
