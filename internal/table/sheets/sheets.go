package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/John-Robertt/dumpsheet/internal/domain"
	"github.com/John-Robertt/dumpsheet/internal/table"
)

// 写回的值原样保存，不做公式或日期解析；views/kudos 以数字发送。
const valueInputOption = "RAW"

type Config struct {
	ClientEmail    string
	PrivateKey     string // PEM
	DocumentKey    string
	WorksheetIndex int

	// HTTPClient 是鉴权层之下的底层 client（代理/超时）；nil 时用 http.DefaultClient。
	HTTPClient *http.Client
}

// Table 是 Google Sheets 工作表上的 table.Table（服务账号鉴权）。
type Table struct {
	svc   *sheetsapi.Service
	doc   string
	index int

	mu     sync.Mutex
	title  string
	header table.Header
}

var _ table.Table = (*Table)(nil)

// New 使用服务账号（JWT）构造 Sheets 客户端。ctx 用于令牌刷新，应与进程同寿命。
func New(ctx context.Context, cfg Config) (*Table, error) {
	if cfg.ClientEmail == "" || cfg.PrivateKey == "" || cfg.DocumentKey == "" {
		return nil, errors.New("sheets: 缺少服务账号或文档 id")
	}
	jc := &jwt.Config{
		Email:      cfg.ClientEmail,
		PrivateKey: []byte(cfg.PrivateKey),
		Scopes:     []string{sheetsapi.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	return NewWithClient(ctx, jc.Client(ctx), cfg.DocumentKey, cfg.WorksheetIndex)
}

// NewWithClient 使用已鉴权的 client；opts 追加在最后（测试用 option.WithEndpoint）。
func NewWithClient(ctx context.Context, hc *http.Client, doc string, index int, opts ...option.ClientOption) (*Table, error) {
	if index < 0 {
		return nil, fmt.Errorf("sheets: 工作表下标无效：%d", index)
	}
	all := append([]option.ClientOption{option.WithHTTPClient(hc)}, opts...)
	svc, err := sheetsapi.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("sheets: 创建客户端失败：%w", err)
	}
	return &Table{svc: svc, doc: doc, index: index}, nil
}

// Rows 读取整张工作表。每次都重新解析工作表标题（工作表可能被改名）。
func (t *Table) Rows(ctx context.Context) ([]domain.Row, error) {
	title, err := t.resolveTitle(ctx)
	if err != nil {
		return nil, err
	}

	vr, err := t.svc.Spreadsheets.Values.Get(t.doc, quoteTitle(title)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: 读取工作表 %q 失败：%w", title, err)
	}
	if len(vr.Values) == 0 {
		return nil, fmt.Errorf("%w：工作表 %q 为空", table.ErrMissingColumn, title)
	}

	h, err := table.ParseHeader(toStrings(vr.Values[0]))
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.title, t.header = title, h
	t.mu.Unlock()

	rows := make([]domain.Row, 0, len(vr.Values)-1)
	for i := 1; i < len(vr.Values); i++ {
		rows = append(rows, h.RowFromCells(i+1, toStrings(vr.Values[i])))
	}
	return rows, nil
}

// Save 一次 batchUpdate 写回该行的全部输出列。
func (t *Table) Save(ctx context.Context, row domain.Row) error {
	if row.Line < 2 {
		return fmt.Errorf("sheets: 行号无效：%d", row.Line)
	}
	title, h, err := t.layout(ctx)
	if err != nil {
		return err
	}

	cells := h.OutputCells(row)
	if len(cells) == 0 {
		return nil
	}
	data := make([]*sheetsapi.ValueRange, 0, len(cells))
	for _, c := range cells {
		a1, err := excelize.CoordinatesToCellName(c.Col+1, row.Line)
		if err != nil {
			return err
		}
		data = append(data, &sheetsapi.ValueRange{
			Range:  quoteTitle(title) + "!" + a1,
			Values: [][]interface{}{{cellValue(c)}},
		})
	}

	_, err = t.svc.Spreadsheets.Values.BatchUpdate(t.doc, &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: valueInputOption,
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: 写回第 %d 行失败：%w", row.Line, err)
	}
	return nil
}

func cellValue(c table.Cell) interface{} {
	if table.IsNumeric(c.Column) {
		if n, err := strconv.ParseInt(strings.TrimSpace(c.Value), 10, 64); err == nil {
			return n
		}
	}
	return c.Value
}

// layout 返回最近一次 Rows 得到的标题与表头；还没读过时只读表头行。
func (t *Table) layout(ctx context.Context) (string, table.Header, error) {
	t.mu.Lock()
	title, h := t.title, t.header
	t.mu.Unlock()
	if h != nil {
		return title, h, nil
	}

	title, err := t.resolveTitle(ctx)
	if err != nil {
		return "", nil, err
	}
	vr, err := t.svc.Spreadsheets.Values.Get(t.doc, quoteTitle(title)+"!1:1").Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("sheets: 读取表头失败：%w", err)
	}
	if len(vr.Values) == 0 {
		return "", nil, fmt.Errorf("%w：工作表 %q 为空", table.ErrMissingColumn, title)
	}
	h, err = table.ParseHeader(toStrings(vr.Values[0]))
	if err != nil {
		return "", nil, err
	}
	t.mu.Lock()
	t.title, t.header = title, h
	t.mu.Unlock()
	return title, h, nil
}

func (t *Table) resolveTitle(ctx context.Context) (string, error) {
	ss, err := t.svc.Spreadsheets.Get(t.doc).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("sheets: 读取文档信息失败：%w", err)
	}
	if t.index >= len(ss.Sheets) {
		return "", fmt.Errorf("sheets: 工作表下标 %d 超出范围（共 %d 个）", t.index, len(ss.Sheets))
	}
	p := ss.Sheets[t.index].Properties
	if p == nil || p.Title == "" {
		return "", fmt.Errorf("sheets: 第 %d 个工作表没有标题", t.index)
	}
	return p.Title, nil
}

// quoteTitle 把工作表标题转为 A1 记法中的引用形式：'Blad 1'（内部单引号成对）。
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func toStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c == nil {
			continue
		}
		if s, ok := c.(string); ok {
			out[i] = s
			continue
		}
		out[i] = fmt.Sprint(c)
	}
	return out
}
