package mediainfo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/John-Robertt/dumpsheet/internal/domain"
)

// DefaultBaseURL 是 media-info API 的默认前缀（请求路径为 <base>/<id>/）。
const DefaultBaseURL = "https://api.dumpert.nl/mobile_api/json/info"

const (
	StageFetch  = "fetch"
	StageDecode = "decode"
)

// 响应体上限：单条元数据很小，超限视为异常响应。
const maxBodyBytes = 4 << 20

// Client 负责"定位接口 + 解码 JSON"。
//
// 约束：
// - 不做缓存、不做重试、不做限速（跳过策略由变更缓存负责）
// - Decode 必须是纯函数：相同输入 => 相同输出
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func (c Client) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// URL 返回 id 对应的接口地址。
func (c Client) URL(id domain.MediaID) string {
	return c.baseURL() + "/" + string(id) + "/"
}

// Get 抓取并解码 id 的元数据；失败时返回 *Error（Stage=fetch/decode）。
func (c Client) Get(ctx context.Context, id domain.MediaID) (Response, error) {
	b, err := c.Fetch(ctx, id)
	if err != nil {
		return Response{}, &Error{ID: id, Stage: StageFetch, Err: err}
	}
	resp, err := Decode(b)
	if err != nil {
		return Response{}, &Error{ID: id, Stage: StageDecode, Err: err}
	}
	return resp, nil
}

// Fetch 只负责网络请求，返回原始响应体。
func (c Client) Fetch(ctx context.Context, id domain.MediaID) ([]byte, error) {
	if c.HTTP == nil {
		return nil, errors.New("http client 不能为空")
	}
	if id == "" {
		return nil, errors.New("media id 不能为空")
	}

	u := c.URL(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Body: truncate(string(b), 200)}
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("响应体超过上限 %d 字节", maxBodyBytes)
	}
	return b, nil
}

// Decode 把原始响应体解析为 Response。
func Decode(b []byte) (Response, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return Response{}, errors.New("响应体为空")
	}
	var r Response
	if err := json.Unmarshal(b, &r); err != nil {
		return Response{}, err
	}
	return r, nil
}

// Error 是 media-info 阶段的可追溯错误。
// 上层据此把失败归类为 fetch_failed / decode_failed。
type Error struct {
	ID    domain.MediaID
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("media=%s stage=%s: %v", e.ID, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
