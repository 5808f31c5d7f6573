package mediainfo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleJSON = `{
  "success": true,
  "items": [{
    "id": "7654321_abcdef12",
    "title": "Kat valt van bank",
    "date": "2019-03-28T12:00:02+01:00",
    "stats": {"views_total": 123456, "kudos_total": 789},
    "nsfw": false,
    "media": [{"duration": 3725, "variants": [{"version": "720p", "uri": "https://media.test/720.mp4"}]}],
    "stills": {"still": "https://media.test/still.jpg"}
  }]
}`

func TestClient_Get_OK(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleJSON))
	}))
	defer srv.Close()

	c := Client{BaseURL: srv.URL + "/mobile_api/json/info/", HTTP: srv.Client()}
	resp, err := c.Get(context.Background(), "7654321_abcdef12")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if gotPath != "/mobile_api/json/info/7654321_abcdef12/" {
		t.Fatalf("请求路径不符合预期：%q", gotPath)
	}
	if !resp.Success || len(resp.Items) != 1 {
		t.Fatalf("解码结果不符合预期：%+v", resp)
	}
	it := resp.Items[0]
	if it.Stats == nil || it.Stats.ViewsTotal.String() != "123456" {
		t.Fatalf("views_total 应保持数字字面量：%+v", it.Stats)
	}
	if len(it.Media) != 1 || it.Media[0].Duration != 3725 {
		t.Fatalf("media 解码不正确：%+v", it.Media)
	}
}

func TestClient_Get_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	c := Client{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := c.Get(context.Background(), "1_2")

	var me *Error
	if !errors.As(err, &me) || me.Stage != StageDecode {
		t.Fatalf("期望 decode 阶段错误，实际：%v", err)
	}
}

func TestClient_Get_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := Client{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := c.Get(context.Background(), "1_2")

	var me *Error
	if !errors.As(err, &me) || me.Stage != StageFetch {
		t.Fatalf("期望 fetch 阶段错误，实际：%v", err)
	}
	var hs *HTTPStatusError
	if !errors.As(err, &hs) || hs.StatusCode != http.StatusBadGateway {
		t.Fatalf("期望 HTTPStatusError(502)，实际：%v", err)
	}
}

func TestClient_URL_DefaultBase(t *testing.T) {
	c := Client{}
	if got := c.URL("1_2"); got != DefaultBaseURL+"/1_2/" {
		t.Fatalf("URL 不符合预期：%q", got)
	}
}

func TestDecode_Empty(t *testing.T) {
	if _, err := Decode([]byte("  ")); err == nil {
		t.Fatalf("空响应体应报错")
	}
}
