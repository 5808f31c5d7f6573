package run

import (
	"context"
	"errors"
	"sync"

	"github.com/John-Robertt/dumpsheet/internal/domain"
	"github.com/John-Robertt/dumpsheet/internal/mediainfo"
)

const (
	linkA = "https://www.dumpert.nl/mediabase/7654321/abcdef12/kat.html"
	linkB = "https://www.dumpert.nl/mediabase/1234567/00ff00ff/hond.html"
)

type stubFetcher struct {
	mu    sync.Mutex
	calls []domain.MediaID
	resp  map[domain.MediaID]mediainfo.Response
	errs  map[domain.MediaID]error
}

func (f *stubFetcher) Get(ctx context.Context, id domain.MediaID) (mediainfo.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if err, ok := f.errs[id]; ok {
		return mediainfo.Response{}, err
	}
	if r, ok := f.resp[id]; ok {
		return r, nil
	}
	return mediainfo.Response{}, errors.New("stub: 未配置的 id")
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type stubSubmitter struct {
	mu   sync.Mutex
	rows []domain.Row
	err  error
}

func (s *stubSubmitter) Submit(row domain.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, row.Clone())
	return nil
}

type recordObserver struct {
	mu sync.Mutex

	starts  []int
	rows    []domain.RowResult
	passes  []domain.PassReport
	writes  []domain.WriteResult
	cycErrs []string
}

func (o *recordObserver) OnPassStart(_ string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts = append(o.starts, n)
}

func (o *recordObserver) OnRowDone(_ string, res domain.RowResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rows = append(o.rows, res)
}

func (o *recordObserver) OnPassDone(rr domain.PassReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.passes = append(o.passes, rr)
}

func (o *recordObserver) OnWriteDone(res domain.WriteResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes = append(o.writes, res)
}

func (o *recordObserver) OnCycleError(_ string, stage string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cycErrs = append(o.cycErrs, stage)
}

func mkRow(line int, nummer, link string) domain.Row {
	return domain.Row{Line: line, Values: map[domain.Column]string{
		domain.ColNumber: nummer,
		domain.ColLink:   link,
	}}
}

func okResponse(title string, variants ...mediainfo.Variant) mediainfo.Response {
	return mediainfo.Response{
		Success: true,
		Items: []mediainfo.Item{{
			Title:  title,
			Date:   "2019-03-28T12:00:00+01:00",
			Stats:  &mediainfo.Stats{ViewsTotal: "10", KudosTotal: "2"},
			Media:  []mediainfo.Media{{Duration: 65, Variants: variants}},
			Stills: &mediainfo.Stills{Still: "https://media.dumpert.nl/stills/x.jpg"},
		}},
	}
}
