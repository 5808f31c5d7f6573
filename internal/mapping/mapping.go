package mapping

import (
	"errors"
	"strings"
	"time"

	"github.com/John-Robertt/dumpsheet/internal/domain"
	"github.com/John-Robertt/dumpsheet/internal/mediainfo"
)

// ErrNoData 表示接口返回 success=false 或没有 items：合法的空结果，不是失败。
var ErrNoData = errors.New("mapping: 接口没有返回数据")

const (
	DefaultYes = "Ja"
	DefaultNo  = "Nee"

	uploadLayout   = "2006-01-02 15:04"
	durationLayout = "15:04:05"

	youtubePrefix = "youtube:"
)

// 多清晰度时的选择顺序；都不存在时 media-url 保持原值。
var variantPreference = []string{"720p", "tablet", "mobile"}

// 接口日期可能出现的格式（按顺序尝试）。
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Mapper 把 media-info 响应映射为固定输出列。
//
// 除了读取 Now（用于时长渲染）之外是纯函数：相同响应 => 相同 Patch。
type Mapper struct {
	Location *time.Location   // 日期/时长渲染所用时区；nil 表示 time.Local
	Now      func() time.Time // nil 表示 time.Now
	Yes, No  string           // nsfw 的两种取值；为空时使用 Ja/Nee
}

// Result 是一次映射的结果。
type Result struct {
	Patch domain.Patch
	// Missing 记录按"不存在"处理的可选字段（映射缺陷，只告警不失败）。
	Missing []string
}

// Map 取第一个 item 生成 Patch。success=false 或 items 为空时返回 ErrNoData。
func (m Mapper) Map(resp mediainfo.Response) (Result, error) {
	if !resp.Success || len(resp.Items) == 0 {
		return Result{}, ErrNoData
	}
	item := resp.Items[0]

	res := Result{Patch: domain.Patch{}}
	p := res.Patch

	p[domain.ColTitle] = item.Title

	if t, ok := parseDate(item.Date, m.location()); ok {
		p[domain.ColUploadDate] = t.In(m.location()).Format(uploadLayout)
	} else {
		res.Missing = append(res.Missing, "date")
	}

	if item.Stats != nil {
		if v := item.Stats.ViewsTotal.String(); v != "" {
			p[domain.ColViews] = v
		} else {
			res.Missing = append(res.Missing, "stats.views_total")
		}
		if v := item.Stats.KudosTotal.String(); v != "" {
			p[domain.ColKudos] = v
		} else {
			res.Missing = append(res.Missing, "stats.kudos_total")
		}
	} else {
		res.Missing = append(res.Missing, "stats")
	}

	p[domain.ColNSFW] = m.nsfwToken(item.NSFW)

	if len(item.Media) > 0 {
		media := item.Media[0]
		p[domain.ColLength] = m.FormatDuration(media.Duration)
		if u, ok := SelectMediaURL(media.Variants); ok {
			p[domain.ColMediaURL] = u
		}
	} else {
		res.Missing = append(res.Missing, "media")
	}

	if item.Stills != nil {
		p[domain.ColThumbnail] = item.Stills.Still
	} else {
		res.Missing = append(res.Missing, "stills")
	}

	return res, nil
}

// FormatDuration 把秒数渲染为 HH:mm:ss：以"今天 00:00"为起点加上时长。
// 时长 >= 24h 时会回绕（已知的表示上限，不视为错误）。
func (m Mapper) FormatDuration(seconds float64) string {
	now := m.now().In(m.location())
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return midnight.Add(time.Duration(seconds * float64(time.Second))).Format(durationLayout)
}

// SelectMediaURL 按规则挑选视频地址；ok=false 表示不应修改 media-url。
//
// - 只有一个版本：直接使用（youtube:<id> 改写为 https://youtube.com/watch?v=<id>）
// - 多个版本：720p > tablet > mobile
func SelectMediaURL(variants []mediainfo.Variant) (string, bool) {
	if len(variants) == 1 {
		uri := variants[0].URI
		if strings.HasPrefix(uri, youtubePrefix) {
			return "https://youtube.com/watch?v=" + strings.TrimPrefix(uri, youtubePrefix), true
		}
		return uri, true
	}
	for _, want := range variantPreference {
		for _, v := range variants {
			if v.Version == want {
				return v.URI, true
			}
		}
	}
	return "", false
}

// 不带时区的日期按 loc 解释。
func parseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (m Mapper) nsfwToken(nsfw bool) string {
	if nsfw {
		if m.Yes != "" {
			return m.Yes
		}
		return DefaultYes
	}
	if m.No != "" {
		return m.No
	}
	return DefaultNo
}

func (m Mapper) location() *time.Location {
	if m.Location != nil {
		return m.Location
	}
	return time.Local
}

func (m Mapper) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
