package link

import (
	"regexp"

	"github.com/John-Robertt/dumpsheet/internal/domain"
)

// 只接受固定形态：https://www.dumpert.nl/mediabase/<hex>/<hex>/<任意>
// 注意：第三个 '/' 必须存在；"/mediabase/a/b" 不算有效链接。
var mediabaseRE = regexp.MustCompile(`^https://www\.dumpert\.nl/mediabase/([0-9a-fA-F]+)/([0-9a-fA-F]+)/.*`)

// Resolve 从视频链接中解析出 MediaID（"<hex1>_<hex2>"）。
// 纯函数：不访问网络，不修改任何状态；无法解析时返回 ok=false。
func Resolve(s string) (domain.MediaID, bool) {
	m := mediabaseRE.FindStringSubmatch(s)
	if len(m) < 3 {
		return "", false
	}
	return domain.MediaID(m[1] + "_" + m[2]), true
}
