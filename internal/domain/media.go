package domain

// MediaID 是远端 media-info API 的主键（形如 "7654321_abcdef12"）。
// 对核心流程而言是不透明字符串，只由 link.Resolve 构造。
type MediaID string
