// Package i18n 提供多语言字段的回退解析。
// 模板标题等字段以 {locale: text} 的 JSON 形式入库，
// 解析顺序固定为：请求语言 → en → 默认值。
package i18n

import "strings"

// FallbackLocale 兜底语言
const FallbackLocale = "en"

// Resolve 按 locale → en → def 的顺序解析翻译表
func Resolve(m map[string]string, locale, def string) string {
	if len(m) == 0 {
		return def
	}
	locale = strings.TrimSpace(locale)
	if locale != "" {
		if v, ok := m[locale]; ok && v != "" {
			return v
		}
	}
	if v, ok := m[FallbackLocale]; ok && v != "" {
		return v
	}
	return def
}
