// Package normalizer 将任意文件名转换为只包含字母、数字和下划线的安全名称
package normalizer

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// 西里尔字母与拉丁字母一一对应，共 66 个符号（33 小写 + 33 大写）
// ъ 和 ь 没有对应的拉丁字母，映射为下划线
const (
	cyrillicAlphabet = "абвгдеёжзийклмнопрстуфхцчшщъыьэюяАБВГДЕЁЖЗИЙКЛМНОПРСТУФХЦЧШЩЪЫЬЭЮЯ"
	latinAlphabet    = "abvgdeejzijklmnoprstufhzcss_y_euaABVGDEEJZIJKLMNOPRSTUFHZCSS_Y_EUA"
)

var (
	translitTable = buildTable()

	transliterator = runes.Map(func(r rune) rune {
		if mapped, ok := translitTable[r]; ok {
			return mapped
		}
		return r
	})

	scrubber = runes.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return r
		}
		return '_'
	})
)

func buildTable() map[rune]rune {
	src := []rune(cyrillicAlphabet)
	dst := []rune(latinAlphabet)

	table := make(map[rune]rune, len(src))
	for i, r := range src {
		table[r] = dst[i]
	}
	return table
}

// Normalize 规范化文件名（不含扩展名）
// 原始名称含非 ASCII 字符时先做音译，之后无条件把非字母数字字符替换为下划线
func Normalize(name string) string {
	if name == "" {
		return name
	}

	if !isASCII(name) {
		name = Transliterate(name)
	}

	scrubbed, _, _ := transform.String(scrubber, name)
	return scrubbed
}

// Transliterate 按固定映射表音译，不在表中的字符原样保留
func Transliterate(name string) string {
	out, _, _ := transform.String(transliterator, name)
	return out
}

// TableSize 返回映射表中的符号数量
func TableSize() int {
	return len(translitTable)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
