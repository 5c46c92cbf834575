// internal/models/language.go
package models

// Language 输出语言代码
type Language string

const (
	LanguageKorean   Language = "ko"
	LanguageEnglish  Language = "en"
	LanguageChinese  Language = "zh"
	LanguageJapanese Language = "ja"
)

// LanguageInfo 语言代码与显示名称
type LanguageInfo struct {
	Code Language `json:"code"`
	Name string   `json:"name"`
}

// SupportedLanguages 支持的输出语言，顺序即展示顺序
var SupportedLanguages = []LanguageInfo{
	{Code: LanguageKorean, Name: "Korean (한국어)"},
	{Code: LanguageEnglish, Name: "English"},
	{Code: LanguageChinese, Name: "Chinese (中文)"},
	{Code: LanguageJapanese, Name: "Japanese (日本語)"},
}

// Name 返回语言显示名称，未知代码原样返回
func (l Language) Name() string {
	for _, info := range SupportedLanguages {
		if info.Code == l {
			return info.Name
		}
	}
	return string(l)
}

// IsSupported 是否为支持的语言
func (l Language) IsSupported() bool {
	for _, info := range SupportedLanguages {
		if info.Code == l {
			return true
		}
	}
	return false
}
