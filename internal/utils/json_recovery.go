// internal/utils/json_recovery.go
package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	apperrors "github.com/Corphon/SlideCrafter/internal/errors"
)

// MalformedExcerptLimit 错误中保留的原始输入长度（字符）
const MalformedExcerptLimit = 500

// errTrailingContent JSON 值之后还有非空白内容
var errTrailingContent = errors.New("JSON 值之后存在多余内容")

var (
	// 完整的代码块围栏，语言标记可选
	fencedBlockRegex = regexp.MustCompile("(?s)^```[A-Za-z0-9_-]*[ \\t]*\\n?(.*?)\\n?\\s*```$")
	// 只有开头围栏（流式输出被截断时常见）
	openFenceRegex = regexp.MustCompile("(?s)^```[A-Za-z0-9_-]*[ \\t]*\\n(.*)$")
)

// StripCodeFence 去掉模型输出外层的 ``` 围栏
func StripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if m := fencedBlockRegex.FindStringSubmatch(cleaned); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := openFenceRegex.FindStringSubmatch(cleaned); m != nil {
		return strings.TrimSpace(m[1])
	}
	return cleaned
}

// RecoverJSON 从模型返回的文本中解析出JSON值。
// 直接解析失败且错误看起来是尾部多余内容时，截取第一个 { 或 [ 到
// 与之对应的最后一个 } 或 ] 之间的内容再试一次。
// 失败时返回 MalformedJSON 错误，附带原始输入的前500个字符。
func RecoverJSON(raw string) (interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.NewMalformedJSONError("模型返回了空响应", "", nil)
	}

	cleaned := StripCodeFence(raw)
	value, err := decodeStrict(cleaned)
	if err == nil {
		return value, nil
	}

	if looksRecoverable(cleaned, err) {
		if span, ok := structuralSpan(cleaned); ok {
			if recovered, rerr := decodeStrict(span); rerr == nil {
				GetLogger().Debug("JSON 尾部清理后解析成功", map[string]interface{}{
					"original_length":  len(raw),
					"recovered_length": len(span),
				})
				return recovered, nil
			}
		}
	}

	excerpt := TruncateRunes(raw, MalformedExcerptLimit)
	return nil, apperrors.NewMalformedJSONError(
		fmt.Sprintf("模型返回的JSON无效，原始文本片段（最多%d字）: %s", MalformedExcerptLimit, excerpt),
		excerpt,
		err,
	)
}

// decodeStrict 要求整个字符串恰好是一个JSON值。
// 数字保留为 json.Number，大整数不会丢失精度。
func decodeStrict(s string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingContent
	}
	return value, nil
}

func looksRecoverable(s string, err error) bool {
	if errors.Is(err, errTrailingContent) {
		return true
	}
	if strings.HasSuffix(strings.TrimSpace(s), "undefined") {
		return true
	}
	// 值前面还有说明文字
	if strings.Contains(err.Error(), "looking for beginning of value") {
		idx := strings.IndexAny(s, "{[")
		return idx > 0
	}
	return false
}

// structuralSpan 第一个 { 或 [ 到对应闭合符最后一次出现的位置
func structuralSpan(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}
	closing := byte('}')
	if s[start] == '[' {
		closing = ']'
	}
	end := strings.LastIndexByte(s, closing)
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}
