// internal/models/image.go
package models

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// ImageData 内联图片（原始字节 + MIME 类型）
type ImageData struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// 可作为风格参考或幻灯片配图的图片类型
var AcceptedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// IsAcceptedImageType MIME 类型是否可接受
func IsAcceptedImageType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, t := range AcceptedImageTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// DataURI 返回 data:<mime>;base64,... 形式
func (img *ImageData) DataURI() string {
	if img == nil {
		return ""
	}
	return "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Clone 深拷贝
func (img *ImageData) Clone() *ImageData {
	if img == nil {
		return nil
	}
	data := make([]byte, len(img.Data))
	copy(data, img.Data)
	return &ImageData{MimeType: img.MimeType, Data: data}
}

// ParseDataURI 解析 base64 data URI
func ParseDataURI(uri string) (*ImageData, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, fmt.Errorf("不是 data URI")
	}
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok || payload == "" {
		return nil, fmt.Errorf("无法从 data URI 中提取 base64 数据")
	}
	mimeType, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return nil, fmt.Errorf("仅支持 base64 编码的 data URI")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("base64 解码失败: %w", err)
	}
	return &ImageData{MimeType: mimeType, Data: data}, nil
}
