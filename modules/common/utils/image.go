package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // GIF 디코더 등록
	_ "image/jpeg" // JPEG 디코더 등록
	"image/png"
	"strings"

	_ "github.com/kolesa-team/go-webp/decoder" // WebP 디코더 등록
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// 무손실 스틸 이미지 포맷
const (
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// ConvertImageToBase64 - 바이너리를 base64로 변환
func ConvertImageToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 - base64 문자열을 바이너리로 변환 (data URL prefix 허용)
func DecodeBase64(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		if idx := strings.Index(encoded, ","); idx >= 0 {
			encoded = encoded[idx+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

// EncodeLossless - 이미지를 무손실 포맷으로 인코딩 (png 또는 webp)
func EncodeLossless(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer

	switch format {
	case "", FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("failed to encode PNG: %w", err)
		}
		return buf.Bytes(), "image/png", nil

	case FormatWebP:
		options, err := encoder.NewLosslessEncoderOptions(encoder.PresetDefault, 6)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create WebP encoder options: %w", err)
		}
		if err := webp.Encode(&buf, img, options); err != nil {
			return nil, "", fmt.Errorf("failed to encode WebP: %w", err)
		}
		return buf.Bytes(), "image/webp", nil
	}

	return nil, "", fmt.Errorf("unsupported lossless format: %s", format)
}

// ImageDimensions - 이미지 헤더만 읽어서 크기 반환 (WebP, PNG, JPEG, GIF 자동 감지)
func ImageDimensions(data []byte) (int, int, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("failed to decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, format, nil
}

// DecodeImage - 바이너리 이미지 디코딩
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
