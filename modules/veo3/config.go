package veo3

import (
	"veo-studio-server/modules/common/config"
	"veo-studio-server/modules/studio"
)

// Config - Veo 모델 선택
type Config struct {
	FastModel    string
	QualityModel string
}

// ConfigFrom - 공통 설정에서 Veo 설정 추출
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		FastModel:    cfg.VeoFastModel,
		QualityModel: cfg.VeoQualityModel,
	}
}

// ModelFor - 모델 등급 → Veo 모델 이름
func (c Config) ModelFor(tier studio.ModelTier) string {
	if tier == studio.ModelHighQuality {
		return c.QualityModel
	}
	return c.FastModel
}
