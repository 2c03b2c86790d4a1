package generators

import (
	"context"
	"strings"

	"github.com/AzielCF/az-localseo/content/application"
	"github.com/AzielCF/az-localseo/core/config"
	"github.com/sirupsen/logrus"
)

type provider interface {
	TextModel
	ImageModel
}

// Build selects the provider from config. Without an API key it returns empty
// generators, so generation reports the kinds as not configured instead of failing at boot.
// store may be nil, which disables the image kind.
func Build(ctx context.Context, cfg config.GenerationConfig, keys config.APIKeysConfig, store ObjectStore) (application.Generators, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = "gemini"
		if keys.Gemini == "" && keys.OpenAI != "" {
			name = "openai"
		}
	}

	var (
		p   provider
		err error
	)
	switch name {
	case "openai":
		if keys.OpenAI == "" {
			logrus.Warn("[GENERATION] OPENAI_API_KEY is empty, generators disabled")
			return application.Generators{}, nil
		}
		p, err = NewOpenAI(keys.OpenAI, cfg.TextModel, cfg.ImageModel)
	default:
		if keys.Gemini == "" {
			logrus.Warn("[GENERATION] GEMINI_API_KEY is empty, generators disabled")
			return application.Generators{}, nil
		}
		p, err = NewGemini(ctx, keys.Gemini, cfg.TextModel, cfg.ImageModel, nil)
	}
	if err != nil {
		return application.Generators{}, err
	}

	writers := NewWriters(p)
	gens := application.Generators{
		Article: writers,
		Scripts: writers,
		Social:  writers,
	}
	if store != nil {
		gens.Images = NewImagePipeline(p, store, cfg.ImageCount)
	} else {
		logrus.Warn("[GENERATION] Media bucket not configured, image generation disabled")
	}
	logrus.Infof("[GENERATION] Using provider %s", name)
	return gens, nil
}
