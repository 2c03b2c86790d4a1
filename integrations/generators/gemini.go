package generators

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const (
	DefaultGeminiTextModel  = "gemini-2.5-flash"
	DefaultGeminiImageModel = "imagen-4.0-generate-001"
)

type Gemini struct {
	client     *genai.Client
	textModel  string
	imageModel string
}

// NewGemini creates the client once; cfg may carry a custom HTTP client or base URL.
func NewGemini(ctx context.Context, apiKey, textModel, imageModel string, cfg *genai.ClientConfig) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini generator requires an API key")
	}
	if cfg == nil {
		cfg = &genai.ClientConfig{}
	}
	cfg.APIKey = apiKey
	cfg.Backend = genai.BackendGeminiAPI

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if textModel == "" {
		textModel = DefaultGeminiTextModel
	}
	if imageModel == "" {
		imageModel = DefaultGeminiImageModel
	}
	return &Gemini{client: client, textModel: textModel, imageModel: imageModel}, nil
}

func (g *Gemini) CompleteJSON(ctx context.Context, system, prompt, _ string, schema map[string]any) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction:  genai.NewContentFromText(system, ""),
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: schema,
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}}}

	result, err := g.generateWithRetry(ctx, contents, cfg)
	if err != nil {
		return "", err
	}
	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return text, nil
}

func (g *Gemini) GenerateImages(ctx context.Context, prompt string, n int) ([]GeneratedImage, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(n),
		AspectRatio:    "16:9",
	})
	if err != nil {
		return nil, err
	}
	out := make([]GeneratedImage, 0, len(resp.GeneratedImages))
	for _, img := range resp.GeneratedImages {
		if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		out = append(out, GeneratedImage{Data: img.Image.ImageBytes})
	}
	return out, nil
}

// 503 = modelo saturado, se reintenta con backoff
func (g *Gemini) generateWithRetry(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	for i := 0; i < 3; i++ {
		result, err := g.client.Models.GenerateContent(ctx, g.textModel, contents, cfg)
		if err == nil {
			return result, nil
		}
		if !strings.Contains(err.Error(), "503") {
			return nil, err
		}
		logrus.WithError(err).Warnf("[GENERATION] Gemini overloaded, retry %d", i+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(1<<uint(i)) * time.Second):
		}
	}
	return nil, fmt.Errorf("gemini: max retries exceeded")
}
