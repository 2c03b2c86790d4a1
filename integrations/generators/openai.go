package generators

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultOpenAITextModel  = "gpt-4.1-mini"
	DefaultOpenAIImageModel = "gpt-image-1"
)

type OpenAI struct {
	client     openai.Client
	textModel  string
	imageModel string
}

func NewOpenAI(apiKey, textModel, imageModel string, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai generator requires an API key")
	}
	if textModel == "" {
		textModel = DefaultOpenAITextModel
	}
	if imageModel == "" {
		imageModel = DefaultOpenAIImageModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{
		client:     openai.NewClient(opts...),
		textModel:  textModel,
		imageModel: imageModel,
	}, nil
}

func (o *OpenAI) CompleteJSON(ctx context.Context, system, prompt, schemaName string, schema map[string]any) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.textModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: any(schema),
					Strict: openai.Bool(true),
				},
			},
		},
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func (o *OpenAI) GenerateImages(ctx context.Context, prompt string, n int) ([]GeneratedImage, error) {
	resp, err := o.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(o.imageModel),
		N:      openai.Int(int64(n)),
		Size:   openai.ImageGenerateParamsSize("1536x1024"),
	})
	if err != nil {
		return nil, err
	}

	out := make([]GeneratedImage, 0, len(resp.Data))
	for i, img := range resp.Data {
		switch {
		case img.B64JSON != "":
			data, err := base64.StdEncoding.DecodeString(img.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("image %d: %w", i, err)
			}
			out = append(out, GeneratedImage{Data: data})
		case img.URL != "":
			out = append(out, GeneratedImage{URL: img.URL})
		}
	}
	return out, nil
}
