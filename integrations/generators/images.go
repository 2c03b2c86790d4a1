package generators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	imageWidth   = 1600
	imageHeight  = 900
	maxImageSize = 25 << 20
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// ObjectStore is where finished images land; storage.Bucket satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ImagePipeline genera, normaliza a 1600x900 JPEG y guarda las imagenes de un articulo
type ImagePipeline struct {
	model ImageModel
	store ObjectStore
	count int
}

func NewImagePipeline(model ImageModel, store ObjectStore, count int) *ImagePipeline {
	if count <= 0 {
		count = 1
	}
	return &ImagePipeline{model: model, store: store, count: count}
}

func (p *ImagePipeline) GenerateImages(ctx context.Context, brief domain.Brief) ([]domain.Image, error) {
	generated, err := p.model.GenerateImages(ctx, imagePrompt(brief), p.count)
	if err != nil {
		return nil, err
	}

	prefix := "images/" + Slugify(brief.Question)
	images := make([]domain.Image, 0, len(generated))
	var errs []error
	for i, g := range generated {
		img, err := p.storeOne(ctx, prefix, g, brief)
		if err != nil {
			logrus.WithError(err).Warnf("[GENERATION] Image %d discarded", i)
			errs = append(errs, err)
			continue
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		if len(errs) == 0 {
			return nil, errors.New("image model returned no images")
		}
		return nil, errors.Join(errs...)
	}
	return images, nil
}

func (p *ImagePipeline) storeOne(ctx context.Context, prefix string, g GeneratedImage, brief domain.Brief) (domain.Image, error) {
	data := g.Data
	if len(data) == 0 {
		var err error
		if data, err = fetch(ctx, g.URL); err != nil {
			return domain.Image{}, err
		}
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return domain.Image{}, fmt.Errorf("decode image: %w", err)
	}
	fitted := imaging.Fill(src, imageWidth, imageHeight, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return domain.Image{}, fmt.Errorf("encode image: %w", err)
	}

	key := fmt.Sprintf("%s/%s.jpg", prefix, uuid.NewString())
	url, err := p.store.Put(ctx, key, buf.Bytes(), "image/jpeg")
	if err != nil {
		return domain.Image{}, err
	}
	bounds := fitted.Bounds()
	return domain.Image{
		URL:    url,
		Key:    key,
		Alt:    imageAlt(brief),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("generated image has neither data nor url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("download generated image: status=%d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
}

func imagePrompt(b domain.Brief) string {
	return fmt.Sprintf("Realistic editorial photograph illustrating: %s. Setting: %s. "+
		"Professional %s work, natural light, no text, no logos, no watermarks.",
		b.Question, b.LocationLabel, nonEmpty(b.Industry, "local service"))
}

func imageAlt(b domain.Brief) string {
	if b.LocationLabel == "" {
		return b.Question
	}
	return fmt.Sprintf("%s (%s)", b.Question, b.LocationLabel)
}
