package generators

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"testing"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/AzielCF/az-localseo/core/config"
	"github.com/disintegration/imaging"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonReply(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

// fakeModel replays canned JSON and records the prompts it saw.
type fakeModel struct {
	reply   string
	err     error
	prompts []string
	images  []GeneratedImage
}

func (f *fakeModel) CompleteJSON(_ context.Context, system, prompt, _ string, _ map[string]any) (string, error) {
	f.prompts = append(f.prompts, system+"\n"+prompt)
	return f.reply, f.err
}

func (f *fakeModel) GenerateImages(context.Context, string, int) ([]GeneratedImage, error) {
	return f.images, f.err
}

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func brief() domain.Brief {
	return domain.Brief{
		Question:      "How much does roof repair cost in Austin, TX?",
		LocationLabel: "Austin, TX",
		Brand:         domain.BrandClient,
		BrandName:     "Acme Roofing",
		Industry:      "roofing",
		WebsiteURL:    "https://acme.test",
		Related:       []domain.RelatedPage{{URL: "https://acme.test/storm-damage", Title: "Storm damage"}},
	}
}

func TestGenerateArticle(t *testing.T) {
	m := &fakeModel{reply: "```json\n" + `{"title":"Roof Repair Cost in Austin","slug":"","excerpt":" Prices vary. ",
		"meta_description":"What roof repair costs.","focus_keyword":"roof repair austin","markdown":"## Costs\n\nIt depends."}` + "\n```"}

	content, err := NewWriters(m).GenerateArticle(context.Background(), brief())
	require.NoError(t, err)
	assert.Equal(t, "Roof Repair Cost in Austin", content.Title)
	assert.Equal(t, "roof-repair-cost-in-austin", content.Slug)
	assert.Equal(t, "Prices vary.", content.Excerpt)
	assert.Equal(t, "## Costs\n\nIt depends.", content.Markdown)

	require.Len(t, m.prompts, 1)
	assert.Contains(t, m.prompts[0], "Acme Roofing")
	assert.Contains(t, m.prompts[0], "https://acme.test/storm-damage")
}

func TestGenerateArticle_EmptyBodyFails(t *testing.T) {
	m := &fakeModel{reply: `{"title":"x","markdown":"  "}`}
	_, err := NewWriters(m).GenerateArticle(context.Background(), brief())
	assert.Error(t, err)
}

func TestGenerateScript(t *testing.T) {
	m := &fakeModel{reply: `{"script":" Welcome back. "}`}
	script, err := NewWriters(m).GenerateScript(context.Background(), brief(), domain.ScriptShortVideo)
	require.NoError(t, err)
	assert.Equal(t, "Welcome back.", script)
	assert.Contains(t, m.prompts[0], "vertical video")
}

func TestGenerateSocial_OnePerRequestedPlatform(t *testing.T) {
	m := &fakeModel{reply: `{"posts":[
		{"platform":"Instagram","caption":"Roof check!","hashtags":["#atx"]},
		{"platform":"instagram","caption":"duplicate","hashtags":[]},
		{"platform":"tiktok","caption":"not asked","hashtags":[]},
		{"platform":"facebook","caption":"Storm season.","hashtags":["#roofing"]}]}`}

	drafts, err := NewWriters(m).GenerateSocial(context.Background(), brief(), []string{"facebook", "instagram"})
	require.NoError(t, err)
	assert.Equal(t, []domain.SocialDraft{
		{Platform: "facebook", Caption: "Storm season.", Hashtags: []string{"#roofing"}},
		{Platform: "instagram", Caption: "Roof check!", Hashtags: []string{"#atx"}},
	}, drafts)
}

func TestWritersPropagateModelError(t *testing.T) {
	m := &fakeModel{err: errors.New("quota")}
	_, err := NewWriters(m).GenerateScript(context.Background(), brief(), domain.ScriptPodcast)
	assert.EqualError(t, err, "quota")
}

func TestDirectoryBriefIsNeutral(t *testing.T) {
	b := brief()
	b.Brand = domain.BrandDirectory
	assert.Contains(t, systemPrompt(b), "neutral directory")
	assert.NotContains(t, articlePrompt(b), "call to action")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "cuanto-cuesta-reparar-un-techo-en-san-jose", Slugify("¿Cuánto cuesta reparar un techo en San José?"))
	assert.Equal(t, "", Slugify("!!!"))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImagePipeline_FitsAndStores(t *testing.T) {
	m := &fakeModel{images: []GeneratedImage{{Data: pngBytes(t, 1536, 1024)}, {Data: []byte("not an image")}}}
	store := &memoryStore{}

	images, err := NewImagePipeline(m, store, 2).GenerateImages(context.Background(), brief())
	require.NoError(t, err)
	require.Len(t, images, 1)

	img := images[0]
	assert.Equal(t, 1600, img.Width)
	assert.Equal(t, 900, img.Height)
	assert.Contains(t, img.Key, "images/how-much-does-roof-repair-cost-in-austin-tx/")
	assert.Equal(t, "https://cdn.test/"+img.Key, img.URL)
	assert.Equal(t, "How much does roof repair cost in Austin, TX? (Austin, TX)", img.Alt)

	decoded, err := imaging.Decode(bytes.NewReader(store.objects[img.Key]))
	require.NoError(t, err)
	assert.Equal(t, 1600, decoded.Bounds().Dx())
}

func TestImagePipeline_DownloadsURLImages(t *testing.T) {
	orig := httpClient
	t.Cleanup(func() { httpClient = orig })
	raw := pngBytes(t, 800, 800)
	httpClient = &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "https://images.test/tmp/1.png", req.URL.String())
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(raw)), Header: make(http.Header)}, nil
	})}

	m := &fakeModel{images: []GeneratedImage{{URL: "https://images.test/tmp/1.png"}}}
	images, err := NewImagePipeline(m, &memoryStore{}, 1).GenerateImages(context.Background(), brief())
	require.NoError(t, err)
	require.Len(t, images, 1)
}

func TestImagePipeline_AllFailed(t *testing.T) {
	m := &fakeModel{images: []GeneratedImage{{Data: []byte("junk")}}}
	_, err := NewImagePipeline(m, &memoryStore{}, 1).GenerateImages(context.Background(), brief())
	assert.Error(t, err)
}

func TestOpenAI_CompleteJSON(t *testing.T) {
	var sent map[string]any
	stub := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/v1/chat/completions", req.URL.Path)
		assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&sent))
		return jsonReply(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4.1-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"script\":\"hi\"}"}}]}`), nil
	})}

	o, err := NewOpenAI("sk-test", "", "", option.WithHTTPClient(stub), option.WithBaseURL("https://api.openai.test/v1/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	out, err := o.CompleteJSON(context.Background(), "sys", "prompt", "media_script", scriptSchema)
	require.NoError(t, err)
	assert.Equal(t, `{"script":"hi"}`, out)
	assert.Equal(t, DefaultOpenAITextModel, sent["model"])
	format := sent["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
}

func TestGemini_CompleteJSON(t *testing.T) {
	stub := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		assert.Contains(t, req.URL.Path, DefaultGeminiTextModel+":generateContent")
		return jsonReply(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"script\":\"hola\"}"}]}}]}`), nil
	})}

	g, err := NewGemini(context.Background(), "key", "", "", &genai.ClientConfig{
		HTTPClient:  stub,
		HTTPOptions: genai.HTTPOptions{BaseURL: "https://gemini.test/"},
	})
	require.NoError(t, err)

	out, err := g.CompleteJSON(context.Background(), "sys", "prompt", "media_script", scriptSchema)
	require.NoError(t, err)
	assert.Equal(t, `{"script":"hola"}`, out)
}

func TestBuild_NoKeysDisablesGenerators(t *testing.T) {
	gens, err := Build(context.Background(), config.GenerationConfig{}, config.APIKeysConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, gens.Article)
	assert.Nil(t, gens.Images)
}

func TestBuild_OpenAIWithoutBucket(t *testing.T) {
	gens, err := Build(context.Background(), config.GenerationConfig{Provider: "openai"}, config.APIKeysConfig{OpenAI: "sk"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, gens.Article)
	assert.Nil(t, gens.Images)
}
