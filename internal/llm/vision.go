package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Image is one binary image handed to a vision model.
type Image struct {
	Data     []byte
	MimeType string
}

// ImageDescriber turns reference images into a prose description.
type ImageDescriber interface {
	DescribeImages(ctx context.Context, instruction string, images []Image) (string, error)
}

// MaxDescribeImages caps how many images a single describe call sends.
const MaxDescribeImages = 3

// GeminiDescriber implements ImageDescriber with the Gemini API.
type GeminiDescriber struct {
	client   *genai.Client
	model    string
	timeout  time.Duration
	observer Observer
}

// NewGeminiDescriber creates a describer. The API key is required.
func NewGeminiDescriber(ctx context.Context, cfg LLMConfig, observer Observer) (*GeminiDescriber, error) {
	if cfg.VisionAPIKey == "" {
		return nil, errors.New("vision api key is required")
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.VisionAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiDescriber{
		client:   client,
		model:    cfg.VisionModel,
		timeout:  time.Duration(cfg.TaskTimeout(TaskVisualStyle)) * time.Millisecond,
		observer: observer,
	}, nil
}

func (g *GeminiDescriber) DescribeImages(ctx context.Context, instruction string, images []Image) (string, error) {
	if len(images) == 0 {
		return "", errors.New("no images to describe")
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromParts(imageParts(instruction, images), genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		err = classify(err)
		observe(g.observer, TaskVisualStyle, g.model, start, err)
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		err = fmt.Errorf("%w: empty description", ErrInvalidOutput)
		observe(g.observer, TaskVisualStyle, g.model, start, err)
		return "", err
	}
	observe(g.observer, TaskVisualStyle, g.model, start, nil)
	return text, nil
}

// imageParts builds the request parts: the instruction followed by at most
// MaxDescribeImages images. Missing mime types are sniffed from the bytes.
func imageParts(instruction string, images []Image) []*genai.Part {
	if len(images) > MaxDescribeImages {
		images = images[:MaxDescribeImages]
	}
	parts := []*genai.Part{genai.NewPartFromText(instruction)}
	for _, img := range images {
		mime := img.MimeType
		if mime == "" {
			mime = http.DetectContentType(img.Data)
		}
		parts = append(parts, genai.NewPartFromBytes(img.Data, mime))
	}
	return parts
}
