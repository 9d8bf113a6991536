package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/utils"
)

// TextGenerator produces model text for story prompts. Implemented by the
// Gemini client; tests swap in fakes.
type TextGenerator interface {
	// GenerateJSON asks the model for a JSON-only reply and returns the raw
	// response text (which may still carry markdown fences).
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// GeneratedImage is one illustration returned by the image model.
type GeneratedImage struct {
	Data     []byte
	MimeType string
}

// ImageGenerator produces illustrations. Implemented by the Gemini client.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error)
	// GenerateImageWithReference conditions the output on a reference image.
	GenerateImageWithReference(ctx context.Context, prompt string, reference []byte, referenceMime string) (*GeneratedImage, error)
}

type GeminiClient struct {
	log        *logger.Logger
	client     *genai.Client
	textModel  string
	imageModel string
	timeout    time.Duration
}

// NewGeminiClient builds the shared Gemini client used for both text and
// image generation. A missing API key fails here, at startup.
func NewGeminiClient(ctx context.Context, log *logger.Logger) (*GeminiClient, error) {
	serviceLog := log.With("service", "GeminiClient")

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY or GOOGLE_API_KEY")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	textModel := utils.GetEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash", log)
	imageModel := utils.GetEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image-preview", log)
	timeoutSec := utils.GetEnvAsInt("GEMINI_TIMEOUT_SECONDS", 120, log)

	return &GeminiClient{
		log:        serviceLog,
		client:     client,
		textModel:  textModel,
		imageModel: imageModel,
		timeout:    time.Duration(timeoutSec) * time.Second,
	}, nil
}

func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{
		{Parts: []*genai.Part{genai.NewPartFromText(prompt)}},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.textModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("gemini text generation: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini text generation: empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("gemini text generation: no text in response")
	}
	return text, nil
}

func (g *GeminiClient) GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	return g.generateImageParts(ctx, parts)
}

func (g *GeminiClient) GenerateImageWithReference(ctx context.Context, prompt string, reference []byte, referenceMime string) (*GeneratedImage, error) {
	if referenceMime == "" {
		referenceMime = "image/png"
	}
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(reference, referenceMime),
	}
	return g.generateImageParts(ctx, parts)
}

func (g *GeminiClient) generateImageParts(ctx context.Context, parts []*genai.Part) (*GeneratedImage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{{Parts: parts}}
	resp, err := g.client.Models.GenerateContent(ctx, g.imageModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini image generation: %w", err)
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				g.log.Debug("Received image from Gemini", "bytes", len(part.InlineData.Data), "mime", mime)
				return &GeneratedImage{Data: part.InlineData.Data, MimeType: mime}, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini image generation: no image data in response")
}
