package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
)

// ImageAnalysis is the structured vision payload stored on an upload image.
// Its JSON shape is what the setting deriver consumes.
type ImageAnalysis struct {
	Labels     []AnalysisLabel   `json:"labels"`
	Text       []AnalysisText    `json:"text"`
	Objects    []AnalysisObject  `json:"objects"`
	Faces      []AnalysisFace    `json:"faces"`
	SafeSearch map[string]string `json:"safe_search"`
	Colors     []AnalysisColor   `json:"colors"`
	Timestamp  string            `json:"analysis_timestamp"`
	Error      string            `json:"error,omitempty"`
}

type AnalysisLabel struct {
	Description string  `json:"description"`
	Confidence  float32 `json:"confidence"`
	Mid         string  `json:"mid,omitempty"`
}

type AnalysisText struct {
	Description string  `json:"description"`
	Confidence  float32 `json:"confidence"`
	Type        string  `json:"type"`
}

type AnalysisObject struct {
	Name       string  `json:"name"`
	Confidence float32 `json:"confidence"`
	Mid        string  `json:"mid,omitempty"`
}

type AnalysisFace struct {
	JoyLikelihood      string `json:"joy_likelihood"`
	SorrowLikelihood   string `json:"sorrow_likelihood"`
	AngerLikelihood    string `json:"anger_likelihood"`
	SurpriseLikelihood string `json:"surprise_likelihood"`
}

type AnalysisColor struct {
	RGB           map[string]float32 `json:"rgb"`
	Score         float32            `json:"score"`
	PixelFraction float32            `json:"pixel_fraction"`
}

// VisionService analyzes uploaded photos.
type VisionService interface {
	AnalyzeImage(ctx context.Context, content []byte) (*ImageAnalysis, error)
	Close() error
}

type visionService struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewVisionService(ctx context.Context, log *logger.Logger) (VisionService, error) {
	serviceLog := log.With("service", "VisionService")

	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var (
		client *vision.ImageAnnotatorClient
		err    error
	)
	if creds != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(creds))
	} else {
		// ADC (Cloud Run / GKE with an attached service account)
		client, err = vision.NewImageAnnotatorClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}

	return &visionService{log: serviceLog, client: client}, nil
}

func (s *visionService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// AnalyzeImage runs label, text, object, face, safe-search and color
// detection in one annotate call.
func (s *visionService) AnalyzeImage(ctx context.Context, content []byte) (*ImageAnalysis, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty image content")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: content},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: 10},
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
			{Type: visionpb.Feature_OBJECT_LOCALIZATION, MaxResults: 10},
			{Type: visionpb.Feature_FACE_DETECTION, MaxResults: 10},
			{Type: visionpb.Feature_SAFE_SEARCH_DETECTION},
			{Type: visionpb.Feature_IMAGE_PROPERTIES},
		},
		ImageContext: &visionpb.ImageContext{
			LanguageHints: []string{"ja", "en"},
		},
	}

	batchResp, err := s.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return nil, fmt.Errorf("vision annotate image: %w", err)
	}
	if len(batchResp.Responses) == 0 {
		return nil, fmt.Errorf("vision annotate image: empty response")
	}
	resp := batchResp.Responses[0]
	if resp.Error != nil && resp.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate image: %s", resp.Error.Message)
	}

	return parseAnnotateResponse(resp), nil
}

func parseAnnotateResponse(resp *visionpb.AnnotateImageResponse) *ImageAnalysis {
	result := &ImageAnalysis{
		Labels:     []AnalysisLabel{},
		Text:       []AnalysisText{},
		Objects:    []AnalysisObject{},
		Faces:      []AnalysisFace{},
		SafeSearch: map[string]string{},
		Colors:     []AnalysisColor{},
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	for _, label := range resp.LabelAnnotations {
		result.Labels = append(result.Labels, AnalysisLabel{
			Description: label.Description,
			Confidence:  label.Score,
			Mid:         label.Mid,
		})
	}

	// The full-text annotation is more reliable for handwriting and Japanese
	// than the per-word entries, so it goes first.
	if fta := resp.FullTextAnnotation; fta != nil && strings.TrimSpace(fta.Text) != "" {
		result.Text = append(result.Text, AnalysisText{
			Description: fta.Text,
			Confidence:  1.0,
			Type:        "full_text",
		})
	}
	for _, text := range resp.TextAnnotations {
		result.Text = append(result.Text, AnalysisText{
			Description: text.Description,
			Confidence:  text.Score,
			Type:        "individual_text",
		})
		if len(result.Text) >= 20 {
			break
		}
	}

	for _, obj := range resp.LocalizedObjectAnnotations {
		result.Objects = append(result.Objects, AnalysisObject{
			Name:       obj.Name,
			Confidence: obj.Score,
			Mid:        obj.Mid,
		})
	}

	for _, face := range resp.FaceAnnotations {
		result.Faces = append(result.Faces, AnalysisFace{
			JoyLikelihood:      face.JoyLikelihood.String(),
			SorrowLikelihood:   face.SorrowLikelihood.String(),
			AngerLikelihood:    face.AngerLikelihood.String(),
			SurpriseLikelihood: face.SurpriseLikelihood.String(),
		})
	}

	if ss := resp.SafeSearchAnnotation; ss != nil {
		result.SafeSearch = map[string]string{
			"adult":    ss.Adult.String(),
			"spoofed":  ss.Spoof.String(),
			"medical":  ss.Medical.String(),
			"violence": ss.Violence.String(),
			"racy":     ss.Racy.String(),
		}
	}

	if props := resp.ImagePropertiesAnnotation; props != nil && props.DominantColors != nil {
		for i, c := range props.DominantColors.Colors {
			if i >= 8 {
				break
			}
			rgb := map[string]float32{}
			if c.Color != nil {
				rgb["r"] = c.Color.Red
				rgb["g"] = c.Color.Green
				rgb["b"] = c.Color.Blue
			}
			result.Colors = append(result.Colors, AnalysisColor{
				RGB:           rgb,
				Score:         c.Score,
				PixelFraction: c.PixelFraction,
			})
		}
	}

	return result
}
