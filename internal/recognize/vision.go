package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// VisionRecognizer recognizes text via the Cloud Vision TEXT_DETECTION
// feature. Image references must be URIs the Vision API can read
// (gs:// or https://).
type VisionRecognizer struct {
	svc    *vision.Service
	logger *slog.Logger
}

func NewVisionRecognizer(ctx context.Context, credentialsFile string, logger *slog.Logger) (*VisionRecognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision service: %w", err)
	}
	return &VisionRecognizer{svc: svc, logger: logger}, nil
}

func (v *VisionRecognizer) Recognize(ctx context.Context, imageRef string) ([]Fragment, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Source: &vision.ImageSource{ImageUri: imageRef}},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}
	resp, err := v.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, nil
	}
	r := resp.Responses[0]
	if r.Error != nil {
		return nil, fmt.Errorf("vision annotate: %s", r.Error.Message)
	}
	if len(r.TextAnnotations) == 0 {
		v.logger.Info("no text found", "image", imageRef)
		return nil, nil
	}

	// The first annotation is the whole block; the rest are word-level with
	// bounding polygons. Fall back to splitting the block into lines when no
	// word annotations are present.
	if len(r.TextAnnotations) == 1 {
		return blockToFragments(r.TextAnnotations[0].Description), nil
	}

	frags := make([]Fragment, 0, len(r.TextAnnotations)-1)
	for _, ann := range r.TextAnnotations[1:] {
		f := Fragment{Text: ann.Description, Line: -1}
		if ann.BoundingPoly != nil {
			for _, vx := range ann.BoundingPoly.Vertices {
				f.Vertices = append(f.Vertices, Vertex{X: vx.X, Y: vx.Y})
			}
		}
		frags = append(frags, f)
	}
	return frags, nil
}

func blockToFragments(block string) []Fragment {
	var frags []Fragment
	line := 0
	for _, s := range strings.Split(block, "\n") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		frags = append(frags, Fragment{Text: s, Line: line})
		line++
	}
	return frags
}
