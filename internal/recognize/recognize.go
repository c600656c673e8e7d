package recognize

import "context"

// Vertex is one corner of a fragment's bounding polygon, in pixels.
type Vertex struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
}

// Fragment is one unit of recognized text with its position on the image.
// Line is the recognizer's own line grouping when it provides one, -1
// otherwise.
type Fragment struct {
	Text       string   `json:"text"`
	Vertices   []Vertex `json:"vertices,omitempty"`
	Line       int      `json:"line"`
	Confidence float32  `json:"confidence,omitempty"`
}

// Recognizer turns an image reference into recognized text fragments.
// An unreadable image yields an empty slice, not an error; errors are
// reserved for the recognition service itself failing.
type Recognizer interface {
	Recognize(ctx context.Context, imageRef string) ([]Fragment, error)
}
