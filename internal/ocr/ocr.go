package ocr

// Box is a text bounding box in image pixel space.
type Box struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
	Right  int `json:"right"`
}

// TextFragment is one recognized text span with its position on the image.
type TextFragment struct {
	Text string `json:"text"`
	Box  Box    `json:"box"`
}

// Recognizer defines the interface for text recognition backends
type Recognizer interface {
	// RecognizeText reads a check image/PDF and returns the recognized
	// text fragments with their bounding boxes
	RecognizeText(imageData []byte, contentType string) ([]TextFragment, error)
	// Close closes the recognizer and releases resources
	Close() error
}
