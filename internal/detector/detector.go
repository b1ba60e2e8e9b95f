package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand landmark providers.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// Script overrides the landmark service script location.
	Script string
}

// DefaultConfig returns a Config with the values the distress detector runs with.
func DefaultConfig() Config {
	return Config{
		MaxHands:      1,
		MinConfidence: 0.8,
	}
}

// DetectOne runs d on frame and returns the first detected hand, or nil when
// no hand is present.
func DetectOne(d Detector, frame *gocv.Mat) (*HandLandmarks, error) {
	hands, err := d.Detect(frame)
	if err != nil {
		return nil, err
	}
	if len(hands) == 0 {
		return nil, nil
	}
	return &hands[0], nil
}
