// Package detector provides the hand landmark provider interface and its implementations.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Handedness is the hand label reported by the landmark provider.
type Handedness string

const (
	Left  Handedness = "Left"
	Right Handedness = "Right"
)

// Point is a landmark position in frame pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HandLandmarks is a single detected hand.
// Points normally holds NumLandmarks entries but a provider may report fewer.
type HandLandmarks struct {
	Points     []Point    `json:"points"`
	Handedness Handedness `json:"handedness"`
	Score      float64    `json:"score"`
}

// At returns the landmark at index i and whether it is present.
func (h *HandLandmarks) At(i int) (Point, bool) {
	if h == nil || i < 0 || i >= len(h.Points) {
		return Point{}, false
	}
	return h.Points[i], true
}

// Complete reports whether all NumLandmarks points are present.
func (h *HandLandmarks) Complete() bool {
	return h != nil && len(h.Points) >= NumLandmarks
}
