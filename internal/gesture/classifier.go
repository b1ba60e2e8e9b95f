// Package gesture classifies hand landmarks into the distress posture.
package gesture

import (
	"errors"
	"fmt"

	"github.com/ayusman/distressd/internal/detector"
)

var (
	// ErrMissingLandmark is returned when the thumb tip or thumb MCP is absent.
	ErrMissingLandmark = errors.New("missing landmark")
	// ErrUnknownHandedness is returned for a handedness label other than Left or Right.
	ErrUnknownHandedness = errors.New("unknown handedness")
)

// IsDistress reports whether hand shows the distress posture: the thumb
// folded across the palm.
//
// Frames are mirrored before detection, so for a Right hand the folded
// thumb tip lies left of the thumb MCP (smaller x) and for a Left hand it
// lies right of it. Equal x is not distress. No other finger is considered.
func IsDistress(hand *detector.HandLandmarks) (bool, error) {
	if hand == nil {
		return false, fmt.Errorf("%w: no hand", ErrMissingLandmark)
	}

	tip, ok := hand.At(detector.ThumbTip)
	if !ok {
		return false, fmt.Errorf("%w: thumb tip (have %d points)", ErrMissingLandmark, len(hand.Points))
	}
	mcp, ok := hand.At(detector.ThumbMCP)
	if !ok {
		return false, fmt.Errorf("%w: thumb MCP (have %d points)", ErrMissingLandmark, len(hand.Points))
	}

	switch hand.Handedness {
	case detector.Right:
		return tip.X < mcp.X, nil
	case detector.Left:
		return tip.X > mcp.X, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownHandedness, hand.Handedness)
	}
}

// Classify maps an optional hand to the per-frame distress signal.
// A missing hand or a classification error counts as no distress; the
// error is still returned so the caller can log it.
func Classify(hand *detector.HandLandmarks) (bool, error) {
	if hand == nil {
		return false, nil
	}
	return IsDistress(hand)
}
