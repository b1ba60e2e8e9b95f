package app

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/distressd/internal/detector"
)

// AlertBanner is drawn on every frame while the alert is active.
const AlertBanner = "DISTRESS SIGNAL DETECTED!"

var (
	red   = color.RGBA{R: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
)

// handConnections are the landmark index pairs drawn as the hand skeleton.
var handConnections = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.Wrist, detector.PinkyMCP},
	{detector.PinkyMCP, detector.PinkyPIP}, {detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

// drawLandmarks draws the hand skeleton and landmark dots onto frame.
func drawLandmarks(frame *gocv.Mat, hand *detector.HandLandmarks) {
	for _, c := range handConnections {
		a, okA := hand.At(c[0])
		b, okB := hand.At(c[1])
		if !okA || !okB {
			continue
		}
		gocv.Line(frame, toPoint(a), toPoint(b), white, 2)
	}
	for _, p := range hand.Points {
		gocv.Circle(frame, toPoint(p), 5, green, -1)
	}
}

// drawAlert draws the banner at (200, 100) on a filled red box and a red
// border inset 50px from each edge.
func drawAlert(frame *gocv.Mat) {
	const (
		scale     = 3.0
		thickness = 4
		pad       = 10
	)
	origin := image.Pt(200, 100)

	size := gocv.GetTextSize(AlertBanner, gocv.FontHersheyPlain, scale, thickness)
	box := image.Rect(origin.X-pad, origin.Y-size.Y-pad, origin.X+size.X+pad, origin.Y+pad)
	gocv.Rectangle(frame, box, red, -1)
	gocv.PutText(frame, AlertBanner, origin, gocv.FontHersheyPlain, scale, white, thickness)

	border := image.Rect(50, 50, frame.Cols()-50, frame.Rows()-50)
	gocv.Rectangle(frame, border, red, 10)
}

func toPoint(p detector.Point) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}
