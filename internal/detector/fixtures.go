package detector

// Fixture frame width used to mirror right-hand fixtures into left-hand ones.
const fixtureWidth = 1280.0

// DistressLandmarks returns a preset hand with the thumb folded across the
// palm and the four fingers extended, in pixel coordinates of a mirrored
// 1280x720 frame. The handedness label is image-side, as decodeResponse
// produces it: a Right fixture is a physical left hand held palm forward.
func DistressLandmarks(handedness Handedness) HandLandmarks {
	points := []Point{
		Wrist: {X: 640, Y: 600},

		// Thumb tucked in toward the palm center.
		ThumbCMC: {X: 700, Y: 570},
		ThumbMCP: {X: 730, Y: 520},
		ThumbIP:  {X: 690, Y: 490},
		ThumbTip: {X: 640, Y: 480},

		IndexMCP: {X: 700, Y: 450},
		IndexPIP: {X: 705, Y: 380},
		IndexDIP: {X: 708, Y: 340},
		IndexTip: {X: 710, Y: 300},

		MiddleMCP: {X: 650, Y: 440},
		MiddlePIP: {X: 650, Y: 360},
		MiddleDIP: {X: 650, Y: 315},
		MiddleTip: {X: 650, Y: 275},

		RingMCP: {X: 600, Y: 450},
		RingPIP: {X: 595, Y: 380},
		RingDIP: {X: 592, Y: 340},
		RingTip: {X: 590, Y: 305},

		PinkyMCP: {X: 555, Y: 470},
		PinkyPIP: {X: 548, Y: 415},
		PinkyDIP: {X: 544, Y: 385},
		PinkyTip: {X: 540, Y: 355},
	}
	return fixtureHand(points, handedness)
}

// OpenPalmLandmarks returns a preset hand with every finger extended and the
// thumb spread away from the palm.
func OpenPalmLandmarks(handedness Handedness) HandLandmarks {
	points := []Point{
		Wrist: {X: 640, Y: 600},

		// Thumb extended outward.
		ThumbCMC: {X: 700, Y: 570},
		ThumbMCP: {X: 750, Y: 530},
		ThumbIP:  {X: 790, Y: 500},
		ThumbTip: {X: 830, Y: 475},

		IndexMCP: {X: 700, Y: 450},
		IndexPIP: {X: 705, Y: 380},
		IndexDIP: {X: 708, Y: 340},
		IndexTip: {X: 710, Y: 300},

		MiddleMCP: {X: 650, Y: 440},
		MiddlePIP: {X: 650, Y: 360},
		MiddleDIP: {X: 650, Y: 315},
		MiddleTip: {X: 650, Y: 275},

		RingMCP: {X: 600, Y: 450},
		RingPIP: {X: 595, Y: 380},
		RingDIP: {X: 592, Y: 340},
		RingTip: {X: 590, Y: 305},

		PinkyMCP: {X: 555, Y: 470},
		PinkyPIP: {X: 548, Y: 415},
		PinkyDIP: {X: 544, Y: 385},
		PinkyTip: {X: 540, Y: 355},
	}
	return fixtureHand(points, handedness)
}

// fixtureHand labels a right-hand point set, mirroring it horizontally for a left hand.
func fixtureHand(points []Point, handedness Handedness) HandLandmarks {
	if handedness == Left {
		for i := range points {
			points[i].X = fixtureWidth - points[i].X
		}
	}
	return HandLandmarks{
		Points:     points,
		Handedness: handedness,
		Score:      0.95,
	}
}
