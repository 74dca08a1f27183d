package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenPalmLandmarks returns a right hand with all fingers extended.
// Thumb and index tips are far apart.
func OpenPalmLandmarks() HandLandmarks {
	return HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
		Points: []Point3D{
			Wrist:     {X: 0.50, Y: 0.80, Z: 0.00},
			ThumbCMC:  {X: 0.55, Y: 0.75, Z: 0.02},
			ThumbMCP:  {X: 0.62, Y: 0.70, Z: 0.03},
			ThumbIP:   {X: 0.68, Y: 0.65, Z: 0.03},
			ThumbTip:  {X: 0.73, Y: 0.60, Z: 0.03},
			IndexMCP:  {X: 0.55, Y: 0.68, Z: 0.00},
			IndexPIP:  {X: 0.57, Y: 0.55, Z: 0.00},
			IndexDIP:  {X: 0.58, Y: 0.45, Z: 0.00},
			IndexTip:  {X: 0.58, Y: 0.35, Z: 0.00},
			MiddleMCP: {X: 0.50, Y: 0.66, Z: 0.00},
			MiddlePIP: {X: 0.50, Y: 0.52, Z: 0.00},
			MiddleDIP: {X: 0.50, Y: 0.40, Z: 0.00},
			MiddleTip: {X: 0.50, Y: 0.28, Z: 0.00},
			RingMCP:   {X: 0.45, Y: 0.68, Z: 0.00},
			RingPIP:   {X: 0.43, Y: 0.55, Z: 0.00},
			RingDIP:   {X: 0.42, Y: 0.45, Z: 0.00},
			RingTip:   {X: 0.42, Y: 0.35, Z: 0.00},
			PinkyMCP:  {X: 0.40, Y: 0.70, Z: 0.00},
			PinkyPIP:  {X: 0.37, Y: 0.60, Z: 0.00},
			PinkyDIP:  {X: 0.35, Y: 0.50, Z: 0.00},
			PinkyTip:  {X: 0.34, Y: 0.42, Z: 0.00},
		},
	}
}

// PinchLandmarks returns a right hand whose thumb and index tips touch at
// (x, y). The remaining fingers are curled. The tips are 0.01 apart.
func PinchLandmarks(x, y float64) HandLandmarks {
	hand := OpenPalmLandmarks()
	dx := x - 0.58
	dy := y - 0.40

	for i := range hand.Points {
		hand.Points[i].X += dx
		hand.Points[i].Y += dy
	}

	hand.Points[ThumbIP] = Point3D{X: x + 0.04, Y: y + 0.05, Z: 0.02}
	hand.Points[ThumbTip] = Point3D{X: x + 0.005, Y: y, Z: 0.01}
	hand.Points[IndexDIP] = Point3D{X: x - 0.01, Y: y - 0.04, Z: 0.01}
	hand.Points[IndexTip] = Point3D{X: x - 0.005, Y: y, Z: 0.01}

	for _, tip := range []int{MiddleTip, RingTip, PinkyTip} {
		hand.Points[tip].Y = hand.Points[tip-3].Y + 0.02
	}
	return hand
}

// PartialLandmarks returns a hand reporting only the first n landmarks of an
// open palm.
func PartialLandmarks(n int) HandLandmarks {
	hand := OpenPalmLandmarks()
	if n < len(hand.Points) {
		hand.Points = hand.Points[:n]
	}
	return hand
}
