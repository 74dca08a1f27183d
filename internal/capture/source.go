package capture

import (
	"log"
	"sync"
	"time"

	"github.com/ayusman/pinchdraw/internal/detector"
)

// Capture loop timing.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate while the hand may be drawing.
	ActiveFPS = 30
	// DefaultIdleTimeout is how long the scene must be still before the
	// source drops back to IdleFPS.
	DefaultIdleTimeout = 2 * time.Second
)

// FrameSink receives every landmark frame a source publishes.
type FrameSink interface {
	Record(hand *detector.HandLandmarks, at time.Time)
}

// SourceConfig wires a CameraSource.
type SourceConfig struct {
	Camera   Camera
	Detector detector.Detector
	Mailbox  *detector.Mailbox
	// MotionThreshold is the percentage of changed pixels that wakes the
	// source. Zero disables motion gating.
	MotionThreshold float64
	IdleTimeout     time.Duration
	Sink            FrameSink
}

// CameraSource runs capture and hand inference on its own goroutine and
// publishes the first detected hand of each frame into a Mailbox.
type CameraSource struct {
	config SourceConfig
	gate   *MotionGate
	motion *MotionDetector

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
	frames int
	errors int
}

// NewCameraSource creates a source. It does not open the camera.
func NewCameraSource(config SourceConfig) *CameraSource {
	if config.Mailbox == nil {
		config.Mailbox = detector.NewMailbox()
	}
	s := &CameraSource{config: config}
	if config.MotionThreshold > 0 {
		s.motion = NewMotionDetector(config.MotionThreshold)
		s.gate = NewMotionGate(s.motion, config.IdleTimeout)
	}
	return s
}

// Mailbox returns the mailbox frames are published to.
func (s *CameraSource) Mailbox() *detector.Mailbox {
	return s.config.Mailbox
}

// Start opens the camera and begins the capture loop.
func (s *CameraSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Don't start if already running
	if s.stopCh != nil {
		return nil
	}

	if err := s.config.Camera.Open(); err != nil {
		return err
	}

	fps := ActiveFPS
	if s.gate != nil {
		fps = IdleFPS
	}
	s.config.Camera.SetFPS(fps)

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run(s.stopCh, s.doneCh, fps)

	log.Printf("Capture started at %d fps", fps)
	return nil
}

// Stop halts the capture loop and releases the camera, motion detector and
// hand detector.
func (s *CameraSource) Stop() {
	s.mu.Lock()
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh

	if err := s.config.Camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	if s.motion != nil {
		s.motion.Close()
	}
	if s.config.Detector != nil {
		if err := s.config.Detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Capture stopped")
}

// Stats returns how many frames were processed and how many failed.
func (s *CameraSource) Stats() (frames, errors int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames, s.errors
}

func (s *CameraSource) run(stopCh <-chan struct{}, doneCh chan<- struct{}, fps int) {
	defer close(doneCh)

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			if next := s.processFrame(now); next != fps {
				fps = next
				s.config.Camera.SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
			}
		}
	}
}

// processFrame reads, gates and detects one frame. It returns the frame
// rate the loop should run at next.
func (s *CameraSource) processFrame(now time.Time) int {
	frame, err := s.config.Camera.ReadFrame()
	if err != nil {
		s.countFrame(false)
		log.Printf("Error reading frame: %v", err)
		return s.currentFPS()
	}
	defer frame.Close()

	if s.gate != nil {
		active, changed := s.gate.Observe(frame, now)
		if changed {
			if active {
				log.Println("Switched to active capture")
			} else {
				log.Println("Switched to idle capture")
				// Still scene: release any pinch in progress.
				s.publish(nil, now)
			}
		}
		if !active {
			s.countFrame(true)
			return IdleFPS
		}
	}

	if s.config.Detector == nil {
		s.countFrame(true)
		return ActiveFPS
	}

	hands, err := s.config.Detector.Detect(frame)
	if err != nil {
		s.countFrame(false)
		log.Printf("Error detecting hands: %v", err)
		s.publish(nil, now)
		return ActiveFPS
	}

	s.countFrame(true)
	s.publish(detector.FirstHand(hands), now)
	return ActiveFPS
}

func (s *CameraSource) currentFPS() int {
	if s.gate != nil && !s.gate.Active() {
		return IdleFPS
	}
	return ActiveFPS
}

func (s *CameraSource) publish(hand *detector.HandLandmarks, now time.Time) {
	s.config.Mailbox.Publish(hand)
	if s.config.Sink != nil {
		s.config.Sink.Record(hand, now)
	}
}

func (s *CameraSource) countFrame(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	if !ok {
		s.errors++
	}
}
