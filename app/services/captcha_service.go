// Package services provides external integrations and technical concerns: tokens, email,
// captcha and the chatbot upstream
package services

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wenlng/go-captcha/v2/rotate"

	"github.com/marcoalfans/manud-be/utils"
)

// ErrCaptchaUnavailable is returned when a challenge could not be rendered.
var ErrCaptchaUnavailable = errors.New("captcha unavailable")

// CaptchaService issues rotate challenges and checks the angle a user applied.
// Every challenge is single use: Verify consumes it whatever the outcome.
type CaptchaService interface {
	Generate(ctx context.Context) (*RotateChallenge, error)
	Verify(ctx context.Context, challengeID string, angle float64) bool
}

// RotateChallenge carries the rendered images as base64 data URIs.
type RotateChallenge struct {
	ID        string
	Image     string
	Thumb     string
	ThumbSize int
}

type rotateCaptcha struct {
	rotator   rotate.Captcha
	tolerance int
	ttl       time.Duration
	now       utils.Clock

	mu         sync.Mutex
	challenges map[string]pendingChallenge
}

type pendingChallenge struct {
	angle     int
	expiresAt time.Time
}

// NewRotateCaptchaService builds a service rendering squareSize pixel images. tolerance is
// the accepted difference in degrees.
func NewRotateCaptchaService(ttl time.Duration, tolerance, squareSize int) CaptchaService {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if squareSize <= 0 {
		squareSize = 220
	}

	builder := rotate.NewBuilder(rotate.WithImageSquareSize(squareSize))
	builder.SetResources(rotate.WithImages(backgrounds(3, squareSize)))

	return &rotateCaptcha{
		rotator:    builder.Make(),
		tolerance:  tolerance,
		ttl:        ttl,
		now:        utils.SystemClock,
		challenges: make(map[string]pendingChallenge),
	}
}

func (s *rotateCaptcha) Generate(ctx context.Context) (*RotateChallenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := s.rotator.Generate()
	if err != nil {
		return nil, errors.Join(ErrCaptchaUnavailable, err)
	}
	block := data.GetData()
	if block == nil {
		return nil, ErrCaptchaUnavailable
	}

	master, err := data.GetMasterImage().ToBase64()
	if err != nil {
		return nil, errors.Join(ErrCaptchaUnavailable, err)
	}
	thumb, err := data.GetThumbImage().ToBase64()
	if err != nil {
		return nil, errors.Join(ErrCaptchaUnavailable, err)
	}

	id := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	s.sweep(now)
	s.challenges[id] = pendingChallenge{angle: block.Angle, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()

	return &RotateChallenge{ID: id, Image: master, Thumb: thumb, ThumbSize: block.Width}, nil
}

func (s *rotateCaptcha) Verify(_ context.Context, challengeID string, angle float64) bool {
	s.mu.Lock()
	pending, ok := s.challenges[challengeID]
	delete(s.challenges, challengeID)
	s.mu.Unlock()

	if !ok || !s.now().Before(pending.expiresAt) {
		return false
	}
	return rotate.Validate(int(math.Round(angle)), pending.angle, s.tolerance)
}

// sweep drops expired challenges; callers hold mu.
func (s *rotateCaptcha) sweep(now time.Time) {
	for id, c := range s.challenges {
		if !now.Before(c.expiresAt) {
			delete(s.challenges, id)
		}
	}
}

func backgrounds(n, size int) []image.Image {
	imgs := make([]image.Image, 0, n)
	for range n {
		imgs = append(imgs, gradientImage(size))
	}
	return imgs
}

func gradientImage(size int) image.Image {
	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	half := float64(size) / 2
	for y := range size {
		for x := range size {
			dx, dy := float64(x)-half, float64(y)-half
			t := math.Min(math.Sqrt(dx*dx+dy*dy)/half, 1)
			base := uint8(200 - int(150*t))
			noise := uint8(rand.IntN(30))
			rgba.Set(x, y, color.RGBA{R: base + noise/3, G: base, B: 255 - base/2, A: 255})
		}
	}
	stripe := image.Rect(size/10, size/2, size-size/10, size/2+size/12)
	draw.Draw(rgba, stripe, &image.Uniform{C: color.RGBA{A: 24}}, image.Point{}, draw.Over)
	return rgba
}
