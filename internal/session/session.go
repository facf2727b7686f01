package session

import (
	"crypto/md5"
	"encoding/hex"
	"image"
	"sync"
	"time"

	"carpet-studio/internal/cutout"
	"carpet-studio/internal/mask"
	"carpet-studio/internal/scene"
)

// Source is the uploaded product photo.
type Source struct {
	Raw   []byte
	Image image.Image
	MD5   string
}

func NewSource(raw []byte, img image.Image) *Source {
	sum := md5.Sum(raw)
	return &Source{Raw: raw, Image: img, MD5: hex.EncodeToString(sum[:])}
}

// Session is one user's working state. Fields are only touched inside
// Store.With, which serializes operations per session; the status line is the
// exception and may be read at any time.
type Session struct {
	ID           string
	LastActivity time.Time

	Source  *Source
	Cutout  *cutout.Cutout
	Painter *mask.Painter

	APIKey   string
	Model    string
	Settings scene.Settings

	PromptA  string
	PromptB  string
	VariantA *image.NRGBA
	VariantB *image.NRGBA

	op sync.Mutex

	statusMu sync.RWMutex
	status   string
}

// SetSource replaces the photo and drops everything derived from the old one.
func (s *Session) SetSource(src *Source) {
	s.Source = src
	s.Cutout = nil
	s.Painter = nil
	s.VariantA = nil
	s.VariantB = nil
}

// SetCutout replaces the cutout; variants composed from the old one go away.
func (s *Session) SetCutout(c *cutout.Cutout) {
	s.Cutout = c
	s.VariantA = nil
	s.VariantB = nil
}

// SetVariants replaces both variants together.
func (s *Session) SetVariants(a, b *image.NRGBA) {
	s.VariantA = a
	s.VariantB = b
}

func (s *Session) SetPrompts(a, b string) {
	s.PromptA = a
	s.PromptB = b
}

func (s *Session) OpenMask(p *mask.Painter) {
	s.Painter = p
}

func (s *Session) CloseMask() {
	s.Painter = nil
}

func (s *Session) HasVariants() bool {
	return s.VariantA != nil && s.VariantB != nil
}

func (s *Session) SetStatus(msg string) {
	s.statusMu.Lock()
	s.status = msg
	s.statusMu.Unlock()
}

func (s *Session) Status() string {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}
