package studio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/disintegration/imaging"

	"carpet-studio/internal/apperr"
	"carpet-studio/internal/cache"
	"carpet-studio/internal/cutout"
	"carpet-studio/internal/export"
	"carpet-studio/internal/gemini"
	"carpet-studio/internal/mask"
	"carpet-studio/internal/removal"
	"carpet-studio/internal/session"
	"carpet-studio/internal/settings"
)

const (
	FileCutout   = "cutout.png"
	FileVariantA = "variant-a.png"
	FileVariantB = "variant-b.png"

	defaultMaskSize = 1024
)

var (
	ErrBadImage      = errors.New("unsupported or corrupt image")
	ErrNoVariants    = errors.New("no variants yet: generate first")
	ErrUnknownOutput = errors.New("unknown output file")
)

type Generator interface {
	Generate(ctx context.Context, in gemini.ImageRequest) ([]byte, error)
}

type Remover interface {
	Remove(ctx context.Context, img []byte, progress chan<- removal.Progress) ([]byte, error)
	Model() string
}

type CutoutCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, png []byte) bool
}

type Options struct {
	Sessions  *session.Store
	Generator Generator
	Remover   Remover
	Cache     CutoutCache
	// Settings persists each session's settings under SettingsKey(id). Nil
	// disables persistence.
	Settings    settings.Store
	SettingsKey func(sessionID string) string

	MaskWidth     int
	MaskHeight    int
	WatermarkText string
	Logger        *slog.Logger
}

type Service struct {
	sessions      *session.Store
	generator     Generator
	remover       Remover
	cache         CutoutCache
	settings      settings.Store
	settingsKey   func(string) string
	maskW, maskH  int
	watermarkText string
	logger        *slog.Logger
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewStore(session.Options{})
	}

	settingsKey := opts.SettingsKey
	if settingsKey == nil {
		settingsKey = func(string) string { return settings.DefaultKey }
	}

	maskW, maskH := opts.MaskWidth, opts.MaskHeight
	if maskW <= 0 || maskH <= 0 {
		maskW, maskH = defaultMaskSize, defaultMaskSize
	}

	return &Service{
		sessions:      sessions,
		generator:     opts.Generator,
		remover:       opts.Remover,
		cache:         opts.Cache,
		settings:      opts.Settings,
		settingsKey:   settingsKey,
		maskW:         maskW,
		maskH:         maskH,
		watermarkText: opts.WatermarkText,
		logger:        logger,
	}
}

func (s *Service) Sessions() *session.Store {
	return s.sessions
}

// NewSession creates a session seeded with the persisted settings.
func (s *Service) NewSession(ctx context.Context) string {
	id := s.sessions.Create()
	_ = s.sessions.With(id, func(sess *session.Session) error {
		s.seed(ctx, sess)
		return nil
	})
	return id
}

// Ensure runs fn on the session with the given id, creating and seeding it
// first when needed. Front-ends that own their ids, such as chats, use it.
func (s *Service) Ensure(ctx context.Context, id string) error {
	return s.sessions.WithOrCreate(id, func(sess *session.Session) error {
		if sess.Model == "" {
			s.seed(ctx, sess)
		}
		return nil
	})
}

func (s *Service) seed(ctx context.Context, sess *session.Session) {
	snap := settings.LoadOrDefault(ctx, s.settings, s.settingsKey(sess.ID))
	sess.APIKey = snap.APIKey
	sess.Model = snap.Model
	sess.Settings = snap.Settings
}

// Status returns the session's progress line without waiting for a running
// operation.
func (s *Service) Status(id string) (string, error) {
	return s.sessions.Status(id)
}

// LoadSource decodes raw and makes it the session's photo, dropping any
// previous cutout, mask and variants.
func (s *Service) LoadSource(_ context.Context, id string, raw []byte) error {
	img, err := cutout.Decode(raw)
	if err != nil {
		if errors.Is(err, apperr.ErrInputMissing) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrBadImage, err)
	}
	return s.sessions.With(id, func(sess *session.Session) error {
		sess.SetSource(session.NewSource(raw, img))
		b := img.Bounds()
		sess.SetStatus(fmt.Sprintf("Photo loaded (%dx%d).", b.Dx(), b.Dy()))
		s.logger.Info("source loaded", "session", id, "width", b.Dx(), "height", b.Dy())
		return nil
	})
}

func (s *Service) Source(_ context.Context, id string) ([]byte, error) {
	var raw []byte
	err := s.sessions.With(id, func(sess *session.Session) error {
		if sess.Source == nil {
			return apperr.ErrInputMissing
		}
		raw = sess.Source.Raw
		return nil
	})
	return raw, err
}

// AutoRemove asks the removal service for a cutout. Results are cached per
// photo and model, so repeating it on the same photo is free.
func (s *Service) AutoRemove(ctx context.Context, id string, events chan<- Event) error {
	return s.sessions.With(id, func(sess *session.Session) error {
		if sess.Source == nil {
			return apperr.ErrInputMissing
		}
		if s.remover == nil {
			return fmt.Errorf("%w: removal service is not configured", apperr.ErrRemovalFailed)
		}

		key := cache.Key(sess.Source.Raw, s.remover.Model())
		if s.cache != nil {
			if png, ok := s.cache.Get(key); ok {
				c, err := cutout.FromExternalRemoval(png)
				if err == nil {
					sess.SetCutout(c)
					s.emit(sess, events, Event{Stage: StageRemoval, Message: "Background removed (cached).", Percent: 100})
					return nil
				}
			}
		}

		s.emit(sess, events, Event{Stage: StageRemoval, Message: "Removing background..."})

		progress := make(chan removal.Progress, 16)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for p := range progress {
				s.emit(sess, events, removalEvent(p))
			}
		}()

		png, err := s.remover.Remove(ctx, sess.Source.Raw, progress)
		close(progress)
		<-done
		if err != nil {
			s.logger.Warn("auto removal failed", "session", id, "error", err)
			s.emit(sess, events, Event{Stage: StageFailed, Message: apperr.Message(err)})
			return err
		}

		c, err := cutout.FromExternalRemoval(png)
		if err != nil {
			err = fmt.Errorf("%w: %w", apperr.ErrRemovalFailed, err)
			s.emit(sess, events, Event{Stage: StageFailed, Message: apperr.Message(err)})
			return err
		}
		if s.cache != nil {
			s.cache.Set(key, png)
		}

		sess.SetCutout(c)
		s.emit(sess, events, Event{Stage: StageRemoval, Message: "Background removed. Ready to generate.", Percent: 100})
		return nil
	})
}

// Cutout returns the current cutout as PNG.
func (s *Service) Cutout(_ context.Context, id string) ([]byte, error) {
	var out []byte
	err := s.sessions.With(id, func(sess *session.Session) error {
		if sess.Cutout == nil {
			return apperr.ErrCutoutMissing
		}
		png, err := sess.Cutout.PNG()
		out = png
		return err
	})
	return out, err
}

// OpenMask starts a fresh all-background mask over the current photo.
func (s *Service) OpenMask(_ context.Context, id string, brushRadius float64) error {
	return s.sessions.With(id, func(sess *session.Session) error {
		if sess.Source == nil {
			return apperr.ErrInputMissing
		}
		sess.OpenMask(mask.New(sess.Source.Image, mask.Options{
			Width:       s.maskW,
			Height:      s.maskH,
			BrushRadius: brushRadius,
		}))
		sess.SetStatus("Mask open: paint the product white.")
		return nil
	})
}

// Paint replays strokes into the open mask.
func (s *Service) Paint(_ context.Context, id string, strokes []Stroke) error {
	return s.withPainter(id, func(p *mask.Painter) error {
		for _, st := range strokes {
			st.apply(p)
		}
		return nil
	})
}

func (s *Service) ClearMask(_ context.Context, id string) error {
	return s.withPainter(id, func(p *mask.Painter) error {
		p.Clear()
		return nil
	})
}

func (s *Service) MaskPreview(_ context.Context, id string) (*image.NRGBA, error) {
	var out *image.NRGBA
	err := s.withPainter(id, func(p *mask.Painter) error {
		out = p.RenderPreview()
		return nil
	})
	return out, err
}

// CommitMask turns the painted mask into the session's cutout. The mask stays
// open for touch-ups.
func (s *Service) CommitMask(_ context.Context, id string) error {
	return s.sessions.With(id, func(sess *session.Session) error {
		if sess.Source == nil {
			return apperr.ErrInputMissing
		}
		if sess.Painter == nil {
			return apperr.ErrMaskEmpty
		}
		c, err := cutout.FromMask(sess.Painter.Base(), sess.Painter.Mask())
		if err != nil {
			return err
		}
		sess.SetCutout(c)
		sess.SetStatus("Cutout ready. Generate next.")
		return nil
	})
}

func (s *Service) CloseMask(_ context.Context, id string) error {
	return s.sessions.With(id, func(sess *session.Session) error {
		sess.CloseMask()
		return nil
	})
}

func (s *Service) withPainter(id string, fn func(*mask.Painter) error) error {
	return s.sessions.With(id, func(sess *session.Session) error {
		if sess.Painter == nil {
			return apperr.ErrMaskEmpty
		}
		return fn(sess.Painter)
	})
}

// Outputs encodes every available download. Missing pieces are skipped.
func (s *Service) Outputs(_ context.Context, id string) ([]export.File, error) {
	var files []export.File
	err := s.sessions.With(id, func(sess *session.Session) error {
		if sess.Cutout != nil {
			png, err := sess.Cutout.PNG()
			if err != nil {
				return err
			}
			files = append(files, export.File{Name: FileCutout, Data: png})
		}
		for _, v := range []struct {
			name string
			img  *image.NRGBA
		}{{FileVariantA, sess.VariantA}, {FileVariantB, sess.VariantB}} {
			if v.img == nil {
				continue
			}
			png, err := encodePNG(v.img)
			if err != nil {
				return err
			}
			files = append(files, export.File{Name: v.name, Data: png})
		}
		return nil
	})
	return files, err
}

// Output returns one download by file name.
func (s *Service) Output(ctx context.Context, id, name string) ([]byte, error) {
	switch name {
	case FileCutout:
		return s.Cutout(ctx, id)
	case FileVariantA, FileVariantB:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOutput, name)
	}

	var out []byte
	err := s.sessions.With(id, func(sess *session.Session) error {
		if !sess.HasVariants() {
			return ErrNoVariants
		}
		img := sess.VariantA
		if name == FileVariantB {
			img = sess.VariantB
		}
		png, err := encodePNG(img)
		out = png
		return err
	})
	return out, err
}

// Export writes every available download to sink.
func (s *Service) Export(ctx context.Context, id string, sink export.Sink) ([]string, error) {
	files, err := s.Outputs(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperr.ErrCutoutMissing
	}
	if err := export.Write(ctx, sink, files); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names, nil
}

func (s *Service) emit(sess *session.Session, events chan<- Event, ev Event) {
	sess.SetStatus(ev.Message)
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeBackground(raw []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode background: %w", err)
	}
	return img, nil
}
