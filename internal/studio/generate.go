package studio

import (
	"context"
	"fmt"
	"image"

	"carpet-studio/internal/apperr"
	"carpet-studio/internal/compose"
	"carpet-studio/internal/gemini"
	"carpet-studio/internal/prompt"
	"carpet-studio/internal/session"
)

// Generate produces variants A and B one after the other: background, decode
// and composite for A, then the same for B. The session's variants are only
// replaced when both succeed.
func (s *Service) Generate(ctx context.Context, id string, events chan<- Event) error {
	return s.sessions.With(id, func(sess *session.Session) error {
		if sess.Cutout == nil {
			return apperr.ErrCutoutMissing
		}
		if s.generator == nil {
			return apperr.ErrAuth
		}

		promptA, promptB := prompt.BuildPair(sess.Settings)
		sess.SetPrompts(promptA, promptB)

		a, err := s.variant(ctx, sess, prompt.LabelA, promptA, events)
		if err != nil {
			return s.fail(sess, events, err)
		}
		b, err := s.variant(ctx, sess, prompt.LabelB, promptB, events)
		if err != nil {
			return s.fail(sess, events, err)
		}

		sess.SetVariants(a, b)
		s.emit(sess, events, Event{Stage: StageDone, Message: "Done! Variants are ready to download.", Percent: 100})
		s.logger.Info("variants generated", "session", id, "model", sess.Model, "ratio", sess.Settings.AspectRatio)
		return nil
	})
}

func (s *Service) variant(ctx context.Context, sess *session.Session, label, text string, events chan<- Event) (*image.NRGBA, error) {
	st := sess.Settings
	s.emit(sess, events, Event{Stage: StageGenerate, Message: fmt.Sprintf("Generating variant %s background...", label)})

	raw, err := s.generator.Generate(ctx, gemini.ImageRequest{
		Prompt:      text,
		Model:       sess.Model,
		AspectRatio: st.AspectRatio,
		ImageSize:   gemini.ImageSizeFor(sess.Model, st.Resolution),
		APIKey:      sess.APIKey,
	})
	if err != nil {
		return nil, err
	}

	bg, err := decodeBackground(raw)
	if err != nil {
		return nil, err
	}

	s.emit(sess, events, Event{Stage: StageCompose, Message: fmt.Sprintf("Compositing variant %s...", label)})
	return compose.Compose(bg, sess.Cutout.Image, compose.Options{
		AspectRatio:   st.AspectRatio,
		Resolution:    st.Resolution,
		Stylization:   st.Stylization,
		Watermark:     st.Watermark,
		WatermarkText: s.watermarkText,
	})
}

func (s *Service) fail(sess *session.Session, events chan<- Event, err error) error {
	s.logger.Warn("generation failed", "session", sess.ID, "error", err)
	s.emit(sess, events, Event{Stage: StageFailed, Message: "Generation failed: " + apperr.Message(err)})
	return err
}

// Prompts returns the A and B prompts the current settings would send.
func (s *Service) Prompts(_ context.Context, id string) (string, string, error) {
	var a, b string
	err := s.sessions.With(id, func(sess *session.Session) error {
		a, b = prompt.BuildPair(sess.Settings)
		return nil
	})
	return a, b, err
}

// LastPrompts returns the prompts of the most recent Generate call.
func (s *Service) LastPrompts(_ context.Context, id string) (string, string, error) {
	var a, b string
	err := s.sessions.With(id, func(sess *session.Session) error {
		a, b = sess.PromptA, sess.PromptB
		return nil
	})
	return a, b, err
}
