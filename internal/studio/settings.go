package studio

import (
	"context"

	"carpet-studio/internal/scene"
	"carpet-studio/internal/session"
	"carpet-studio/internal/settings"
)

func (s *Service) Settings(_ context.Context, id string) (settings.Snapshot, error) {
	var snap settings.Snapshot
	err := s.sessions.With(id, func(sess *session.Session) error {
		snap = snapshotOf(sess)
		return nil
	})
	return snap, err
}

// UpdateSettings applies fn to the session's settings, validates the result
// and persists it. Invalid results leave the session untouched.
func (s *Service) UpdateSettings(ctx context.Context, id string, fn func(settings.Snapshot) (settings.Snapshot, error)) (settings.Snapshot, error) {
	var out settings.Snapshot
	err := s.sessions.With(id, func(sess *session.Session) error {
		next, err := fn(snapshotOf(sess))
		if err != nil {
			return err
		}
		normalized, err := scene.New(next.Settings)
		if err != nil {
			return err
		}
		next.Settings = normalized
		if next.Model == "" {
			next.Model = settings.Defaults().Model
		}

		sess.APIKey = next.APIKey
		sess.Model = next.Model
		sess.Settings = next.Settings
		out = next
		s.persist(ctx, sess.ID, next)
		return nil
	})
	return out, err
}

// ResetSettings drops the persisted record and restores defaults.
func (s *Service) ResetSettings(ctx context.Context, id string) (settings.Snapshot, error) {
	var out settings.Snapshot
	err := s.sessions.With(id, func(sess *session.Session) error {
		if s.settings != nil {
			if err := s.settings.Reset(ctx, s.settingsKey(sess.ID)); err != nil {
				s.logger.Warn("settings reset failed", "session", sess.ID, "error", err)
			}
		}
		out = settings.Defaults()
		sess.APIKey = out.APIKey
		sess.Model = out.Model
		sess.Settings = out.Settings
		sess.SetStatus("Settings reset.")
		return nil
	})
	return out, err
}

func (s *Service) persist(ctx context.Context, id string, snap settings.Snapshot) {
	if s.settings == nil {
		return
	}
	if err := s.settings.Save(ctx, s.settingsKey(id), snap); err != nil {
		s.logger.Warn("settings save failed", "session", id, "error", err)
	}
}

func snapshotOf(sess *session.Session) settings.Snapshot {
	return settings.Snapshot{
		APIKey:   sess.APIKey,
		Model:    sess.Model,
		Settings: sess.Settings,
	}
}
