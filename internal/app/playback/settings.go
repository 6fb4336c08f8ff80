package playback

import (
	zlog "github.com/rs/zerolog/log"
)

// Renderer settings suspended while the video monitor runs.
const (
	SettingSeekSteps = "videoplayer.seeksteps"
	SettingSeekDelay = "videoplayer.seekdelay"
)

// SettingControl temporarily overrides a persisted setting.
type SettingControl struct {
	store        SettingsStore
	id           string
	label        string
	disableValue any
}

// NewSettingControl creates a control for the given setting.
func NewSettingControl(store SettingsStore, id, label string, disableValue any) *SettingControl {
	return &SettingControl{
		store:        store,
		id:           id,
		label:        label,
		disableValue: disableValue,
	}
}

// Suspend replaces the setting with its disable value and returns the restore function.
// Intended use: defer ctrl.Suspend()()
func (s *SettingControl) Suspend() func() {
	if s == nil || s.store == nil {
		return func() {}
	}

	original, ok := s.store.Setting(s.id)
	if err := s.store.SetSetting(s.id, s.disableValue); err != nil {
		zlog.Warn().Err(err).Msgf("settings: failed to suspend %s", s.label)
		return func() {}
	}
	zlog.Debug().Msgf("settings: %s suspended (was %v)", s.label, original)

	return func() {
		if !ok {
			return
		}
		if err := s.store.SetSetting(s.id, original); err != nil {
			zlog.Warn().Err(err).Msgf("settings: failed to restore %s", s.label)
			return
		}
		zlog.Debug().Msgf("settings: %s restored", s.label)
	}
}
