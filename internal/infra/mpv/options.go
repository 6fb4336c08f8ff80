package mpv

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Options configures the mpv renderer. It is decoded from the free-form
// renderer.options config section.
type Options struct {
	WindowProperty  string            `mapstructure:"window_property" default:"vo-configured"`
	OSDProperty     string            `mapstructure:"osd_property"`
	SeekBarProperty string            `mapstructure:"seekbar_property"`
	OSDDurationMs   int               `mapstructure:"osd_duration_ms" default:"3000" validate:"gte=0"`
	Fullscreen      bool              `mapstructure:"fullscreen"`
	HWDec           string            `mapstructure:"hwdec" default:"auto-safe"`
	CacheMB         int               `mapstructure:"cache_mb" default:"150" validate:"gte=0"`
	MPV             map[string]string `mapstructure:"mpv"`
}

// DecodeOptions decodes, defaults and validates renderer options.
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	if err := mapstructure.Decode(raw, &opts); err != nil {
		return Options{}, errors.Wrap(err, "failed to decode renderer options")
	}
	if err := defaults.Set(&opts); err != nil {
		return Options{}, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(opts); err != nil {
		return Options{}, errors.Wrap(err, "validation failed")
	}
	return opts, nil
}

// EngineOptions returns the mpv options to initialize the engine with.
// Entries of the mpv map override the derived ones.
func (o Options) EngineOptions() map[string]string {
	maxBack := o.CacheMB / 3
	opts := map[string]string{
		"idle":                   "yes",
		"terminal":               "no",
		"force-window":           "no",
		"input-default-bindings": "yes",
		"input-vo-keyboard":      "yes",
		"osc":                    "yes",
		"hwdec":                  o.HWDec,
		"fullscreen":             yesNo(o.Fullscreen),
		"demuxer-max-bytes":      strconv.Itoa(o.CacheMB-maxBack) + "MiB",
		"demuxer-max-back-bytes": strconv.Itoa(maxBack) + "MiB",
	}
	for k, v := range o.MPV {
		opts[k] = v
	}
	return opts
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
