package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override the file.
const (
	EnvDuckDBPath = "FLIPVIEW_DUCKDB_PATH"
	EnvLogLevel   = "FLIPVIEW_LOG_LEVEL"
)

// fileConfig mirrors the TOML layout. Nil fields keep the default.
type fileConfig struct {
	Viewer struct {
		InitialLookahead     *int     `toml:"initial_lookahead"`
		TurnMargin           *int     `toml:"turn_margin"`
		FullscreenMargin     *int     `toml:"fullscreen_margin"`
		FlipDuration         *string  `toml:"flip_duration"`
		ClickTurnMinWidthPx  *float64 `toml:"click_turn_min_width_px"`
		ShowCover            *bool    `toml:"show_cover"`
		MinZoom              *float64 `toml:"min_zoom"`
		MaxZoom              *float64 `toml:"max_zoom"`
		ZoomStep             *float64 `toml:"zoom_step"`
		DensityZoomThreshold *float64 `toml:"density_zoom_threshold"`
		DensityCap           *float64 `toml:"density_cap"`
		DevicePixelRatio     *float64 `toml:"device_pixel_ratio"`
		FitFraction          *float64 `toml:"fit_fraction"`
	} `toml:"viewer"`

	Terminal struct {
		CellWidthPx  *float64 `toml:"cell_width_px"`
		CellHeightPx *float64 `toml:"cell_height_px"`
	} `toml:"terminal"`

	Storage struct {
		DuckDBPath    *string `toml:"duckdb_path"`
		FlushInterval *string `toml:"flush_interval"`
	} `toml:"storage"`

	Log struct {
		Level *string `toml:"level"`
		File  *string `toml:"file"`
	} `toml:"log"`

	Document struct {
		FetchTimeout *string `toml:"fetch_timeout"`
		WatchFile    *bool   `toml:"watch_file"`
	} `toml:"document"`
}

// Load builds a Config from defaults, the TOML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg = cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse overlays a TOML document on DefaultConfig.
func Parse(data []byte) (Config, error) {
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("parse config at %d:%d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig()
	v := &cfg.Viewer
	setInt(&v.InitialLookahead, fc.Viewer.InitialLookahead)
	setInt(&v.TurnMargin, fc.Viewer.TurnMargin)
	setInt(&v.FullscreenMargin, fc.Viewer.FullscreenMargin)
	setFloat(&v.ClickTurnMinWidthPx, fc.Viewer.ClickTurnMinWidthPx)
	setBool(&v.ShowCover, fc.Viewer.ShowCover)
	setFloat(&v.MinZoom, fc.Viewer.MinZoom)
	setFloat(&v.MaxZoom, fc.Viewer.MaxZoom)
	setFloat(&v.ZoomStep, fc.Viewer.ZoomStep)
	setFloat(&v.DensityZoomThreshold, fc.Viewer.DensityZoomThreshold)
	setFloat(&v.DensityCap, fc.Viewer.DensityCap)
	setFloat(&v.DevicePixelRatio, fc.Viewer.DevicePixelRatio)
	setFloat(&v.FitFraction, fc.Viewer.FitFraction)

	setFloat(&cfg.CellWidthPx, fc.Terminal.CellWidthPx)
	setFloat(&cfg.CellHeightPx, fc.Terminal.CellHeightPx)
	setString(&cfg.DuckDBPath, fc.Storage.DuckDBPath)
	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogFile, fc.Log.File)
	setBool(&cfg.WatchFile, fc.Document.WatchFile)

	durations := []struct {
		field string
		src   *string
		dst   *time.Duration
	}{
		{"viewer.flip_duration", fc.Viewer.FlipDuration, &v.FlipDuration},
		{"storage.flush_interval", fc.Storage.FlushInterval, &cfg.FlushInterval},
		{"document.fetch_timeout", fc.Document.FetchTimeout, &cfg.FetchTimeout},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.src)
		if err != nil {
			return Config{}, &ConfigError{Field: d.field, Message: fmt.Sprintf("invalid duration %q", *d.src)}
		}
		*d.dst = parsed
	}
	return cfg, nil
}

// ApplyEnv returns a copy of the config with environment overrides applied.
// lookup is usually os.LookupEnv.
func (c Config) ApplyEnv(lookup func(string) (string, bool)) Config {
	if v, ok := lookup(EnvDuckDBPath); ok {
		c = c.WithDuckDBPath(v)
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c = c.WithLogLevel(v)
	}
	return c
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
