package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizePassages(); err != nil {
		return err
	}
	c.normalizeSelection()
	c.normalizeTools()
	if err := c.normalizeBackground(); err != nil {
		return err
	}
	c.normalizeScheduler()
	c.normalizeUpload()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.EnvFile, err = expandPath(strings.TrimSpace(c.Paths.EnvFile)); err != nil {
		return fmt.Errorf("paths.env_file: %w", err)
	}
	return nil
}

func (c *Config) normalizePassages() error {
	var err error
	if c.Passages.CatalogPath, err = expandPath(strings.TrimSpace(c.Passages.CatalogPath)); err != nil {
		return fmt.Errorf("passages.catalog_path: %w", err)
	}
	c.Passages.Version = strings.TrimSpace(c.Passages.Version)
	if c.Passages.Version == "" {
		c.Passages.Version = defaultPassageVersion
	}
	return nil
}

func (c *Config) normalizeSelection() {
	c.Selection.DefaultMode = strings.ToLower(strings.TrimSpace(c.Selection.DefaultMode))
	if c.Selection.DefaultMode == "" {
		c.Selection.DefaultMode = ModeRandom
	}
	c.Selection.Books = trimList(c.Selection.Books)
	c.Selection.ExcludeBooks = trimList(c.Selection.ExcludeBooks)
	if c.Selection.RandomAttempts <= 0 {
		c.Selection.RandomAttempts = defaultRandomAttempts
	}
	if c.Selection.SequentialAdvances <= 0 {
		c.Selection.SequentialAdvances = defaultSequentialAdvances
	}
}

func (c *Config) normalizeTools() {
	fallback := func(value, def string) string {
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
		return def
	}
	c.Tools.FFmpeg = fallback(c.Tools.FFmpeg, "ffmpeg")
	c.Tools.FFprobe = fallback(c.Tools.FFprobe, "ffprobe")
	c.Tools.Piper = fallback(c.Tools.Piper, "piper")
	c.Tools.UVX = fallback(c.Tools.UVX, "uvx")
}

func (c *Config) normalizeBackground() error {
	var err error
	if c.Background.ImageDir, err = expandPath(strings.TrimSpace(c.Background.ImageDir)); err != nil {
		return fmt.Errorf("background.image_dir: %w", err)
	}
	colors := defaultThemeColors()
	for theme, color := range c.Background.Colors {
		if color = strings.TrimSpace(color); color != "" {
			colors[strings.ToLower(strings.TrimSpace(theme))] = color
		}
	}
	c.Background.Colors = colors
	return nil
}

func (c *Config) normalizeScheduler() {
	c.Scheduler.Timezone = strings.TrimSpace(c.Scheduler.Timezone)
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = defaultTimezone
	}
	c.Scheduler.MaintenanceDay = strings.ToLower(strings.TrimSpace(c.Scheduler.MaintenanceDay))
	if c.Scheduler.MaintenanceDay == "" {
		c.Scheduler.MaintenanceDay = defaultMaintenanceDay
	}
	if strings.TrimSpace(c.Scheduler.RetryInterval) == "" {
		c.Scheduler.RetryInterval = defaultRetryInterval
	}
	if strings.TrimSpace(c.Scheduler.CleanupTime) == "" {
		c.Scheduler.CleanupTime = defaultCleanupTime
	}
	if strings.TrimSpace(c.Scheduler.MaintenanceTime) == "" {
		c.Scheduler.MaintenanceTime = defaultMaintenanceTime
	}
}

func (c *Config) normalizeUpload() {
	c.Upload.Privacy = strings.ToLower(strings.TrimSpace(c.Upload.Privacy))
	if c.Upload.Privacy == "" {
		c.Upload.Privacy = defaultPrivacy
	}
	c.Upload.Times = trimList(c.Upload.Times)
	c.Upload.Tags = trimList(c.Upload.Tags)
	if strings.TrimSpace(c.Upload.CategoryID) == "" {
		c.Upload.CategoryID = defaultCategoryID
	}
	c.Upload.ClientID = envFallback(c.Upload.ClientID, "YOUTUBE_CLIENT_ID")
	c.Upload.ClientSecret = envFallback(c.Upload.ClientSecret, "YOUTUBE_CLIENT_SECRET")
	c.Upload.RefreshToken = envFallback(c.Upload.RefreshToken, "YOUTUBE_REFRESH_TOKEN")
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func envFallback(value, key string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}
