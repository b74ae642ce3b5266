package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validatePaths,
		c.validateSelection,
		c.validateVideo,
		c.validateSubtitles,
		c.validateRetry,
		c.validateScheduler,
		c.validateUpload,
		c.validateStorage,
		c.validateLogging,
		c.validateNotifications,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

// validateSelection rejects impossible bounds. An empty accept range
// (min_words > max_words) is a configuration error here even though the
// selector itself tolerates it.
func (c *Config) validateSelection() error {
	s := c.Selection
	if s.DefaultMode != ModeRandom && s.DefaultMode != ModeSequential {
		return fmt.Errorf("selection.default_mode must be %q or %q", ModeRandom, ModeSequential)
	}
	if s.MinWords <= 0 {
		return errors.New("selection.min_words must be positive")
	}
	if s.MaxWords < s.MinWords {
		return errors.New("selection.max_words must be greater than or equal to selection.min_words")
	}
	if s.MaxDuration <= 0 {
		return errors.New("selection.max_duration_seconds must be positive")
	}
	if s.SpeakingRate <= 0 {
		return errors.New("selection.speaking_rate must be positive (words per second)")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if err := ensurePositive(map[string]int{
		"video.width":  c.Video.Width,
		"video.height": c.Video.Height,
		"video.fps":    c.Video.FPS,
	}); err != nil {
		return err
	}
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		return errors.New("video.crf must be between 0 and 51")
	}
	if strings.TrimSpace(c.Video.Codec) == "" {
		return errors.New("video.codec must be set")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if c.Video.SkipSubtitles {
		return nil
	}
	return ensurePositive(map[string]int{
		"subtitles.font_size":    c.Subtitles.FontSize,
		"subtitles.window_words": c.Subtitles.WindowWords,
	})
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries must not be negative")
	}
	if c.Retry.BatchLimit <= 0 {
		return errors.New("retry.batch_limit must be positive")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	s := c.Scheduler
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	if _, err := ParseInterval(s.GenerationInterval); err != nil {
		return fmt.Errorf("scheduler.generation_interval: %w", err)
	}
	if _, err := ParseInterval(s.RetryInterval); err != nil {
		return fmt.Errorf("scheduler.retry_interval: %w", err)
	}
	if s.BatchSize <= 0 {
		return errors.New("scheduler.batch_size must be positive")
	}
	if _, err := ParseClock(s.CleanupTime); err != nil {
		return fmt.Errorf("scheduler.cleanup_time: %w", err)
	}
	if _, err := ParseClock(s.MaintenanceTime); err != nil {
		return fmt.Errorf("scheduler.maintenance_time: %w", err)
	}
	if _, err := ParseWeekday(s.MaintenanceDay); err != nil {
		return fmt.Errorf("scheduler.maintenance_day: %w", err)
	}
	return nil
}

func (c *Config) validateUpload() error {
	switch c.Upload.Privacy {
	case "public", "unlisted", "private":
	default:
		return errors.New("upload.privacy must be public, unlisted or private")
	}
	for _, value := range c.Upload.Times {
		if _, err := ParseClock(value); err != nil {
			return fmt.Errorf("upload.times: %w", err)
		}
	}
	if c.Upload.ScheduleEnabled && len(c.Upload.Times) == 0 {
		return errors.New("upload.times must list at least one HH:MM when upload.schedule_enabled is true")
	}
	if strings.TrimSpace(c.Upload.TitleTemplate) == "" {
		return errors.New("upload.title_template must be set")
	}
	return nil
}

// UploadCredentialsReady reports whether YouTube credentials are present.
// They are only required when an upload actually runs.
func (c *Config) UploadCredentialsReady() error {
	var missing []string
	if c.Upload.ClientID == "" {
		missing = append(missing, "YOUTUBE_CLIENT_ID")
	}
	if c.Upload.ClientSecret == "" {
		missing = append(missing, "YOUTUBE_CLIENT_SECRET")
	}
	if c.Upload.RefreshToken == "" {
		missing = append(missing, "YOUTUBE_REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("upload credentials missing: %s (set them in the env file or [upload])", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.MaxStorageGB < 0 {
		return errors.New("storage.max_storage_gb must not be negative")
	}
	return ensurePositive(map[string]int{
		"storage.intermediate_retention_days": c.Storage.IntermediateRetentionDays,
		"storage.uploaded_retention_days":     c.Storage.UploadedRetentionDays,
		"storage.queue_retention_days":        c.Storage.QueueRetentionDays,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic: expected a full topic URL, got %q", topic)
	}
	return nil
}

func ensurePositive(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
