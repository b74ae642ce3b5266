package config

const (
	defaultConfigPath = "~/.config/versereel/config.toml"
	defaultEnvFile    = "~/.config/versereel/.env"
	defaultDataDir    = "~/.local/share/versereel"
	defaultOutputDir  = "~/.local/share/versereel/generated"
	defaultLogDir     = "~/.local/share/versereel/logs"

	defaultPassageVersion = "KJV"

	defaultMinWords           = 10
	defaultMaxWords           = 50
	defaultMaxDuration        = 60.0
	defaultSpeakingRate       = 2.5
	defaultRandomAttempts     = 200
	defaultSequentialAdvances = 100

	defaultMaxRetries = 3
	defaultBatchLimit = 10

	defaultTimezone           = "UTC"
	defaultGenerationInterval = "6h"
	defaultBatchSize          = 3
	defaultRetryInterval      = "4h"
	defaultCleanupTime        = "03:00"
	defaultMaintenanceDay     = "sunday"
	defaultMaintenanceTime    = "04:00"

	defaultPrivacy             = "public"
	defaultTitleTemplate       = "{reference} - {first_words}..."
	defaultDescriptionTemplate = "{text}\n\n{reference} ({version})"
	defaultCategoryID          = "22"

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30

	defaultNtfyRequestTimeout = 10
)

// ModeRandom and ModeSequential are the selection modes.
const (
	ModeRandom     = "random"
	ModeSequential = "sequential"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Passages: Passages{
			Version: defaultPassageVersion,
		},
		Selection: Selection{
			DefaultMode:        ModeRandom,
			MinWords:           defaultMinWords,
			MaxWords:           defaultMaxWords,
			MaxDuration:        defaultMaxDuration,
			SpeakingRate:       defaultSpeakingRate,
			RandomAttempts:     defaultRandomAttempts,
			SequentialAdvances: defaultSequentialAdvances,
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			Piper:   "piper",
			UVX:     "uvx",
		},
		Background: Background{
			Colors: defaultThemeColors(),
			Zoom:   true,
		},
		Speech: Speech{
			Model:       "en_US-lessac-medium",
			LengthScale: 1.0,
		},
		Alignment: Alignment{
			Model:     "small",
			Language:  "en",
			VADMethod: "silero",
		},
		Subtitles: Subtitles{
			Font:           "DejaVu Sans",
			FontSize:       72,
			PrimaryColor:   "FFFFFF",
			HighlightColor: "FFD700",
			OutlineWidth:   4,
			MarginV:        420,
			WindowWords:    3,
		},
		Video: Video{
			Width:        1080,
			Height:       1920,
			FPS:          30,
			Codec:        "libx264",
			Preset:       "medium",
			CRF:          23,
			AudioBitrate: "192k",
		},
		Retry: Retry{
			MaxRetries: defaultMaxRetries,
			BatchLimit: defaultBatchLimit,
		},
		Scheduler: Scheduler{
			Enabled:            true,
			Timezone:           defaultTimezone,
			GenerationInterval: defaultGenerationInterval,
			BatchSize:          defaultBatchSize,
			RetryInterval:      defaultRetryInterval,
			CleanupTime:        defaultCleanupTime,
			MaintenanceDay:     defaultMaintenanceDay,
			MaintenanceTime:    defaultMaintenanceTime,
		},
		Upload: Upload{
			ScheduleEnabled:     false,
			Times:               []string{"09:00", "18:00"},
			Privacy:             defaultPrivacy,
			TitleTemplate:       defaultTitleTemplate,
			DescriptionTemplate: defaultDescriptionTemplate,
			Tags:                []string{"bible", "scripture", "shorts"},
			CategoryID:          defaultCategoryID,
		},
		Storage: Storage{
			ArchiveUploaded:           true,
			CleanupAfterUpload:        true,
			KeepFinalVideos:           true,
			MaxStorageGB:              10,
			IntermediateRetentionDays: 7,
			UploadedRetentionDays:     30,
			QueueRetentionDays:        7,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			OnBatch:        true,
			OnUpload:       true,
			OnError:        true,
		},
	}
}

func defaultThemeColors() map[string]string {
	return map[string]string{
		"hope":     "0x2E4A7D",
		"strength": "0x5C2A2A",
		"peace":    "0x2F5D50",
		"love":     "0x6B2D4F",
		"faith":    "0x3D3A6B",
		"wisdom":   "0x4D4528",
		"default":  "0x1F2430",
	}
}
