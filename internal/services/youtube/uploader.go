package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"versereel/internal/config"
	"versereel/internal/logging"
	"versereel/internal/services"
	"versereel/internal/stage"
)

// ShortsURLPrefix prefixes the public URL of an uploaded short.
const ShortsURLPrefix = "https://youtube.com/shorts/"

// Uploader publishes finished videos through the YouTube Data API v3.
type Uploader struct {
	cfg        config.Upload
	logger     *slog.Logger
	clientOpts []option.ClientOption
}

// Option customizes an Uploader.
type Option func(*Uploader)

// WithClientOptions replaces refresh-token authentication with explicit API
// client options, e.g. a test endpoint.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(u *Uploader) { u.clientOpts = opts }
}

// NewUploader constructs the upload stage.
func NewUploader(cfg config.Upload, logger *slog.Logger, opts ...Option) *Uploader {
	u := &Uploader{cfg: cfg, logger: logging.NewComponentLogger(logger, "youtube")}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// SetLogger implements stage.LoggerAware.
func (u *Uploader) SetLogger(logger *slog.Logger) {
	u.logger = logging.NewComponentLogger(logger, "youtube")
}

// Configured reports whether the uploader can authenticate.
func (u *Uploader) Configured() bool {
	return len(u.clientOpts) > 0 || u.missingCredentials() == ""
}

func (u *Uploader) missingCredentials() string {
	var missing []string
	if strings.TrimSpace(u.cfg.ClientID) == "" {
		missing = append(missing, "client_id")
	}
	if strings.TrimSpace(u.cfg.ClientSecret) == "" {
		missing = append(missing, "client_secret")
	}
	if strings.TrimSpace(u.cfg.RefreshToken) == "" {
		missing = append(missing, "refresh_token")
	}
	return strings.Join(missing, ", ")
}

func (u *Uploader) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if missing := u.missingCredentials(); missing != "" {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "auth", "missing "+missing, nil)
	}
	conf := &oauth2.Config{
		ClientID:     u.cfg.ClientID,
		ClientSecret: u.cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{yt.YoutubeUploadScope},
	}
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: u.cfg.RefreshToken}), nil
}

func (u *Uploader) service(ctx context.Context) (*yt.Service, error) {
	opts := u.clientOpts
	if len(opts) == 0 {
		ts, err := u.tokenSource(ctx)
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{option.WithTokenSource(ts)}
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return svc, nil
}

// Upload implements stage.Uploader.
func (u *Uploader) Upload(ctx context.Context, req stage.UploadRequest) (stage.UploadResult, error) {
	if req.Path == "" {
		return stage.UploadResult{}, errors.New("upload: video path required")
	}
	svc, err := u.service(ctx)
	if err != nil {
		return stage.UploadResult{}, err
	}

	f, err := os.Open(req.Path)
	if err != nil {
		return stage.UploadResult{}, fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	meta := req.Metadata
	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           meta.Privacy,
			SelfDeclaredMadeForKids: meta.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	if info, err := f.Stat(); err == nil {
		u.logger.Info("uploading video",
			logging.String("title", meta.Title),
			logging.String("privacy", meta.Privacy),
			logging.Int64("size_bytes", info.Size()),
		)
	}
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
	if err != nil {
		return stage.UploadResult{}, services.Wrap(services.ErrTransient, "upload", "videos.insert", "", err)
	}
	if uploaded.Id == "" {
		return stage.UploadResult{}, services.Wrap(services.ErrExternalTool, "upload", "videos.insert", "response carried no video id", nil)
	}
	return stage.UploadResult{RemoteID: uploaded.Id, RemoteURL: ShortsURLPrefix + uploaded.Id}, nil
}

// HealthCheck verifies the refresh token can be exchanged.
func (u *Uploader) HealthCheck(ctx context.Context) stage.Health {
	const name = "YouTube"
	if len(u.clientOpts) > 0 {
		return stage.Healthy(name)
	}
	ts, err := u.tokenSource(ctx)
	if err != nil {
		return stage.Unhealthy(name, "credentials not configured")
	}
	if _, err := ts.Token(); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("token refresh failed: %v", err))
	}
	return stage.Healthy(name)
}
