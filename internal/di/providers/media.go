package providers

import (
	"github.com/samber/do/v2"

	"github.com/racingnotes/racingnotes-server/internal/config"
	"github.com/racingnotes/racingnotes-server/internal/logger"
	"github.com/racingnotes/racingnotes-server/internal/media"
	"github.com/racingnotes/racingnotes-server/internal/media/ffmpeg"
	"github.com/racingnotes/racingnotes-server/internal/media/images"
	"github.com/racingnotes/racingnotes-server/internal/media/validate"
	"github.com/racingnotes/racingnotes-server/internal/media/video"
	"github.com/racingnotes/racingnotes-server/internal/metrics"
)

// ProvideMediaPipeline provides the upload validator and compressors.
// Without ffmpeg, images still compress and video/HEIC uploads are rejected.
func ProvideMediaPipeline(i do.Injector) (*media.Pipeline, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	runner := ffmpeg.New(cfg.Media.FFmpegPath, cfg.Media.FFprobePath, log.WithComponent("ffmpeg"))

	imageOpts := images.DefaultOptions()
	imageOpts.MaxWidth = cfg.Media.MaxWidth
	imageOpts.MaxHeight = cfg.Media.MaxHeight
	imageOpts.Quality = cfg.Media.ImageQuality

	var stills images.StillDecoder
	var transcoder media.VideoTranscoder
	if runner.Available() {
		stills = runner

		videoOpts := video.DefaultOptions()
		videoOpts.MaxHeight = cfg.Media.VideoMaxHeight
		videoOpts.MaxWidth = cfg.Media.VideoMaxHeight * 16 / 9
		videoOpts.BitrateKbps = cfg.Media.VideoBitrateKbps
		videoOpts.Timeout = cfg.Media.TranscodeTimeout
		transcoder = video.NewTranscoder(runner, videoOpts, log.WithComponent("video"))
	}

	pipeline := media.NewPipeline(
		validate.New(cfg.Media.MaxUploadBytes()),
		images.NewCompressor(imageOpts, stills, log.WithComponent("images")),
		transcoder,
		m,
		log.WithComponent("media"),
	)

	log.Info("Media pipeline initialized",
		"max_upload_mb", cfg.Media.MaxUploadMB,
		"video", transcoder != nil,
	)

	return pipeline, nil
}
