package providers

import (
	"fmt"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/racingnotes/racingnotes-server/internal/blob"
	"github.com/racingnotes/racingnotes-server/internal/config"
	"github.com/racingnotes/racingnotes-server/internal/logger"
	"github.com/racingnotes/racingnotes-server/internal/metrics"
)

// BlobStorage groups the blob client with the on-disk backend when one is in use.
type BlobStorage struct {
	Client *blob.Client
	Local  *blob.LocalBackend // nil unless storage.backend is local
}

// ProvideBlobStorage builds the configured blob backend and wraps it in a client.
func ProvideBlobStorage(i do.Injector) (*BlobStorage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	storage := &BlobStorage{}
	var backend blob.Backend

	switch cfg.Storage.Backend {
	case config.BackendLocal:
		local, err := blob.NewLocalBackend(
			cfg.Storage.Local.Path,
			cfg.Storage.PublicBaseURL,
			uint64(cfg.Storage.Local.MinFreeMB)*1024*1024,
		)
		if err != nil {
			return nil, fmt.Errorf("local storage: %w", err)
		}
		storage.Local = local
		backend = local

	case config.BackendHTTP:
		httpBackend, err := blob.NewHTTPBackend(
			cfg.Storage.HTTP.Endpoint,
			cfg.Storage.Bucket,
			cfg.Storage.HTTP.APIKey,
			&http.Client{Timeout: cfg.Storage.Timeout},
		)
		if err != nil {
			return nil, fmt.Errorf("http storage: %w", err)
		}
		backend = httpBackend

	case config.BackendSFTP:
		sftpBackend, err := blob.NewSFTPBackend(blob.SFTPConfig{
			Host:       cfg.Storage.SFTP.Host,
			Port:       cfg.Storage.SFTP.Port,
			Username:   cfg.Storage.SFTP.Username,
			Password:   cfg.Storage.SFTP.Password,
			KeyFile:    cfg.Storage.SFTP.KeyFile,
			KnownHosts: cfg.Storage.SFTP.KnownHosts,
			Path:       cfg.Storage.SFTP.Path,
			BaseURL:    cfg.Storage.PublicBaseURL,
			Timeout:    cfg.Storage.Timeout,
		}, log.WithComponent("sftp"))
		if err != nil {
			return nil, fmt.Errorf("sftp storage: %w", err)
		}
		backend = sftpBackend

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	storage.Client = blob.NewClient(backend, cfg.Storage.Timeout, m, log.WithComponent("blob"))

	log.Info("Blob storage initialized", "backend", backend.Name())

	return storage, nil
}
