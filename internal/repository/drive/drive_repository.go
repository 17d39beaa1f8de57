package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/dvbernardes/pastelbot/internal/config"
	"github.com/dvbernardes/pastelbot/internal/repository/ledger"
)

// Repository implements the ledger transport over the official Google Drive
// API: collections live as named CSV files, optionally inside one folder, and
// every save replaces the whole file.
type Repository struct {
	service  *driveapi.Service
	folderID string
	logger   *zap.Logger
}

// NewRepository builds a Google Drive backed transport instance.
func NewRepository(ctx context.Context, cfg config.DriveConfig, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := driveapi.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(driveapi.DriveScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize drive client: %w", err)
	}

	return &Repository{
		service:  service,
		folderID: cfg.FolderID,
		logger:   logger,
	}, nil
}

// Find returns the file ID for the given name, or an empty string when no
// such file exists.
func (r *Repository) Find(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("name='%s' and trashed=false", escapeQuery(name))
	if r.folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", r.folderID)
	}

	resp, err := r.service.Files.List().
		Q(query).
		Spaces("drive").
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("list %s: %w", name, err)
	}

	if len(resp.Files) == 0 {
		return "", nil
	}
	return resp.Files[0].Id, nil
}

// Fetch downloads the whole content of the identified file.
func (r *Repository) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := r.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileID, err)
	}
	return data, nil
}

// Replace overwrites the identified file, or creates a new one named name
// when fileID is empty.
func (r *Repository) Replace(ctx context.Context, name string, data []byte, fileID string) (string, error) {
	media := bytes.NewReader(data)

	if fileID != "" {
		if _, err := r.service.Files.Update(fileID, &driveapi.File{}).Media(media).Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("update %s: %w", name, err)
		}
		r.logger.Debug("file replaced", zap.String("name", name), zap.String("id", fileID))
		return fileID, nil
	}

	meta := &driveapi.File{Name: name, MimeType: "text/csv"}
	if r.folderID != "" {
		meta.Parents = []string{r.folderID}
	}
	created, err := r.service.Files.Create(meta).Media(media).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	r.logger.Debug("file created", zap.String("name", name), zap.String("id", created.Id))
	return created.Id, nil
}

func escapeQuery(name string) string {
	return strings.ReplaceAll(name, "'", `\'`)
}

var _ ledger.Transport = (*Repository)(nil)
