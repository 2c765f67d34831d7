// Package drive stores blacklist evidence in Google Drive.
package drive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/PancyStudios/PancyGuard/pkg/storage"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const listFields = "files(id, name, mimeType, modifiedTime, size)"

// Client implements storage.Storage on the Drive v3 API
type Client struct {
	svc *gdrive.Service
	// parent is the folder new evidence folders are created in, empty for root
	parent string
}

var _ storage.Storage = (*Client)(nil)

// New authenticates with a service account credentials file
func New(ctx context.Context, credentialsFile, parentFolder string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gdrive.DriveScope),
	}, opts...)
	return newClient(ctx, parentFolder, opts...)
}

func newClient(ctx context.Context, parentFolder string, opts ...option.ClientOption) (*Client, error) {
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creando servicio de Drive: %w", err)
	}
	return &Client{svc: svc, parent: parentFolder}, nil
}

// wrap classifies Drive API errors
func wrap(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 403:
			return errors.Forbidden(op, err)
		case 404:
			return errors.NotFound(fmt.Sprintf("%s: %v", op, err))
		}
	}
	return errors.External(op, err)
}

func (c *Client) shareWithAnyone(ctx context.Context, fileID string) error {
	_, err := c.svc.Permissions.Create(fileID, &gdrive.Permission{Type: "anyone", Role: "reader"}).
		Context(ctx).Do()
	return err
}

func (c *Client) CreateFolder(ctx context.Context, name string) (string, error) {
	meta := &gdrive.File{Name: name, MimeType: storage.FolderMimeType}
	if c.parent != "" {
		meta.Parents = []string{c.parent}
	}

	f, err := c.svc.Files.Create(meta).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", wrap(fmt.Sprintf("crear carpeta %q", name), err)
	}
	if f.Id == "" {
		return "", errors.External(fmt.Sprintf("crear carpeta %q", name), fmt.Errorf("respuesta sin id"))
	}
	if err := c.shareWithAnyone(ctx, f.Id); err != nil {
		return "", wrap(fmt.Sprintf("compartir carpeta %q", name), err)
	}

	logger.Debug(fmt.Sprintf("Carpeta '%s' creada con ID %s", name, f.Id), "Drive")
	return f.Id, nil
}

func (c *Client) UploadFile(ctx context.Context, name, mimeType string, r io.Reader, folderID string) (string, error) {
	meta := &gdrive.File{Name: name, Parents: []string{folderID}}
	f, err := c.svc.Files.Create(meta).
		Media(r, googleapi.ContentType(mimeType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", wrap(fmt.Sprintf("subir %q", name), err)
	}
	if err := c.shareWithAnyone(ctx, f.Id); err != nil {
		return "", wrap(fmt.Sprintf("compartir %q", name), err)
	}
	return f.Id, nil
}

func (c *Client) ListFiles(ctx context.Context, folderID string, imagesOnly bool) ([]storage.FileMeta, error) {
	folderID = strings.Trim(folderID, "`")
	q := fmt.Sprintf("'%s' in parents and trashed = false", strings.ReplaceAll(folderID, "'", `\'`))
	if imagesOnly {
		q += " and mimeType contains 'image/'"
	}

	var out []storage.FileMeta
	err := c.svc.Files.List().Q(q).Fields(listFields, "nextPageToken").Context(ctx).
		Pages(ctx, func(list *gdrive.FileList) error {
			for _, f := range list.Files {
				meta := storage.FileMeta{ID: f.Id, Name: f.Name, MimeType: f.MimeType, Size: f.Size}
				if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
					meta.ModifiedTime = t
				}
				out = append(out, meta)
			}
			return nil
		})
	if err != nil {
		return nil, wrap(fmt.Sprintf("listar carpeta %s", folderID), err)
	}
	return out, nil
}

func (c *Client) DirectImageURL(fileID string) string { return storage.DirectImageURL(fileID) }

func (c *Client) FolderLink(folderID string) string { return storage.FolderLink(folderID) }
