// Package storage defines the evidence store behind blacklist requests. The
// drive subpackage implements it on Google Drive.
package storage

import (
	"context"
	"io"
	"time"
)

// FolderMimeType is the mime type Drive uses for folders
const FolderMimeType = "application/vnd.google-apps.folder"

// FileMeta describes a stored file
type FileMeta struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modifiedTime"`
}

// Storage is the subset of the cloud storage API used for evidence
type Storage interface {
	// CreateFolder creates a publicly readable folder and returns its ID
	CreateFolder(ctx context.Context, name string) (string, error)
	UploadFile(ctx context.Context, name, mimeType string, r io.Reader, folderID string) (string, error)
	ListFiles(ctx context.Context, folderID string, imagesOnly bool) ([]FileMeta, error)
	DirectImageURL(fileID string) string
	FolderLink(folderID string) string
}

// FolderLink is the browser link of a Drive folder
func FolderLink(folderID string) string {
	return "https://drive.google.com/drive/folders/" + folderID
}

// DirectImageURL is a link that renders a Drive image inline, usable in embeds
func DirectImageURL(fileID string) string {
	return "https://drive.usercontent.google.com/download?id=" + fileID + "&export=view&authuser=0"
}
