package storage

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
)

// MaxEvidenceFiles is the number of attachments a request may carry
const MaxEvidenceFiles = 5

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
}

// Attachment is an image uploaded together with a command
type Attachment struct {
	URL      string
	Filename string
}

// UploadResult summarizes an evidence upload
type UploadResult struct {
	Uploaded []string
	Skipped  []string
}

// CollectEvidence downloads every attachment and copies the images into
// folderID. Downloads that fail or are not png, jpeg or gif are skipped;
// only upload failures are returned.
func CollectEvidence(ctx context.Context, client *http.Client, st Storage, folderID string, files []Attachment) (*UploadResult, error) {
	res := &UploadResult{}
	for i, f := range files {
		if i >= MaxEvidenceFiles {
			res.Skipped = append(res.Skipped, f.Filename)
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
		if err != nil {
			res.Skipped = append(res.Skipped, f.Filename)
			continue
		}
		resp, err := client.Do(req)
		if err != nil {
			logger.Warn(fmt.Sprintf("No se pudo descargar %s: %v", f.URL, err), "Evidence")
			res.Skipped = append(res.Skipped, f.Filename)
			continue
		}

		contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if resp.StatusCode != http.StatusOK || !allowedImageTypes[contentType] {
			resp.Body.Close()
			logger.Warn(fmt.Sprintf("Descarga inválida o tipo no permitido para %s (%d %s)", f.URL, resp.StatusCode, contentType), "Evidence")
			res.Skipped = append(res.Skipped, f.Filename)
			continue
		}

		name := f.Filename
		if name == "" {
			name = path.Base(strings.SplitN(f.URL, "?", 2)[0])
		}
		id, err := st.UploadFile(ctx, name, contentType, resp.Body, folderID)
		resp.Body.Close()
		if err != nil {
			return res, errors.External(fmt.Sprintf("subir %s", name), err)
		}
		res.Uploaded = append(res.Uploaded, id)
	}
	return res, nil
}
