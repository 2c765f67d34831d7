package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
)

// Memory keeps folders and files in process. The bot falls back to it when
// no Drive credentials are configured; evidence is lost on restart.
type Memory struct {
	mu      sync.Mutex
	seq     int
	folders map[string]string
	files   map[string][]FileMeta
	data    map[string][]byte
}

var _ Storage = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		folders: make(map[string]string),
		files:   make(map[string][]FileMeta),
		data:    make(map[string][]byte),
	}
}

func (m *Memory) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *Memory) CreateFolder(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID("folder")
	m.folders[id] = name
	return id, nil
}

func (m *Memory) UploadFile(_ context.Context, name, mimeType string, r io.Reader, folderID string) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.folders[folderID]; !ok {
		return "", errors.NotFound(fmt.Sprintf("carpeta %s", folderID))
	}
	id := m.nextID("file")
	m.files[folderID] = append(m.files[folderID], FileMeta{
		ID:           id,
		Name:         name,
		MimeType:     mimeType,
		Size:         int64(len(body)),
		ModifiedTime: time.Now(),
	})
	m.data[id] = body
	return id, nil
}

func (m *Memory) ListFiles(_ context.Context, folderID string, imagesOnly bool) ([]FileMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []FileMeta
	for _, f := range m.files[folderID] {
		if imagesOnly && !strings.HasPrefix(f.MimeType, "image/") {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FolderName returns the name a folder was created with
func (m *Memory) FolderName(folderID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.folders[folderID]
	return name, ok
}

func (m *Memory) DirectImageURL(fileID string) string { return DirectImageURL(fileID) }

func (m *Memory) FolderLink(folderID string) string { return FolderLink(folderID) }
