package settings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"molten-lyrics/pkg/fileutil"
)

// FileStore keeps settings in a TOML file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(ctx context.Context) (Settings, error) {
	s := Defaults()
	if _, err := os.Stat(f.path); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if _, err := toml.DecodeFile(f.path, &s); err != nil {
		return Defaults(), fmt.Errorf("failed to decode settings %s: %w", f.path, err)
	}
	return s.Sanitize(), nil
}

func (f *FileStore) Save(ctx context.Context, s Settings) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return fileutil.WriteFileAtomic(f.path, buf.Bytes(), 0644)
}
