package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"lingobot/internal/modules/workflow/domain"
	workflowout "lingobot/internal/modules/workflow/port/out"
)

type FileManifestStore struct {
	basePath string
	path     string
}

func NewFileManifestStore(basePath string) workflowout.ManifestStore {
	return &FileManifestStore{basePath: basePath, path: filepath.Join(basePath, "drivers", "drivers.yaml")}
}

func (s *FileManifestStore) Load(_ context.Context) ([]domain.DriverManifest, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.DriverManifest{}, nil
		}
		return nil, fmt.Errorf("read driver manifest store: %w", err)
	}
	var file struct {
		Drivers []domain.DriverManifest `yaml:"drivers"`
	}
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("decode driver manifests: %w", err)
	}
	for i := range file.Drivers {
		if file.Drivers[i].Binary != "" && !filepath.IsAbs(file.Drivers[i].Binary) {
			file.Drivers[i].Binary = filepath.Clean(filepath.Join(s.basePath, file.Drivers[i].Binary))
		}
	}
	return file.Drivers, nil
}
