package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"batchmark/internal/domain"

	"github.com/wb-go/wbf/zlog"
)

var ErrTemplateNotFound = errors.New("template not found")

// Store persists named config templates as JSON files in a single directory.
type Store struct {
	dir    string
	logger *zlog.Zerolog
}

func NewStore(dir string, logger *zlog.Zerolog) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create template directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) Save(t domain.Template) error {
	if err := domain.ValidateTemplate(t); err != nil {
		return err
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	if err := os.WriteFile(s.path(t.Name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}

	s.logger.Info().Str("template", t.Name).Msg("Template saved")
	return nil
}

// Load reads a template and validates it against the config schema. A
// template with unknown fields or out-of-domain values is rejected with
// ErrInvalidConfig rather than silently defaulted.
func (s *Store) Load(name string) (domain.Template, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Template{}, fmt.Errorf("%q: %w", name, ErrTemplateNotFound)
		}
		return domain.Template{}, fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()

	var t domain.Template
	if err := dec.Decode(&t); err != nil {
		return domain.Template{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if err := domain.ValidateTemplate(t); err != nil {
		return domain.Template{}, err
	}
	return t, nil
}

func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Delete(name string) error {
	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%q: %w", name, ErrTemplateNotFound)
		}
		return fmt.Errorf("failed to delete template: %w", err)
	}
	s.logger.Info().Str("template", name).Msg("Template deleted")
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, sanitizeName(name)+".json")
}

// sanitizeName keeps template names usable as file names.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, name)
}
