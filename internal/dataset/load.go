package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/topicq/internal/model"
)

// ErrDataUnavailable marks every dataset load failure.
var ErrDataUnavailable = errors.New("data unavailable")

// Format selects the dataset document encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatForPath picks the format from the file extension. JSON is the default.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads a raw dataset document from path.
func LoadFile(ctx context.Context, path string) (model.RawDataset, error) {
	if err := ctx.Err(); err != nil {
		return model.RawDataset{}, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if strings.TrimSpace(path) == "" {
		return model.RawDataset{}, fmt.Errorf("%w: dataset path is empty", ErrDataUnavailable)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RawDataset{}, fmt.Errorf("%w: failed to read %s: %w", ErrDataUnavailable, path, err)
	}
	raw, err := Decode(data, FormatForPath(path))
	if err != nil {
		return model.RawDataset{}, fmt.Errorf("%w: %s: %w", ErrDataUnavailable, path, err)
	}
	return raw, nil
}

// Decode parses a dataset document. The document must be an object with a
// "groups" sequence; any other shape is an error.
func Decode(data []byte, format Format) (model.RawDataset, error) {
	switch format {
	case FormatYAML:
		return decodeYAML(data)
	default:
		return decodeJSON(data)
	}
}

func decodeJSON(data []byte) (model.RawDataset, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.RawDataset{}, fmt.Errorf("failed to decode dataset: %w", err)
	}
	groupsRaw, ok := doc["groups"]
	if !ok || bytes.Equal(bytes.TrimSpace(groupsRaw), []byte("null")) {
		return model.RawDataset{}, fmt.Errorf("dataset has no groups")
	}
	var groups []model.RawGroup
	if err := json.Unmarshal(groupsRaw, &groups); err != nil {
		return model.RawDataset{}, fmt.Errorf("failed to decode groups: %w", err)
	}
	return model.RawDataset{Groups: groups}, nil
}

func decodeYAML(data []byte) (model.RawDataset, error) {
	var doc struct {
		Groups *[]model.RawGroup `yaml:"groups"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return model.RawDataset{}, fmt.Errorf("failed to decode dataset: %w", err)
	}
	if doc.Groups == nil {
		return model.RawDataset{}, fmt.Errorf("dataset has no groups")
	}
	return model.RawDataset{Groups: *doc.Groups}, nil
}

// Open loads, normalizes and indexes the dataset at path.
func Open(ctx context.Context, path string, cmp Comparator) (*Catalog, error) {
	raw, err := LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewCatalog(Normalize(raw, cmp), cmp), nil
}
