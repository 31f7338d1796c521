package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/CMC-Global-Team/RiverFlow-Server-sub000/internal/model"
)

// FileFormat returns the explicit format, or the one implied by the file extension.
func FileFormat(filename, format string) (string, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "json"
		}
	}
	switch format {
	case "json", "yaml":
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// FileExport exports a mindmap to a file in the specified format (JSON or YAML).
func FileExport(mindmap *model.Mindmap, filename string, format string) error {
	format, err := FileFormat(filename, format)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case "json":
		data, err = json.MarshalIndent(mindmap, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(mindmap)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal mindmap: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// FileImport imports a mindmap from a file in the specified format (JSON or YAML).
func FileImport(filename string, format string) (*model.Mindmap, error) {
	format, err := FileFormat(filename, format)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var imported model.Mindmap
	switch format {
	case "json":
		err = json.Unmarshal(data, &imported)
	case "yaml":
		err = yaml.Unmarshal(data, &imported)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal data: %w", err)
	}

	return &imported, nil
}
