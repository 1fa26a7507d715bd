package fleadb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DescriptorVersion is the current descriptor format version
	DescriptorVersion = 1

	// DescriptorFilename is the descriptor file inside a database directory
	DescriptorFilename = "flea.json"
)

// Descriptor records the schema a database directory was created with and
// the hash of the directory when it was last closed.
type Descriptor struct {
	Version    int             `json:"version"`
	JSONSchema json.RawMessage `json:"jsonSchema"`
	Hash       string          `json:"hash,omitempty"`
}

// LoadDescriptor reads a descriptor from disk. ok is false when the file
// does not exist.
func LoadDescriptor(path string) (d *Descriptor, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read descriptor: %w", err)
	}

	var desc Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, false, fmt.Errorf("failed to parse descriptor: %w", err)
	}
	if len(desc.JSONSchema) == 0 {
		return nil, false, fmt.Errorf("descriptor %s has no schema", path)
	}
	return &desc, true, nil
}

// Save writes the descriptor to disk atomically.
func (d *Descriptor) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create descriptor directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write descriptor temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename descriptor file: %w", err)
	}

	return nil
}
