// Copyright (c) 2025 BVK Chaitanya

package browser

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed extension
var extensionFS embed.FS

const extensionManifest = "manifest.json"

// InstallExtension writes the bundled command extension into dir. An existing
// extension in the directory is left unchanged. Returns true if the bundle is
// written.
func InstallExtension(dir string) (bool, error) {
	if len(dir) == 0 {
		return false, fmt.Errorf("command extension dir cannot be empty: %w", ErrConfig)
	}
	if _, err := os.Stat(filepath.Join(dir, extensionManifest)); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("could not stat command extension manifest: %w", err)
	}

	bundle, err := fs.Sub(extensionFS, "extension")
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false, fmt.Errorf("could not create command extension dir %q: %w", dir, err)
	}
	// Manifest is written last so that a partial install is redone.
	names := []string{"background.js", extensionManifest}
	for _, name := range names {
		data, err := fs.ReadFile(bundle, name)
		if err != nil {
			return false, err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			return false, fmt.Errorf("could not write command extension file %q: %w", name, err)
		}
	}
	return true, nil
}
