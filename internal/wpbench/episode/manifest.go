// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package episode

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadManifest reads a YAML-encoded Manifest from path.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("episode: read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("episode: parse manifest %s: %w", path, err)
	}
	return m, nil
}

// LoadVerifiedStream loads the named episode set from manifest, checking its
// content hash and record count against the manifest entry before returning
// the decoded episodes. The caller gets either a verified stream or a
// *ManifestMismatchError / *LoadError describing why not.
func LoadVerifiedStream(manifest Manifest, name string) ([]Episode, error) {
	entry, ok := manifest[name]
	if !ok {
		return nil, fmt.Errorf("episode: unknown episode set %q", name)
	}

	raw, err := os.ReadFile(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("episode: read episode set %q at %s: %w", name, entry.Path, err)
	}

	episodes, err := LoadStream(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	if err := VerifyManifest(name, entry, raw, len(episodes)); err != nil {
		return nil, err
	}
	return episodes, nil
}
