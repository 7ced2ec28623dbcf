// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package blob stores attachment bytes as files in a local directory.
package blob

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for names that are not a single path element.
var ErrInvalidName = errors.New("invalid blob name")

// Dir writes blobs into one flat directory and serves them back.
type Dir struct {
	root      string
	urlPrefix string
}

// NewDir creates root if needed. urlPrefix is joined with the blob name to
// form public download URLs.
func NewDir(root, urlPrefix string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create attachment dir %s: %w", root, err)
	}
	return &Dir{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (d *Dir) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(d.root, name), nil
}

// Write creates name with data. An existing file is never overwritten.
func (d *Dir) Write(name string, data []byte) (string, error) {
	p, err := d.path(name)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(p)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return p, nil
}

// Remove deletes name; a missing file is not an error.
func (d *Dir) Remove(name string) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Open opens name for reading.
func (d *Dir) Open(name string) (*os.File, error) {
	p, err := d.path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// URL returns the public download URL of name.
func (d *Dir) URL(name string) string {
	return d.urlPrefix + "/" + url.PathEscape(name)
}
