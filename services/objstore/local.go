// Package objstore stores uploaded material files.
package objstore

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cursohub/cursohub/core/material"
)

const urlPrefix = "/uploads/"

// localStorage writes files under <root>/uploads and serves them from
// /uploads/. Swap for a cloud-backed implementation in deployments that
// need one.
type localStorage struct {
	root string
}

var _ material.ObjectStorage = (*localStorage)(nil)

func NewLocalStorage(workDir string) (*localStorage, error) {
	root := filepath.Join(workDir, "uploads")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating uploads dir")
	}
	return &localStorage{root: root}, nil
}

func (s *localStorage) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	fileName := uuid.New().String() + "-" + sanitize(name)
	file, err := os.Create(filepath.Join(s.root, fileName))
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	if _, err = io.Copy(file, r); err != nil {
		return "", errors.Wrap(err, "writing file")
	}
	return urlPrefix + fileName, nil
}

func (s *localStorage) Remove(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, urlPrefix) {
		return nil // not ours
	}
	name := sanitize(strings.TrimPrefix(url, urlPrefix))
	if err := os.Remove(filepath.Join(s.root, name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}

// Root is the directory static file serving should point at.
func (s *localStorage) Root() string { return s.root }

func sanitize(name string) string {
	name = path.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
