package http

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// uploadSaver writes product images under a single directory, one file per
// upload, named by a fresh uuid so uploads never collide.
type uploadSaver struct {
	dir string
}

func newUploadSaver(dir string) *uploadSaver {
	return &uploadSaver{dir: dir}
}

func (u *uploadSaver) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid v7: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	name := id.String() + ext
	path := filepath.Join(u.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return name, nil
}

// Remove deletes a previously saved upload. Used to roll back an upload whose
// form was rejected, so the name is trusted to come from Save.
func (u *uploadSaver) Remove(name string) error {
	if name == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(u.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}
