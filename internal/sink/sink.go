// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sink persists the frame a calibration run settled on.
package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/image/draw"

	"github.com/relabs-tech/accumen_camera/internal/calibration"
)

// maxSuffix bounds the collision suffixes tried for one timestamp.
const maxSuffix = 100

// FileSink crops accepted frames and writes them as JPEG files named after
// the capture time in Unix seconds.
type FileSink struct {
	Dir     string
	Inset   calibration.Inset
	Quality int
	Now     func() time.Time
}

// New returns a FileSink writing into dir, which must already exist.
func New(dir string, inset calibration.Inset) (*FileSink, error) {
	if err := CheckDir(dir); err != nil {
		return nil, err
	}
	return &FileSink{Dir: dir, Inset: inset, Quality: 95, Now: time.Now}, nil
}

// CheckDir fails unless dir exists and is a directory.
func CheckDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory %q: %w", dir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("output directory %q is not a directory", dir)
	}
	return nil
}

// Persist crops the sample's frame and writes it. The returned path is
// unique within Dir. Nothing is written once ctx is done.
func (s *FileSink) Persist(ctx context.Context, sample calibration.FrameSample) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(sample.Raw) == 0 {
		return "", errors.New("sink: sample has no frame data")
	}
	src, _, err := image.Decode(bytes.NewReader(sample.Raw))
	if err != nil {
		return "", fmt.Errorf("sink: decode frame: %w", err)
	}
	r, err := s.Inset.Apply(src.Bounds())
	if err != nil {
		return "", fmt.Errorf("sink: %w", err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, src, r, draw.Src, nil)

	f, path, err := s.create()
	if err != nil {
		return "", err
	}
	if err := jpeg.Encode(f, dst, &jpeg.Options{Quality: s.Quality}); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("sink: encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("sink: close %s: %w", path, err)
	}
	log.Printf("sink: saved %dx%d frame to %s", r.Dx(), r.Dy(), path)
	return path, nil
}

// create opens <unix>.jpg, or <unix>-N.jpg when that name is taken.
func (s *FileSink) create() (*os.File, string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	base := strconv.FormatInt(now().Unix(), 10)
	for i := 0; i < maxSuffix; i++ {
		name := base + ".jpg"
		if i > 0 {
			name = fmt.Sprintf("%s-%d.jpg", base, i)
		}
		path := filepath.Join(s.Dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("sink: create %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("sink: no free file name for %s in %s", base, s.Dir)
}
