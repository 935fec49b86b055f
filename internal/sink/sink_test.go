// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"context"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/accumen_camera/internal/calibration"
	"github.com/relabs-tech/accumen_camera/internal/camera"
)

func fixedSink(t *testing.T, inset calibration.Inset) *FileSink {
	t.Helper()
	s, err := New(t.TempDir(), inset)
	require.NoError(t, err)
	s.Now = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func sample(t *testing.T) calibration.FrameSample {
	t.Helper()
	raw, err := camera.TwoToneFrame(8, 4, 20, 200)
	require.NoError(t, err)
	return calibration.FrameSample{Exposure: 300, ContrastControl: 32, Raw: raw}
}

func TestNewRequiresExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := New(filepath.Join(dir, "missing"), calibration.Inset{})
	assert.Error(t, err)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file, calibration.Inset{})
	assert.Error(t, err)
}

func TestPersistCropsAndNamesByTimestamp(t *testing.T) {
	s := fixedSink(t, calibration.Inset{X: 2, Y: 1})

	path, err := s.Persist(context.Background(), sample(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir, "1700000000.jpg"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Width)
	assert.Equal(t, 2, cfg.Height)
}

func TestPersistDoesNotOverwrite(t *testing.T) {
	s := fixedSink(t, calibration.Inset{})

	first, err := s.Persist(context.Background(), sample(t))
	require.NoError(t, err)
	second, err := s.Persist(context.Background(), sample(t))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, filepath.Join(s.Dir, "1700000000-1.jpg"), second)
}

func TestPersistRejectsBadFrames(t *testing.T) {
	s := fixedSink(t, calibration.Inset{X: 4})

	_, err := s.Persist(context.Background(), calibration.FrameSample{})
	assert.Error(t, err, "no frame data")

	_, err = s.Persist(context.Background(), calibration.FrameSample{Raw: []byte("junk")})
	assert.Error(t, err, "undecodable")

	_, err = s.Persist(context.Background(), sample(t))
	assert.Error(t, err, "inset leaves nothing")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Persist(ctx, calibration.FrameSample{Raw: sample(t).Raw})
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
