package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"SensorStream/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SaveWritesJSONArray(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	readings := []models.Reading{
		{X: 0.1, Y: 0.2, Z: 9.8, Timestamp: 1},
		{X: -0.3, Y: 0, Z: 9.7, Timestamp: 2},
	}

	name, err := s.Save(context.Background(), "sensor_data_1.json", readings)
	require.NoError(t, err)
	assert.Equal(t, "sensor_data_1.json", name)

	b, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	var got []models.Reading
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, readings, got)
}

func TestFileStore_EmptyBatchIsEmptyArray(t *testing.T) {
	dir := t.TempDir()
	name, err := NewFileStore(dir).Save(context.Background(), "sensor_data_2.json", nil)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))
}

func TestFileStore_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	first, err := s.Save(context.Background(), "sensor_data_3.json", []models.Reading{{X: 1}})
	require.NoError(t, err)
	second, err := s.Save(context.Background(), "sensor_data_3.json", []models.Reading{{X: 2}})
	require.NoError(t, err)

	assert.Equal(t, "sensor_data_3.json", first)
	assert.Equal(t, "sensor_data_3-1.json", second)
}

func TestFileStore_FailsOnUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewFileStore(filepath.Join(blocker, "sub")).Save(context.Background(), "x.json", nil)
	assert.Error(t, err)
}

func TestFileStore_RejectsPathNames(t *testing.T) {
	_, err := NewFileStore(t.TempDir()).Save(context.Background(), "../escape.json", nil)
	assert.ErrorIs(t, err, models.ErrInvalidName)
}
