package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/closedform/internal/db"
	"github.com/banshee-data/closedform/internal/location"
	"github.com/banshee-data/closedform/internal/version"
)

const smallScene = `
scene_height: 8
scene_width: 9
scene_views: 12
corrupt_fraction: 0.1
seed: 3
workers: 2
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &out))
	assert.Equal(t, version.String("closedform")+"\n", out.String())
}

func TestRunWritesAllOutputs(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "closedform.db")
	plotDir := filepath.Join(dir, "plots")
	plyPath := filepath.Join(dir, "cloud.ply")

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-config", writeConfig(t, dir, smallScene),
		"-locations", "plane",
		"-db", dbPath,
		"-plots", plotDir,
		"-ply", plyPath,
	}, &out)
	require.NoError(t, err)

	logs := out.String()
	assert.Contains(t, logs, "solve finished")
	assert.Contains(t, logs, "closed form: 56 points, 12 views")

	ply, err := os.ReadFile(plyPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(ply), "ply\n"))
	assert.Contains(t, string(ply), "element vertex 56")

	for _, name := range []string{"plane_seed3_convergence.png", "plane_seed3_inliers.png", "plane_seed3_deviation.png", "report.html"} {
		info, err := os.Stat(filepath.Join(plotDir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}

	store, err := db.OpenDB(dbPath)
	require.NoError(t, err)
	defer store.Close()
	scenes, err := store.ListScenes()
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, location.KindPlane, scenes[0].Kind)
	assert.Equal(t, 56, scenes[0].Points)

	solve, err := store.LatestSolve(scenes[0].SceneID)
	require.NoError(t, err)
	assert.Equal(t, 12, solve.Views)
	assert.Len(t, solve.Result.Normals, 56)
}

func TestRunFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, smallScene+"locations: plane\nlog_level: warn\n")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", cfg, "-locations", "depth map", "-log-level", "info"}, &out))
	assert.Contains(t, out.String(), "depth map")
}

func TestRunRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	assert.Error(t, run(context.Background(), []string{"-config", filepath.Join(dir, "missing.yaml")}, &out))
	assert.Error(t, run(context.Background(), []string{"-config", writeConfig(t, dir, smallScene), "-locations", "mesh"}, &out))
	assert.Error(t, run(context.Background(), []string{"-config", writeConfig(t, dir, smallScene), "-log-level", "loud"}, &out))
	assert.Error(t, run(context.Background(), []string{"-no-such-flag"}, &out))
}

func TestRunHonoursCancelledContext(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	assert.ErrorIs(t, run(ctx, []string{"-config", writeConfig(t, dir, smallScene)}, &out), context.Canceled)
}
