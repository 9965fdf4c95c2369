package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/tileboard/internal/core/board"
	"github.com/zeusync/tileboard/internal/core/geom"
	"github.com/zeusync/tileboard/internal/core/instancing"
	"github.com/zeusync/tileboard/internal/core/storage/interfaces"
)

func openStore(t *testing.T) *LayoutStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "layouts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleLayout() board.Layout {
	return board.Layout{
		Groups: []board.GroupLayout{
			{Name: "first", Transforms: []mgl32.Mat4{
				geom.At(mgl32.Vec3{0.5, 0.125, 0.5}),
				geom.Compose(geom.At(mgl32.Vec3{1.5, 1.125, 0.5}), geom.QuarterTurnY),
			}},
			{Name: "second", Transforms: []mgl32.Mat4{}},
		},
		Active: []instancing.Ref{{Group: "first", Index: 1}},
	}
}

func TestSaveLoad(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "castle", sampleLayout())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := s.Load(ctx, "castle")
	require.NoError(t, err)
	if diff := cmp.Diff(sampleLayout(), got); diff != "" {
		t.Fatalf("layout mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveReplacesByName(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	clock := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time { return clock }

	id, err := s.Save(ctx, "castle", sampleLayout())
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	_, err = s.Save(ctx, "moat", board.Layout{})
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	smaller := sampleLayout()
	smaller.Groups[0].Transforms = smaller.Groups[0].Transforms[:1]
	smaller.Active = nil
	again, err := s.Save(ctx, "castle", smaller)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "castle", list[0].Name)
	assert.Equal(t, 1, list[0].Tiles)
	assert.Equal(t, 0, list[0].Active)
	assert.True(t, list[0].UpdatedAt.After(list[0].CreatedAt))
	assert.Equal(t, "moat", list[1].Name)
}

func TestMissingLayouts(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "nowhere")
	assert.ErrorIs(t, err, interfaces.ErrLayoutNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "nowhere"), interfaces.ErrLayoutNotFound)

	_, err = s.Save(ctx, "  ", board.Layout{})
	assert.Error(t, err)

	_, err = s.Save(ctx, "tmp", board.Layout{})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "tmp"))
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReopenKeepsLayouts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouts.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Save(context.Background(), "castle", sampleLayout())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Load(context.Background(), "castle")
	assert.NoError(t, err)
}
