package board

import (
	"fmt"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/tileboard/internal/core/geom"
	"github.com/zeusync/tileboard/internal/core/observability/log"
)

// Populate covers the TilesNumber x TilesNumber grid centred on the origin,
// assigning every cell to a random group. It returns the number of tiles added.
func (b *Board) Populate(rng *rand.Rand) (int, error) {
	n := b.opts.TilesNumber
	offset := float32(n-1) / 2
	names := b.registry.Names()

	added := 0
	for x := 0; x < n; x++ {
		for z := 0; z < n; z++ {
			group := names[rng.IntN(len(names))]
			pos := mgl32.Vec3{offset - float32(x), tileRestY, offset - float32(z)}
			if _, err := b.registry.Add(group, geom.At(pos)); err != nil {
				return added, fmt.Errorf("populate cell %d,%d: %w", x, z, err)
			}
			added++
		}
	}
	b.log.Info("board populated", log.Int("tiles", added))
	return added, nil
}
