package deform

import (
	"fmt"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/math"
)

// ApplyMapping writes every replacement into vertices. All indices are checked
// before the first write, so an out-of-range index leaves vertices untouched.
// When an index appears twice the later entry wins.
func ApplyMapping(vertices []math.Vec3, m Mapping) error {
	for _, r := range m {
		if r.Index < 0 || r.Index >= len(vertices) {
			return fmt.Errorf("%w: index %d, %d vertices", core.ErrIndexOutOfRange, r.Index, len(vertices))
		}
	}
	for _, r := range m {
		vertices[r.Index] = r.Position
	}
	return nil
}
