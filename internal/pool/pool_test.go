package pool

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diforge/difc/internal/geomtypes"
)

func TestPointPoolDedupesWithinEpsilon(t *testing.T) {
	p := NewPointPool(1e-4)
	a := p.Intern(mgl32.Vec3{1, 2, 3})
	b := p.Intern(mgl32.Vec3{1.00001, 2, 3})
	c := p.Intern(mgl32.Vec3{5, 5, 5})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, p.Len())
}

func TestPlanePoolInternsInversePlaneWithFlipBit(t *testing.T) {
	p := NewPlanePool(1e-4, 1e-4)
	fwd := geomtypes.Plane{Normal: mgl32.Vec3{0, 0, 1}, Distance: -5}
	idxFwd := p.InternFlipIndex(fwd)

	back := fwd.Negated()
	idxBack := p.InternFlipIndex(back)

	require.Equal(t, 1, p.Len())
	baseIdx, flipped := Resolve(idxBack)
	assert.True(t, flipped)
	assert.Equal(t, idxFwd, baseIdx)
}

func TestMaterialPoolPreservesFirstSeenOrder(t *testing.T) {
	p := NewMaterialPool()
	assert.Equal(t, 0, p.Intern("rock"))
	assert.Equal(t, 1, p.Intern("grass"))
	assert.Equal(t, 0, p.Intern("rock"))
	assert.Equal(t, []string{"rock", "grass"}, p.Names())
}

func TestEmitStringPoolInternsByExactContent(t *testing.T) {
	p := NewEmitStringPool()
	off1 := p.Intern([]byte{1, 2, 3})
	off2 := p.Intern([]byte{4, 5})
	off3 := p.Intern([]byte{1, 2, 3})

	assert.Equal(t, off1, off3)
	assert.NotEqual(t, off1, off2)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, p.Bytes())
}
