package render

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-scene/internal/engine/node"
	"github.com/Faultbox/midgard-scene/pkg/math"
)

// recorder is a Backend that records everything it is asked to do.
type recorder struct {
	setups   []PassSetup
	calls    []DrawCall
	log      []string
	beginErr error
	target   ColorTarget
}

func (r *recorder) BeginPass(setup PassSetup) error {
	if r.beginErr != nil {
		return r.beginErr
	}
	r.setups = append(r.setups, setup)
	r.log = append(r.log, "begin "+setup.Kind.String())
	return nil
}

func (r *recorder) SetBlending(enabled bool) {
	r.log = append(r.log, fmt.Sprintf("blend %v", enabled))
}

func (r *recorder) Draw(call DrawCall) {
	r.calls = append(r.calls, call)
	r.log = append(r.log, "draw "+call.Mesh.Name)
}

func (r *recorder) EndPass() {
	r.log = append(r.log, "end")
}

func (r *recorder) ColorTarget() ColorTarget {
	return r.target
}

// callsIn returns the draw calls issued in pass.
func (r *recorder) callsIn(pass PassKind) []DrawCall {
	var out []DrawCall
	for _, c := range r.calls {
		if c.Pass == pass {
			out = append(out, c)
		}
	}
	return out
}

type postRecorder struct {
	src      []ColorTarget
	settings []PostSettings
	err      error
}

func (p *postRecorder) Process(src ColorTarget, s PostSettings) error {
	p.src = append(p.src, src)
	p.settings = append(p.settings, s)
	return p.err
}

func fullSet(base Program) ShaderSet {
	return ShaderSet{Opaque: base, Full: base + 1, Partial: base + 2}
}

func allShaders() Shaders {
	return Shaders{Directional: fullSet(10), Point: fullSet(20), Color: fullSet(30)}
}

// meshNode returns a node at pos holding one mesh with the given tag.
func meshNode(t *testing.T, parent *node.Node, name string, pos math.Vec3, tag node.Transparency) *node.Node {
	t.Helper()
	n := node.New(name)
	n.Transform.Position = pos
	n.AddMesh(&node.Mesh{Name: name, Transparency: tag})
	if parent != nil {
		require.NoError(t, parent.AddChild(n))
	}
	return n
}
