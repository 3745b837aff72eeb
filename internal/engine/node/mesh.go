package node

import "fmt"

// Transparency classifies how a mesh must be blended.
type Transparency int

const (
	// Opaque meshes are drawn immediately in any order.
	Opaque Transparency = iota
	// FullyTransparent meshes use a binary alpha test and are order-insensitive.
	FullyTransparent
	// PartiallyTransparent meshes alpha-blend and must be drawn back to front.
	PartiallyTransparent
)

// String returns a human-readable tag name.
func (t Transparency) String() string {
	switch t {
	case Opaque:
		return "Opaque"
	case FullyTransparent:
		return "FullyTransparent"
	case PartiallyTransparent:
		return "PartiallyTransparent"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// ParseTransparency converts a tag name (as produced by String, or its
// lower-case short form) to a Transparency.
func ParseTransparency(s string) (Transparency, error) {
	switch s {
	case "Opaque", "opaque", "":
		return Opaque, nil
	case "FullyTransparent", "full", "cutout":
		return FullyTransparent, nil
	case "PartiallyTransparent", "partial", "blend":
		return PartiallyTransparent, nil
	}
	return Opaque, fmt.Errorf("unknown transparency %q", s)
}

// Material holds texture handles for a mesh. A zero handle means the map is
// absent; the shader is told through MaterialFlags rather than receiving a
// substitute texture.
type Material struct {
	Name      string
	Diffuse   uint32
	NormalMap uint32
	AOMap     uint32
}

// MaterialFlags reports which optional maps a material provides.
type MaterialFlags struct {
	HasDiffuse   bool
	HasNormalMap bool
	HasAOMap     bool
}

// Flags returns the optional-map flags for m. A nil material has none.
func (m *Material) Flags() MaterialFlags {
	if m == nil {
		return MaterialFlags{}
	}
	return MaterialFlags{
		HasDiffuse:   m.Diffuse != 0,
		HasNormalMap: m.NormalMap != 0,
		HasAOMap:     m.AOMap != 0,
	}
}

// Mesh is renderable geometry. Meshes and materials are shared by pointer
// between any number of nodes; the transparency tag belongs to the mesh,
// not to the node drawing it.
type Mesh struct {
	Name         string
	Handle       uint32 // Backend geometry handle
	IndexCount   int32
	Transparency Transparency
	Material     *Material
}
