// Package render orders the per-frame draw passes over a scene graph: one
// depth pass per shadow-casting light, the color pass with its deferred
// back-to-front transparent list, and the post-processing hand-off.
//
// The package issues draw calls to a Backend and never touches the GPU API
// itself.
package render

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-scene/internal/engine/node"
)

// ErrMissingVariant is returned when a pass needs a shader program that was
// not configured.
var ErrMissingVariant = errors.New("missing shader variant")

// PassKind identifies the target and shader family of a traversal.
type PassKind int

const (
	DepthDirectional PassKind = iota
	DepthPoint
	Color
)

// String returns the pass name.
func (p PassKind) String() string {
	switch p {
	case DepthDirectional:
		return "DepthDirectional"
	case DepthPoint:
		return "DepthPoint"
	case Color:
		return "Color"
	default:
		return fmt.Sprintf("PassKind(%d)", int(p))
	}
}

// Depth reports whether the pass writes depth only.
func (p PassKind) Depth() bool {
	return p != Color
}

// Variant selects a program within a pass by transparency handling.
type Variant int

const (
	VariantOpaque Variant = iota
	VariantFullTransparent
	VariantPartialTransparent
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case VariantOpaque:
		return "opaque"
	case VariantFullTransparent:
		return "full-transparent"
	case VariantPartialTransparent:
		return "partial-transparent"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// VariantFor maps a mesh transparency tag to the variant that draws it.
func VariantFor(t node.Transparency) Variant {
	switch t {
	case node.FullyTransparent:
		return VariantFullTransparent
	case node.PartiallyTransparent:
		return VariantPartialTransparent
	default:
		return VariantOpaque
	}
}

// Program is an opaque handle to a compiled shader program. Zero means
// the program is absent.
type Program uint32

// ShaderSet holds the programs of one pass.
type ShaderSet struct {
	Opaque  Program
	Full    Program
	Partial Program
}

// Program returns the program for v, or false when it is absent.
func (s ShaderSet) Program(v Variant) (Program, bool) {
	var p Program
	switch v {
	case VariantOpaque:
		p = s.Opaque
	case VariantFullTransparent:
		p = s.Full
	case VariantPartialTransparent:
		p = s.Partial
	}
	return p, p != 0
}

// Shaders holds the shader sets of every pass kind.
type Shaders struct {
	Directional ShaderSet
	Point       ShaderSet
	Color       ShaderSet
}

// For returns the shader set used by pass.
func (s Shaders) For(pass PassKind) ShaderSet {
	switch pass {
	case DepthDirectional:
		return s.Directional
	case DepthPoint:
		return s.Point
	default:
		return s.Color
	}
}

func missingVariant(pass PassKind, v Variant, mesh string) error {
	return fmt.Errorf("pass %s: %w %s (mesh %q)", pass, ErrMissingVariant, v, mesh)
}
