package scenefile

import (
	"fmt"
	"image"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-scene/internal/engine/geometry"
	"github.com/Faultbox/midgard-scene/internal/engine/node"
	"github.com/Faultbox/midgard-scene/internal/engine/texture"
	"github.com/Faultbox/midgard-scene/pkg/math"
)

// mesh builds and uploads d. Meshes with identical geometry share one
// upload.
func (b *builder) mesh(d *MeshDoc, path string) *node.Mesh {
	name := d.Name
	if name == "" {
		name = d.Shape
	}
	where := fmt.Sprintf("mesh %q on %q", name, path)

	size, err := d.Size.vec3(math.V3(1, 1, 1))
	if err != nil {
		b.fail("%s size: %w", where, err)
		return nil
	}

	var mat *material
	if d.Material != "" {
		if mat = b.material(d.Material); mat == nil {
			return nil
		}
	}

	tag, err := b.transparency(d.Transparency, mat)
	if err != nil {
		b.fail("%s: %w", where, err)
		return nil
	}

	key := fmt.Sprintf("%s %v", d.Shape, size)
	if d.Skin != nil {
		key += fmt.Sprintf(" skin %d", d.Skin.Lower)
		if d.Skin.Upper != nil {
			key += fmt.Sprintf("-%d %g..%g", *d.Skin.Upper, d.Skin.From, d.Skin.To)
		}
	}
	up, ok := b.meshes[key]
	if !ok {
		g, err := shape(d.Shape, size)
		if err != nil {
			b.fail("%s: %w", where, err)
			return nil
		}
		if s := d.Skin; s != nil {
			if s.Upper != nil {
				g.BindByHeight(s.Lower, *s.Upper, s.From, s.To)
			} else {
				g.BindAll(s.Lower)
			}
		}
		up.handle, up.count, err = b.up.UploadMesh(g)
		if err != nil {
			b.fail("%s: %w", where, err)
			return nil
		}
		b.meshes[key] = up
	}

	m := &node.Mesh{
		Name:         name,
		Handle:       up.handle,
		IndexCount:   up.count,
		Transparency: tag,
	}
	if mat != nil {
		m.Material = mat.mat
	}
	return m
}

func shape(kind string, size math.Vec3) (*geometry.Geometry, error) {
	switch kind {
	case "box", "":
		return geometry.Box(size), nil
	case "plane":
		return geometry.Plane(size.X), nil
	case "quad":
		return geometry.Quad(size.X, size.Y), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, kind)
	}
}

// transparency resolves a tag. "auto" classifies the material's diffuse
// alpha, and is opaque without a material.
func (b *builder) transparency(s string, mat *material) (node.Transparency, error) {
	if s != "auto" {
		return node.ParseTransparency(s)
	}
	if mat == nil || mat.diffuse == nil {
		return node.Opaque, nil
	}
	return texture.Classify(mat.diffuse), nil
}

// material returns the named material, uploading its textures on first use.
func (b *builder) material(name string) *material {
	if m, ok := b.materials[name]; ok {
		return m
	}
	d, ok := b.doc.Materials[name]
	if !ok {
		b.fail("%w: %q", ErrUnknownMaterial, name)
		return nil
	}

	m := &material{mat: &node.Material{Name: name}}
	var err error
	if d.Texture != "" {
		if m.diffuse, err = texture.Load(b.resolve(d.Texture)); err != nil {
			b.fail("material %q: %w", name, err)
			return nil
		}
	} else {
		c, err := d.Color.rgba()
		if err != nil {
			b.fail("material %q color: %w", name, err)
			return nil
		}
		m.diffuse = texture.Solid(c[0], c[1], c[2], c[3])
	}
	if m.mat.Diffuse, err = b.upload(d.Texture, m.diffuse); err != nil {
		b.fail("material %q: %w", name, err)
		return nil
	}

	for _, slot := range []struct {
		path string
		dst  *uint32
	}{
		{d.NormalMap, &m.mat.NormalMap},
		{d.AOMap, &m.mat.AOMap},
	} {
		if slot.path == "" {
			continue
		}
		img, err := texture.Load(b.resolve(slot.path))
		if err != nil {
			b.fail("material %q: %w", name, err)
			return nil
		}
		if *slot.dst, err = b.upload(slot.path, img); err != nil {
			b.fail("material %q: %w", name, err)
			return nil
		}
	}

	b.materials[name] = m
	b.log.Debug("material loaded", zap.String("material", name), zap.Stringer("flags", flagString(m.mat.Flags())))
	return m
}

// upload uploads img, sharing textures loaded from the same path.
func (b *builder) upload(path string, img *image.RGBA) (uint32, error) {
	if path != "" {
		if id, ok := b.textures[path]; ok {
			return id, nil
		}
	}
	// GL expects the first row at the bottom.
	flipped := image.NewRGBA(img.Bounds())
	copy(flipped.Pix, img.Pix)
	texture.FlipVertical(flipped)
	id, err := b.up.UploadTexture(flipped)
	if err != nil {
		return 0, err
	}
	if path != "" {
		b.textures[path] = id
	}
	return id, nil
}

func (b *builder) resolve(p string) string {
	if filepath.IsAbs(p) || b.opts.BaseDir == "" {
		return p
	}
	return filepath.Join(b.opts.BaseDir, p)
}

type flagString node.MaterialFlags

func (f flagString) String() string {
	return fmt.Sprintf("diffuse=%t normal=%t ao=%t", f.HasDiffuse, f.HasNormalMap, f.HasAOMap)
}
