// Package shaders embeds the built-in GLSL sources.
package shaders

import "embed"

// FS holds every built-in shader stage by file name.
//
//go:embed *.vert *.geom *.frag
var FS embed.FS
