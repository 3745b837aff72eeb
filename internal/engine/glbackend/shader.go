// Package glbackend executes render passes on OpenGL 4.1 core.
package glbackend

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/midgard-scene/internal/config"
	"github.com/Faultbox/midgard-scene/internal/engine/glbackend/shaders"
)

// CompileProgram compiles the given stages and links them into a program.
// An empty geometry source skips that stage.
func CompileProgram(vertexSrc, geometrySrc, fragmentSrc string) (uint32, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertShader)

	var geomShader uint32
	if geometrySrc != "" {
		geomShader, err = compileShader(geometrySrc, gl.GEOMETRY_SHADER, "geometry")
		if err != nil {
			return 0, err
		}
		defer gl.DeleteShader(geomShader)
	}

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	if geomShader != 0 {
		gl.AttachShader(program, geomShader)
	}
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", strings.TrimRight(string(log), "\x00"))
	}

	return program, nil
}

func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, strings.TrimRight(string(log), "\x00"))
	}

	return shader, nil
}

// programCache compiles each distinct program once. Variants that share
// stages and defines share a program object.
type programCache struct {
	src      *shaders.Source
	resolve  func(string) string
	programs map[string]uint32
	uniforms map[uint32]map[string]int32
}

func newProgramCache(src *shaders.Source, resolve func(string) string) *programCache {
	return &programCache{
		src:      src,
		resolve:  resolve,
		programs: make(map[string]uint32),
		uniforms: make(map[uint32]map[string]int32),
	}
}

func programKey(p config.ProgramPaths) string {
	return p.Vertex + "|" + p.Geometry + "|" + p.Fragment + "|" + strings.Join(p.Defines, ",")
}

// load returns the program for p, or 0 when p is empty.
func (c *programCache) load(p config.ProgramPaths) (uint32, error) {
	if p.Empty() {
		return 0, nil
	}
	key := programKey(p)
	if id, ok := c.programs[key]; ok {
		return id, nil
	}

	var stages [3]string
	for i, name := range [3]string{p.Vertex, p.Geometry, p.Fragment} {
		s, err := c.src.Read(c.resolve(name), p.Defines)
		if err != nil {
			return 0, err
		}
		stages[i] = s
	}
	id, err := CompileProgram(stages[0], stages[1], stages[2])
	if err != nil {
		return 0, fmt.Errorf("program %s+%s: %w", p.Vertex, p.Fragment, err)
	}
	c.programs[key] = id
	return id, nil
}

// uniform returns the location of name in program, caching lookups.
// Inactive uniforms yield -1, which gl ignores.
func (c *programCache) uniform(program uint32, name string) int32 {
	locs, ok := c.uniforms[program]
	if !ok {
		locs = make(map[string]int32)
		c.uniforms[program] = locs
	}
	if loc, ok := locs[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(program, gl.Str(name+"\x00"))
	locs[name] = loc
	return loc
}

func (c *programCache) destroy() {
	for _, id := range c.programs {
		gl.DeleteProgram(id)
	}
	c.programs = make(map[string]uint32)
	c.uniforms = make(map[uint32]map[string]int32)
}
