package reader

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/Algorhythm-sxv/culet/asset"
	"github.com/Algorhythm-sxv/culet/asset/compiler"
	"github.com/Algorhythm-sxv/culet/asset/compiler/input"
	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/log"
	"github.com/Algorhythm-sxv/culet/types"
)

// Binary STL layout: an 80 byte header, a uint32 triangle count and then 50
// bytes per triangle (normal, 3 vertices, attribute count), little-endian.
const (
	stlHeaderSize   = 84
	stlTriangleSize = 50
)

type stlSceneReader struct {
	logger log.Logger

	// The parsed scene.
	rawScene *input.Scene

	// STL stores triangle soup; identical vertices are merged while
	// building the indexed mesh.
	vertexCache map[types.Vec3]uint32
}

// Create a new STL scene reader.
func newStlReader() *stlSceneReader {
	return &stlSceneReader{
		logger:      log.New("stl scene reader"),
		rawScene:    input.NewScene(),
		vertexCache: make(map[types.Vec3]uint32),
	}
}

// Read scene definition. Both the binary and the ASCII forms of the format
// are supported; the variant is auto-detected from the payload. Stored
// facet normals are ignored since compilation recomputes face normals from
// the winding order.
func (r *stlSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	// The variant check requires random access so buffer the payload
	data, err := io.ReadAll(sceneRes)
	if err != nil {
		return nil, err
	}

	if isBinaryStl(data) {
		err = r.parseBinary(sceneRes.Path(), data)
	} else {
		err = r.parseAscii(sceneRes.Path(), data)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Noticef(
		"parsed %d triangles (%d unique vertices) in %d ms",
		r.rawScene.Mesh.TriangleCount(), len(r.rawScene.Mesh.Vertices),
		time.Since(start).Nanoseconds()/1e6,
	)

	return compiler.Compile(r.rawScene)
}

// Detect the binary form by verifying that the declared triangle count
// matches the payload length. ASCII files begin with "solid" but so may the
// header of binary exports, so the length check wins.
func isBinaryStl(data []byte) bool {
	if len(data) < stlHeaderSize {
		return false
	}
	triCount := binary.LittleEndian.Uint32(data[80:stlHeaderSize])
	return len(data) == stlHeaderSize+int(triCount)*stlTriangleSize
}

// Parse the binary form.
func (r *stlSceneReader) parseBinary(path string, data []byte) error {
	triCount := binary.LittleEndian.Uint32(data[80:stlHeaderSize])

	offset := stlHeaderSize
	for tri := uint32(0); tri < triCount; tri++ {
		// Skip the 12 byte stored normal
		fieldOffset := offset + 12

		var indices [3]uint32
		for vert := 0; vert < 3; vert++ {
			vertex := types.XYZ(
				math.Float32frombits(binary.LittleEndian.Uint32(data[fieldOffset:fieldOffset+4])),
				math.Float32frombits(binary.LittleEndian.Uint32(data[fieldOffset+4:fieldOffset+8])),
				math.Float32frombits(binary.LittleEndian.Uint32(data[fieldOffset+8:fieldOffset+12])),
			)
			indices[vert] = r.addVertex(vertex)
			fieldOffset += 12
		}
		r.rawScene.Mesh.AddTriangle(indices[0], indices[1], indices[2])

		offset += stlTriangleSize
	}

	return nil
}

// Parse the ASCII form.
func (r *stlSceneReader) parseAscii(path string, data []byte) error {
	var lineNum int = 0
	var pendingVerts []uint32
	inFacet := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 {
			continue
		}

		switch lineTokens[0] {
		case "solid", "endsolid", "outer", "endloop":
		case "facet":
			if inFacet {
				return r.emitError(path, lineNum, `got "facet" before the previous facet was closed`)
			}
			inFacet = true
			pendingVerts = pendingVerts[:0]
		case "vertex":
			if !inFacet {
				return r.emitError(path, lineNum, `got "vertex" outside a facet block`)
			}
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(path, lineNum, "%s", err.Error())
			}
			pendingVerts = append(pendingVerts, r.addVertex(v))
		case "endfacet":
			if len(pendingVerts) != 3 {
				return r.emitError(path, lineNum, "expected facet to contain 3 vertices; got %d", len(pendingVerts))
			}
			r.rawScene.Mesh.AddTriangle(pendingVerts[0], pendingVerts[1], pendingVerts[2])
			inFacet = false
		default:
			return r.emitError(path, lineNum, "unsupported STL statement %q", lineTokens[0])
		}
	}

	if r.rawScene.Mesh.TriangleCount() == 0 {
		return r.emitError(path, lineNum, "no facets defined")
	}

	return nil
}

// Append a vertex to the mesh re-using the index of an identical previously
// seen vertex.
func (r *stlSceneReader) addVertex(v types.Vec3) uint32 {
	if index, exists := r.vertexCache[v]; exists {
		return index
	}
	index := r.rawScene.Mesh.AddVertex(v)
	r.vertexCache[v] = index
	return index
}

func (r *stlSceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	return fmt.Errorf("[%s: %d] error: %s", file, line, fmt.Sprintf(msgFormat, args...))
}
