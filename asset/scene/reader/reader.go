package reader

import (
	"fmt"
	"strings"

	"github.com/Algorhythm-sxv/culet/asset"
	"github.com/Algorhythm-sxv/culet/asset/scene"
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// Read scene from a local or remote file. Wavefront and STL assets are
// compiled on the fly; zip archives contain pre-compiled scenes.
func ReadScene(filename string) (*scene.Scene, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	reader, err := selectReader(filename)
	if err != nil {
		return nil, err
	}
	return reader.Read(res)
}

// Select reader based on file extension.
func selectReader(filename string) (Reader, error) {
	switch {
	case strings.HasSuffix(filename, ".obj"):
		return newWavefrontReader(), nil
	case strings.HasSuffix(filename, ".stl"):
		return newStlReader(), nil
	case strings.HasSuffix(filename, ".zip"):
		return newZipSceneReader(), nil
	}
	return nil, fmt.Errorf("readScene: unsupported file format for %q", filename)
}
