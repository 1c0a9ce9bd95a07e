package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// OBJ format errors.
var (
	ErrOBJBadVertex  = errors.New("malformed OBJ vertex")
	ErrOBJBadFace    = errors.New("malformed OBJ face")
	ErrOBJIndexRange = errors.New("OBJ face index out of range")
)

// ParseOBJ parses a Wavefront OBJ mesh from raw bytes. Only geometry is
// kept: "v" lines become positions and "f" lines become triangles, with
// faces of more than three vertices fan-triangulated. Normals, texture
// coordinates, groups, materials and comments are skipped.
func ParseOBJ(data []byte) (*Mesh, error) {
	mesh := &Mesh{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			p, err := parseOBJVertex(fields)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			mesh.Positions = append(mesh.Positions, p)

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: %w: %d vertices", lineNo, ErrOBJBadFace, len(fields)-1)
			}
			face := make([]int32, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				idx, err := parseOBJIndex(ref, len(mesh.Positions))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				face = append(face, idx)
			}
			// Fan-triangulate: (0,1,2), (0,2,3), ...
			for i := 1; i+1 < len(face); i++ {
				mesh.Indices = append(mesh.Indices, face[0], face[i], face[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning OBJ: %w", err)
	}

	return mesh, nil
}

// parseOBJVertex parses a "v x y z [w]" line.
func parseOBJVertex(fields []string) (r3.Vec, error) {
	if len(fields) < 4 {
		return r3.Vec{}, fmt.Errorf("%w: %d coordinates", ErrOBJBadVertex, len(fields)-1)
	}
	var p r3.Vec
	var err error
	if p.X, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return r3.Vec{}, fmt.Errorf("%w: %q", ErrOBJBadVertex, fields[1])
	}
	if p.Y, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return r3.Vec{}, fmt.Errorf("%w: %q", ErrOBJBadVertex, fields[2])
	}
	if p.Z, err = strconv.ParseFloat(fields[3], 64); err != nil {
		return r3.Vec{}, fmt.Errorf("%w: %q", ErrOBJBadVertex, fields[3])
	}
	return p, nil
}

// parseOBJIndex resolves one face vertex reference ("v", "v/vt",
// "v//vn" or "v/vt/vn") to a zero-based position index. Negative
// references count back from the most recently read vertex.
func parseOBJIndex(ref string, numPositions int) (int32, error) {
	idx := ref
	if i := strings.IndexByte(idx, '/'); i >= 0 {
		idx = idx[:i]
	}
	n, err := strconv.Atoi(idx)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrOBJBadFace, ref)
	}
	switch {
	case n > 0:
		n--
	case n < 0:
		n += numPositions
	default:
		return 0, fmt.Errorf("%w: zero index", ErrOBJBadFace)
	}
	if n < 0 || n >= numPositions {
		return 0, fmt.Errorf("%w: %s with %d vertices", ErrOBJIndexRange, idx, numPositions)
	}
	return int32(n), nil
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string) (*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	return ParseOBJ(data)
}

// EncodeOBJ writes the mesh as OBJ text.
func (m *Mesh) EncodeOBJ(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, p := range m.Positions {
		if _, err := fmt.Fprintf(bw, "v %g %g %g\n", p.X, p.Y, p.Z); err != nil {
			return fmt.Errorf("writing OBJ vertex: %w", err)
		}
	}
	// OBJ face indices are one-based.
	for i := 0; i+2 < len(m.Indices); i += 3 {
		if _, err := fmt.Fprintf(bw, "f %d %d %d\n",
			m.Indices[i]+1, m.Indices[i+1]+1, m.Indices[i+2]+1); err != nil {
			return fmt.Errorf("writing OBJ face: %w", err)
		}
	}
	return bw.Flush()
}

// WriteOBJFile writes the mesh to disk as OBJ text.
func WriteOBJFile(path string, m *Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating OBJ file: %w", err)
	}
	if err := m.EncodeOBJ(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
