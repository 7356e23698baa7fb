package pulse

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/oliverbestmann/prepass/glm"
)

// LoadOBJ parses the objects of a wavefront obj file. Objects ("o") and
// groups ("g") each become a Mesh. Faces with more than three vertices are
// triangulated as a fan, faces without normals get the flat face normal.
// Negative indices are relative to the last element parsed so far.
func LoadOBJ(obj string) ([]*Mesh, error) {
	dec := objDecoder{mesh: &Mesh{Name: "Default"}}

	scanner := bufio.NewScanner(strings.NewReader(obj))
	for lineNo := 1; scanner.Scan(); lineNo++ {
		if err := dec.parseLine(scanner.Text()); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}

	dec.finalize()

	return dec.meshes, nil
}

type objDecoder struct {
	positions []glm.Vec3f
	normals   []glm.Vec3f

	mesh   *Mesh
	meshes []*Mesh
}

func (dec *objDecoder) parseLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}

	switch fields[0] {
	case "o", "g":
		dec.startMesh(strings.Join(fields[1:], " "))

	case "v":
		// an optional w component is ignored
		if len(fields) != 4 && len(fields) != 5 {
			return errors.New("parse vertex: expected three coordinates")
		}

		vec, err := parseVec3(fields[1:4])
		if err != nil {
			return fmt.Errorf("parse vertex: %w", err)
		}

		dec.positions = append(dec.positions, vec)

	case "vn":
		if len(fields) != 4 {
			return errors.New("parse normal: expected three coordinates")
		}

		vec, err := parseVec3(fields[1:])
		if err != nil {
			return fmt.Errorf("parse normal: %w", err)
		}

		dec.normals = append(dec.normals, vec.Normalize())

	case "f":
		return dec.parseFace(fields[1:])
	}

	// texture coordinates, materials and smoothing groups carry nothing a mesh stores
	return nil
}

func (dec *objDecoder) startMesh(name string) {
	if name == "" {
		name = "Default"
	}

	// an object directly followed by a group only names the mesh
	if len(dec.mesh.Indices) == 0 {
		dec.mesh.Name = name
		return
	}

	dec.finalize()
	dec.mesh = &Mesh{Name: name}
}

func (dec *objDecoder) finalize() {
	if len(dec.mesh.Indices) > 0 {
		dec.meshes = append(dec.meshes, dec.mesh)
	}
}

func (dec *objDecoder) parseFace(fields []string) error {
	if len(fields) < 3 {
		return errors.New("face needs at least three vertices")
	}

	face := make([]vertexIndex, len(fields))
	for idx, field := range fields {
		vi, err := dec.parseVertexIndex(field)
		if err != nil {
			return err
		}

		face[idx] = vi
	}

	for idx := 1; idx+1 < len(face); idx++ {
		dec.appendTriangle(face[0], face[idx], face[idx+1])
	}

	return nil
}

func (dec *objDecoder) appendTriangle(a, b, c vertexIndex) {
	pa := dec.positions[a.Vertex]
	pb := dec.positions[b.Vertex]
	pc := dec.positions[c.Vertex]

	faceNormal := pb.Sub(pa).Cross(pc.Sub(pa)).Normalize()

	mesh := dec.mesh
	for _, vi := range []vertexIndex{a, b, c} {
		normal := faceNormal
		if vi.Normal >= 0 {
			normal = dec.normals[vi.Normal]
		}

		mesh.Indices = append(mesh.Indices, uint32(len(mesh.Positions)))
		mesh.Positions = append(mesh.Positions, dec.positions[vi.Vertex])
		mesh.Normals = append(mesh.Normals, normal)
	}
}

// vertexIndex holds zero based indices, Normal is -1 if the face has none.
type vertexIndex struct {
	Vertex int
	Normal int
}

// parseVertexIndex parses "v", "v/vt", "v//vn" and "v/vt/vn".
func (dec *objDecoder) parseVertexIndex(input string) (vertexIndex, error) {
	parts := strings.Split(input, "/")

	vertex, err := resolveIndex(parts[0], len(dec.positions))
	if err != nil {
		return vertexIndex{}, fmt.Errorf("vertex index: %w", err)
	}

	res := vertexIndex{Vertex: vertex, Normal: -1}

	if len(parts) >= 3 && parts[2] != "" {
		res.Normal, err = resolveIndex(parts[2], len(dec.normals))
		if err != nil {
			return vertexIndex{}, fmt.Errorf("normal index: %w", err)
		}
	}

	return res, nil
}

// resolveIndex converts a one based or negative relative index into a
// zero based index into a list of count elements.
func resolveIndex(input string, count int) (int, error) {
	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", input, err)
	}

	var idx int
	switch {
	case value > 0:
		idx = value - 1
	case value < 0:
		idx = count + value
	default:
		return 0, errors.New("index must not be zero")
	}

	if idx < 0 || idx >= count {
		return 0, fmt.Errorf("index %d out of range", value)
	}

	return idx, nil
}

func parseVec3(fields []string) (glm.Vec3f, error) {
	x, errX := strconv.ParseFloat(fields[0], 32)
	y, errY := strconv.ParseFloat(fields[1], 32)
	z, errZ := strconv.ParseFloat(fields[2], 32)

	if errX != nil || errY != nil || errZ != nil {
		return glm.Vec3f{}, errors.Join(errX, errY, errZ)
	}

	return glm.Vec3f{float32(x), float32(y), float32(z)}, nil
}
