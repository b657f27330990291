package octree

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

const hierarchyRecordSize = 5

// Node description read from a hierarchy chunk
type NodeSpec struct {
	Name      string
	NumPoints int
	ChildMask uint8
}

// Decodes a .hrc chunk whose first record describes the node rootName. Records are
// {childMask uint8, numPoints uint32 little endian} in breadth first order. Nodes
// stepSize levels below the chunk root keep their child mask but their children live
// in the next chunk. The first returned spec is the chunk root.
func ParseHierarchy(rootName string, b []byte, stepSize int) ([]NodeSpec, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty hierarchy chunk")
	}
	if len(b)%hierarchyRecordSize != 0 {
		return nil, fmt.Errorf("hierarchy chunk size %d is not a multiple of %d", len(b), hierarchyRecordSize)
	}

	specs := []NodeSpec{readRecord(rootName, b, 0)}
	offset := hierarchyRecordSize
	for head := 0; head < len(specs); head++ {
		parent := specs[head]
		if len(parent.Name)-len(rootName) >= stepSize {
			continue
		}
		for i := 0; i < 8; i++ {
			if parent.ChildMask&(1<<i) == 0 {
				continue
			}
			if offset+hierarchyRecordSize > len(b) {
				return nil, fmt.Errorf("hierarchy chunk truncated at child %d of node r%s", i, parent.Name)
			}
			specs = append(specs, readRecord(parent.Name+strconv.Itoa(i), b, offset))
			offset += hierarchyRecordSize
		}
	}
	if offset != len(b) {
		return nil, fmt.Errorf("hierarchy chunk has %d trailing bytes", len(b)-offset)
	}
	return specs, nil
}

func readRecord(name string, b []byte, offset int) NodeSpec {
	return NodeSpec{
		Name:      name,
		ChildMask: b[offset],
		NumPoints: int(binary.LittleEndian.Uint32(b[offset+1:])),
	}
}

// Encodes specs in breadth first order, the inverse of ParseHierarchy
func EncodeHierarchy(specs []NodeSpec) []byte {
	b := make([]byte, 0, len(specs)*hierarchyRecordSize)
	for _, s := range specs {
		b = append(b, s.ChildMask)
		b = binary.LittleEndian.AppendUint32(b, uint32(s.NumPoints))
	}
	return b
}

// Builds the specs of an embedded hierarchy. Child masks are derived from the entries present.
func specsFromEntries(entries []HierarchyEntry) ([]NodeSpec, error) {
	specs := make([]NodeSpec, len(entries))
	position := make(map[string]int, len(entries))
	for i, e := range entries {
		if len(e.Name) == 0 || e.Name[0] != 'r' {
			return nil, fmt.Errorf("invalid node name %q", e.Name)
		}
		name := e.Name[1:]
		if _, dup := position[name]; dup {
			return nil, fmt.Errorf("duplicate node %q", e.Name)
		}
		if e.NumPoints < 0 {
			return nil, fmt.Errorf("node %q has negative point count", e.Name)
		}
		specs[i] = NodeSpec{Name: name, NumPoints: e.NumPoints}
		position[name] = i

		if name == "" {
			continue
		}
		octant, err := parseOctant(name)
		if err != nil {
			return nil, err
		}
		parent, ok := position[name[:len(name)-1]]
		if !ok {
			return nil, fmt.Errorf("node %q listed before its parent", e.Name)
		}
		specs[parent].ChildMask |= 1 << octant
	}
	return specs, nil
}

func parseOctant(name string) (uint8, error) {
	c := name[len(name)-1]
	if c < '0' || c > '7' {
		return 0, fmt.Errorf("invalid octant %q in node name r%s", c, name)
	}
	return c - '0', nil
}
