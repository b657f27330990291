package testutil

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const BaseURL = "mem://dataset"

type DatasetOptions struct {
	Version    string
	StepSize   int
	Attributes []string
	// min and max corners, x y z
	Min, Max [3]float64
	Spacing  float64
	Scale    float64
	// classification written to every point, per node name; missing nodes get class 2
	Classes map[string]uint8
}

type datasetNode struct {
	name      string
	numPoints int
	childMask uint8
	min, max  [3]float64
}

// In memory potree dataset served through Fetch
type Dataset struct {
	opts  DatasetOptions
	nodes map[string]*datasetNode

	mu       sync.Mutex
	files    map[string][]byte
	failures map[string]error
	requests map[string]int
	block    map[string]chan struct{}
}

func NewDataset(opts DatasetOptions) *Dataset {
	if opts.Version == "" {
		opts.Version = "1.7"
	}
	if opts.StepSize == 0 {
		opts.StepSize = 5
	}
	if opts.Attributes == nil {
		opts.Attributes = []string{"POSITION_CARTESIAN", "COLOR_PACKED", "INTENSITY", "CLASSIFICATION"}
	}
	if opts.Max == [3]float64{} {
		opts.Max = [3]float64{100, 100, 100}
	}
	if opts.Spacing == 0 {
		opts.Spacing = 4
	}
	if opts.Scale == 0 {
		opts.Scale = 0.001
	}
	return &Dataset{
		opts:     opts,
		nodes:    make(map[string]*datasetNode),
		files:    make(map[string][]byte),
		failures: make(map[string]error),
		requests: make(map[string]int),
		block:    make(map[string]chan struct{}),
	}
}

// Declares a node by its path digits, parents must be added first
func (d *Dataset) AddNode(name string, numPoints int) {
	n := &datasetNode{name: name, numPoints: numPoints, min: d.opts.Min, max: d.opts.Max}
	if name != "" {
		parent, ok := d.nodes[name[:len(name)-1]]
		if !ok {
			panic(fmt.Sprintf("parent of %q not declared", name))
		}
		octant := name[len(name)-1] - '0'
		parent.childMask |= 1 << octant
		n.min, n.max = childBox(parent.min, parent.max, octant)
	}
	d.nodes[name] = n
}

func childBox(min, max [3]float64, octant uint8) ([3]float64, [3]float64) {
	cmin, cmax := min, max
	// bit 0 z, bit 1 y, bit 2 x
	for axis, bit := range [3]uint8{4, 2, 1} {
		mid := (min[axis] + max[axis]) / 2
		if octant&bit != 0 {
			cmin[axis] = mid
		} else {
			cmax[axis] = mid
		}
	}
	return cmin, cmax
}

func (d *Dataset) chunked() bool {
	v := strings.SplitN(d.opts.Version, ".", 3)
	minor, _ := strconv.Atoi(v[1])
	return v[0] != "1" || minor >= 5
}

func (d *Dataset) quantized() bool {
	v := strings.SplitN(d.opts.Version, ".", 3)
	minor, _ := strconv.Atoi(v[1])
	return v[0] != "1" || minor > 3
}

func (d *Dataset) hierarchyDir(name string) string {
	parts := []string{"r"}
	for i := 0; i+d.opts.StepSize <= len(name); i += d.opts.StepSize {
		parts = append(parts, name[i:i+d.opts.StepSize])
	}
	return strings.Join(parts, "/")
}

// Path of the payload of a node relative to the manifest
func (d *Dataset) PayloadPath(name string) string {
	if d.chunked() {
		return path.Join("data", d.hierarchyDir(name), "r"+name+".bin")
	}
	if d.quantized() {
		return path.Join("data", "r"+name+".bin")
	}
	return path.Join("data", "r"+name)
}

// Path of the hierarchy chunk rooted at a node relative to the manifest
func (d *Dataset) HierarchyPath(name string) string {
	return path.Join("data", d.hierarchyDir(name), "r"+name+".hrc")
}

func (d *Dataset) URL(p string) string {
	return BaseURL + "/" + p
}

// Resolves paths relative to the manifest into URLs
func (d *Dataset) Resolve(p string) (string, error) {
	return d.URL(p), nil
}

func (d *Dataset) sortedNames() []string {
	names := make([]string, 0, len(d.nodes))
	for name := range d.nodes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}

// Writes the manifest, hierarchy chunks and payloads
func (d *Dataset) Build() {
	manifest := map[string]interface{}{
		"version":   d.opts.Version,
		"octreeDir": "data",
		"points":    0,
		"boundingBox": map[string]float64{
			"lx": d.opts.Min[0], "ly": d.opts.Min[1], "lz": d.opts.Min[2],
			"ux": d.opts.Max[0], "uy": d.opts.Max[1], "uz": d.opts.Max[2],
		},
		"pointAttributes":   d.opts.Attributes,
		"spacing":           d.opts.Spacing,
		"scale":             d.opts.Scale,
		"hierarchyStepSize": d.opts.StepSize,
	}

	total := 0
	for _, name := range d.sortedNames() {
		n := d.nodes[name]
		total += n.numPoints
		d.setFile(d.PayloadPath(name), d.encodePayload(n))
		if d.chunked() && (name == "" || (len(name)%d.opts.StepSize == 0 && n.childMask != 0)) {
			d.setFile(d.HierarchyPath(name), d.encodeChunk(n))
		}
	}
	manifest["points"] = total

	if !d.chunked() {
		hierarchy := [][]interface{}{}
		for _, name := range d.sortedNames() {
			hierarchy = append(hierarchy, []interface{}{"r" + name, d.nodes[name].numPoints})
		}
		manifest["hierarchy"] = hierarchy
	}

	b, err := json.Marshal(manifest)
	if err != nil {
		panic(err)
	}
	d.setFile("cloud.js", b)
}

func (d *Dataset) encodeChunk(root *datasetNode) []byte {
	var b []byte
	queue := []*datasetNode{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		b = append(b, n.childMask)
		b = binary.LittleEndian.AppendUint32(b, uint32(n.numPoints))
		if len(n.name)-len(root.name) >= d.opts.StepSize {
			continue
		}
		for i := 0; i < 8; i++ {
			if n.childMask&(1<<i) != 0 {
				queue = append(queue, d.nodes[n.name+strconv.Itoa(i)])
			}
		}
	}
	return b
}

// Points are spread along the diagonal of the node box
func (d *Dataset) encodePayload(n *datasetNode) []byte {
	class, ok := d.opts.Classes[n.name]
	if !ok {
		class = 2
	}
	var b []byte
	for i := 0; i < n.numPoints; i++ {
		frac := (float64(i) + 0.5) / float64(n.numPoints)
		for _, attr := range d.opts.Attributes {
			switch attr {
			case "POSITION_CARTESIAN":
				for axis := 0; axis < 3; axis++ {
					p := n.min[axis] + frac*(n.max[axis]-n.min[axis])
					if d.quantized() {
						b = binary.LittleEndian.AppendUint32(b, uint32(math.Round((p-n.min[axis])/d.opts.Scale)))
					} else {
						b = binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(p-d.opts.Min[axis])))
					}
				}
			case "COLOR_PACKED", "RGBA_PACKED":
				b = append(b, uint8(i), uint8(i>>8), 128, 255)
			case "RGB_PACKED":
				b = append(b, uint8(i), uint8(i>>8), 128)
			case "INTENSITY":
				b = binary.LittleEndian.AppendUint16(b, uint16(i))
			case "CLASSIFICATION":
				b = append(b, class)
			case "NORMAL_FLOATS", "NORMAL":
				for _, v := range []float32{0, 0, 1} {
					b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
				}
			case "NORMAL_OCT16", "NORMAL_SPHEREMAPPED":
				b = append(b, 128, 128)
			case "RETURN_NUMBER", "NUMBER_OF_RETURNS", "FILLER_1B":
				b = append(b, 1)
			case "SOURCE_ID":
				b = binary.LittleEndian.AppendUint16(b, 7)
			case "GPS_TIME":
				b = binary.LittleEndian.AppendUint64(b, math.Float64bits(float64(i)))
			default:
				panic("unsupported attribute " + attr)
			}
		}
	}
	return b
}

func (d *Dataset) setFile(p string, b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[p] = b
}

// Replaces the content served for a path
func (d *Dataset) SetFile(p string, b []byte) {
	d.setFile(p, b)
}

// Makes every fetch of path fail with err
func (d *Dataset) Fail(p string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[p] = err
}

// Holds fetches of path until the returned function is called
func (d *Dataset) Block(p string) (release func()) {
	ch := make(chan struct{})
	d.mu.Lock()
	d.block[p] = ch
	d.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Number of fetches issued for path
func (d *Dataset) Requests(p string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests[p]
}

// Fetches a URL produced by Resolve
func (d *Dataset) Fetch(ctx context.Context, url string) ([]byte, error) {
	p := strings.TrimPrefix(url, BaseURL+"/")
	d.mu.Lock()
	d.requests[p]++
	ch := d.block[p]
	d.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failures[p]; err != nil {
		return nil, err
	}
	b, ok := d.files[p]
	if !ok {
		return nil, fmt.Errorf("%s: not found", url)
	}
	return b, nil
}

// Writes the dataset files below dir, returns the manifest path
func (d *Dataset) WriteTo(dir string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for p, b := range d.files {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(full, b, 0o644); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "cloud.js"), nil
}
