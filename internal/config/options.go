package config

import (
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/ecopia-map/potree_streamer/internal/geometry"
)

type ClipMode string

const (
	ClipModeDisabled ClipMode = "DISABLED"
	// Points outside every clip box are not rendered, nodes outside are not loaded
	ClipModeClipOutside ClipMode = "CLIP_OUTSIDE"
	// Points inside clip boxes are highlighted by the renderer, loading is not affected
	ClipModeHighlightInside ClipMode = "HIGHLIGHT_INSIDE"
)

func (e ClipMode) String() string {
	if e == ClipModeDisabled {
		return "DISABLED"
	} else if e == ClipModeClipOutside {
		return "CLIP_OUTSIDE"
	} else if e == ClipModeHighlightInside {
		return "HIGHLIGHT_INSIDE"
	}
	return ""
}

func ParseClipMode(value string) ClipMode {
	normalizedValue := strings.ReplaceAll(strings.Trim(strings.ToUpper(value), " "), "-", "_")
	if normalizedValue == "DISABLED" || normalizedValue == "" {
		return ClipModeDisabled
	} else if normalizedValue == "CLIP_OUTSIDE" {
		return ClipModeClipOutside
	} else if normalizedValue == "HIGHLIGHT_INSIDE" {
		return ClipModeHighlightInside
	}
	return ""
}

const (
	DefaultPointBudget        = 1_000_000
	DefaultMaxNumNodesLoading = 4
	DefaultMaxLoadsToGPU      = 2
	DefaultMinNodePixelSize   = 50
	DefaultPickWindowSize     = 15
)

// Contains the options shared by every point cloud streamed by one instance
type Options struct {
	PointBudget        int           // Max number of points selected per visibility pass
	MaxNumNodesLoading int           // Max number of node loads in flight
	MaxLoadsToGPU      int           // Max number of loaded payloads applied per pass, negative for no limit
	NumWorkers         int           // Number of loader goroutines
	QueueSize          int           // Capacity of the loader queue
	IOLimit            int           // Bytes per second read by the loader, 0 for no limit
	FetchTimeout       time.Duration // Deadline of a single fetch, 0 for none
}

func DefaultOptions() *Options {
	return &Options{
		PointBudget:        DefaultPointBudget,
		MaxNumNodesLoading: DefaultMaxNumNodesLoading,
		MaxLoadsToGPU:      DefaultMaxLoadsToGPU,
		NumWorkers:         runtime.NumCPU(),
		QueueSize:          64,
	}
}

func (opt *Options) Copy() *Options {
	newOpt := *opt
	return &newOpt
}

// Contains the display settings of a single point cloud
type PointCloudOptions struct {
	MinNodePixelSize      float64                 // Nodes projecting to fewer pixels are not refined
	MaxLevel              int                     // Deepest octree level selected
	ClipMode              ClipMode                // How ClipBoxes restrict the selection
	ClipBoxes             []*geometry.BoundingBox // Boxes in world coordinates
	HiddenClassifications map[uint8]bool          // Nodes holding only these classes are skipped once loaded
	PickWindowSize        int                     // Side in pixels of the pick window
	PickOutsideClipRegion bool                    // Pick points clipped away by ClipBoxes
}

func DefaultPointCloudOptions() *PointCloudOptions {
	return &PointCloudOptions{
		MinNodePixelSize: DefaultMinNodePixelSize,
		MaxLevel:         math.MaxInt32,
		ClipMode:         ClipModeDisabled,
		PickWindowSize:   DefaultPickWindowSize,
	}
}

func (opt *PointCloudOptions) Copy() *PointCloudOptions {
	newOpt := *opt
	newOpt.ClipBoxes = nil
	for _, b := range opt.ClipBoxes {
		newOpt.ClipBoxes = append(newOpt.ClipBoxes, b.Copy())
	}
	if opt.HiddenClassifications != nil {
		newOpt.HiddenClassifications = make(map[uint8]bool, len(opt.HiddenClassifications))
		for k, v := range opt.HiddenClassifications {
			newOpt.HiddenClassifications[k] = v
		}
	}
	return &newOpt
}

// Reports whether the selection is restricted by clip boxes
func (opt *PointCloudOptions) Clipping() bool {
	return opt.ClipMode == ClipModeClipOutside && len(opt.ClipBoxes) > 0
}

// Contains the options of a command line invocation
type CommandOptions struct {
	Input            string // Input cloud.js file, folder or URL
	FolderProcessing bool   // Enables the processing of all datasets in folder
	Recursive        bool   // Recursive lookup of datasets in subfolders
	Command          string

	Stream *Options
	Cloud  *PointCloudOptions
	Remote *RemoteOptions

	SimulateOptions *SimulateOptions
	ExportOptions   *ExportOptions
	VerifyOptions   *VerifyOptions
}

// Credentials for datasets stored on S3 compatible object stores
type RemoteOptions struct {
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string `json:"-"`
	MinioSecure    bool
	S3Region       string
}

type SimulateOptions struct {
	Scenario   string // YAML camera path
	Frames     int    // Passes run per camera when no scenario is given
	MetricsOut string // Text exposition of the collected metrics
}

type ExportOptions struct {
	Scenario string
	Output   string  // Output LAS file
	Settle   int     // Max passes run before exporting
	ZOffset  float64 // Vertical offset applied to exported points, in meters
}

type VerifyOptions struct {
	Workers int
}

func (opt *CommandOptions) Copy() *CommandOptions {
	newOpt := *opt
	if opt.Stream != nil {
		newOpt.Stream = opt.Stream.Copy()
	}
	if opt.Cloud != nil {
		newOpt.Cloud = opt.Cloud.Copy()
	}
	if opt.Remote != nil {
		remote := *opt.Remote
		newOpt.Remote = &remote
	}
	if opt.SimulateOptions != nil {
		simulate := *opt.SimulateOptions
		newOpt.SimulateOptions = &simulate
	}
	if opt.ExportOptions != nil {
		export := *opt.ExportOptions
		newOpt.ExportOptions = &export
	}
	if opt.VerifyOptions != nil {
		verify := *opt.VerifyOptions
		newOpt.VerifyOptions = &verify
	}
	return &newOpt
}
