package tools

import (
	"flag"
	"time"

	"github.com/ecopia-map/potree_streamer/internal/config"
)

const (
	CommandInspect  = "inspect"
	CommandSimulate = "simulate"
	CommandExport   = "export"
	CommandVerify   = "verify"
)

type FlagsGlobal struct {
	Help    *bool `json:"help"`
	Version *bool `json:"version"`
}

// Flags shared by every command
type StreamFlags struct {
	Input                     *string        `json:"input"`
	FolderProcessing          *bool          `json:"folder"`
	RecursiveFolderProcessing *bool          `json:"recursive"`
	PointBudget               *int           `json:"point_budget"`
	MaxNumNodesLoading        *int           `json:"max_nodes_loading"`
	MaxLoadsToGPU             *int           `json:"max_loads_to_gpu"`
	Workers                   *int           `json:"workers"`
	IOLimit                   *int           `json:"io_limit"`
	FetchTimeout              *time.Duration `json:"fetch_timeout"`
	MinNodePixelSize          *float64       `json:"min_node_pixel_size"`
	MaxLevel                  *int           `json:"max_level"`
	MinioEndpoint             *string        `json:"minio_endpoint"`
	MinioAccessKey            *string        `json:"-"`
	MinioSecretKey            *string        `json:"-"`
	MinioSecure               *bool          `json:"minio_secure"`
	S3Region                  *string        `json:"s3_region"`
	Silent                    *bool          `json:"silent"`
	LogTimestamp              *bool          `json:"timestamp"`
}

type FlagsForCommandInspect struct {
	StreamFlags
}

type FlagsForCommandSimulate struct {
	StreamFlags
	Scenario   *string `json:"scenario"`
	Frames     *int    `json:"frames"`
	MetricsOut *string `json:"metrics_out"`
}

type FlagsForCommandExport struct {
	StreamFlags
	Scenario *string  `json:"scenario"`
	Output   *string  `json:"output"`
	Settle   *int     `json:"settle"`
	ZOffset  *float64 `json:"zoffset"`
}

type FlagsForCommandVerify struct {
	StreamFlags
	VerifyWorkers *int `json:"verify_workers"`
}

func ParseFlagsGlobal() FlagsGlobal {
	help := defineBoolFlag("help", "h", false, "Displays this help.")
	// -v is the glog verbosity
	version := defineBoolFlag("version", "", false, "Displays the version of potree_streamer.")

	flag.Parse()

	return FlagsGlobal{
		Help:    help,
		Version: version,
	}
}

func defineStreamFlags(flagCommand *flag.FlagSet) StreamFlags {
	defaults := config.DefaultOptions()
	cloudDefaults := config.DefaultPointCloudOptions()

	var fetchTimeout time.Duration
	flagCommand.DurationVar(&fetchTimeout, "fetch-timeout", 30*time.Second, "Deadline of a single manifest, hierarchy or payload fetch.")

	return StreamFlags{
		Input:                     defineStringFlagCommand(flagCommand, "input", "i", "", "Specifies the input cloud.js file, folder or URL (http(s)://, s3://bucket/key, minio://bucket/key)."),
		FolderProcessing:          defineBoolFlagCommand(flagCommand, "folder", "f", false, "Enables processing of all datasets found in the input folder."),
		RecursiveFolderProcessing: defineBoolFlagCommand(flagCommand, "recursive", "r", false, "Enables recursive lookup of cloud.js files inside the subfolders."),
		PointBudget:               defineIntFlagCommand(flagCommand, "point-budget", "p", defaults.PointBudget, "Max number of points selected per visibility pass."),
		MaxNumNodesLoading:        defineIntFlagCommand(flagCommand, "max-nodes-loading", "", defaults.MaxNumNodesLoading, "Max number of node loads in flight."),
		MaxLoadsToGPU:             defineIntFlagCommand(flagCommand, "max-loads-to-gpu", "", defaults.MaxLoadsToGPU, "Max number of loaded nodes applied per pass, negative for no limit."),
		Workers:                   defineIntFlagCommand(flagCommand, "workers", "w", defaults.NumWorkers, "Number of loader goroutines."),
		IOLimit:                   defineIntFlagCommand(flagCommand, "io-limit", "", 0, "Bytes per second read by the loader, 0 for no limit."),
		FetchTimeout:              &fetchTimeout,
		MinNodePixelSize:          defineFloat64FlagCommand(flagCommand, "min-node-pixel-size", "", cloudDefaults.MinNodePixelSize, "Nodes projecting to fewer pixels are not refined."),
		MaxLevel:                  defineIntFlagCommand(flagCommand, "max-level", "", cloudDefaults.MaxLevel, "Deepest octree level selected."),
		MinioEndpoint:             defineStringFlagCommand(flagCommand, "minio-endpoint", "", "", "host:port of the MinIO server serving minio:// inputs."),
		MinioAccessKey:            defineStringFlagCommand(flagCommand, "minio-access-key", "", "", "MinIO access key."),
		MinioSecretKey:            defineStringFlagCommand(flagCommand, "minio-secret-key", "", "", "MinIO secret key."),
		MinioSecure:               defineBoolFlagCommand(flagCommand, "minio-secure", "", false, "Connects to MinIO over TLS."),
		S3Region:                  defineStringFlagCommand(flagCommand, "s3-region", "", "", "AWS region of s3:// inputs, defaults to the configured one."),
		Silent:                    defineBoolFlagCommand(flagCommand, "silent", "s", false, "Use to suppress all the non-error messages."),
		LogTimestamp:              defineBoolFlagCommand(flagCommand, "timestamp", "t", false, "Adds timestamp to log messages."),
	}
}

func ParseFlagsForCommandInspect(args []string) FlagsForCommandInspect {
	flagCommand := flag.NewFlagSet("command-inspect", flag.ExitOnError)
	stream := defineStreamFlags(flagCommand)

	flagCommand.Parse(args)

	return FlagsForCommandInspect{StreamFlags: stream}
}

func ParseFlagsForCommandSimulate(args []string) FlagsForCommandSimulate {
	flagCommand := flag.NewFlagSet("command-simulate", flag.ExitOnError)
	stream := defineStreamFlags(flagCommand)

	scenario := defineStringFlagCommand(flagCommand, "scenario", "c", "", "YAML camera path. Without it four cameras orbit the dataset.")
	frames := defineIntFlagCommand(flagCommand, "frames", "n", 20, "Visibility passes per camera when no scenario is given.")
	metricsOut := defineStringFlagCommand(flagCommand, "metrics-out", "m", "", "Writes the collected metrics to this file in the prometheus text format.")

	flagCommand.Parse(args)

	return FlagsForCommandSimulate{
		StreamFlags: stream,
		Scenario:    scenario,
		Frames:      frames,
		MetricsOut:  metricsOut,
	}
}

func ParseFlagsForCommandExport(args []string) FlagsForCommandExport {
	flagCommand := flag.NewFlagSet("command-export", flag.ExitOnError)
	stream := defineStreamFlags(flagCommand)

	scenario := defineStringFlagCommand(flagCommand, "scenario", "c", "", "YAML camera path, the visible points of its last camera are exported.")
	output := defineStringFlagCommand(flagCommand, "output", "o", "", "Specifies the output LAS file.")
	settle := defineIntFlagCommand(flagCommand, "settle", "", 200, "Max visibility passes run for the camera before exporting.")
	zOffset := defineFloat64FlagCommand(flagCommand, "zoffset", "z", 0, "Vertical offset to apply to exported points, in meters.")

	flagCommand.Parse(args)

	return FlagsForCommandExport{
		StreamFlags: stream,
		Scenario:    scenario,
		Output:      output,
		Settle:      settle,
		ZOffset:     zOffset,
	}
}

func ParseFlagsForCommandVerify(args []string) FlagsForCommandVerify {
	flagCommand := flag.NewFlagSet("command-verify", flag.ExitOnError)
	stream := defineStreamFlags(flagCommand)

	verifyWorkers := defineIntFlagCommand(flagCommand, "verify-workers", "", 8, "Number of nodes verified concurrently.")

	flagCommand.Parse(args)

	return FlagsForCommandVerify{
		StreamFlags:   stream,
		VerifyWorkers: verifyWorkers,
	}
}

// Builds the command options shared by every command
func (f *StreamFlags) CommandOptions(command string) *config.CommandOptions {
	stream := config.DefaultOptions()
	stream.PointBudget = *f.PointBudget
	stream.MaxNumNodesLoading = *f.MaxNumNodesLoading
	stream.MaxLoadsToGPU = *f.MaxLoadsToGPU
	stream.NumWorkers = *f.Workers
	stream.IOLimit = *f.IOLimit
	stream.FetchTimeout = *f.FetchTimeout

	cloud := config.DefaultPointCloudOptions()
	cloud.MinNodePixelSize = *f.MinNodePixelSize
	cloud.MaxLevel = *f.MaxLevel

	return &config.CommandOptions{
		Input:            *f.Input,
		FolderProcessing: *f.FolderProcessing,
		Recursive:        *f.RecursiveFolderProcessing,
		Command:          command,
		Stream:           stream,
		Cloud:            cloud,
		Remote: &config.RemoteOptions{
			MinioEndpoint:  *f.MinioEndpoint,
			MinioAccessKey: *f.MinioAccessKey,
			MinioSecretKey: *f.MinioSecretKey,
			MinioSecure:    *f.MinioSecure,
			S3Region:       *f.S3Region,
		},
	}
}

func defineBoolFlag(name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flag.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flag.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineStringFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue string, usage string) *string {
	var output string
	flagCommand.StringVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.StringVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineIntFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue int, usage string) *int {
	var output int
	flagCommand.IntVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.IntVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineFloat64FlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue float64, usage string) *float64 {
	var output float64
	flagCommand.Float64Var(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.Float64Var(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineBoolFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flagCommand.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}
