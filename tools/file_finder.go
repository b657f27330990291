package tools

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ecopia-map/potree_streamer/internal/config"
	"github.com/golang/glog"
)

const ManifestFileName = "cloud.js"

type FileFinder interface {
	GetDatasetsToProcess(opts *config.CommandOptions) ([]string, error)
}

type StandardFileFinder struct{}

func NewStandardFileFinder() FileFinder {
	return &StandardFileFinder{}
}

// Returns the manifest locations named by opts.Input. Remote URLs are used as given, folders are
// searched for cloud.js files when folder processing is enabled.
func (f *StandardFileFinder) GetDatasetsToProcess(opts *config.CommandOptions) ([]string, error) {
	if isRemote(opts.Input) || !opts.FolderProcessing {
		return []string{opts.Input}, nil
	}
	return f.getManifestsFromInputFolder(opts)
}

func isRemote(input string) bool {
	u, err := url.Parse(input)
	return err == nil && len(u.Scheme) > 1 && u.Scheme != "file"
}

func (f *StandardFileFinder) getManifestsFromInputFolder(opts *config.CommandOptions) ([]string, error) {
	var manifests = make([]string, 0)

	baseInfo, err := os.Stat(opts.Input)
	if err != nil {
		return nil, err
	}
	err = filepath.Walk(
		opts.Input,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() && !opts.Recursive && !os.SameFile(info, baseInfo) {
				return filepath.SkipDir
			}
			if !info.IsDir() && strings.EqualFold(info.Name(), ManifestFileName) {
				manifests = append(manifests, path)
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	glog.V(1).Infof("found %d datasets in %s", len(manifests), opts.Input)
	return manifests, nil
}
