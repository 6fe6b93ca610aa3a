package helm

import (
	"errors"
	"time"
)

// ErrReleaseNotFound is returned when a release has never been installed
var ErrReleaseNotFound = errors.New("release not found")

// Release represents a Helm release
type Release struct {
	Name       string
	Namespace  string
	Version    int
	Status     string
	Chart      string
	AppVersion string
	Updated    time.Time
}

// ReleaseOptions contains options for installing or upgrading a release
type ReleaseOptions struct {
	ReleaseName     string
	Namespace       string
	Chart           string // repo/chart reference
	Version         string
	Values          map[string]interface{}
	CreateNamespace bool
	Wait            bool
	Timeout         time.Duration
}

// RepoAddOptions contains options for adding a Helm repository
type RepoAddOptions struct {
	Name        string
	URL         string
	ForceUpdate bool
}
