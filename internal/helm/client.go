package helm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/repo"
	"helm.sh/helm/v3/pkg/storage/driver"
	"sigs.k8s.io/yaml"

	"github.com/catalystcommunity/anvil/v1/internal/logging"
)

// Client wraps Helm SDK operations
type Client struct {
	namespace string
	settings  *cli.EnvSettings
}

// NewClient creates a new Helm client
// kubeconfig is the raw kubeconfig YAML bytes
// namespace is the default namespace for operations
func NewClient(kubeconfig []byte, namespace string) (*Client, error) {
	if len(kubeconfig) == 0 {
		return nil, fmt.Errorf("kubeconfig cannot be empty")
	}
	if namespace == "" {
		namespace = "default"
	}

	// Helm SDK requires a file path, not in-memory config
	tmpDir, err := os.MkdirTemp("", "anvil-helm-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	kubeconfigPath := filepath.Join(tmpDir, "kubeconfig")
	if err := os.WriteFile(kubeconfigPath, kubeconfig, 0600); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to write kubeconfig: %w", err)
	}

	settings := cli.New()
	settings.KubeConfig = kubeconfigPath
	settings.SetNamespace(namespace)
	settings.RepositoryConfig = filepath.Join(tmpDir, "repositories.yaml")
	settings.RepositoryCache = filepath.Join(tmpDir, "cache")

	return &Client{
		namespace: namespace,
		settings:  settings,
	}, nil
}

// Close removes the temporary kubeconfig and repository cache
func (c *Client) Close() error {
	if c.settings != nil && c.settings.KubeConfig != "" {
		return os.RemoveAll(filepath.Dir(c.settings.KubeConfig))
	}
	return nil
}

func (c *Client) actionConfig(ctx context.Context, namespace string) (*action.Configuration, error) {
	if namespace == "" {
		namespace = c.namespace
	}

	log := logging.FromContext(ctx).With("component", "helm")
	cfg := new(action.Configuration)
	if err := cfg.Init(c.settings.RESTClientGetter(), namespace, "secret", func(format string, v ...interface{}) {
		log.Debug(fmt.Sprintf(format, v...))
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize action config: %w", err)
	}

	return cfg, nil
}

// AddRepo adds a Helm repository and downloads its index
func (c *Client) AddRepo(ctx context.Context, opts RepoAddOptions) error {
	if opts.Name == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if opts.URL == "" {
		return fmt.Errorf("repository URL cannot be empty")
	}

	repoFile := c.settings.RepositoryConfig
	if err := os.MkdirAll(filepath.Dir(repoFile), 0755); err != nil {
		return fmt.Errorf("failed to create repository config directory: %w", err)
	}
	if err := os.MkdirAll(c.settings.RepositoryCache, 0755); err != nil {
		return fmt.Errorf("failed to create repository cache directory: %w", err)
	}

	repoConfig := repo.NewFile()
	if data, err := os.ReadFile(repoFile); err == nil {
		if err := yaml.Unmarshal(data, repoConfig); err != nil {
			return fmt.Errorf("failed to parse repository file: %w", err)
		}
	}

	entry := &repo.Entry{Name: opts.Name, URL: opts.URL}
	if repoConfig.Has(opts.Name) {
		if !opts.ForceUpdate {
			return fmt.Errorf("repository %s already exists", opts.Name)
		}
		repoConfig.Update(entry)
	} else {
		repoConfig.Add(entry)
	}

	if err := repoConfig.WriteFile(repoFile, 0644); err != nil {
		return fmt.Errorf("failed to write repository file: %w", err)
	}

	r, err := repo.NewChartRepository(entry, getter.All(c.settings))
	if err != nil {
		return fmt.Errorf("failed to create chart repository: %w", err)
	}
	r.CachePath = c.settings.RepositoryCache

	if _, err := r.DownloadIndexFile(); err != nil {
		return fmt.Errorf("failed to download repository index: %w", err)
	}

	return nil
}

// UpgradeInstall upgrades a release, installing it first if it has no
// history (helm upgrade --install)
func (c *Client) UpgradeInstall(ctx context.Context, opts ReleaseOptions) error {
	if opts.ReleaseName == "" {
		return fmt.Errorf("release name cannot be empty")
	}
	if opts.Chart == "" {
		return fmt.Errorf("chart cannot be empty")
	}

	namespace := opts.Namespace
	if namespace == "" {
		namespace = c.namespace
	}

	cfg, err := c.actionConfig(ctx, namespace)
	if err != nil {
		return err
	}

	history := action.NewHistory(cfg)
	history.Max = 1
	if _, err := history.Run(opts.ReleaseName); errors.Is(err, driver.ErrReleaseNotFound) {
		return c.install(ctx, cfg, namespace, opts)
	} else if err != nil {
		return fmt.Errorf("failed to read release history: %w", err)
	}

	upgrade := action.NewUpgrade(cfg)
	upgrade.Namespace = namespace
	upgrade.Wait = opts.Wait
	upgrade.Version = opts.Version
	if opts.Timeout > 0 {
		upgrade.Timeout = opts.Timeout
	}

	ch, err := c.loadChart(&upgrade.ChartPathOptions, opts.Chart)
	if err != nil {
		return err
	}

	if _, err := upgrade.RunWithContext(ctx, opts.ReleaseName, ch, opts.Values); err != nil {
		return fmt.Errorf("failed to upgrade release: %w", err)
	}
	return nil
}

func (c *Client) install(ctx context.Context, cfg *action.Configuration, namespace string, opts ReleaseOptions) error {
	install := action.NewInstall(cfg)
	install.ReleaseName = opts.ReleaseName
	install.Namespace = namespace
	install.CreateNamespace = opts.CreateNamespace
	install.Wait = opts.Wait
	install.Version = opts.Version
	if opts.Timeout > 0 {
		install.Timeout = opts.Timeout
	}

	ch, err := c.loadChart(&install.ChartPathOptions, opts.Chart)
	if err != nil {
		return err
	}

	if _, err := install.RunWithContext(ctx, ch, opts.Values); err != nil {
		return fmt.Errorf("failed to install chart: %w", err)
	}
	return nil
}

func (c *Client) loadChart(pathOpts *action.ChartPathOptions, ref string) (*chart.Chart, error) {
	chartPath, err := pathOpts.LocateChart(ref, c.settings)
	if err != nil {
		return nil, fmt.Errorf("failed to locate chart: %w", err)
	}

	ch, err := loader.Load(chartPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart: %w", err)
	}
	return ch, nil
}

// Uninstall removes a release. A release that is not installed is not an
// error.
func (c *Client) Uninstall(ctx context.Context, releaseName, namespace string, wait bool) error {
	if releaseName == "" {
		return fmt.Errorf("release name cannot be empty")
	}

	cfg, err := c.actionConfig(ctx, namespace)
	if err != nil {
		return err
	}

	uninstall := action.NewUninstall(cfg)
	uninstall.Wait = wait
	uninstall.IgnoreNotFound = true

	if _, err := uninstall.Run(releaseName); err != nil {
		return fmt.Errorf("failed to uninstall release: %w", err)
	}
	return nil
}

// Status returns the current revision of a release, or ErrReleaseNotFound
func (c *Client) Status(ctx context.Context, releaseName, namespace string) (*Release, error) {
	cfg, err := c.actionConfig(ctx, namespace)
	if err != nil {
		return nil, err
	}

	rel, err := action.NewStatus(cfg).Run(releaseName)
	if errors.Is(err, driver.ErrReleaseNotFound) {
		return nil, fmt.Errorf("%s: %w", releaseName, ErrReleaseNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get release status: %w", err)
	}

	r := convertRelease(rel)
	return &r, nil
}

// convertRelease converts a Helm release to our Release type
func convertRelease(rel *release.Release) Release {
	r := Release{
		Name:      rel.Name,
		Namespace: rel.Namespace,
		Version:   rel.Version,
	}
	if rel.Info != nil {
		r.Status = rel.Info.Status.String()
		r.Updated = rel.Info.LastDeployed.Time
	}
	if rel.Chart != nil && rel.Chart.Metadata != nil {
		r.Chart = fmt.Sprintf("%s-%s", rel.Chart.Metadata.Name, rel.Chart.Metadata.Version)
		r.AppVersion = rel.Chart.Metadata.AppVersion
	}
	return r
}
