// Package gpu implements the `anvil gpu` script: a tainted GPU node pool
// and the NVIDIA components that expose nvidia.com/gpu on it.
package gpu

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/azure"
	"github.com/catalystcommunity/anvil/v1/internal/config"
	"github.com/catalystcommunity/anvil/v1/internal/deps"
	"github.com/catalystcommunity/anvil/v1/internal/dispatch"
	"github.com/catalystcommunity/anvil/v1/internal/helm"
	"github.com/catalystcommunity/anvil/v1/internal/k8s"
	"github.com/catalystcommunity/anvil/v1/internal/logging"
)

const operatorTimeout = 10 * time.Minute

// ChartClient is the part of the Helm client the operator mode needs
type ChartClient interface {
	AddRepo(ctx context.Context, opts helm.RepoAddOptions) error
	UpgradeInstall(ctx context.Context, opts helm.ReleaseOptions) error
	Uninstall(ctx context.Context, releaseName, namespace string, wait bool) error
	Status(ctx context.Context, releaseName, namespace string) (*helm.Release, error)
	Close() error
}

// Service runs the gpu actions
type Service struct {
	env       *app.Env
	cfg       *config.Config
	az        *azure.Client
	newKube   func(kubeconfig []byte) (*k8s.Client, error)
	newCharts func(kubeconfig []byte, namespace string) (ChartClient, error)
}

// NewService creates the gpu service
func NewService(env *app.Env,
	newKube func(kubeconfig []byte) (*k8s.Client, error),
	newCharts func(kubeconfig []byte, namespace string) (ChartClient, error)) *Service {
	return &Service{
		env:       env,
		cfg:       env.Config,
		az:        env.Azure,
		newKube:   newKube,
		newCharts: newCharts,
	}
}

// Install adds the GPU pool and deploys the configured driver mode
func (s *Service) Install(ctx context.Context) error {
	log := logging.FromContext(ctx)
	gpu := s.cfg.GPU

	opts := azure.NodePoolOptions{
		ResourceGroup: s.cfg.Azure.ResourceGroup,
		Cluster:       s.cfg.Cluster.Name,
		Name:          gpu.PoolName,
		NodeCount:     gpu.NodeCount,
		VMSize:        gpu.VMSize,
		Labels:        []string{"accelerator=nvidia"},
	}
	if gpu.Taint != "" {
		opts.Taints = []string{gpu.Taint}
	}

	log.Info("adding GPU node pool", "name", gpu.PoolName, "vm_size", gpu.VMSize, "taint", gpu.Taint)
	if err := s.az.AddNodePool(ctx, opts); err != nil {
		return err
	}

	kubeconfig, err := s.env.Kubeconfig(ctx)
	if err != nil {
		return err
	}

	switch gpu.DriverMode {
	case config.DriverModeOperator:
		err = s.installOperator(ctx, kubeconfig)
	default:
		err = s.installDevicePlugin(ctx, kubeconfig)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(s.env.Out, "GPU node pool %s added with %s\n", gpu.PoolName, gpu.DriverMode)
	return nil
}

func (s *Service) installDevicePlugin(ctx context.Context, kubeconfig []byte) error {
	ds, err := devicePluginDaemonSet(s.cfg.GPU)
	if err != nil {
		return err
	}

	kube, err := s.newKube(kubeconfig)
	if err != nil {
		return err
	}
	if err := kube.EnsureNamespace(ctx, s.cfg.GPU.Namespace, map[string]string{managedByLabel: "anvil"}); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("applying device plugin", "namespace", ds.Namespace, "image", s.cfg.GPU.PluginImage)
	return kube.ApplyDaemonSet(ctx, ds)
}

func (s *Service) installOperator(ctx context.Context, kubeconfig []byte) error {
	values, err := operatorValues(s.cfg.GPU)
	if err != nil {
		return err
	}

	kube, err := s.newKube(kubeconfig)
	if err != nil {
		return err
	}
	if err := kube.EnsureNamespace(ctx, s.cfg.GPU.Namespace, map[string]string{managedByLabel: "anvil"}); err != nil {
		return err
	}

	charts, err := s.newCharts(kubeconfig, s.cfg.GPU.Namespace)
	if err != nil {
		return err
	}
	defer charts.Close()

	if err := charts.AddRepo(ctx, helm.RepoAddOptions{Name: operatorRepoName, URL: operatorRepoURL, ForceUpdate: true}); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("installing GPU operator", "version", s.cfg.GPU.OperatorVersion)
	return charts.UpgradeInstall(ctx, helm.ReleaseOptions{
		ReleaseName:     operatorRelease,
		Namespace:       s.cfg.GPU.Namespace,
		Chart:           operatorChart,
		Version:         s.cfg.GPU.OperatorVersion,
		Values:          values,
		CreateNamespace: true,
		Wait:            true,
		Timeout:         operatorTimeout,
	})
}

// Delete removes both driver modes and the node pool. When the cluster
// itself is gone only the pool deletion is attempted.
func (s *Service) Delete(ctx context.Context) error {
	log := logging.FromContext(ctx)
	gpu := s.cfg.GPU

	ok, err := s.env.Confirm(fmt.Sprintf("Delete GPU node pool %s from cluster %s?", gpu.PoolName, s.cfg.Cluster.Name))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(s.env.Out, "Aborted")
		return nil
	}

	kubeconfig, err := s.env.Kubeconfig(ctx)
	switch {
	case azure.IsNotFound(err):
		log.Info("cluster not found, skipping in-cluster cleanup", "cluster", s.cfg.Cluster.Name)
	case err != nil:
		return err
	default:
		if err := s.deleteDrivers(ctx, kubeconfig); err != nil {
			return err
		}
	}

	err = s.az.DeleteNodePool(ctx, s.cfg.Azure.ResourceGroup, s.cfg.Cluster.Name, gpu.PoolName)
	if azure.IsNotFound(err) {
		fmt.Fprintf(s.env.Out, "GPU node pool %s does not exist\n", gpu.PoolName)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(s.env.Out, "GPU node pool %s deleted\n", gpu.PoolName)
	return nil
}

func (s *Service) deleteDrivers(ctx context.Context, kubeconfig []byte) error {
	ns := s.cfg.GPU.Namespace

	kube, err := s.newKube(kubeconfig)
	if err != nil {
		return err
	}
	if err := kube.DeleteDaemonSet(ctx, ns, devicePluginName); err != nil {
		return err
	}

	charts, err := s.newCharts(kubeconfig, ns)
	if err != nil {
		return err
	}
	defer charts.Close()
	if err := charts.Uninstall(ctx, operatorRelease, ns, true); err != nil {
		return err
	}

	// namespaces anvil did not create are left alone
	deleted, err := kube.DeleteOwnedNamespace(ctx, ns, managedByLabel, "anvil")
	if err != nil {
		return err
	}
	if !deleted {
		logging.FromContext(ctx).Info("keeping namespace not managed by anvil", "namespace", ns)
	}
	return nil
}

// Show prints the pool, the GPUs each of its nodes advertises and the
// state of the driver mode
func (s *Service) Show(ctx context.Context) error {
	gpu := s.cfg.GPU

	pool, err := s.az.ShowNodePool(ctx, s.cfg.Azure.ResourceGroup, s.cfg.Cluster.Name, gpu.PoolName)
	if azure.IsNotFound(err) {
		return dispatch.NotFound("GPU node pool", gpu.PoolName)
	}
	if err != nil {
		return fmt.Errorf("failed to show node pool: %w", err)
	}

	kubeconfig, err := s.env.Kubeconfig(ctx)
	if err != nil {
		return err
	}
	kube, err := s.newKube(kubeconfig)
	if err != nil {
		return err
	}
	nodes, err := kube.GetNodes(ctx, k8s.AgentPoolLabel+"="+gpu.PoolName)
	if err != nil {
		return err
	}

	driver, err := s.driverStatus(ctx, kube, kubeconfig)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(s.env.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Pool:\t%s\n", pool.Name)
	fmt.Fprintf(w, "VM size:\t%s\n", pool.VMSize)
	fmt.Fprintf(w, "Nodes:\t%d\n", pool.Count)
	fmt.Fprintf(w, "Taints:\t%s\n", strings.Join(pool.NodeTaints, ","))
	fmt.Fprintf(w, "State:\t%s\n", pool.ProvisioningState)
	fmt.Fprintf(w, "Driver:\t%s\n", driver)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "NODE\tSTATUS\t%s CAPACITY\tALLOCATABLE\tLABELS\n", k8s.GPUResource)
	for _, node := range nodes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			node.Name, node.Status, node.CapacityGPU, node.AllocatableGPU, formatLabels(k8s.FilterUserLabels(node.Labels)))
	}
	return w.Flush()
}

func (s *Service) driverStatus(ctx context.Context, kube *k8s.Client, kubeconfig []byte) (string, error) {
	ns := s.cfg.GPU.Namespace

	if s.cfg.GPU.DriverMode == config.DriverModeOperator {
		charts, err := s.newCharts(kubeconfig, ns)
		if err != nil {
			return "", err
		}
		defer charts.Close()

		rel, err := charts.Status(ctx, operatorRelease, ns)
		if err != nil {
			if errors.Is(err, helm.ErrReleaseNotFound) {
				return "gpu-operator not installed", nil
			}
			return "", err
		}
		return fmt.Sprintf("gpu-operator %s (%s, revision %d)", rel.Status, rel.Chart, rel.Version), nil
	}

	ds, err := kube.GetDaemonSet(ctx, ns, devicePluginName)
	if k8s.IsNotFound(err) {
		return "device plugin not installed", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get device plugin: %w", err)
	}
	return fmt.Sprintf("device plugin %d/%d ready", ds.Status.NumberReady, ds.Status.DesiredNumberScheduled), nil
}

// CheckDeps reports az (required) and kubectl (optional)
func (s *Service) CheckDeps(ctx context.Context) error {
	return s.env.CheckDeps(ctx, deps.Az, deps.Kubectl)
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return "-"
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
