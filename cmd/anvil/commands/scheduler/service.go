// Package scheduler implements the `anvil scheduler` script: a secondary
// kube-scheduler whose NodeResourcesFit profile packs pods onto the
// fewest nodes.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/azure"
	"github.com/catalystcommunity/anvil/v1/internal/config"
	"github.com/catalystcommunity/anvil/v1/internal/deps"
	"github.com/catalystcommunity/anvil/v1/internal/dispatch"
	"github.com/catalystcommunity/anvil/v1/internal/k8s"
	"github.com/catalystcommunity/anvil/v1/internal/logging"
)

// Service runs the scheduler actions
type Service struct {
	env     *app.Env
	cfg     *config.Config
	az      *azure.Client
	newKube func(kubeconfig []byte) (*k8s.Client, error)
}

// NewService creates the scheduler service
func NewService(env *app.Env, newKube func(kubeconfig []byte) (*k8s.Client, error)) *Service {
	return &Service{
		env:     env,
		cfg:     env.Config,
		az:      env.Azure,
		newKube: newKube,
	}
}

// Install renders the profile and applies the scheduler objects in
// dependency order
func (s *Service) Install(ctx context.Context) error {
	log := logging.FromContext(ctx)
	sched := s.cfg.Scheduler

	profile, err := RenderProfile(sched.Name, sched.Strategy)
	if err != nil {
		return err
	}

	image, err := s.image(ctx)
	if err != nil {
		return err
	}

	kube, err := s.kube(ctx)
	if err != nil {
		return err
	}

	log.Info("deploying scheduler", "name", sched.Name, "namespace", sched.Namespace, "image", image, "strategy", sched.Strategy)
	if err := kube.ApplyServiceAccount(ctx, serviceAccount(sched)); err != nil {
		return err
	}
	for _, crb := range clusterRoleBindings(sched) {
		if err := kube.ApplyClusterRoleBinding(ctx, crb); err != nil {
			return err
		}
	}
	if err := kube.ApplyRoleBinding(ctx, authReaderBinding(sched)); err != nil {
		return err
	}
	if err := kube.ApplyConfigMap(ctx, profileConfigMap(sched, profile)); err != nil {
		return err
	}
	if err := kube.ApplyDeployment(ctx, deployment(sched, image, profile)); err != nil {
		return err
	}

	fmt.Fprintf(s.env.Out, "Scheduler %s deployed to %s\n", sched.Name, sched.Namespace)
	fmt.Fprintf(s.env.Out, "Set spec.schedulerName: %s on pods to use it\n", sched.Name)
	return nil
}

func (s *Service) image(ctx context.Context) (string, error) {
	version := s.cfg.Cluster.KubernetesVersion
	if s.cfg.Scheduler.Image == "" && strings.Count(strings.TrimPrefix(version, "v"), ".") < 2 {
		// a configured version may be major.minor only, which is not an image tag
		mc, err := s.az.ShowCluster(ctx, s.cfg.Azure.ResourceGroup, s.cfg.Cluster.Name)
		if azure.IsNotFound(err) {
			return "", fmt.Errorf("AKS cluster %s not found, run anvil aks -x install first", s.cfg.Cluster.Name)
		}
		if err != nil {
			return "", fmt.Errorf("failed to read cluster version: %w", err)
		}
		version = mc.CurrentKubernetesVersion
	}
	return imageFor(s.cfg.Scheduler, version)
}

func (s *Service) kube(ctx context.Context) (*k8s.Client, error) {
	kubeconfig, err := s.env.Kubeconfig(ctx)
	if err != nil {
		return nil, err
	}
	return s.newKube(kubeconfig)
}

// Delete removes every object install created. Objects already gone are
// skipped, and a missing cluster leaves nothing to delete.
func (s *Service) Delete(ctx context.Context) error {
	sched := s.cfg.Scheduler
	names := namesFor(sched.Name)

	ok, err := s.env.Confirm(fmt.Sprintf("Delete scheduler %s from %s?", sched.Name, sched.Namespace))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(s.env.Out, "Aborted")
		return nil
	}

	kube, err := s.kube(ctx)
	if azure.IsNotFound(err) {
		fmt.Fprintf(s.env.Out, "AKS cluster %s does not exist\n", s.cfg.Cluster.Name)
		return nil
	}
	if err != nil {
		return err
	}

	logging.FromContext(ctx).Info("deleting scheduler", "name", sched.Name, "namespace", sched.Namespace)
	steps := []func() error{
		func() error { return kube.DeleteDeployment(ctx, sched.Namespace, names.Deployment) },
		func() error { return kube.DeleteConfigMap(ctx, sched.Namespace, names.ConfigMap) },
		func() error { return kube.DeleteRoleBinding(ctx, metav1.NamespaceSystem, names.AuthReaderBinding) },
		func() error { return kube.DeleteClusterRoleBinding(ctx, names.VolumeBinding) },
		func() error { return kube.DeleteClusterRoleBinding(ctx, names.SchedulerBinding) },
		func() error { return kube.DeleteServiceAccount(ctx, sched.Namespace, names.ServiceAccount) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	fmt.Fprintf(s.env.Out, "Scheduler %s deleted\n", sched.Name)
	return nil
}

// Show prints deployment readiness, the pods the scheduler placed and the
// profile it runs with
func (s *Service) Show(ctx context.Context) error {
	sched := s.cfg.Scheduler
	names := namesFor(sched.Name)

	kube, err := s.kube(ctx)
	if azure.IsNotFound(err) {
		return dispatch.NotFound("AKS cluster", s.cfg.Cluster.Name)
	}
	if err != nil {
		return err
	}

	dep, err := kube.GetDeployment(ctx, sched.Namespace, names.Deployment)
	if k8s.IsNotFound(err) {
		return dispatch.NotFound("scheduler", sched.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to get scheduler deployment: %w", err)
	}

	profile := "(missing)\n"
	cm, err := kube.GetConfigMap(ctx, sched.Namespace, names.ConfigMap)
	switch {
	case k8s.IsNotFound(err):
	case err != nil:
		return fmt.Errorf("failed to get scheduler profile: %w", err)
	default:
		profile = cm.Data[configKey]
	}

	pods, err := kube.GetPods(ctx, metav1.NamespaceAll, "")
	if err != nil {
		return err
	}
	scheduled := 0
	for _, pod := range pods {
		if pod.SchedulerName == sched.Name {
			scheduled++
		}
	}

	var image string
	if containers := dep.Spec.Template.Spec.Containers; len(containers) > 0 {
		image = containers[0].Image
	}
	var desired int32 = 1
	if dep.Spec.Replicas != nil {
		desired = *dep.Spec.Replicas
	}

	w := tabwriter.NewWriter(s.env.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Scheduler:\t%s\n", sched.Name)
	fmt.Fprintf(w, "Namespace:\t%s\n", sched.Namespace)
	fmt.Fprintf(w, "Image:\t%s\n", image)
	fmt.Fprintf(w, "Ready:\t%d/%d\n", dep.Status.ReadyReplicas, desired)
	fmt.Fprintf(w, "Pods scheduled:\t%d\n", scheduled)
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(s.env.Out, "\nProfile:\n%s", profile)
	return nil
}

// CheckDeps reports az (required) and kubectl (optional)
func (s *Service) CheckDeps(ctx context.Context) error {
	return s.env.CheckDeps(ctx, deps.Az, deps.Kubectl)
}
