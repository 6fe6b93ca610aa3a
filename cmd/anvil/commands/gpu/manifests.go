package gpu

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/catalystcommunity/anvil/v1/internal/config"
	"github.com/catalystcommunity/anvil/v1/internal/k8s"
)

const (
	devicePluginName = "nvidia-device-plugin-daemonset"
	devicePluginPath = "/var/lib/kubelet/device-plugins"

	operatorRepoName = "nvidia"
	operatorRepoURL  = "https://helm.ngc.nvidia.com/nvidia"
	operatorChart    = "nvidia/gpu-operator"
	operatorRelease  = "gpu-operator"

	managedByLabel = "app.kubernetes.io/managed-by"
)

// tolerations lets GPU workloads onto the pool: the pool taint plus the
// taint the device plugin itself documents
func tolerations(taint string) ([]corev1.Toleration, error) {
	result := []corev1.Toleration{{
		Key:      string(k8s.GPUResource),
		Operator: corev1.TolerationOpExists,
		Effect:   corev1.TaintEffectNoSchedule,
	}}
	if taint == "" {
		return result, nil
	}

	key, value, effect, err := config.ParseTaint(taint)
	if err != nil {
		return nil, err
	}
	t := corev1.Toleration{Key: key, Operator: corev1.TolerationOpExists, Effect: corev1.TaintEffect(effect)}
	if value != "" {
		t.Operator = corev1.TolerationOpEqual
		t.Value = value
	}
	return append([]corev1.Toleration{t}, result...), nil
}

// devicePluginDaemonSet builds the NVIDIA device plugin DaemonSet pinned to
// the GPU pool
func devicePluginDaemonSet(cfg config.GPUConfig) (*appsv1.DaemonSet, error) {
	tols, err := tolerations(cfg.Taint)
	if err != nil {
		return nil, err
	}

	selector := map[string]string{"name": "nvidia-device-plugin-ds"}
	labels := map[string]string{"name": "nvidia-device-plugin-ds", managedByLabel: "anvil"}
	noEscalation := false

	return &appsv1.DaemonSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      devicePluginName,
			Namespace: cfg.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.DaemonSetSpec{
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			UpdateStrategy: appsv1.DaemonSetUpdateStrategy{
				Type: appsv1.RollingUpdateDaemonSetStrategyType,
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					NodeSelector:      map[string]string{k8s.AgentPoolLabel: cfg.PoolName},
					Tolerations:       tols,
					PriorityClassName: "system-node-critical",
					Containers: []corev1.Container{{
						Name:  "nvidia-device-plugin-ctr",
						Image: cfg.PluginImage,
						Env: []corev1.EnvVar{
							{Name: "FAIL_ON_INIT_ERROR", Value: "false"},
						},
						SecurityContext: &corev1.SecurityContext{
							AllowPrivilegeEscalation: &noEscalation,
							Capabilities: &corev1.Capabilities{
								Drop: []corev1.Capability{"ALL"},
							},
						},
						VolumeMounts: []corev1.VolumeMount{{
							Name:      "device-plugin",
							MountPath: devicePluginPath,
						}},
					}},
					Volumes: []corev1.Volume{{
						Name: "device-plugin",
						VolumeSource: corev1.VolumeSource{
							HostPath: &corev1.HostPathVolumeSource{Path: devicePluginPath},
						},
					}},
				},
			},
		},
	}, nil
}

// operatorValues configures the GPU operator for AKS GPU pools. AKS
// installs the driver on the nodes, so the operator must not.
func operatorValues(cfg config.GPUConfig) (map[string]interface{}, error) {
	tols, err := tolerations(cfg.Taint)
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, 0, len(tols))
	for _, t := range tols {
		v := map[string]interface{}{
			"key":      t.Key,
			"operator": string(t.Operator),
			"effect":   string(t.Effect),
		}
		if t.Value != "" {
			v["value"] = t.Value
		}
		values = append(values, v)
	}

	return map[string]interface{}{
		"driver": map[string]interface{}{"enabled": false},
		"daemonsets": map[string]interface{}{
			"tolerations": values,
		},
		"node-feature-discovery": map[string]interface{}{
			"worker": map[string]interface{}{"tolerations": values},
		},
	}, nil
}
