package scheduler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/catalystcommunity/anvil/v1/internal/config"
)

const (
	configKey     = "config.yaml"
	configMount   = "/etc/kubernetes/scheduler"
	securePort    = 10259
	imageRegistry = "registry.k8s.io/kube-scheduler"

	managedByLabel    = "app.kubernetes.io/managed-by"
	componentLabel    = "component"
	profileAnnotation = "anvil.catalystcommunity.io/profile-sha256"
)

// objectNames are the names of everything install creates for one scheduler
type objectNames struct {
	ServiceAccount    string
	SchedulerBinding  string
	VolumeBinding     string
	AuthReaderBinding string
	ConfigMap         string
	Deployment        string
}

func namesFor(name string) objectNames {
	return objectNames{
		ServiceAccount:    name,
		SchedulerBinding:  name + "-as-kube-scheduler",
		VolumeBinding:     name + "-as-volume-scheduler",
		AuthReaderBinding: name + "-extension-apiserver-authentication-reader",
		ConfigMap:         name + "-config",
		Deployment:        name,
	}
}

// imageFor picks the scheduler image, matching the cluster's Kubernetes
// version unless one is configured
func imageFor(cfg config.SchedulerConfig, clusterVersion string) (string, error) {
	if cfg.Image != "" {
		return cfg.Image, nil
	}
	version := strings.TrimPrefix(clusterVersion, "v")
	if version == "" {
		return "", fmt.Errorf("cannot derive the scheduler image without a cluster version, set SCHEDULER_IMAGE")
	}
	return fmt.Sprintf("%s:v%s", imageRegistry, version), nil
}

func objectLabels(name string) map[string]string {
	return map[string]string{
		componentLabel: name,
		managedByLabel: "anvil",
	}
}

func serviceAccount(cfg config.SchedulerConfig) *corev1.ServiceAccount {
	return &corev1.ServiceAccount{
		ObjectMeta: metav1.ObjectMeta{
			Name:      namesFor(cfg.Name).ServiceAccount,
			Namespace: cfg.Namespace,
			Labels:    objectLabels(cfg.Name),
		},
	}
}

func subjects(cfg config.SchedulerConfig) []rbacv1.Subject {
	return []rbacv1.Subject{{
		Kind:      rbacv1.ServiceAccountKind,
		Name:      namesFor(cfg.Name).ServiceAccount,
		Namespace: cfg.Namespace,
	}}
}

// clusterRoleBindings grant the built-in roles the default scheduler runs
// with
func clusterRoleBindings(cfg config.SchedulerConfig) []*rbacv1.ClusterRoleBinding {
	names := namesFor(cfg.Name)
	bind := func(name, role string) *rbacv1.ClusterRoleBinding {
		return &rbacv1.ClusterRoleBinding{
			ObjectMeta: metav1.ObjectMeta{Name: name, Labels: objectLabels(cfg.Name)},
			Subjects:   subjects(cfg),
			RoleRef: rbacv1.RoleRef{
				APIGroup: rbacv1.GroupName,
				Kind:     "ClusterRole",
				Name:     role,
			},
		}
	}
	return []*rbacv1.ClusterRoleBinding{
		bind(names.SchedulerBinding, "system:kube-scheduler"),
		bind(names.VolumeBinding, "system:volume-scheduler"),
	}
}

// authReaderBinding lets the scheduler read the client CA for delegated
// authentication of its secure port
func authReaderBinding(cfg config.SchedulerConfig) *rbacv1.RoleBinding {
	return &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{
			Name:      namesFor(cfg.Name).AuthReaderBinding,
			Namespace: metav1.NamespaceSystem,
			Labels:    objectLabels(cfg.Name),
		},
		Subjects: subjects(cfg),
		RoleRef: rbacv1.RoleRef{
			APIGroup: rbacv1.GroupName,
			Kind:     "Role",
			Name:     "extension-apiserver-authentication-reader",
		},
	}
}

func profileConfigMap(cfg config.SchedulerConfig, profile []byte) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      namesFor(cfg.Name).ConfigMap,
			Namespace: cfg.Namespace,
			Labels:    objectLabels(cfg.Name),
		},
		Data: map[string]string{configKey: string(profile)},
	}
}

// deployment runs the scheduler with the profile mounted from its ConfigMap.
// The profile digest on the pod template rolls the pods when it changes.
func deployment(cfg config.SchedulerConfig, image string, profile []byte) *appsv1.Deployment {
	names := namesFor(cfg.Name)
	digest := sha256.Sum256(profile)
	labels := objectLabels(cfg.Name)
	replicas := int32(1)
	noEscalation := false

	probe := func(delay int32) *corev1.Probe {
		return &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				HTTPGet: &corev1.HTTPGetAction{
					Path:   "/healthz",
					Port:   intstr.FromInt32(securePort),
					Scheme: corev1.URISchemeHTTPS,
				},
			},
			InitialDelaySeconds: delay,
		}
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      names.Deployment,
			Namespace: cfg.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{componentLabel: cfg.Name}},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      labels,
					Annotations: map[string]string{profileAnnotation: hex.EncodeToString(digest[:])},
				},
				Spec: corev1.PodSpec{
					ServiceAccountName: names.ServiceAccount,
					Containers: []corev1.Container{{
						Name:  "kube-scheduler",
						Image: image,
						Command: []string{
							"kube-scheduler",
							fmt.Sprintf("--config=%s/%s", configMount, configKey),
						},
						LivenessProbe:  probe(15),
						ReadinessProbe: probe(0),
						Resources: corev1.ResourceRequirements{
							Requests: corev1.ResourceList{
								corev1.ResourceCPU: resource.MustParse("100m"),
							},
						},
						SecurityContext: &corev1.SecurityContext{
							AllowPrivilegeEscalation: &noEscalation,
						},
						VolumeMounts: []corev1.VolumeMount{{
							Name:      "config",
							MountPath: configMount,
							ReadOnly:  true,
						}},
					}},
					Volumes: []corev1.Volume{{
						Name: "config",
						VolumeSource: corev1.VolumeSource{
							ConfigMap: &corev1.ConfigMapVolumeSource{
								LocalObjectReference: corev1.LocalObjectReference{Name: names.ConfigMap},
							},
						},
					}},
				},
			},
		},
	}
}
