package k8s

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

const testKubeconfig = `
apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://anvil-aks-dns.hcp.eastus.azmk8s.io:443
  name: anvil-aks
contexts:
- context:
    cluster: anvil-aks
    user: clusterUser_anvil-rg_anvil-aks
  name: anvil-aks
current-context: anvil-aks
users:
- name: clusterUser_anvil-rg_anvil-aks
  user:
    token: test-token
`

func TestNewClientFromKubeconfig(t *testing.T) {
	tests := []struct {
		name       string
		kubeconfig []byte
		errMsg     string
	}{
		{name: "valid kubeconfig", kubeconfig: []byte(testKubeconfig)},
		{name: "empty kubeconfig", kubeconfig: []byte{}, errMsg: "kubeconfig is empty"},
		{name: "invalid yaml", kubeconfig: []byte("invalid: yaml: content:"), errMsg: "failed to build config from kubeconfig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClientFromKubeconfig(tt.kubeconfig)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func gpuNode(name string, gpus int64, ready bool) *corev1.Node {
	status := corev1.ConditionFalse
	if ready {
		status = corev1.ConditionTrue
	}
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name: name,
			Labels: map[string]string{
				AgentPoolLabel: "gpupool",
				"accelerator":  "nvidia",
			},
		},
		Spec: corev1.NodeSpec{
			Taints: []corev1.Taint{{Key: "sku", Value: "gpu", Effect: corev1.TaintEffectNoSchedule}},
		},
		Status: corev1.NodeStatus{
			Capacity: corev1.ResourceList{
				GPUResource: *resource.NewQuantity(gpus, resource.DecimalSI),
			},
			Allocatable: corev1.ResourceList{
				GPUResource:           *resource.NewQuantity(gpus, resource.DecimalSI),
				corev1.ResourceCPU:    resource.MustParse("5840m"),
				corev1.ResourceMemory: resource.MustParse("100Gi"),
			},
			Conditions: []corev1.NodeCondition{{Type: corev1.NodeReady, Status: status}},
			Addresses:  []corev1.NodeAddress{{Type: corev1.NodeInternalIP, Address: "10.240.0.9"}},
			NodeInfo:   corev1.NodeSystemInfo{KubeletVersion: "v1.30.3"},
		},
	}
}

func TestGetNodes(t *testing.T) {
	system := &corev1.Node{ObjectMeta: metav1.ObjectMeta{
		Name:   "aks-nodepool1-0",
		Labels: map[string]string{AgentPoolLabel: "nodepool1"},
	}}
	client := NewClientFromClientset(fake.NewSimpleClientset(gpuNode("aks-gpupool-0", 1, true), system))

	nodes, err := client.GetNodes(context.Background(), AgentPoolLabel+"=gpupool")
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	n := nodes[0]
	assert.Equal(t, "aks-gpupool-0", n.Name)
	assert.Equal(t, "gpupool", n.Pool)
	assert.True(t, n.Ready)
	assert.Equal(t, "Ready", n.Status)
	assert.Equal(t, int64(1), n.CapacityGPU)
	assert.Equal(t, int64(1), n.AllocatableGPU)
	assert.Equal(t, "5840m", n.AllocatableCPU)
	assert.Equal(t, []string{"sku=gpu:NoSchedule"}, n.Taints)
	assert.Equal(t, "10.240.0.9", n.InternalIP)

	all, err := client.GetNodes(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, node := range all {
		if node.Name == "aks-nodepool1-0" {
			assert.Zero(t, node.AllocatableGPU)
			assert.False(t, node.Ready)
			assert.Equal(t, "NotReady", node.Status)
		}
	}
}

func TestGetPods(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "sched-1", Namespace: "kube-system", Labels: map[string]string{"app": "sched"}},
		Spec:       corev1.PodSpec{NodeName: "node-1", SchedulerName: "default-scheduler"},
		Status: corev1.PodStatus{
			Phase:      corev1.PodRunning,
			Conditions: []corev1.PodCondition{{Type: corev1.PodReady, Status: corev1.ConditionTrue}},
			ContainerStatuses: []corev1.ContainerStatus{{
				Name: "kube-scheduler", Ready: true, RestartCount: 2,
				State: corev1.ContainerState{Running: &corev1.ContainerStateRunning{}},
			}},
		},
	}
	other := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "other", Namespace: "kube-system"}}
	client := NewClientFromClientset(fake.NewSimpleClientset(pod, other))

	pods, err := client.GetPods(context.Background(), "kube-system", "app=sched")
	require.NoError(t, err)
	require.Len(t, pods, 1)
	assert.True(t, pods[0].Ready)
	assert.Equal(t, "node-1", pods[0].NodeName)
	require.Len(t, pods[0].Containers, 1)
	assert.Equal(t, "Running", pods[0].Containers[0].State)
	assert.Equal(t, int32(2), pods[0].Containers[0].Restarts)
}

func TestEnsureNamespace(t *testing.T) {
	cs := fake.NewSimpleClientset()
	client := NewClientFromClientset(cs)
	ctx := context.Background()

	require.NoError(t, client.EnsureNamespace(ctx, "gpu-resources", map[string]string{"app.kubernetes.io/managed-by": "anvil"}))
	require.NoError(t, client.EnsureNamespace(ctx, "gpu-resources", nil), "existing namespace is fine")

	ns, err := cs.CoreV1().Namespaces().Get(ctx, "gpu-resources", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "anvil", ns.Labels["app.kubernetes.io/managed-by"])

	require.NoError(t, client.DeleteNamespace(ctx, "gpu-resources"))
	require.NoError(t, client.DeleteNamespace(ctx, "gpu-resources"), "missing namespace is fine")
	_, err = cs.CoreV1().Namespaces().Get(ctx, "gpu-resources", metav1.GetOptions{})
	assert.True(t, IsNotFound(err))
}

func TestDeleteOwnedNamespace(t *testing.T) {
	owned := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{
		Name:   "gpu-resources",
		Labels: map[string]string{"app.kubernetes.io/managed-by": "anvil"},
	}}
	foreign := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{
		Name:   "ml-team",
		Labels: map[string]string{"app.kubernetes.io/managed-by": "argocd"},
	}}
	bare := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "scratch"}}
	cs := fake.NewSimpleClientset(owned, foreign, bare)
	client := NewClientFromClientset(cs)
	ctx := context.Background()

	tests := []struct {
		name    string
		ns      string
		deleted bool
	}{
		{name: "labelled by anvil", ns: "gpu-resources", deleted: true},
		{name: "managed by someone else", ns: "ml-team"},
		{name: "no labels", ns: "scratch"},
		{name: "missing", ns: "absent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deleted, err := client.DeleteOwnedNamespace(ctx, tt.ns, "app.kubernetes.io/managed-by", "anvil")
			require.NoError(t, err)
			assert.Equal(t, tt.deleted, deleted)
		})
	}

	_, err := cs.CoreV1().Namespaces().Get(ctx, "gpu-resources", metav1.GetOptions{})
	assert.True(t, IsNotFound(err))
	for _, name := range []string{"ml-team", "scratch"} {
		_, err := cs.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
		assert.NoError(t, err, name)
	}
}
