package k8s

import (
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
)

// GPUResource is the extended resource the NVIDIA device plugin advertises
const GPUResource corev1.ResourceName = "nvidia.com/gpu"

// AgentPoolLabel carries the AKS node pool a node belongs to
const AgentPoolLabel = "kubernetes.azure.com/agentpool"

// Node represents a Kubernetes node with simplified fields
type Node struct {
	Name              string
	Status            string
	Ready             bool
	Version           string
	InternalIP        string
	Pool              string
	Labels            map[string]string
	Taints            []string
	AllocatableCPU    string
	AllocatableMemory string
	CapacityGPU       int64
	AllocatableGPU    int64
	CreationTimestamp time.Time
}

// Pod represents a Kubernetes pod with simplified fields
type Pod struct {
	Name              string
	Namespace         string
	Phase             corev1.PodPhase
	Ready             bool
	NodeName          string
	SchedulerName     string
	CreationTimestamp time.Time
	Containers        []Container
}

// Container represents a container within a pod
type Container struct {
	Name     string
	Image    string
	Ready    bool
	State    string
	Restarts int32
}

// NodeFromCoreV1 converts a core/v1 Node to our Node type
func NodeFromCoreV1(node *corev1.Node) *Node {
	n := &Node{
		Name:              node.Name,
		Status:            "NotReady",
		Version:           node.Status.NodeInfo.KubeletVersion,
		Pool:              node.Labels[AgentPoolLabel],
		Labels:            node.Labels,
		CreationTimestamp: node.CreationTimestamp.Time,
	}

	for _, addr := range node.Status.Addresses {
		if addr.Type == corev1.NodeInternalIP {
			n.InternalIP = addr.Address
		}
	}

	for _, taint := range node.Spec.Taints {
		n.Taints = append(n.Taints, formatTaint(taint))
	}

	if cpu, ok := node.Status.Allocatable[corev1.ResourceCPU]; ok {
		n.AllocatableCPU = cpu.String()
	}
	if mem, ok := node.Status.Allocatable[corev1.ResourceMemory]; ok {
		n.AllocatableMemory = mem.String()
	}
	if gpu, ok := node.Status.Capacity[GPUResource]; ok {
		n.CapacityGPU = gpu.Value()
	}
	if gpu, ok := node.Status.Allocatable[GPUResource]; ok {
		n.AllocatableGPU = gpu.Value()
	}

	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady && cond.Status == corev1.ConditionTrue {
			n.Status = "Ready"
			n.Ready = true
		}
	}

	return n
}

func formatTaint(t corev1.Taint) string {
	if t.Value == "" {
		return fmt.Sprintf("%s:%s", t.Key, t.Effect)
	}
	return fmt.Sprintf("%s=%s:%s", t.Key, t.Value, t.Effect)
}

// PodFromCoreV1 converts a core/v1 Pod to our Pod type
func PodFromCoreV1(pod *corev1.Pod) *Pod {
	p := &Pod{
		Name:              pod.Name,
		Namespace:         pod.Namespace,
		Phase:             pod.Status.Phase,
		Ready:             isPodReady(pod),
		NodeName:          pod.Spec.NodeName,
		SchedulerName:     pod.Spec.SchedulerName,
		CreationTimestamp: pod.CreationTimestamp.Time,
		Containers:        make([]Container, 0, len(pod.Status.ContainerStatuses)),
	}

	for _, cs := range pod.Status.ContainerStatuses {
		container := Container{
			Name:     cs.Name,
			Image:    cs.Image,
			Ready:    cs.Ready,
			Restarts: cs.RestartCount,
		}

		switch {
		case cs.State.Running != nil:
			container.State = "Running"
		case cs.State.Waiting != nil:
			container.State = "Waiting"
		case cs.State.Terminated != nil:
			container.State = "Terminated"
		}

		p.Containers = append(p.Containers, container)
	}

	return p
}

// isPodReady checks if all containers in a pod are ready
func isPodReady(pod *corev1.Pod) bool {
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}
