package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// Client wraps Kubernetes client-go for easier interaction
type Client struct {
	clientset kubernetes.Interface
}

// NewClientFromKubeconfig creates a Kubernetes client from kubeconfig bytes
func NewClientFromKubeconfig(kubeconfig []byte) (*Client, error) {
	if len(kubeconfig) == 0 {
		return nil, fmt.Errorf("kubeconfig is empty")
	}

	config, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	return &Client{clientset: clientset}, nil
}

// NewClientFromClientset wraps an existing clientset, typically a fake one
func NewClientFromClientset(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// IsNotFound reports whether err is a Kubernetes not-found API error
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}

// GetNodes retrieves the nodes matching selector; an empty selector lists all
func (c *Client) GetNodes(ctx context.Context, selector string) ([]*Node, error) {
	nodeList, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	nodes := make([]*Node, 0, len(nodeList.Items))
	for i := range nodeList.Items {
		nodes = append(nodes, NodeFromCoreV1(&nodeList.Items[i]))
	}

	return nodes, nil
}

// GetPods retrieves the pods in namespace matching selector
func (c *Client) GetPods(ctx context.Context, namespace, selector string) ([]*Pod, error) {
	podList, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	pods := make([]*Pod, 0, len(podList.Items))
	for i := range podList.Items {
		pods = append(pods, PodFromCoreV1(&podList.Items[i]))
	}

	return pods, nil
}

// EnsureNamespace creates a namespace unless it already exists
func (c *Client) EnsureNamespace(ctx context.Context, name string, labels map[string]string) error {
	_, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to get namespace %s: %w", name, err)
	}

	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: labels,
		},
	}
	if _, err := c.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return nil
}

// DeleteNamespace deletes a namespace and everything in it. A missing
// namespace is not an error.
func (c *Client) DeleteNamespace(ctx context.Context, name string) error {
	err := c.clientset.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete namespace %s: %w", name, err)
	}
	return nil
}

// DeleteOwnedNamespace deletes a namespace only when its label key is set
// to owner, and reports whether it did. A missing namespace is not an error.
func (c *Client) DeleteOwnedNamespace(ctx context.Context, name, key, owner string) (bool, error) {
	ns, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get namespace %s: %w", name, err)
	}
	if ns.Labels[key] != owner {
		return false, nil
	}
	if err := c.DeleteNamespace(ctx, name); err != nil {
		return false, err
	}
	return true, nil
}
