package k8s

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Apply* create the object or replace the spec of an existing one of the
// same name. Delete* ignore objects that are already gone.

// ApplyServiceAccount creates or updates a ServiceAccount
func (c *Client) ApplyServiceAccount(ctx context.Context, sa *corev1.ServiceAccount) error {
	api := c.clientset.CoreV1().ServiceAccounts(sa.Namespace)
	existing, err := api.Get(ctx, sa.Name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		_, err = api.Create(ctx, sa, metav1.CreateOptions{})
	case err == nil:
		existing.Labels = sa.Labels
		_, err = api.Update(ctx, existing, metav1.UpdateOptions{})
	}
	if err != nil {
		return fmt.Errorf("failed to apply service account %s/%s: %w", sa.Namespace, sa.Name, err)
	}
	return nil
}

// DeleteServiceAccount deletes a ServiceAccount
func (c *Client) DeleteServiceAccount(ctx context.Context, namespace, name string) error {
	return ignoreNotFound(c.clientset.CoreV1().ServiceAccounts(namespace).Delete(ctx, name, metav1.DeleteOptions{}),
		"service account", namespace+"/"+name)
}

// ApplyClusterRoleBinding creates or updates a ClusterRoleBinding. The role
// reference of a binding is immutable, so a changed RoleRef recreates it.
func (c *Client) ApplyClusterRoleBinding(ctx context.Context, crb *rbacv1.ClusterRoleBinding) error {
	api := c.clientset.RbacV1().ClusterRoleBindings()
	existing, err := api.Get(ctx, crb.Name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		_, err = api.Create(ctx, crb, metav1.CreateOptions{})
	case err == nil && existing.RoleRef != crb.RoleRef:
		if err = api.Delete(ctx, crb.Name, metav1.DeleteOptions{}); err == nil {
			_, err = api.Create(ctx, crb, metav1.CreateOptions{})
		}
	case err == nil:
		existing.Labels = crb.Labels
		existing.Subjects = crb.Subjects
		_, err = api.Update(ctx, existing, metav1.UpdateOptions{})
	}
	if err != nil {
		return fmt.Errorf("failed to apply cluster role binding %s: %w", crb.Name, err)
	}
	return nil
}

// DeleteClusterRoleBinding deletes a ClusterRoleBinding
func (c *Client) DeleteClusterRoleBinding(ctx context.Context, name string) error {
	return ignoreNotFound(c.clientset.RbacV1().ClusterRoleBindings().Delete(ctx, name, metav1.DeleteOptions{}),
		"cluster role binding", name)
}

// ApplyRoleBinding creates or updates a RoleBinding
func (c *Client) ApplyRoleBinding(ctx context.Context, rb *rbacv1.RoleBinding) error {
	api := c.clientset.RbacV1().RoleBindings(rb.Namespace)
	existing, err := api.Get(ctx, rb.Name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		_, err = api.Create(ctx, rb, metav1.CreateOptions{})
	case err == nil && existing.RoleRef != rb.RoleRef:
		if err = api.Delete(ctx, rb.Name, metav1.DeleteOptions{}); err == nil {
			_, err = api.Create(ctx, rb, metav1.CreateOptions{})
		}
	case err == nil:
		existing.Labels = rb.Labels
		existing.Subjects = rb.Subjects
		_, err = api.Update(ctx, existing, metav1.UpdateOptions{})
	}
	if err != nil {
		return fmt.Errorf("failed to apply role binding %s/%s: %w", rb.Namespace, rb.Name, err)
	}
	return nil
}

// DeleteRoleBinding deletes a RoleBinding
func (c *Client) DeleteRoleBinding(ctx context.Context, namespace, name string) error {
	return ignoreNotFound(c.clientset.RbacV1().RoleBindings(namespace).Delete(ctx, name, metav1.DeleteOptions{}),
		"role binding", namespace+"/"+name)
}

// ApplyConfigMap creates or updates a ConfigMap
func (c *Client) ApplyConfigMap(ctx context.Context, cm *corev1.ConfigMap) error {
	api := c.clientset.CoreV1().ConfigMaps(cm.Namespace)
	existing, err := api.Get(ctx, cm.Name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		_, err = api.Create(ctx, cm, metav1.CreateOptions{})
	case err == nil:
		existing.Labels = cm.Labels
		existing.Data = cm.Data
		_, err = api.Update(ctx, existing, metav1.UpdateOptions{})
	}
	if err != nil {
		return fmt.Errorf("failed to apply config map %s/%s: %w", cm.Namespace, cm.Name, err)
	}
	return nil
}

// GetConfigMap returns a ConfigMap
func (c *Client) GetConfigMap(ctx context.Context, namespace, name string) (*corev1.ConfigMap, error) {
	return c.clientset.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
}

// DeleteConfigMap deletes a ConfigMap
func (c *Client) DeleteConfigMap(ctx context.Context, namespace, name string) error {
	return ignoreNotFound(c.clientset.CoreV1().ConfigMaps(namespace).Delete(ctx, name, metav1.DeleteOptions{}),
		"config map", namespace+"/"+name)
}

// ApplyDeployment creates or updates a Deployment
func (c *Client) ApplyDeployment(ctx context.Context, d *appsv1.Deployment) error {
	api := c.clientset.AppsV1().Deployments(d.Namespace)
	existing, err := api.Get(ctx, d.Name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		_, err = api.Create(ctx, d, metav1.CreateOptions{})
	case err == nil:
		existing.Labels = d.Labels
		existing.Spec = d.Spec
		_, err = api.Update(ctx, existing, metav1.UpdateOptions{})
	}
	if err != nil {
		return fmt.Errorf("failed to apply deployment %s/%s: %w", d.Namespace, d.Name, err)
	}
	return nil
}

// GetDeployment returns a Deployment
func (c *Client) GetDeployment(ctx context.Context, namespace, name string) (*appsv1.Deployment, error) {
	return c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
}

// DeleteDeployment deletes a Deployment and its pods
func (c *Client) DeleteDeployment(ctx context.Context, namespace, name string) error {
	policy := metav1.DeletePropagationForeground
	return ignoreNotFound(c.clientset.AppsV1().Deployments(namespace).Delete(ctx, name,
		metav1.DeleteOptions{PropagationPolicy: &policy}), "deployment", namespace+"/"+name)
}

// ApplyDaemonSet creates or updates a DaemonSet
func (c *Client) ApplyDaemonSet(ctx context.Context, ds *appsv1.DaemonSet) error {
	api := c.clientset.AppsV1().DaemonSets(ds.Namespace)
	existing, err := api.Get(ctx, ds.Name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		_, err = api.Create(ctx, ds, metav1.CreateOptions{})
	case err == nil:
		existing.Labels = ds.Labels
		existing.Spec = ds.Spec
		_, err = api.Update(ctx, existing, metav1.UpdateOptions{})
	}
	if err != nil {
		return fmt.Errorf("failed to apply daemon set %s/%s: %w", ds.Namespace, ds.Name, err)
	}
	return nil
}

// GetDaemonSet returns a DaemonSet
func (c *Client) GetDaemonSet(ctx context.Context, namespace, name string) (*appsv1.DaemonSet, error) {
	return c.clientset.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
}

// DeleteDaemonSet deletes a DaemonSet and its pods
func (c *Client) DeleteDaemonSet(ctx context.Context, namespace, name string) error {
	policy := metav1.DeletePropagationForeground
	return ignoreNotFound(c.clientset.AppsV1().DaemonSets(namespace).Delete(ctx, name,
		metav1.DeleteOptions{PropagationPolicy: &policy}), "daemon set", namespace+"/"+name)
}

func ignoreNotFound(err error, kind, name string) error {
	if err == nil || apierrors.IsNotFound(err) {
		return nil
	}
	return fmt.Errorf("failed to delete %s %s: %w", kind, name, err)
}
