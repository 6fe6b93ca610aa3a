package k8s

import "strings"

// Label prefixes owned by Kubernetes and AKS
var systemLabelPrefixes = []string{
	"kubernetes.io/",
	"k8s.io/",
	"node-role.kubernetes.io/",
	"node.kubernetes.io/",
	"kubernetes.azure.com/",
}

// IsSystemLabel returns true if the label key is set by Kubernetes or AKS
// rather than by whoever created the node pool
func IsSystemLabel(key string) bool {
	for _, prefix := range systemLabelPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// FilterUserLabels drops system labels, leaving the ones given at pool creation
func FilterUserLabels(labels map[string]string) map[string]string {
	result := make(map[string]string)
	for k, v := range labels {
		if !IsSystemLabel(k) {
			result[k] = v
		}
	}
	return result
}

