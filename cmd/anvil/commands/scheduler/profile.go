package scheduler

import (
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/catalystcommunity/anvil/v1/internal/config"
	"github.com/catalystcommunity/anvil/v1/internal/k8s"
)

// The subset of kubescheduler.config.k8s.io/v1 anvil writes
type schedulerConfiguration struct {
	APIVersion     string         `json:"apiVersion"`
	Kind           string         `json:"kind"`
	LeaderElection leaderElection `json:"leaderElection"`
	Profiles       []profile      `json:"profiles"`
}

type leaderElection struct {
	LeaderElect bool `json:"leaderElect"`
}

type profile struct {
	SchedulerName string         `json:"schedulerName"`
	PluginConfig  []pluginConfig `json:"pluginConfig"`
}

type pluginConfig struct {
	Name string               `json:"name"`
	Args nodeResourcesFitArgs `json:"args"`
}

type nodeResourcesFitArgs struct {
	ScoringStrategy scoringStrategy `json:"scoringStrategy"`
}

type scoringStrategy struct {
	Type                     string                    `json:"type"`
	Resources                []resourceSpec            `json:"resources"`
	RequestedToCapacityRatio *requestedToCapacityRatio `json:"requestedToCapacityRatio,omitempty"`
}

type resourceSpec struct {
	Name   string `json:"name"`
	Weight int64  `json:"weight"`
}

type requestedToCapacityRatio struct {
	Shape []utilizationShapePoint `json:"shape"`
}

type utilizationShapePoint struct {
	Utilization int32 `json:"utilization"`
	Score       int32 `json:"score"`
}

// GPUs weigh more than cpu and memory so GPU pods pack onto the fewest
// GPU nodes
var scoredResources = []resourceSpec{
	{Name: "cpu", Weight: 1},
	{Name: "memory", Weight: 1},
	{Name: string(k8s.GPUResource), Weight: 3},
}

// RenderProfile renders the KubeSchedulerConfiguration of a single profile
// named schedulerName scoring nodes with strategy
func RenderProfile(schedulerName, strategy string) ([]byte, error) {
	if schedulerName == "" {
		return nil, fmt.Errorf("scheduler name cannot be empty")
	}

	scoring := scoringStrategy{Type: strategy, Resources: scoredResources}
	switch strategy {
	case config.StrategyMostAllocated, config.StrategyLeastAllocated:
	case config.StrategyRequestedToCapacityRatio:
		// score rises with utilization, i.e. bin packing
		scoring.RequestedToCapacityRatio = &requestedToCapacityRatio{
			Shape: []utilizationShapePoint{
				{Utilization: 0, Score: 0},
				{Utilization: 100, Score: 10},
			},
		}
	default:
		return nil, fmt.Errorf("unknown scoring strategy %q", strategy)
	}

	cfg := schedulerConfiguration{
		APIVersion: "kubescheduler.config.k8s.io/v1",
		Kind:       "KubeSchedulerConfiguration",
		// one replica, and the system:kube-scheduler role only grants the
		// kube-scheduler lease
		LeaderElection: leaderElection{LeaderElect: false},
		Profiles: []profile{{
			SchedulerName: schedulerName,
			PluginConfig: []pluginConfig{{
				Name: "NodeResourcesFit",
				Args: nodeResourcesFitArgs{ScoringStrategy: scoring},
			}},
		}},
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scheduler configuration: %w", err)
	}
	return out, nil
}
