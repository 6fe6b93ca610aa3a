package azure

import (
	"context"
	"fmt"
)

// GroupExists reports whether the resource group exists
func (c *Client) GroupExists(ctx context.Context, name string) (bool, error) {
	out, err := c.run(ctx, "group", "exists", "--name", name)
	if err != nil {
		return false, fmt.Errorf("failed to check resource group %s: %w", name, err)
	}
	return out == "true", nil
}

// CreateGroup creates (or updates) a resource group
func (c *Client) CreateGroup(ctx context.Context, name, location string, tags []string) error {
	args := withTags([]string{"group", "create", "--name", name, "--location", location}, tags)
	if err := c.mutate(ctx, args...); err != nil {
		return fmt.Errorf("failed to create resource group %s: %w", name, err)
	}
	return nil
}

// EnsureGroup creates the resource group when it does not exist yet
func (c *Client) EnsureGroup(ctx context.Context, name, location string, tags []string) error {
	exists, err := c.GroupExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return c.CreateGroup(ctx, name, location, tags)
}
