package client

import (
	"context"
	"fmt"

	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

// Extensions implements freepbx.DirectoryClient.Extensions.
func (c *Client) Extensions(ctx context.Context) ([]freepbx.Extension, error) {
	node, err := c.fetch(ctx, EntityExtensions, nil)
	if err != nil {
		return nil, fmt.Errorf("listing extensions: %w", err)
	}

	return decodeRecords[freepbx.Extension](EntityExtensions, node)
}

// RingGroups implements freepbx.DirectoryClient.RingGroups.
func (c *Client) RingGroups(ctx context.Context) ([]freepbx.RingGroup, error) {
	node, err := c.fetch(ctx, EntityRingGroups, nil)
	if err != nil {
		return nil, fmt.Errorf("listing ring groups: %w", err)
	}

	return decodeRecords[freepbx.RingGroup](EntityRingGroups, node)
}

// Queues implements freepbx.DirectoryClient.Queues.
func (c *Client) Queues(ctx context.Context) ([]freepbx.Queue, error) {
	node, err := c.fetch(ctx, EntityQueues, nil)
	if err != nil {
		return nil, fmt.Errorf("listing queues: %w", err)
	}

	return decodeRecords[freepbx.Queue](EntityQueues, node)
}
