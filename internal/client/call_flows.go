package client

import (
	"context"
	"fmt"

	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

// CallFlows implements freepbx.CallFlowClient.CallFlows.
func (c *Client) CallFlows(ctx context.Context) ([]freepbx.CallFlow, error) {
	node, err := c.fetch(ctx, EntityCallFlows, nil)
	if err != nil {
		return nil, fmt.Errorf("listing call flows: %w", err)
	}

	return decodeRecords[freepbx.CallFlow](EntityCallFlows, node)
}

// CallFlowState implements freepbx.CallFlowClient.CallFlowState.
func (c *Client) CallFlowState(ctx context.Context, id string) (string, error) {
	node, err := c.fetch(ctx, EntityCallFlowState, map[string]string{"id": id})
	if err != nil {
		return "", fmt.Errorf("getting call flow %s state: %w", id, err)
	}

	return decodeScalar(EntityCallFlowState, node)
}
