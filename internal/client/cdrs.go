package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hyenergysolutions/freepbx-go/internal/constants"
	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

// CDRs implements freepbx.CallDataClient.CDRs.
func (c *Client) CDRs(ctx context.Context, limit int) ([]freepbx.CDR, error) {
	if limit <= 0 {
		limit = constants.DefaultCDRLimit
	}

	node, err := c.fetch(ctx, EntityCDRs, map[string]string{"first": strconv.Itoa(limit)})
	if err != nil {
		return nil, fmt.Errorf("listing call detail records: %w", err)
	}

	return decodeRecords[freepbx.CDR](EntityCDRs, node)
}
