package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyenergysolutions/freepbx-go/internal/auth"
	"github.com/hyenergysolutions/freepbx-go/internal/constants"
	pbxhttp "github.com/hyenergysolutions/freepbx-go/internal/http"
	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

// GraphQLChannel runs queries against the FreePBX GraphQL endpoint.
type GraphQLChannel struct {
	httpClient   *pbxhttp.Client
	tokenManager auth.TokenManager
	logger       freepbx.Logger
}

// NewGraphQLChannel creates a GraphQL channel. tokenManager is used to
// evict the token after a transport failure.
func NewGraphQLChannel(httpClient *pbxhttp.Client, tokenManager auth.TokenManager, logger freepbx.Logger) *GraphQLChannel {
	return &GraphQLChannel{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		logger:       logger,
	}
}

// Query posts the query and returns the data object of the response.
//
// An HTTP failure evicts the token and returns a KindGraphQLTransport error
// carrying the response body. An interceptor rejection is reported with the
// same kind but keeps the token. A response with a non-empty errors array
// returns a KindGraphQLValidation error and keeps the token. A body that is
// empty or not a JSON object yields nil data.
func (g *GraphQLChannel) Query(ctx context.Context, query string) (map[string]interface{}, error) {
	resp, err := g.httpClient.Post(ctx, constants.GraphQLPath, map[string]string{"query": query})
	if err != nil {
		if isFreePBXError(err) {
			return nil, err
		}

		if !errors.Is(err, constants.ErrInterceptor) {
			evictToken(ctx, g.tokenManager, g.logger)
		}

		statusErr := &pbxhttp.StatusError{}
		if errors.As(err, &statusErr) {
			return nil, freepbx.NewGraphQLTransportError(statusErr.StatusCode, statusErr.Body, err)
		}

		return nil, freepbx.NewGraphQLTransportError(0, "", err)
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, nil
	}

	var payload map[string]interface{}

	err = json.Unmarshal(resp.Body, &payload)
	if err != nil {
		g.logger.Debug("GraphQL response is not a JSON object", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(resp.Body),
		})

		return nil, nil
	}

	if errs := graphQLErrors(payload["errors"]); len(errs) > 0 {
		return nil, freepbx.NewGraphQLValidationError(errs)
	}

	data, _ := payload["data"].(map[string]interface{})

	return data, nil
}

func graphQLErrors(raw interface{}) []map[string]interface{} {
	switch errs := raw.(type) {
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(errs))

		for _, item := range errs {
			if object, ok := item.(map[string]interface{}); ok {
				out = append(out, object)
			} else {
				out = append(out, map[string]interface{}{"message": fmt.Sprint(item)})
			}
		}

		return out
	case map[string]interface{}:
		return []map[string]interface{}{errs}
	case string:
		return []map[string]interface{}{{"message": errs}}
	default:
		return nil
	}
}

func isFreePBXError(err error) bool {
	pbxErr := &freepbx.Error{}

	return errors.As(err, &pbxErr)
}

func evictToken(ctx context.Context, tokenManager auth.TokenManager, logger freepbx.Logger) {
	if tokenManager == nil {
		return
	}

	err := tokenManager.Invalidate(ctx)
	if err != nil {
		logger.Warn("Failed to evict FreePBX token", map[string]interface{}{"error": err.Error()})
	}
}
