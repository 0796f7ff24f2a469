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

// RESTChannel calls the FreePBX REST endpoints.
type RESTChannel struct {
	httpClient   *pbxhttp.Client
	tokenManager auth.TokenManager
	logger       freepbx.Logger
}

// NewRESTChannel creates a REST channel.
func NewRESTChannel(httpClient *pbxhttp.Client, tokenManager auth.TokenManager, logger freepbx.Logger) *RESTChannel {
	return &RESTChannel{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		logger:       logger,
	}
}

// Call sends verb to endpoint, relative to the REST root, and returns the
// decoded JSON body: nil for an empty body, the raw text when the body is
// not JSON. body is ignored for GET.
func (r *RESTChannel) Call(ctx context.Context, verb freepbx.Verb, endpoint string, body interface{}) (interface{}, error) {
	path := constants.RESTPathPrefix + endpoint

	var (
		resp *pbxhttp.Response
		err  error
	)

	switch verb {
	case freepbx.VerbGet:
		resp, err = r.httpClient.Get(ctx, path, nil)
	case freepbx.VerbPost:
		resp, err = r.httpClient.Post(ctx, path, body)
	case freepbx.VerbPut:
		resp, err = r.httpClient.Put(ctx, path, body)
	case freepbx.VerbPatch:
		resp, err = r.httpClient.Patch(ctx, path, body)
	case freepbx.VerbDelete:
		resp, err = r.httpClient.Do(ctx, &pbxhttp.Request{Method: string(verb), Path: path, Body: body})
	default:
		return nil, fmt.Errorf("%w: %q", freepbx.ErrUnsupportedVerb, verb)
	}

	if err != nil {
		if isFreePBXError(err) {
			return nil, err
		}

		if !errors.Is(err, constants.ErrInterceptor) {
			evictToken(ctx, r.tokenManager, r.logger)
		}

		statusErr := &pbxhttp.StatusError{}
		if errors.As(err, &statusErr) {
			return nil, freepbx.NewRESTError(statusErr.StatusCode, statusErr.Body, err)
		}

		return nil, freepbx.NewRESTError(0, "", err)
	}

	return decodeRESTBody(resp.Body), nil
}

func decodeRESTBody(body []byte) interface{} {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	var decoded interface{}

	err := json.Unmarshal(trimmed, &decoded)
	if err != nil {
		return string(body)
	}

	return decoded
}
