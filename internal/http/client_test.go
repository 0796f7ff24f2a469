package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyenergysolutions/freepbx-go/internal/constants"
	pbxhttp "github.com/hyenergysolutions/freepbx-go/internal/http"
	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

var errTokenUnavailable = errors.New("token unavailable")

// MockTokenManager for testing.
type MockTokenManager struct {
	token string
	err   error
	calls atomic.Int32
}

func (m *MockTokenManager) GetToken(ctx context.Context) (string, error) {
	m.calls.Add(1)

	return m.token, m.err
}

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) {
	l.record("debug", msg, fields)
}

func (l *MockLogger) Info(msg string, fields map[string]interface{}) {
	l.record("info", msg, fields)
}

func (l *MockLogger) Warn(msg string, fields map[string]interface{}) {
	l.record("warn", msg, fields)
}

func (l *MockLogger) Error(msg string, fields map[string]interface{}) {
	l.record("error", msg, fields)
}

func (l *MockLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs := make([]string, 0, len(l.logs))
	for _, entry := range l.logs {
		msgs = append(msgs, entry["msg"].(string))
	}

	return msgs
}

func fastRetries() pbxhttp.Option {
	return pbxhttp.WithRetryConfig(3, time.Millisecond)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/admin/api/api/rest/queues/", request.URL.Path)
			assert.Equal(t, http.MethodGet, request.Method)
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Equal(t, constants.DefaultUserAgent, request.Header.Get("User-Agent"))

			_ = json.NewEncoder(writer).Encode([]map[string]string{{"extension": "400", "name": "Sales"}})
		}))
		defer server.Close()

		tokenManager := &MockTokenManager{token: "test-token"}
		client := pbxhttp.NewClient(server.URL, tokenManager)

		resp, err := client.Get(context.Background(), "/admin/api/api/rest/queues/", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result []map[string]string

		require.NoError(t, json.Unmarshal(resp.Body, &result))
		assert.Equal(t, "Sales", result[0]["name"])
	})

	t.Run("request with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "limit=5", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := pbxhttp.NewClient(server.URL, nil)

		resp, err := client.Get(context.Background(), "/cdrs", url.Values{"limit": []string{"5"}})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with json body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "{ fetchAllExtensions { status } }", body["query"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := pbxhttp.NewClient(server.URL, nil)

		resp, err := client.Post(context.Background(), "/gql", map[string]string{"query": "{ fetchAllExtensions { status } }"})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("form body with basic auth skips the token", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			user, pass, ok := request.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "client", user)
			assert.Equal(t, "secret", pass)
			assert.Equal(t, "application/x-www-form-urlencoded", request.Header.Get("Content-Type"))
			assert.NoError(t, request.ParseForm())
			assert.Equal(t, "client_credentials", request.PostForm.Get("grant_type"))
			assert.Equal(t, "gql rest", request.PostForm.Get("scope"))

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		tokenManager := &MockTokenManager{token: "unused"}
		client := pbxhttp.NewClient(server.URL, tokenManager)

		_, err := client.Do(context.Background(), &pbxhttp.Request{
			Method:    http.MethodPost,
			Path:      "/token",
			Form:      url.Values{"grant_type": {"client_credentials"}, "scope": {"gql rest"}},
			BasicAuth: &pbxhttp.BasicAuth{Username: "client", Password: "secret"},
		})
		require.NoError(t, err)
		assert.Equal(t, int32(0), tokenManager.calls.Load())
	})

	t.Run("form and body together are rejected", func(t *testing.T) {
		t.Parallel()

		client := pbxhttp.NewClient("http://127.0.0.1:1", nil)

		_, err := client.Do(context.Background(), &pbxhttp.Request{
			Method: http.MethodPost,
			Path:   "/token",
			Form:   url.Values{"a": {"b"}},
			Body:   map[string]string{"c": "d"},
		})
		require.ErrorIs(t, err, constants.ErrUnsupportedBody)
	})

	t.Run("error response keeps the body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(writer, `{"message":"not found"}`)
		}))
		defer server.Close()

		client := pbxhttp.NewClient(server.URL, nil)

		resp, err := client.Get(context.Background(), "/rest/daynight/9", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, 404, resp.StatusCode)

		statusErr := &pbxhttp.StatusError{}
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 404, statusErr.StatusCode)
		assert.JSONEq(t, `{"message":"not found"}`, statusErr.Body)
		require.ErrorIs(t, err, constants.ErrUnexpectedStatus)
	})

	t.Run("token failure is returned unchanged", func(t *testing.T) {
		t.Parallel()

		client := pbxhttp.NewClient("http://127.0.0.1:1", &MockTokenManager{err: errTokenUnavailable})

		_, err := client.Get(context.Background(), "/gql", nil)
		require.ErrorIs(t, err, errTokenUnavailable)
		assert.NotErrorIs(t, err, constants.ErrTransport)
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			assert.Equal(t, "pbx-tool/2", request.Header.Get("User-Agent"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := pbxhttp.NewClient(server.URL, nil, pbxhttp.WithUserAgent("pbx-tool/2"))

		resp, err := client.Do(context.Background(), &pbxhttp.Request{
			Method:  http.MethodGet,
			Path:    "/test",
			Headers: map[string]string{"X-Custom-Header": "custom-value"},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := pbxhttp.NewClient(server.URL, nil, pbxhttp.WithLogger(logger), pbxhttp.WithDebug(true))

		_, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)

		msgs := logger.messages()
		require.Contains(t, msgs, "HTTP Request")
		require.Contains(t, msgs, "HTTP Response")
		assert.Equal(t, "HTTP Response", msgs[len(msgs)-1])
	})

	t.Run("without debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := pbxhttp.NewClient(server.URL, nil, pbxhttp.WithLogger(logger))

		_, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Empty(t, logger.messages())
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(*pbxhttp.Client, context.Context) (*pbxhttp.Response, error)
	}{
		{
			name:   "GET",
			method: http.MethodGet,
			fn: func(c *pbxhttp.Client, ctx context.Context) (*pbxhttp.Response, error) {
				return c.Get(ctx, "/test", nil)
			},
		},
		{
			name:   "POST",
			method: http.MethodPost,
			fn: func(c *pbxhttp.Client, ctx context.Context) (*pbxhttp.Response, error) {
				return c.Post(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PUT",
			method: http.MethodPut,
			fn: func(c *pbxhttp.Client, ctx context.Context) (*pbxhttp.Response, error) {
				return c.Put(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PATCH",
			method: http.MethodPatch,
			fn: func(c *pbxhttp.Client, ctx context.Context) (*pbxhttp.Response, error) {
				return c.Patch(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "DELETE",
			method: http.MethodDelete,
			fn: func(c *pbxhttp.Client, ctx context.Context) (*pbxhttp.Response, error) {
				return c.Delete(ctx, "/test")
			},
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/test", request.URL.Path)
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := pbxhttp.NewClient(server.URL, nil)
			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("retries on 5xx errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 3 {
				writer.WriteHeader(http.StatusInternalServerError)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := pbxhttp.NewClient(server.URL, nil, fastRetries(), pbxhttp.WithLogger(logger))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
		assert.Equal(t, []string{"Retrying HTTP request", "Retrying HTTP request"}, logger.messages())
	})

	t.Run("gives up after the attempt budget with the last body", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(writer, "upstream down")
		}))
		defer server.Close()

		client := pbxhttp.NewClient(server.URL, nil, fastRetries())

		resp, err := client.Get(context.Background(), "/test", nil)

		statusErr := &pbxhttp.StatusError{}
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 502, statusErr.StatusCode)
		assert.Equal(t, "upstream down", statusErr.Body)
		assert.Equal(t, 502, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("does not retry 501", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusNotImplemented)
		}))
		defer server.Close()

		client := pbxhttp.NewClient(server.URL, nil, fastRetries())

		_, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("does not retry on client errors", func(t *testing.T) {
		t.Parallel()

		for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusTooManyRequests} {
			var attempts atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				attempts.Add(1)
				writer.WriteHeader(status)
			}))

			client := pbxhttp.NewClient(server.URL, nil, fastRetries())

			resp, err := client.Get(context.Background(), "/test", nil)
			require.Error(t, err)
			assert.Equal(t, status, resp.StatusCode)
			assert.Equal(t, int32(1), attempts.Load(), "status %d must not be retried", status)

			server.Close()
		}
	})

	t.Run("connection failure is a transport error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		target := server.URL
		server.Close()

		client := pbxhttp.NewClient(target, nil, fastRetries())

		resp, err := client.Get(context.Background(), "/test", nil)
		require.ErrorIs(t, err, constants.ErrTransport)
		assert.Nil(t, resp)
	})

	t.Run("per-attempt timeout", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)

			select {
			case <-request.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer server.Close()

		client := pbxhttp.NewClient(server.URL, nil, pbxhttp.WithRetryConfig(2, time.Millisecond), pbxhttp.WithTimeout(50*time.Millisecond))

		_, err := client.Get(context.Background(), "/slow", nil)
		require.ErrorIs(t, err, constants.ErrTransport)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("canceled context stops retrying", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			cancel()
			writer.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := pbxhttp.NewClient(server.URL, nil, fastRetries())

		_, err := client.Get(ctx, "/test", nil)
		require.Error(t, err)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestRetryPolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for status, want := range map[int]bool{
		200: false,
		404: false,
		429: false,
		500: true,
		501: false,
		502: true,
		503: true,
		504: true,
	} {
		retry, err := pbxhttp.RetryPolicy(ctx, &http.Response{StatusCode: status}, nil)
		require.NoError(t, err)
		assert.Equal(t, want, retry, "status %d", status)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	retry, err := pbxhttp.RetryPolicy(canceled, &http.Response{StatusCode: 503}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, retry)
}

func TestClient_Interceptors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.NotEmpty(t, request.Header.Get(freepbx.RequestIDHeader))
		assert.Equal(t, "acme", request.Header.Get("X-Tenant"))
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	collector := freepbx.NewMetricsCollector()
	chain := freepbx.NewInterceptorChain().
		AddRequestInterceptor(freepbx.RequestIDInterceptor()).
		AddRequestInterceptor(freepbx.HeaderInterceptor(map[string]string{"X-Tenant": "acme"})).
		AddRequestInterceptor(freepbx.MetricsRequestInterceptor(collector)).
		AddResponseInterceptor(freepbx.MetricsResponseInterceptor(collector))

	client := pbxhttp.NewClient(server.URL, nil, pbxhttp.WithInterceptors(chain))

	_, err := client.Get(context.Background(), "/admin/api/api/rest/queues/", nil)
	require.NoError(t, err)

	metrics := collector.GetMetrics("GET /admin/api/api/rest/queues/")
	require.NotNil(t, metrics)
	assert.Equal(t, int64(1), metrics.TotalRequests)
	assert.Equal(t, int64(0), metrics.TotalErrors)
}

func TestClient_InterceptorErrors(t *testing.T) {
	t.Parallel()

	errRejected := errors.New("rejected")

	t.Run("request interceptor", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		chain := freepbx.NewInterceptorChain().
			AddRequestInterceptor(func(context.Context, *freepbx.Request) error { return errRejected })

		client := pbxhttp.NewClient(server.URL, nil, pbxhttp.WithInterceptors(chain))

		_, err := client.Get(context.Background(), "/x", nil)
		require.ErrorIs(t, err, constants.ErrInterceptor)
		require.ErrorIs(t, err, errRejected)
		assert.NotErrorIs(t, err, constants.ErrTransport)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("response interceptor on success", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			_, _ = writer.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		chain := freepbx.NewInterceptorChain().
			AddResponseInterceptor(func(context.Context, *freepbx.Request, *freepbx.Response) error { return errRejected })

		client := pbxhttp.NewClient(server.URL, nil, pbxhttp.WithInterceptors(chain))

		resp, err := client.Get(context.Background(), "/x", nil)
		require.ErrorIs(t, err, constants.ErrInterceptor)
		require.ErrorIs(t, err, errRejected)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("status error wins over response interceptor", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusBadRequest)
			_, _ = writer.Write([]byte(`bad`))
		}))
		defer server.Close()

		chain := freepbx.NewInterceptorChain().
			AddResponseInterceptor(func(context.Context, *freepbx.Request, *freepbx.Response) error { return errRejected })

		client := pbxhttp.NewClient(server.URL, nil, pbxhttp.WithInterceptors(chain))

		_, err := client.Get(context.Background(), "/x", nil)

		statusErr := &pbxhttp.StatusError{}
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, "bad", statusErr.Body)
		assert.NotErrorIs(t, err, constants.ErrInterceptor)
	})
}
