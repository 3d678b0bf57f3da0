package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ollama-performance/internal/config"
	"ollama-performance/internal/ollama"
)

type stubProvider struct {
	reply string
	err   error
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Model() string { return "stub-model" }
func (s *stubProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return s.reply, s.err
}

func TestHandshake(t *testing.T) {
	require.NoError(t, Handshake(context.Background(), &stubProvider{reply: "Ready!"}, "Say 'Ready!'"))

	err := Handshake(context.Background(), &stubProvider{err: errors.New("dial tcp: connection refused")}, "Say 'Ready!'")
	assert.ErrorContains(t, err, "connection to stub (stub-model) failed")
	assert.ErrorContains(t, err, "connection refused")
}

func TestNewFactory_Ollama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Ready!"}}]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Provider.Endpoint = srv.URL + "/v1"

	factory, err := NewFactory(cfg)
	require.NoError(t, err)

	p, err := factory(context.Background(), "phi3:latest")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
	assert.Equal(t, "phi3:latest", p.Model())
	_, isLister := p.(ModelLister)
	assert.True(t, isLister)

	require.NoError(t, Handshake(context.Background(), p, cfg.Session.HandshakePrompt))
}

func TestNewFactory_Bedrock(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.Kind = config.ProviderBedrock
	cfg.Bedrock.AccessKeyID = "AKIDEXAMPLE"
	cfg.Bedrock.SecretAccessKey = "secret"

	factory, err := NewFactory(cfg)
	require.NoError(t, err)

	p, err := factory(context.Background(), "anthropic.claude-3-haiku-20240307-v1:0")
	require.NoError(t, err)
	assert.Equal(t, "bedrock", p.Name())

	_, err = factory(context.Background(), "amazon.titan-text-express-v1")
	assert.ErrorContains(t, err, "unsupported model")
}

func TestNewFactory_Unknown(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.Kind = "carrier-pigeon"

	_, err := NewFactory(cfg)

	assert.Error(t, err)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("request failed: %w", context.DeadlineExceeded), "TimeoutError"},
		{"canceled", context.Canceled, "CanceledError"},
		{"404", &ollama.APIError{Status: 404, Message: "model not found"}, "ModelNotFoundError"},
		{"429", &ollama.APIError{Status: 429}, "ThrottlingError"},
		{"401", &ollama.APIError{Status: 401}, "AccessDeniedError"},
		{"400", &ollama.APIError{Status: 400}, "ValidationError"},
		{"500", fmt.Errorf("wrapped: %w", &ollama.APIError{Status: 500}), "ServerError"},
		{"bedrock throttling", fmt.Errorf("operation error Bedrock Runtime: InvokeModel: %w",
			&brtypes.ThrottlingException{Message: aws.String("Too many requests")}), "ThrottlingError"},
		{"bedrock validation", &brtypes.ValidationException{Message: aws.String("malformed input")}, "ValidationError"},
		{"bedrock access denied", &brtypes.AccessDeniedException{Message: aws.String("no model access")}, "AccessDeniedError"},
		{"bedrock resource not found", &brtypes.ResourceNotFoundException{Message: aws.String("unknown model")}, "ModelNotFoundError"},
		{"bedrock quota", &brtypes.ServiceQuotaExceededException{Message: aws.String("limit")}, "QuotaExceededError"},
		{"bedrock model timeout", &brtypes.ModelTimeoutException{}, "TimeoutError"},
		{"bedrock unavailable", &brtypes.ServiceUnavailableException{}, "ServerError"},
		{"bedrock internal", &brtypes.InternalServerException{}, "ServerError"},
		{"net timeout", timeoutErr{}, "TimeoutError"},
		{"op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, "ConnectionError"},
		{"throttling text", errors.New("ThrottlingException: slow down"), "ThrottlingError"},
		{"validation text", errors.New("ValidationException: bad input"), "ValidationError"},
		{"quota text", errors.New("service quota exceeded"), "QuotaExceededError"},
		{"parse", errors.New("failed to parse response: eof"), "ResponseParseError"},
		{"other", errors.New("something odd"), "UnknownError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
