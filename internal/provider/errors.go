package provider

import (
	"context"
	"errors"
	"net"
	"strings"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// statusCoder is implemented by errors carrying an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// Classify returns a short category for a failed exchange, used for logging.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "TimeoutError"
	}
	if errors.Is(err, context.Canceled) {
		return "CanceledError"
	}

	if kind := classifyBedrock(err); kind != "" {
		return kind
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch code := sc.StatusCode(); {
		case code == 404:
			return "ModelNotFoundError"
		case code == 429:
			return "ThrottlingError"
		case code == 401 || code == 403:
			return "AccessDeniedError"
		case code >= 400 && code < 500:
			return "ValidationError"
		case code >= 500:
			return "ServerError"
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "TimeoutError"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "ConnectionError"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "throttling") || strings.Contains(errStr, "too many"):
		return "ThrottlingError"
	case strings.Contains(errStr, "validation"):
		return "ValidationError"
	case strings.Contains(errStr, "access denied"):
		return "AccessDeniedError"
	case strings.Contains(errStr, "not found"):
		return "ModelNotFoundError"
	case strings.Contains(errStr, "service quota"):
		return "QuotaExceededError"
	case strings.Contains(errStr, "timeout"):
		return "TimeoutError"
	case strings.Contains(errStr, "connection refused"):
		return "ConnectionError"
	case strings.Contains(errStr, "parse response"):
		return "ResponseParseError"
	default:
		return "UnknownError"
	}
}

// classifyBedrock matches the typed exceptions returned by Bedrock Runtime.
func classifyBedrock(err error) string {
	var (
		throttling  *brtypes.ThrottlingException
		validation  *brtypes.ValidationException
		denied      *brtypes.AccessDeniedException
		notFound    *brtypes.ResourceNotFoundException
		quota       *brtypes.ServiceQuotaExceededException
		timeout     *brtypes.ModelTimeoutException
		unavailable *brtypes.ServiceUnavailableException
		internal    *brtypes.InternalServerException
	)
	switch {
	case errors.As(err, &throttling):
		return "ThrottlingError"
	case errors.As(err, &validation):
		return "ValidationError"
	case errors.As(err, &denied):
		return "AccessDeniedError"
	case errors.As(err, &notFound):
		return "ModelNotFoundError"
	case errors.As(err, &quota):
		return "QuotaExceededError"
	case errors.As(err, &timeout):
		return "TimeoutError"
	case errors.As(err, &unavailable), errors.As(err, &internal):
		return "ServerError"
	}
	return ""
}
