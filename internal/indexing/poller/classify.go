package poller

import (
	"context"
	"errors"

	"github.com/vietddude/btc-connector/internal/core/watermark"
	"github.com/vietddude/btc-connector/internal/indexing/extract"
	"github.com/vietddude/btc-connector/internal/indexing/sink"
	"github.com/vietddude/btc-connector/internal/indexing/transform"
	"github.com/vietddude/btc-connector/internal/infra/provider"
)

// ErrorKind is a coarse label for cycle failures, used in logs.
type ErrorKind string

const (
	KindHTTPStatus          ErrorKind = "fetch_http_status"
	KindRemote              ErrorKind = "fetch_remote_error"
	KindContentType         ErrorKind = "fetch_unexpected_content_type"
	KindTransport           ErrorKind = "fetch_transport"
	KindMissingMember       ErrorKind = "extract_missing_member"
	KindArchiveCorrupt      ErrorKind = "extract_archive_corrupt"
	KindParse               ErrorKind = "parse"
	KindSink                ErrorKind = "sink"
	KindSinkEncode          ErrorKind = "sink_encode"
	KindWatermarkIO         ErrorKind = "watermark_io"
	KindWatermarkRegression ErrorKind = "watermark_regression"
	KindNoWatermark         ErrorKind = "no_watermark"
	KindCanceled            ErrorKind = "canceled"
	KindUnknown             ErrorKind = "unknown"
)

// Classify maps an error from any cycle stage to its kind.
func Classify(err error) ErrorKind {
	var (
		statusErr *provider.HTTPStatusError
		remoteErr *provider.RemoteError
		ctErr     *provider.UnexpectedContentTypeError
		transErr  *provider.TransportError
		parseErr  *transform.ParseError
		sinkErr   *sink.SinkError
		wmIOErr   *watermark.IOError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &statusErr):
		return KindHTTPStatus
	case errors.As(err, &remoteErr):
		return KindRemote
	case errors.As(err, &ctErr):
		return KindContentType
	case errors.As(err, &transErr), errors.Is(err, context.DeadlineExceeded):
		return KindTransport
	case errors.Is(err, extract.ErrMissingMember):
		return KindMissingMember
	case errors.Is(err, extract.ErrArchiveCorrupt):
		return KindArchiveCorrupt
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &sinkErr):
		return KindSink
	case errors.Is(err, sink.ErrEncodeBatch):
		return KindSinkEncode
	case errors.Is(err, watermark.ErrWatermarkRegression):
		return KindWatermarkRegression
	case errors.As(err, &wmIOErr):
		return KindWatermarkIO
	case errors.Is(err, errNoWatermark):
		return KindNoWatermark
	default:
		return KindUnknown
	}
}
