package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/torosent/barrage/internal/config"
)

// BodySource yields a fresh reader for every request so bodies can be replayed.
type BodySource interface {
	NewReader() (io.ReadCloser, error)
	ContentLength() (int64, bool)
}

// NewBodySource resolves the configured request body. A body file is read once
// up front; every request then replays the same bytes.
func NewBodySource(cfg *config.Config) (BodySource, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	bodyFile := strings.TrimSpace(cfg.BodyFile)
	if cfg.Body != "" && bodyFile != "" {
		return nil, errors.New("body and body file cannot both be provided")
	}

	switch {
	case cfg.Body != "":
		return bytesBody(cfg.Body), nil
	case bodyFile != "":
		data, err := os.ReadFile(bodyFile)
		if err != nil {
			return nil, fmt.Errorf("body file: %w", err)
		}
		return bytesBody(data), nil
	default:
		return bytesBody(nil), nil
	}
}

type bytesBody []byte

func (b bytesBody) NewReader() (io.ReadCloser, error) {
	if len(b) == 0 {
		return http.NoBody, nil
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (b bytesBody) ContentLength() (int64, bool) {
	return int64(len(b)), true
}
