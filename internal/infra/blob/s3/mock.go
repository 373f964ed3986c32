package s3

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const mockLastModified = "Mon, 02 Jan 2023 15:04:05 GMT"

// NewMockForTests returns a *Store whose client talks to an in-memory fake
// transport serving objects. Only GetObject is answered.
func NewMockForTests(objects map[string][]byte) *Store {
	rt := &mockRoundTripper{objects: make(map[string][]byte, len(objects))}
	for k, v := range objects {
		rt.objects[k] = append([]byte(nil), v...)
	}
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RetryMaxAttempts = 1
	})
	return &Store{client: client, bucket: "mock-bucket"}
}

type mockRoundTripper struct {
	objects map[string][]byte
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return respond(http.StatusNotImplemented, nil, http.Header{}), nil
	}
	// Path style: /<bucket>/<key>.
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	if len(parts) != 2 {
		return respond(http.StatusBadRequest, nil, http.Header{}), nil
	}
	body, ok := m.objects[parts[1]]
	if !ok {
		h := http.Header{}
		h.Set("Content-Type", "application/xml")
		return respond(http.StatusNotFound, []byte("<Error><Code>NoSuchKey</Code></Error>"), h), nil
	}
	h := http.Header{}
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Content-Type", mime.TypeByExtension(path.Ext(parts[1])))
	h.Set("ETag", `"etag123"`)
	h.Set("Last-Modified", mockLastModified)
	return respond(http.StatusOK, body, h), nil
}

func respond(status int, body []byte, header http.Header) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Body:          io.NopCloser(bytes.NewReader(body)),
		Header:        header,
		ContentLength: int64(len(body)),
	}
}
