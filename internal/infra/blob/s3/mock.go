package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"placesdir/internal/blob/core"
)

// MockBucket is the bucket name used by NewMock.
const MockBucket = "mock-bucket"

// NewMock returns a Store whose client talks to an in-process fake bucket
// through a custom HTTP transport. It understands HEAD, GET, PUT and DELETE
// on single objects, which is all Store issues.
func NewMock() *Store {
	bucket := &fakeBucket{objects: make(map[string]fakeObject)}
	cfg, _ := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(defaultRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: bucket}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
	})
	return &Store{client: client, bucket: MockBucket}
}

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

// RoundTrip serves path-style requests of the form /<bucket>/<key>.
func (b *fakeBucket) RoundTrip(req *http.Request) (*http.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, key, _ := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), "/")
	obj, exists := b.objects[key]

	switch req.Method {
	case http.MethodHead:
		if !exists {
			return fakeResponse(http.StatusNotFound, nil, http.Header{}), nil
		}
		return fakeResponse(http.StatusOK, nil, obj.header()), nil
	case http.MethodGet:
		if !exists {
			body := []byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return fakeResponse(http.StatusNotFound, body, http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return fakeResponse(http.StatusOK, obj.body, obj.header()), nil
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if decoded, ok := decodeChunked(body); ok {
			body = decoded
		}
		md := map[string]string{}
		for name, values := range req.Header {
			if k, ok := strings.CutPrefix(strings.ToLower(name), "x-amz-meta-"); ok && len(values) > 0 {
				md[k] = values[0]
			}
		}
		obj = fakeObject{body: body, contentType: req.Header.Get("Content-Type"), metadata: md, modified: time.Now().UTC()}
		b.objects[key] = obj
		return fakeResponse(http.StatusOK, nil, http.Header{"ETag": {strconv.Quote(core.Checksum(body))}}), nil
	case http.MethodDelete:
		delete(b.objects, key)
		return fakeResponse(http.StatusNoContent, nil, http.Header{}), nil
	default:
		return fakeResponse(http.StatusNotImplemented, nil, http.Header{}), nil
	}
}

func (o fakeObject) header() http.Header {
	h := http.Header{
		"Content-Length": {strconv.Itoa(len(o.body))},
		"Content-Type":   {o.contentType},
		"ETag":           {strconv.Quote(core.Checksum(o.body))},
		"Last-Modified":  {o.modified.Format(http.TimeFormat)},
	}
	for k, v := range o.metadata {
		h.Set("X-Amz-Meta-"+k, v)
	}
	return h
}

func fakeResponse(status int, body []byte, h http.Header) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: h, ContentLength: int64(len(body))}
}

// decodeChunked unwraps a single-chunk aws-chunked body:
// <hex size>[;ext]\r\n<payload>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 || !strings.HasPrefix(parts[2], "0") {
		return nil, false
	}
	sizeField, _, _ := strings.Cut(parts[0], ";")
	size, err := strconv.ParseInt(sizeField, 16, 64)
	if err != nil || int64(len(parts[1])) != size {
		return nil, false
	}
	return []byte(parts[1]), true
}
