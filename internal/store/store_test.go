package store

import (
	"context"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		file     string
		expected string
	}{
		{name: "no prefix", file: "a.log", expected: "a.log"},
		{name: "plain prefix", prefix: "logs", file: "a.log", expected: "logs/a.log"},
		{name: "slashes trimmed", prefix: "/logs/2024/", file: "a.log", expected: "logs/2024/a.log"},
		{name: "windows separators", prefix: "logs\\app", file: "a.log", expected: "logs/app/a.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Key(tt.prefix, tt.file))
		})
	}
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		host     string
		secure   bool
		wantErr  bool
	}{
		{name: "https url", endpoint: "https://s3.example.com", host: "s3.example.com", secure: true},
		{name: "http url with port", endpoint: "http://localhost:9000/", host: "localhost:9000", secure: false},
		{name: "bare host", endpoint: "minio.local:9000", host: "minio.local:9000", secure: true},
		{name: "no host", endpoint: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, secure, err := splitEndpoint(tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.secure, secure)
		})
	}
}

func TestNewSelectsDriver(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		Endpoint:  "http://localhost:9000",
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "logs-bucket",
		Region:    "auto",
	}

	s, err := New(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &MinioStore{}, s)

	cfg.Driver = DriverS3
	s, err = New(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, s)

	cfg.Driver = "gcs"
	_, err = New(ctx, cfg)
	assert.Error(t, err)
}

func TestS3HTTPClientLimitsConnectOnly(t *testing.T) {
	c := newS3HTTPClient()
	assert.Zero(t, c.GetTimeout())
	assert.Equal(t, time.Minute, c.GetDialer().Timeout)
}

func TestNewS3StoreWithCABundle(t *testing.T) {
	var puts int
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			puts++
		}
		io.Copy(io.Discard, r.Body)
	}))
	defer srv.Close()

	bundle := filepath.Join(t.TempDir(), "ca.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(bundle, certPEM, 0o644))
	t.Setenv("AWS_CA_BUNDLE", bundle)

	s, err := NewS3Store(context.Background(), Config{
		Driver:    DriverS3,
		Endpoint:  srv.URL,
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "logs-bucket",
		Region:    "auto",
	})
	require.NoError(t, err)

	require.NoError(t, s.PutObject(context.Background(), "a.log", strings.NewReader("x"), 1))
	assert.Equal(t, 1, puts)
}
