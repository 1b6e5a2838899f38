package storage

import "testing"

type minioConfig struct{ endpoint string }

func (c minioConfig) GetMinIOEndpoint() string  { return c.endpoint }
func (c minioConfig) GetMinIOAccessKey() string { return "access" }
func (c minioConfig) GetMinIOSecretKey() string { return "secret" }
func (c minioConfig) GetMinIOUseSSL() bool      { return false }
func (c minioConfig) IsMinIOEnabled() bool      { return c.endpoint != "" }

func TestNewMinIOService(t *testing.T) {
	if _, err := NewMinIOService(minioConfig{}); err == nil {
		t.Fatalf("disabled config accepted")
	}
	svc, err := NewMinIOService(minioConfig{endpoint: "localhost:9000"})
	if err != nil || svc == nil {
		t.Fatalf("NewMinIOService() = %v, %v", svc, err)
	}
}
