package services

import "log/slog"

// Credentials are the access/secret pair forwarded to the object store
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Complete reports whether both halves are present
func (c Credentials) Complete() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// LogValue keeps the secret out of structured logs
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("accessKey", c.AccessKey),
		slog.String("secretKey", "[redacted]"),
	)
}

// BackendConfig is the endpoint side of a client, fixed for the process lifetime
type BackendConfig struct {
	// Endpoint is host[:port] or a full URL; empty means the provider default
	Endpoint  string
	PathStyle bool
	Region    string
}
