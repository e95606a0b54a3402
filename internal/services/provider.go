package services

import "fmt"

// ClientProvider hands each request the backend handle it must use
type ClientProvider interface {
	Resolve(creds *Credentials) (ObjectClient, error)
	ResolveAdmin(creds *Credentials) (AdminClient, error)
}

// FixedProvider serves one process-wide client and ignores request credentials.
// The minio and S3 clients are safe for concurrent use.
type FixedProvider struct {
	client   ObjectClient
	admin    AdminClient
	adminErr error
}

// NewFixedProvider builds the shared client once at startup
func NewFixedProvider(factory ClientFactory, creds Credentials) (*FixedProvider, error) {
	client, err := factory.NewClient(creds)
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}
	admin, adminErr := factory.NewAdminClient(creds)
	return &FixedProvider{client: client, admin: admin, adminErr: adminErr}, nil
}

func (p *FixedProvider) Resolve(*Credentials) (ObjectClient, error) {
	return p.client, nil
}

func (p *FixedProvider) ResolveAdmin(*Credentials) (AdminClient, error) {
	return p.admin, p.adminErr
}

// PerRequestProvider builds a fresh client from each request's Basic-Auth pair
type PerRequestProvider struct {
	factory ClientFactory
}

func NewPerRequestProvider(factory ClientFactory) *PerRequestProvider {
	return &PerRequestProvider{factory: factory}
}

func (p *PerRequestProvider) Resolve(creds *Credentials) (ObjectClient, error) {
	if creds == nil || !creds.Complete() {
		return nil, ErrAuthenticationRequired
	}
	client, err := p.factory.NewClient(*creds)
	if err != nil {
		return nil, fmt.Errorf("%w: create client: %v", ErrBackend, err)
	}
	return client, nil
}

func (p *PerRequestProvider) ResolveAdmin(creds *Credentials) (AdminClient, error) {
	if creds == nil || !creds.Complete() {
		return nil, ErrAuthenticationRequired
	}
	return p.factory.NewAdminClient(*creds)
}
