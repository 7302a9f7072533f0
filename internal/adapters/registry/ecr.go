package registry

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecr"

	"github.com/reiken/berth/internal/ports"
)

// tokenAPI is the slice of the ECR client the authenticator uses. The real
// client satisfies it; tests inject a fake.
type tokenAPI interface {
	GetAuthorizationToken(ctx context.Context, in *ecr.GetAuthorizationTokenInput, opts ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error)
}

// ECR mints short-lived registry credentials from the ambient AWS identity —
// the same GetAuthorizationToken exchange the CI workflow's login action
// performs. Tokens are cached until shortly before expiry (they live ~12h),
// so a release pipeline authenticates once.
type ECR struct {
	region string

	mu     sync.Mutex
	api    tokenAPI
	cached ports.Credentials
}

// NewECR returns an authenticator for the given region. The AWS client is
// built lazily on first use so constructing one is free when a different
// authenticator ends up selected.
func NewECR(region string) *ECR {
	return &ECR{region: region}
}

// Name identifies the strategy in status output.
func (e *ECR) Name() string { return "ecr" }

// Credentials returns a valid token, reusing the cached one while it lives.
func (e *ECR) Credentials(ctx context.Context) (ports.Credentials, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cached.Username != "" && !e.cached.Expired(time.Now()) {
		return e.cached, nil
	}

	if e.api == nil {
		cfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(e.region))
		if err != nil {
			return ports.Credentials{}, fmt.Errorf("load aws config: %w", err)
		}
		e.api = ecr.NewFromConfig(cfg)
	}

	out, err := e.api.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return ports.Credentials{}, fmt.Errorf("get ecr authorization token: %w", err)
	}
	if len(out.AuthorizationData) == 0 {
		return ports.Credentials{}, fmt.Errorf("ecr returned no authorization data")
	}

	data := out.AuthorizationData[0]
	creds, err := decodeToken(aws.ToString(data.AuthorizationToken))
	if err != nil {
		return ports.Credentials{}, err
	}
	creds.ServerAddress = aws.ToString(data.ProxyEndpoint)
	creds.ExpiresAt = aws.ToTime(data.ExpiresAt)

	e.cached = creds
	return creds, nil
}

// decodeToken unpacks the base64 "user:password" blob the token exchange
// returns. The user is the literal "AWS" today, but the format is treated as
// opaque.
func decodeToken(token string) (ports.Credentials, error) {
	if token == "" {
		return ports.Credentials{}, fmt.Errorf("ecr returned an empty authorization token")
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return ports.Credentials{}, fmt.Errorf("decode ecr token: %w", err)
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return ports.Credentials{}, fmt.Errorf("ecr token is not in user:password form")
	}
	return ports.Credentials{Username: user, Secret: pass}, nil
}
