// Package awsparamstore resolves `!secret` paths against AWS SSM
// Parameter Store.
package awsparamstore

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/pkg/errors"

	"github.com/demosdemon/skuwatch/pkg/secrets"
)

const DefaultRegion = "us-west-2"

// Resolver looks parameters up with decryption and remembers every value it
// has seen.
type Resolver struct {
	api ssmiface.SSMAPI

	mu    sync.Mutex
	cache map[string]string
}

// New returns a Resolver for region, or DefaultRegion when region is empty.
func New(config client.ConfigProvider, region string) *Resolver {
	if region == "" {
		region = DefaultRegion
	}
	return NewWithAPI(ssm.New(config, aws.NewConfig().WithRegion(region)))
}

func NewWithAPI(api ssmiface.SSMAPI) *Resolver {
	return &Resolver{api: api, cache: make(map[string]string)}
}

func (r *Resolver) Resolve(ctx context.Context, path string) (string, error) {
	r.mu.Lock()
	v, ok := r.cache[path]
	r.mu.Unlock()
	if ok {
		return v, nil
	}

	res, err := r.api.GetParameterWithContext(ctx, &ssm.GetParameterInput{
		Name:           aws.String(path),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		if aErr, ok := err.(awserr.Error); ok && aErr.Code() == ssm.ErrCodeParameterNotFound {
			return "", errors.Wrap(secrets.ErrNotFound, path)
		}
		return "", errors.Wrapf(err, "error reading parameter %s", path)
	}
	if res.Parameter == nil {
		return "", errors.Wrap(secrets.ErrNotFound, path)
	}

	v = aws.StringValue(res.Parameter.Value)
	r.mu.Lock()
	r.cache[path] = v
	r.mu.Unlock()
	return v, nil
}
