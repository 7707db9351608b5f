package awsparamstore

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demosdemon/skuwatch/pkg/secrets"
)

type fakeSSM struct {
	ssmiface.SSMAPI
	params map[string]string
	calls  int
}

func (f *fakeSSM) GetParameterWithContext(ctx aws.Context, in *ssm.GetParameterInput, _ ...request.Option) (*ssm.GetParameterOutput, error) {
	f.calls++
	if !aws.BoolValue(in.WithDecryption) {
		return nil, errors.New("expected decryption")
	}
	v, ok := f.params[aws.StringValue(in.Name)]
	if !ok {
		return nil, awserr.New(ssm.ErrCodeParameterNotFound, "not found", nil)
	}
	return &ssm.GetParameterOutput{Parameter: &ssm.Parameter{Value: aws.String(v)}}, nil
}

func TestResolverCaches(t *testing.T) {
	api := &fakeSSM{params: map[string]string{"/skuwatch/git/token": "s3cret"}}
	r := NewWithAPI(api)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		v, err := r.Resolve(ctx, "/skuwatch/git/token")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)
	}
	assert.Equal(t, 1, api.calls)
}

func TestResolverNotFound(t *testing.T) {
	r := NewWithAPI(&fakeSSM{})

	_, err := r.Resolve(context.Background(), "/missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, secrets.ErrNotFound)
	assert.Contains(t, err.Error(), "/missing")
}

func TestResolverWithSecret(t *testing.T) {
	r := NewWithAPI(&fakeSSM{params: map[string]string{"/user": "bot"}})

	s := secrets.Secret{Path: "/user"}
	v, err := s.Resolve(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "bot", v)
	assert.Equal(t, "bot", s.Value)
}
