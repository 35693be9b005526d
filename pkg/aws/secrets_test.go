package aws

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretsAPI struct {
	values map[string]*string
	calls  int
}

func (f *fakeSecretsAPI) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[sdkaws.ToString(in.SecretId)]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: v}, nil
}

func TestSecretsClient_GetSecretMapIsCached(t *testing.T) {
	api := &fakeSecretsAPI{values: map[string]*string{
		"story/RAZORPAY_CREDENTIALS": sdkaws.String(`{"RAZORPAY_KEY_ID":"rzp_live_1"}`),
	}}
	client := newSecretsClient(api)

	for i := 0; i < 2; i++ {
		m, err := client.GetSecretMap(context.Background(), "story/RAZORPAY_CREDENTIALS")
		require.NoError(t, err)
		assert.Equal(t, "rzp_live_1", m["RAZORPAY_KEY_ID"])
	}
	assert.Equal(t, 1, api.calls)
}

func TestSecretsClient_Errors(t *testing.T) {
	client := newSecretsClient(&fakeSecretsAPI{values: map[string]*string{
		"binary":   nil,
		"not-json": sdkaws.String("rzp_live_1"),
	}})
	ctx := context.Background()

	_, err := client.GetSecret(ctx, "missing")
	assert.ErrorContains(t, err, "failed to get secret missing")

	_, err = client.GetSecret(ctx, "binary")
	assert.ErrorContains(t, err, "no string value")

	_, err = client.GetSecretMap(ctx, "not-json")
	assert.ErrorContains(t, err, "not a JSON object")
}
