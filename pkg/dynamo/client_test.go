package dynamo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/quotation-engine/pkg/config"
	"github.com/angelmondragon/quotation-engine/pkg/logger"
)

func TestLoadOptionsAddsStaticCredentialsOnlyWhenComplete(t *testing.T) {
	assert.Len(t, loadOptions(config.AWSConfig{Region: "us-east-1"}), 1)
	assert.Len(t, loadOptions(config.AWSConfig{Region: "us-east-1", AccessKeyID: "local"}), 1)
	assert.Len(t, loadOptions(config.AWSConfig{Region: "us-east-1", AccessKeyID: "local", SecretAccessKey: "local"}), 2)
}

func TestNewHonorsEndpointOverride(t *testing.T) {
	client, err := New(context.Background(), config.AWSConfig{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:8000",
		AccessKeyID:     "local",
		SecretAccessKey: "local",
	}, logger.Nop())
	require.NoError(t, err)

	opts := client.Options()
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://localhost:8000", *opts.BaseEndpoint)
	assert.Equal(t, "us-east-1", opts.Region)
}
