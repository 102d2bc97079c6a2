package mainconfig

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/aim-injury/aim-intake/internal/config"
)

func TestNeedsAWS(t *testing.T) {
	assert.False(t, NeedsAWS(&appconfig.Config{EmailProvider: "stub"}))
	assert.True(t, NeedsAWS(&appconfig.Config{BedrockModelID: "anthropic.claude-3-haiku"}))
	assert.True(t, NeedsAWS(&appconfig.Config{EmailProvider: "SES"}))
}

func TestLoadAWSConfigEndpointOverride(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:           "ca-central-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
		AWSEndpointOverride: "http://localhost:4566",
	}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "ca-central-1", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)

	for _, svc := range []string{bedrockruntime.ServiceID, sesv2.ServiceID} {
		ep, err := awsCfg.EndpointResolverWithOptions.ResolveEndpoint(svc, "ca-central-1")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:4566", ep.URL)
	}
	_, err = awsCfg.EndpointResolverWithOptions.ResolveEndpoint("s3", "ca-central-1")
	assert.Error(t, err)
}
