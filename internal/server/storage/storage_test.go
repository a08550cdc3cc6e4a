package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sc "github.com/convivial/salon/internal/server/config"
)

func testConfig() *sc.Config {
	return &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "convivial-files",
	}
}

func stubPresignClient(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var o s3.Options
		for _, fn := range optFns {
			fn(&o)
		}
		require.NotNil(t, o.BaseEndpoint)
		assert.Equal(t, "http://127.0.0.1:9000", *o.BaseEndpoint)
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
}

func TestVoiceNoteKey(t *testing.T) {
	k1 := VoiceNoteKey("d1")
	k2 := VoiceNoteKey("d1")
	assert.True(t, strings.HasPrefix(k1, "voice/"))
	assert.Contains(t, k1, "/d1/")
	assert.True(t, strings.HasSuffix(k1, ".webm"))
	assert.NotEqual(t, k1, k2)
}

func TestPresignedPutURL(t *testing.T) {
	stubPresignClient(t)

	origPut := presignPutObject
	t.Cleanup(func() { presignPutObject = origPut })
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, "convivial-files", *in.Bucket)
		assert.Contains(t, *in.Key, "/d1/")
		return &v4.PresignedHTTPRequest{URL: "http://127.0.0.1:9000/put"}, nil
	}

	svc := NewService(testConfig())
	key, url, err := svc.PresignedPutURL(context.Background(), "d1")
	require.NoError(t, err)
	assert.NotEmpty(t, key)
	assert.Equal(t, "http://127.0.0.1:9000/put", url)
}

func TestPresignedPutURL_Error(t *testing.T) {
	stubPresignClient(t)

	origPut := presignPutObject
	t.Cleanup(func() { presignPutObject = origPut })
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign failed")
	}

	svc := NewService(testConfig())
	_, _, err := svc.PresignedPutURL(context.Background(), "d1")
	require.Error(t, err)
}

func TestPresignedGetURL(t *testing.T) {
	stubPresignClient(t)

	origGet := presignGetObject
	t.Cleanup(func() { presignGetObject = origGet })
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, "voice/2026/03/d1/x.webm", *in.Key)
		return &v4.PresignedHTTPRequest{URL: "http://127.0.0.1:9000/get"}, nil
	}

	svc := NewService(testConfig())
	url, err := svc.PresignedGetURL(context.Background(), "voice/2026/03/d1/x.webm")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/get", url)
}
