package objstore_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reduction.dev/linedup/storage/objstore"
)

func TestS3Usage_TotalCost(t *testing.T) {
	usage := &objstore.S3Usage{}
	for range 1_000 {
		usage.AddCheapRequest()
	}
	assert.Equal(t, "$0.0004", usage.TotalCost())

	usage = &objstore.S3Usage{}
	for range 1_000_000 {
		usage.AddCheapRequest()
	}
	assert.Equal(t, "$0.40", usage.TotalCost())

	usage = &objstore.S3Usage{}
	for range 1_000 {
		usage.AddExpensiveRequest()
	}
	assert.Equal(t, "$0.0050", usage.TotalCost())
}

func TestS3StorageWithUsage_CountsRequests(t *testing.T) {
	ctx := context.Background()
	client := objstore.NewS3StorageWithUsage(objstore.NewMemoryS3Service())

	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String("bucket"),
		Key:    aws.String("key"),
		Body:   strings.NewReader("data"),
	})
	require.NoError(t, err)

	_, err = client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String("bucket"), Key: aws.String("key")})
	require.NoError(t, err)

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String("bucket"), Key: aws.String("key")})
	require.NoError(t, err)

	cheap, expensive := client.Requests()
	assert.Equal(t, int64(1), cheap, "one GET")
	assert.Equal(t, int64(1), expensive, "one PUT, DELETE is free")
}
