package objstore

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Cost per 1,000 requests in microdollars (1 dollar = 1,000,000 microdollars)
const (
	cheapCostPerThousand     = 400   // GET
	expensiveCostPerThousand = 5_000 // PUT, LIST
)

// S3Usage counts requests by price tier.
type S3Usage struct {
	cheapRequests     atomic.Int64
	expensiveRequests atomic.Int64
}

func (s *S3Usage) AddCheapRequest() {
	s.cheapRequests.Add(1)
}

func (s *S3Usage) AddExpensiveRequest() {
	s.expensiveRequests.Add(1)
}

func (s *S3Usage) Requests() (cheap, expensive int64) {
	return s.cheapRequests.Load(), s.expensiveRequests.Load()
}

// TotalCost returns the request cost formatted as USD.
func (s *S3Usage) TotalCost() string {
	cheap, expensive := s.Requests()
	totalMicrodollars := (cheap*cheapCostPerThousand)/1000 + (expensive*expensiveCostPerThousand)/1000

	dollars := totalMicrodollars / 1_000_000
	cents := (totalMicrodollars % 1_000_000) / 10_000
	if dollars > 0 || cents > 0 {
		return fmt.Sprintf("$%d.%02d", dollars, cents)
	}
	return fmt.Sprintf("$0.%04d", (totalMicrodollars%10_000)/100)
}

// S3StorageWithUsage wraps an S3Service and records the usage of every call.
// DELETE requests are free and not counted.
type S3StorageWithUsage struct {
	S3Usage
	service S3Service
}

func NewS3StorageWithUsage(service S3Service) *S3StorageWithUsage {
	return &S3StorageWithUsage{service: service}
}

func (s *S3StorageWithUsage) GetObject(ctx context.Context, input *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	s.AddCheapRequest()
	return s.service.GetObject(ctx, input, optFns...)
}

func (s *S3StorageWithUsage) ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	s.AddExpensiveRequest()
	return s.service.ListObjectsV2(ctx, input, optFns...)
}

func (s *S3StorageWithUsage) PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	s.AddExpensiveRequest()
	return s.service.PutObject(ctx, input, optFns...)
}

func (s *S3StorageWithUsage) DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return s.service.DeleteObject(ctx, input, optFns...)
}

var _ S3Service = (*S3StorageWithUsage)(nil)
