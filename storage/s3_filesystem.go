package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"reduction.dev/linedup/storage/objstore"
)

// S3Options configure the client used for s3:// locations.
type S3Options = objstore.ClientOptions

type S3FileSystem struct {
	client *objstore.S3StorageWithUsage
	bucket string
	prefix string
}

const s3Protocol = "s3://"

func NewS3FileSystem(client objstore.S3Service, bucket, prefix string) *S3FileSystem {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &S3FileSystem{
		bucket: bucket,
		prefix: prefix,
		client: objstore.NewS3StorageWithUsage(client),
	}
}

func NewS3FileSystemFromURI(ctx context.Context, uri string, opts S3Options) (*S3FileSystem, error) {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	client, err := objstore.NewS3Client(ctx, opts)
	if err != nil {
		return nil, err
	}

	return NewS3FileSystem(client, bucket, prefix), nil
}

func (fs *S3FileSystem) New(name string) File {
	if strings.HasPrefix(name, s3Protocol) {
		panic(fmt.Sprintf("creating a file with URI path (%s) not supported", name))
	}
	return &S3Object{
		bucket:   fs.bucket,
		key:      fs.prefix + name,
		name:     name,
		fs:       fs,
		buffer:   new(bytes.Buffer),
		fileMode: FILE_MODE_WRITE,
	}
}

func (fs *S3FileSystem) Open(name string) File {
	bucket, key := fs.bucket, fs.prefix+name
	if strings.HasPrefix(name, s3Protocol) {
		var err error
		bucket, key, err = ParseS3URI(name)
		if err != nil {
			panic(err)
		}
	}

	return &S3Object{
		bucket:   bucket,
		key:      key,
		name:     path.Base(key),
		fs:       fs,
		fileMode: FILE_MODE_READ,
	}
}

func (fs *S3FileSystem) List(prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var token *string
		for {
			out, err := fs.client.ListObjectsV2(context.Background(), &s3.ListObjectsV2Input{
				Bucket:            &fs.bucket,
				Prefix:            aws.String(fs.prefix + prefix),
				ContinuationToken: token,
			})
			if err != nil {
				yield("", err)
				return
			}
			for _, obj := range out.Contents {
				if !yield(Join(s3Protocol+fs.bucket, aws.ToString(obj.Key)), nil) {
					return
				}
			}
			if !aws.ToBool(out.IsTruncated) {
				return
			}
			token = out.NextContinuationToken
		}
	}
}

// USDCost is the request cost accumulated by this filesystem.
func (fs *S3FileSystem) USDCost() string {
	return fs.client.TotalCost()
}

// ParseS3URI splits s3://bucket/key into its bucket and key.
func ParseS3URI(uri string) (bucket string, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 URI: %s", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

var _ FileSystem = (*S3FileSystem)(nil)

// S3Object buffers writes in memory and uploads them in one PutObject on Save.
// Reads stream the object body.
type S3Object struct {
	bucket   string
	key      string
	name     string
	fs       *S3FileSystem
	buffer   *bytes.Buffer
	size     int64
	fileMode FileMode
}

func (o *S3Object) Name() string {
	return o.name
}

func (o *S3Object) NewReader() (io.ReadCloser, error) {
	if o.fileMode == FILE_MODE_WRITE {
		panic("tried to read a file before save")
	}
	output, err := o.fs.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: &o.bucket,
		Key:    &o.key,
	})
	if err != nil {
		if isNoSuchKeyErr(err) {
			return nil, fmt.Errorf("reading %s: %w", o.URI(), ErrNotFound)
		}
		return nil, err
	}
	return output.Body, nil
}

func (o *S3Object) Size() int64 {
	return o.size
}

func (o *S3Object) Save() error {
	if o.fileMode == FILE_MODE_READ {
		panic("tried to save a read only file")
	}
	_, err := o.fs.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:        &o.bucket,
		Key:           &o.key,
		Body:          bytes.NewReader(o.buffer.Bytes()),
		ContentLength: aws.Int64(int64(o.buffer.Len())),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", o.URI(), err)
	}
	o.buffer = nil
	o.fileMode = FILE_MODE_READ
	return nil
}

func (o *S3Object) Write(p []byte) (n int, err error) {
	if o.fileMode == FILE_MODE_READ {
		panic("tried to write to a read only file")
	}
	n, err = o.buffer.Write(p)
	o.size += int64(n)
	return n, err
}

// Delete removes the object, or drops the pending buffer if it was never saved.
func (o *S3Object) Delete() error {
	if o.fileMode == FILE_MODE_WRITE {
		o.buffer.Reset()
		return nil
	}
	return o.CreateDeleteFunc()()
}

func (o *S3Object) URI() string {
	return Join(s3Protocol+o.bucket, o.key)
}

func (o *S3Object) CreateDeleteFunc() func() error {
	client := o.fs.client
	bucket, key := o.bucket, o.key
	return func() error {
		_, err := client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
			Bucket: &bucket,
			Key:    &key,
		})
		return err
	}
}

func isNoSuchKeyErr(err error) bool {
	var notFoundErr *types.NoSuchKey
	return errors.As(err, &notFoundErr)
}

var _ File = (*S3Object)(nil)
