// Package fileu opens the input and output streams of a run. Paths may be
// local, "-" for the standard streams, or s3://bucket/key.
package fileu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"reduction.dev/linedup/storage"
	"reduction.dev/linedup/storage/objstore"
)

// StdioPath selects stdin for input and stdout for output.
const StdioPath = "-"

type Options struct {
	// Client for s3:// paths. When nil, one is built from S3.
	S3Client objstore.S3Service
	S3       objstore.ClientOptions
	// Standard streams, defaulting to os.Stdin and os.Stdout.
	Stdin  io.Reader
	Stdout io.Writer
}

func (o Options) s3Client(ctx context.Context) (objstore.S3Service, error) {
	if o.S3Client != nil {
		return o.S3Client, nil
	}
	return objstore.NewS3Client(ctx, o.S3)
}

func (o Options) stdin() io.Reader {
	if o.Stdin == nil {
		return os.Stdin
	}
	return o.Stdin
}

func (o Options) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

func isS3(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// ReadFile reads the contents of the file specified by path. It supports both
// local file paths and S3 URLs like s3://bucket/path/config.yaml.
func ReadFile(ctx context.Context, path string, opts Options) ([]byte, error) {
	r, err := OpenInput(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// OpenInput opens path for sequential reading. S3 objects are streamed.
func OpenInput(ctx context.Context, path string, opts Options) (io.ReadCloser, error) {
	switch {
	case path == StdioPath:
		return io.NopCloser(opts.stdin()), nil
	case isS3(path):
		bucket, key, err := storage.ParseS3URI(path)
		if err != nil {
			return nil, err
		}
		client, err := opts.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		result, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var noSuchKey *types.NoSuchKey
			if errors.As(err, &noSuchKey) {
				return nil, fmt.Errorf("opening %s: %w", path, storage.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get object from S3: %w", err)
		}
		return result.Body, nil
	default:
		return os.Open(path)
	}
}

// Output is a destination that is only published on Commit. Discard drops
// whatever was written. After either call the Output must not be used.
type Output interface {
	io.Writer
	Commit() error
	Discard() error
}

// CreateOutput creates the output at path. Local files are written beside the
// destination and renamed into place on Commit. S3 objects are staged in a
// local temp file and uploaded on Commit. Standard output is written directly
// and cannot be discarded.
func CreateOutput(ctx context.Context, path string, opts Options) (Output, error) {
	switch {
	case path == StdioPath:
		return stdoutOutput{opts.stdout()}, nil
	case isS3(path):
		bucket, key, err := storage.ParseS3URI(path)
		if err != nil {
			return nil, err
		}
		if key == "" {
			return nil, fmt.Errorf("s3 output needs an object key: %s", path)
		}
		client, err := opts.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		tmp, err := os.CreateTemp("", "linedup-output-*")
		if err != nil {
			return nil, fmt.Errorf("staging s3 output: %w", err)
		}
		return &s3Output{ctx: ctx, client: client, bucket: bucket, key: key, tmp: tmp}, nil
	default:
		fs, err := storage.NewLocalFilesystem(filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		return fileOutput{fs.New(filepath.Base(path))}, nil
	}
}

type stdoutOutput struct {
	io.Writer
}

func (stdoutOutput) Commit() error  { return nil }
func (stdoutOutput) Discard() error { return nil }

type fileOutput struct {
	file storage.File
}

func (o fileOutput) Write(p []byte) (int, error) { return o.file.Write(p) }
func (o fileOutput) Commit() error               { return o.file.Save() }
func (o fileOutput) Discard() error              { return o.file.Delete() }

type s3Output struct {
	ctx    context.Context
	client objstore.S3Service
	bucket string
	key    string
	tmp    *os.File
	size   int64
}

func (o *s3Output) Write(p []byte) (int, error) {
	n, err := o.tmp.Write(p)
	o.size += int64(n)
	return n, err
}

func (o *s3Output) Commit() error {
	defer o.Discard()
	if _, err := o.tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := o.client.PutObject(o.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(o.bucket),
		Key:           aws.String(o.key),
		Body:          o.tmp,
		ContentLength: aws.Int64(o.size),
	})
	if err != nil {
		return fmt.Errorf("uploading s3://%s/%s: %w", o.bucket, o.key, err)
	}
	return nil
}

func (o *s3Output) Discard() error {
	closeErr := o.tmp.Close()
	if errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}
	removeErr := os.Remove(o.tmp.Name())
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	return errors.Join(closeErr, removeErr)
}
