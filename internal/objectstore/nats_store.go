// Package objectstore keeps job artifacts (source media, pose tracks, rendered videos) in a
// NATS JetStream object store bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	videoSuffix     = "-r.mp4"
	poseTrackSuffix = "-poses.json"
	bucketDescFmt   = "Avatar artifacts for the %s bucket."
)

// ErrEmptyKey is returned when an artifact key is empty.
var ErrEmptyKey = errors.New("artifact key cannot be empty")

// ArtifactStore implements core.ObjectStore on a JetStream object store.
type ArtifactStore struct {
	bucket string
	store  nats.ObjectStore
}

// New creates the bucket, or binds to it when it already exists.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*ArtifactStore, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf(bucketDescFmt, bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
		}
	}

	return &ArtifactStore{bucket: bucketName, store: store}, nil
}

// Download retrieves an artifact.
func (a *ArtifactStore) Download(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	obj, err := a.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact '%s' from bucket '%s': %w", key, a.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read artifact '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close artifact '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload stores an artifact, replacing any previous object under the same key.
func (a *ArtifactStore) Upload(_ context.Context, key string, data []byte) error {
	if key == "" {
		return ErrEmptyKey
	}

	_, err := a.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     nil,
		Metadata:    nil,
		Opts:        nil,
	}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to put artifact '%s' to bucket '%s': %w", key, a.bucket, err)
	}

	return nil
}

// VideoKey is the key of the final video produced for workID.
func VideoKey(workID string) string {
	return path.Join(workID, workID+videoSuffix)
}

// PoseTrackKey is the key of the pose track rendered for workID.
func PoseTrackKey(workID string) string {
	return path.Join(workID, workID+poseTrackSuffix)
}
