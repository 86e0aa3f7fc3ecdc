package storage

import (
	"bytes"
	"context"

	"YChat/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSObjectStore keeps message attachments in a GridFS bucket, so the
// blob store rides on the same Mongo deployment as the rest of the data.
type GridFSObjectStore struct {
	bucket *gridfs.Bucket
}

func NewGridFSObjectStore(db *mongo.Database) (*GridFSObjectStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName("attachments"))
	if err != nil {
		return nil, errs.WrapMsg(err, "create gridfs bucket")
	}
	return &GridFSObjectStore{bucket: bucket}, nil
}

// Put stores data under name, overwriting nothing: attachment names embed the
// message id, which is unique per message.
func (s *GridFSObjectStore) Put(ctx context.Context, name string, data []byte) error {
	stream, err := s.bucket.OpenUploadStream(name)
	if err != nil {
		return errs.WrapMsg(err, "open gridfs upload stream")
	}
	if _, err := bytes.NewReader(data).WriteTo(stream); err != nil {
		_ = stream.Close()
		return errs.WrapMsg(err, "write attachment")
	}
	if err := stream.Close(); err != nil {
		return errs.WrapMsg(err, "close gridfs upload stream")
	}
	return nil
}
