package ledger

import (
	"context"
	"path"
	"path/filepath"

	"waingest/internal/blobstore"
	"waingest/internal/identity"
	"waingest/internal/models"
)

// MediaResolver locates stored-media metadata for one message's attachment.
// A nil reference with a nil error means the attachment could not be stored;
// the message is then persisted without it.
type MediaResolver interface {
	Resolve(ctx context.Context, filename, groupName, messageID string) (*models.MediaRef, error)
}

// MetadataMap resolves from a filename→metadata map built by a bulk upload
// pass. Files whose upload failed are simply absent from the map.
type MetadataMap map[string]models.MediaRef

func (m MetadataMap) Resolve(_ context.Context, filename, _, _ string) (*models.MediaRef, error) {
	ref, ok := m[filename]
	if !ok {
		return nil, nil
	}
	return &ref, nil
}

// DirectUploader uploads attachments on demand, grouping each blob under a
// message-scoped key: <groupID>/<messageID>/<filename>.
type DirectUploader struct {
	Store   *blobstore.Store
	Bucket  string
	BaseDir string // directory holding the export's media files
}

func (d *DirectUploader) Resolve(ctx context.Context, filename, groupName, messageID string) (*models.MediaRef, error) {
	key := path.Join(identity.GroupID(groupName), messageID, filename)
	res, err := d.Store.Upload(ctx, filepath.Join(d.BaseDir, filename), d.Bucket, key)
	if err != nil {
		return nil, err
	}
	return &models.MediaRef{
		OriginalFilename: filename,
		StorageURI:       res.URI,
		SHA256:           res.SHA256,
		MediaType:        res.MediaType,
	}, nil
}
