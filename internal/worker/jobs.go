package worker

import (
	"encoding/json"

	"github.com/PauloHFS/goth-blog/internal/db"
	"github.com/PauloHFS/goth-blog/internal/upload"
)

const TypeRemoveImage = "remove_image"

type RemoveImagePayload struct {
	URL string `json:"url"`
}

// RemoveImageJob returns the job that deletes an image uploaded by ownerID once
// no post references it. ok is false for external images and for uploads of
// any other user.
func RemoveImageJob(url string, ownerID int64) (job db.CreateJobParams, ok bool) {
	if !upload.OwnedBy(url, ownerID) {
		return db.CreateJobParams{}, false
	}
	payload, err := json.Marshal(RemoveImagePayload{URL: url})
	if err != nil {
		return db.CreateJobParams{}, false
	}
	return db.CreateJobParams{Type: TypeRemoveImage, Payload: payload}, true
}
