// Package media uploads user-submitted images to S3-compatible object
// storage (AWS S3 or MinIO) and returns the public URL of the stored object.
//
// The uploader consumes local temp files written by the HTTP layer and
// always removes them, whether the upload succeeded or not.
package media
