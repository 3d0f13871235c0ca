// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with external services.
// This file defines the Google Cloud Storage archive used to keep a copy of
// every uploaded clip outside the local upload directory.
//
// Structs:
//   - GCSObject: A bucket and object name pair.
//   - GCSArchiver: Streams a local file into a bucket.
package cloud

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
)

// GCSObject is a simplified, internal representation of a Google Cloud Storage (GCS)
// object.
type GCSObject struct {
	Bucket   string // The name of the GCS bucket.
	Name     string // The name of the object.
	MIMEType string // The MIME type of the object (e.g., "video/mp4").
}

// URI returns the gs:// form of the object location.
func (o *GCSObject) URI() string {
	return fmt.Sprintf("gs://%s/%s", o.Bucket, o.Name)
}

// ClipArchiver copies a local file to object storage.
type ClipArchiver interface {
	Archive(ctx context.Context, localPath string, obj *GCSObject) error
}

// GCSArchiver is the ClipArchiver backed by a storage client.
type GCSArchiver struct {
	Client *storage.Client
}

// NewGCSArchiver wraps an initialized storage client.
func NewGCSArchiver(client *storage.Client) *GCSArchiver {
	return &GCSArchiver{Client: client}
}

// Archive streams the file at localPath into obj. The object is only
// finalized when the writer closes without error.
func (g *GCSArchiver) Archive(ctx context.Context, localPath string, obj *GCSObject) error {
	in, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer in.Close()

	writer := g.Client.Bucket(obj.Bucket).Object(obj.Name).NewWriter(ctx)
	if obj.MIMEType != "" {
		writer.ContentType = obj.MIMEType
	}
	if written, err := io.Copy(writer, in); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to copy to %s after %d bytes: %w", obj.URI(), written, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", obj.URI(), err)
	}
	return nil
}
