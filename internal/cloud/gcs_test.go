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

package cloud_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-video-qa/internal/cloud"
)

func TestGCSObjectURI(t *testing.T) {
	obj := &cloud.GCSObject{Bucket: "clips", Name: "sessions/abc/clip.mp4"}
	assert.Equal(t, "gs://clips/sessions/abc/clip.mp4", obj.URI())
}

func TestGCSArchiverMissingFile(t *testing.T) {
	archiver := cloud.NewGCSArchiver(nil)
	missing := filepath.Join(t.TempDir(), "gone.mp4")

	err := archiver.Archive(context.Background(), missing, &cloud.GCSObject{Bucket: "clips", Name: "gone.mp4"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), missing)
}
