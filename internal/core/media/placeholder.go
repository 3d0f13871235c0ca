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

package media

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
)

// PlaceholderSize is the edge length of the blank frame.
const PlaceholderSize = 224

// PlaceholderFrame returns a white PlaceholderSize square JPEG. It stands in
// for the representative frame when none can be decoded from the clip.
func PlaceholderFrame(offset float64) (*model.Frame, error) {
	img := image.NewRGBA(image.Rect(0, 0, PlaceholderSize, PlaceholderSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return &model.Frame{Timestamp: offset, MIMEType: "image/jpeg", Data: buf.Bytes()}, nil
}
