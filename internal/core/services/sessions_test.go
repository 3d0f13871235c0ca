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

package services_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/jaycherian/gcp-go-video-qa/internal/core/model"
	"github.com/jaycherian/gcp-go-video-qa/internal/core/services"
)

func newSession(id string) *model.Session {
	return &model.Session{
		ID:         id,
		Filename:   "clip.mp4",
		VideoPath:  "/tmp/" + id + "/clip.mp4",
		VideoInfo:  &model.VideoInfo{Duration: 5},
		Transcript: "hello there",
		Frames:     []*model.Frame{},
		CreatedAt:  time.Now(),
	}
}

func TestSessionStorePutGet(t *testing.T) {
	store := services.NewSessionStore()
	session := newSession("abc")

	assert.NoError(t, store.Put("abc", session))
	got, err := store.Get("abc")
	assert.NoError(t, err)
	assert.Equal(t, got, session)
	assert.Equal(t, store.Len(), 1)
}

func TestSessionStoreGetMissing(t *testing.T) {
	store := services.NewSessionStore()

	got, err := store.Get("nope")
	assert.True(t, got == nil)
	assert.True(t, model.IsKind(err, model.KindNotFound))
	assert.Equal(t, model.Cause(err), "Session not found")
}

func TestSessionStoreRejects(t *testing.T) {
	store := services.NewSessionStore()
	assert.NoError(t, store.Put("abc", newSession("abc")))

	incomplete := newSession("def")
	incomplete.VideoInfo = nil

	cases := map[string]struct {
		id      string
		session *model.Session
	}{
		"nil session": {id: "x", session: nil},
		"empty id":    {id: "", session: newSession("")},
		"mismatch":    {id: "x", session: newSession("y")},
		"duplicate":   {id: "abc", session: newSession("abc")},
		"incomplete":  {id: "def", session: incomplete},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := store.Put(tc.id, tc.session)
			assert.Error(t, err)
			assert.True(t, model.IsKind(err, model.KindInternal))
		})
	}
	assert.Equal(t, store.Len(), 1)
}

func TestSessionStoreClear(t *testing.T) {
	store := services.NewSessionStore()
	assert.NoError(t, store.Put("a", newSession("a")))
	assert.NoError(t, store.Put("b", newSession("b")))

	assert.Equal(t, store.Clear(), 2)
	assert.Equal(t, store.Len(), 0)

	_, err := store.Get("a")
	assert.True(t, model.IsKind(err, model.KindNotFound))

	err = store.Put("c", newSession("c"))
	assert.Error(t, err)
	assert.False(t, store.Len() != 0)
}

func TestSessionStoreConcurrent(t *testing.T) {
	store := services.NewSessionStore()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s-%d", i)
			if err := store.Put(id, newSession(id)); err != nil {
				t.Error(err)
				return
			}
			if _, err := store.Get(id); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, store.Len(), 32)
}
