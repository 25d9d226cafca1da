// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package memory

import (
	"context"
	"sort"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

func (s *Store) CreateTag(ctx context.Context, tag *core.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	normalized := core.NormalizeTagName(tag.Name)
	if _, ok := s.tagNames[normalized]; ok {
		return storage.ErrDuplicateKey
	}
	s.tags[tag.ID] = copyTag(tag)
	s.tagNames[normalized] = tag.ID
	return nil
}

func (s *Store) GetTag(ctx context.Context, id string) (*core.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	tag, ok := s.tags[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyTag(tag), nil
}

func (s *Store) GetTagByName(ctx context.Context, name string) (*core.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	id, ok := s.tagNames[core.NormalizeTagName(name)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyTag(s.tags[id]), nil
}

func (s *Store) ListTags(ctx context.Context) ([]*core.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	out := make([]*core.Tag, 0, len(s.tags))
	for _, tag := range s.tags {
		out = append(out, copyTag(tag))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateTag(ctx context.Context, tag *core.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	stored, ok := s.tags[tag.ID]
	if !ok {
		return storage.ErrNotFound
	}
	normalized := core.NormalizeTagName(tag.Name)
	if existing, ok := s.tagNames[normalized]; ok && existing != tag.ID {
		return storage.ErrDuplicateKey
	}
	delete(s.tagNames, core.NormalizeTagName(stored.Name))
	stored.Name = tag.Name
	stored.Color = tag.Color
	stored.Description = tag.Description
	s.tagNames[normalized] = tag.ID
	return nil
}

func (s *Store) DeleteTag(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	tag, ok := s.tags[id]
	if !ok {
		return storage.ErrNotFound
	}
	for _, attached := range s.docTags {
		if _, ok := attached[id]; ok {
			return storage.ErrConflict
		}
	}
	delete(s.tagNames, core.NormalizeTagName(tag.Name))
	delete(s.tags, id)
	return nil
}

// AttachTag links the tag to the document and bumps the usage count in the
// same critical section, keeping the count equal to the association total.
func (s *Store) AttachTag(ctx context.Context, docID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.documents[docID]; !ok {
		return storage.ErrNotFound
	}
	tag, ok := s.tags[tagID]
	if !ok {
		return storage.ErrNotFound
	}
	attached := s.docTags[docID]
	if attached == nil {
		attached = make(map[string]struct{})
		s.docTags[docID] = attached
	}
	if _, ok := attached[tagID]; ok {
		return storage.ErrDuplicateKey
	}
	attached[tagID] = struct{}{}
	tag.UsageCount++
	return nil
}

func (s *Store) DetachTag(ctx context.Context, docID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	attached := s.docTags[docID]
	if _, ok := attached[tagID]; !ok {
		return storage.ErrNotFound
	}
	delete(attached, tagID)
	if tag, ok := s.tags[tagID]; ok && tag.UsageCount > 0 {
		tag.UsageCount--
	}
	return nil
}

func copyTag(tag *core.Tag) *core.Tag {
	out := *tag
	return &out
}
