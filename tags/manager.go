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


// Package tags manages the tag vocabulary and document-tag associations.
// Names are unique case-insensitively; a tag in use cannot be deleted and a
// system tag cannot be renamed or deleted by regular users.
package tags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/corpora/auth"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

var (
	// ErrDuplicateName indicates a tag with the same name already exists,
	// ignoring case.
	ErrDuplicateName = errors.New("tag name already exists")
	// ErrTagInUse indicates the tag is attached to at least one document.
	ErrTagInUse = errors.New("tag is in use")
	// ErrSystemTag indicates the operation is not allowed on a system tag.
	ErrSystemTag = errors.New("system tag")
	// ErrNotFound indicates no such tag.
	ErrNotFound = errors.New("tag not found")
	// ErrAlreadyAttached indicates the document already carries the tag.
	ErrAlreadyAttached = errors.New("tag already attached")
	// ErrNotAttached indicates the document does not carry the tag.
	ErrNotAttached = errors.New("tag not attached")
)

// Manager mediates every tag operation.
type Manager struct {
	store      storage.Store
	authorizer auth.Authorizer
	logger     *slog.Logger
}

// NewManager creates a Manager.
func NewManager(store storage.Store, authorizer auth.Authorizer) *Manager {
	return &Manager{
		store:      store,
		authorizer: authorizer,
		logger:     slog.Default().With("component", "tags"),
	}
}

// Create adds a new tag. System tags require the manage-system-tags
// permission.
func (m *Manager) Create(ctx context.Context, identity auth.Identity, tag *core.Tag) (*core.Tag, error) {
	if err := core.ValidateTag(tag); err != nil {
		return nil, err
	}
	if tag.IsSystem && !m.authorizer.CanManageSystemTags(identity) {
		return nil, core.ErrPermissionDenied
	}
	if tag.ID == "" {
		tag.ID = core.NewID()
	}
	if err := m.store.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, tag.Name)
		}
		return nil, err
	}
	m.logger.Info("tag created", "tag", tag.Name, "system", tag.IsSystem)
	return tag, nil
}

// Rename changes a tag's name. System tags cannot be renamed except by a
// system-tag manager; the new name must be free, ignoring case.
func (m *Manager) Rename(ctx context.Context, identity auth.Identity, id, newName string) (*core.Tag, error) {
	tag, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag.IsSystem && !m.authorizer.CanManageSystemTags(identity) {
		return nil, fmt.Errorf("%w: %s cannot be renamed", ErrSystemTag, tag.Name)
	}
	renamed := *tag
	renamed.Name = newName
	if err := core.ValidateTag(&renamed); err != nil {
		return nil, err
	}
	if err := m.store.UpdateTag(ctx, &renamed); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, newName)
		}
		return nil, err
	}
	m.logger.Info("tag renamed", "from", tag.Name, "to", newName)
	return &renamed, nil
}

// Update changes a tag's color or description. The name is left alone;
// renames go through Rename so the uniqueness and system rules apply.
func (m *Manager) Update(ctx context.Context, identity auth.Identity, id, color, description string) (*core.Tag, error) {
	tag, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag.IsSystem && !m.authorizer.CanManageSystemTags(identity) {
		return nil, fmt.Errorf("%w: %s cannot be modified", ErrSystemTag, tag.Name)
	}
	updated := *tag
	updated.Color = color
	updated.Description = description
	if err := m.store.UpdateTag(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a tag. A tag still attached to documents, and any system
// tag, cannot be deleted; detach everywhere first.
func (m *Manager) Delete(ctx context.Context, identity auth.Identity, id string) error {
	tag, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	if tag.IsSystem {
		if !m.authorizer.CanManageSystemTags(identity) {
			return fmt.Errorf("%w: %s cannot be deleted", ErrSystemTag, tag.Name)
		}
	}
	if tag.UsageCount > 0 {
		return fmt.Errorf("%w: %s has %d documents", ErrTagInUse, tag.Name, tag.UsageCount)
	}
	if err := m.store.DeleteTag(ctx, id); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return fmt.Errorf("%w: %s", ErrTagInUse, tag.Name)
		}
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	m.logger.Info("tag deleted", "tag", tag.Name)
	return nil
}

// Attach links a tag to a document, creating the tag if name does not exist
// yet. The association insert and the usage-count bump share a transaction.
func (m *Manager) Attach(ctx context.Context, identity auth.Identity, docID, name string) (*core.Tag, error) {
	tag, err := m.store.GetTagByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		tag, err = m.Create(ctx, identity, &core.Tag{Name: name})
	}
	if err != nil {
		return nil, err
	}
	if err := m.store.AttachTag(ctx, docID, tag.ID); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyAttached, tag.Name)
		}
		return nil, err
	}
	return tag, nil
}

// Detach removes a tag from a document.
func (m *Manager) Detach(ctx context.Context, identity auth.Identity, docID, name string) error {
	tag, err := m.store.GetTagByName(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	if err := m.store.DetachTag(ctx, docID, tag.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotAttached, tag.Name)
		}
		return err
	}
	return nil
}

// Get returns a tag by id.
func (m *Manager) Get(ctx context.Context, id string) (*core.Tag, error) {
	return m.get(ctx, id)
}

// GetByName returns a tag by name, ignoring case.
func (m *Manager) GetByName(ctx context.Context, name string) (*core.Tag, error) {
	tag, err := m.store.GetTagByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return tag, err
}

// List returns every tag sorted by name.
func (m *Manager) List(ctx context.Context) ([]*core.Tag, error) {
	return m.store.ListTags(ctx)
}

func (m *Manager) get(ctx context.Context, id string) (*core.Tag, error) {
	tag, err := m.store.GetTag(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return tag, nil
}
