package tags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpora/auth"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage/memory"
)

var (
	admin  = auth.Identity{UserID: "root", Role: auth.RoleAdmin}
	editor = auth.Identity{UserID: "alice", Role: auth.RoleEditor}
)

func newManager(t *testing.T) (*Manager, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	return NewManager(store, auth.RoleAuthorizer{}), store
}

func createDoc(t *testing.T, store *memory.Store) *core.Document {
	t.Helper()
	doc := &core.Document{
		ID: core.NewID(), Title: "doc", OwnerID: "alice",
		FileName: "doc.txt", Type: core.TypeText, Status: core.StatusUploaded,
	}
	require.NoError(t, store.CreateDocument(context.Background(), doc))
	return doc
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	tag, err := m.Create(ctx, editor, &core.Tag{Name: "Research"})
	require.NoError(t, err)
	assert.NotEmpty(t, tag.ID)

	t.Run("duplicate name ignoring case", func(t *testing.T) {
		_, err := m.Create(ctx, editor, &core.Tag{Name: "  research "})
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := m.Create(ctx, editor, &core.Tag{Name: "   "})
		assert.ErrorIs(t, err, core.ErrEmptyTagName)
	})

	t.Run("system tag needs admin", func(t *testing.T) {
		_, err := m.Create(ctx, editor, &core.Tag{Name: "archived", IsSystem: true})
		assert.ErrorIs(t, err, core.ErrPermissionDenied)

		_, err = m.Create(ctx, admin, &core.Tag{Name: "archived", IsSystem: true})
		assert.NoError(t, err)
	})
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	tag, err := m.Create(ctx, editor, &core.Tag{Name: "old"})
	require.NoError(t, err)
	other, err := m.Create(ctx, editor, &core.Tag{Name: "taken"})
	require.NoError(t, err)
	_ = other

	t.Run("rename", func(t *testing.T) {
		renamed, err := m.Rename(ctx, editor, tag.ID, "new")
		require.NoError(t, err)
		assert.Equal(t, "new", renamed.Name)

		got, err := m.GetByName(ctx, "NEW")
		require.NoError(t, err)
		assert.Equal(t, tag.ID, got.ID)
	})

	t.Run("target name taken", func(t *testing.T) {
		_, err := m.Rename(ctx, editor, tag.ID, "TAKEN")
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("system tag blocked for editor", func(t *testing.T) {
		sys, err := m.Create(ctx, admin, &core.Tag{Name: "pinned", IsSystem: true})
		require.NoError(t, err)

		_, err = m.Rename(ctx, editor, sys.ID, "unpinned")
		assert.ErrorIs(t, err, ErrSystemTag)

		_, err = m.Rename(ctx, admin, sys.ID, "unpinned")
		assert.NoError(t, err)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := m.Rename(ctx, editor, "missing", "x")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t)
	doc := createDoc(t, store)

	tag, err := m.Attach(ctx, editor, doc.ID, "work")
	require.NoError(t, err)

	t.Run("in use", func(t *testing.T) {
		err := m.Delete(ctx, editor, tag.ID)
		assert.ErrorIs(t, err, ErrTagInUse)
	})

	t.Run("after detach", func(t *testing.T) {
		require.NoError(t, m.Detach(ctx, editor, doc.ID, "work"))
		assert.NoError(t, m.Delete(ctx, editor, tag.ID))
	})

	t.Run("system tag", func(t *testing.T) {
		sys, err := m.Create(ctx, admin, &core.Tag{Name: "builtin", IsSystem: true})
		require.NoError(t, err)

		err = m.Delete(ctx, editor, sys.ID)
		assert.ErrorIs(t, err, ErrSystemTag)

		assert.NoError(t, m.Delete(ctx, admin, sys.ID))
	})
}

func TestAttachDetach(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t)
	doc := createDoc(t, store)

	t.Run("attach creates missing tag", func(t *testing.T) {
		tag, err := m.Attach(ctx, editor, doc.ID, "fresh")
		require.NoError(t, err)

		got, err := m.Get(ctx, tag.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.UsageCount)
	})

	t.Run("double attach", func(t *testing.T) {
		_, err := m.Attach(ctx, editor, doc.ID, "fresh")
		assert.ErrorIs(t, err, ErrAlreadyAttached)
	})

	t.Run("detach missing association", func(t *testing.T) {
		require.NoError(t, m.Detach(ctx, editor, doc.ID, "fresh"))
		err := m.Detach(ctx, editor, doc.ID, "fresh")
		assert.ErrorIs(t, err, ErrNotAttached)
	})

	t.Run("detach unknown tag", func(t *testing.T) {
		err := m.Detach(ctx, editor, doc.ID, "never-made")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := m.Create(ctx, editor, &core.Tag{Name: name})
		require.NoError(t, err)
	}

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[2].Name)
}
