package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validDocument() *Document {
	return &Document{
		ID:       NewID(),
		OwnerID:  "user-1",
		FileName: "notes.txt",
		Type:     TypeText,
		Status:   StatusUploaded,
		Size:     128,
	}
}

func TestValidateDocument(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		assert.NoError(t, ValidateDocument(validDocument()))
	})

	t.Run("nil document", func(t *testing.T) {
		err := ValidateDocument(nil)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("empty id", func(t *testing.T) {
		doc := validDocument()
		doc.ID = ""
		assert.ErrorIs(t, ValidateDocument(doc), ErrInvalidDocument)
	})

	t.Run("empty owner", func(t *testing.T) {
		doc := validDocument()
		doc.OwnerID = ""
		assert.ErrorIs(t, ValidateDocument(doc), ErrInvalidDocument)
	})

	t.Run("unknown type", func(t *testing.T) {
		doc := validDocument()
		doc.Type = DocumentType("spreadsheet")
		assert.ErrorIs(t, ValidateDocument(doc), ErrInvalidDocument)
	})

	t.Run("unknown status", func(t *testing.T) {
		doc := validDocument()
		doc.Status = DocumentStatus("archived")
		assert.ErrorIs(t, ValidateDocument(doc), ErrInvalidStatus)
	})

	t.Run("negative size", func(t *testing.T) {
		doc := validDocument()
		doc.Size = -1
		assert.ErrorIs(t, ValidateDocument(doc), ErrInvalidDocument)
	})
}

func TestValidateProcessOptions(t *testing.T) {
	t.Run("valid options", func(t *testing.T) {
		opts := ProcessOptions{ChunkSize: 1000, ChunkOverlap: 100}
		assert.NoError(t, ValidateProcessOptions(opts))
	})

	t.Run("zero overlap is valid", func(t *testing.T) {
		opts := ProcessOptions{ChunkSize: MinChunkSize}
		assert.NoError(t, ValidateProcessOptions(opts))
	})

	t.Run("size below minimum", func(t *testing.T) {
		opts := ProcessOptions{ChunkSize: MinChunkSize - 1}
		assert.ErrorIs(t, ValidateProcessOptions(opts), ErrInvalidChunkOptions)
	})

	t.Run("size above maximum", func(t *testing.T) {
		opts := ProcessOptions{ChunkSize: MaxChunkSize + 1}
		assert.ErrorIs(t, ValidateProcessOptions(opts), ErrInvalidChunkOptions)
	})

	t.Run("overlap equal to size", func(t *testing.T) {
		opts := ProcessOptions{ChunkSize: 128, ChunkOverlap: 128}
		assert.ErrorIs(t, ValidateProcessOptions(opts), ErrInvalidChunkOptions)
	})

	t.Run("overlap above size", func(t *testing.T) {
		opts := ProcessOptions{ChunkSize: 128, ChunkOverlap: 256}
		assert.ErrorIs(t, ValidateProcessOptions(opts), ErrInvalidChunkOptions)
	})

	t.Run("negative overlap", func(t *testing.T) {
		opts := ProcessOptions{ChunkSize: 128, ChunkOverlap: -1}
		assert.ErrorIs(t, ValidateProcessOptions(opts), ErrInvalidChunkOptions)
	})
}

func TestValidateTag(t *testing.T) {
	t.Run("valid tag", func(t *testing.T) {
		assert.NoError(t, ValidateTag(&Tag{Name: "urgent"}))
	})

	t.Run("nil tag", func(t *testing.T) {
		assert.ErrorIs(t, ValidateTag(nil), ErrInvalidTag)
	})

	t.Run("empty name", func(t *testing.T) {
		assert.ErrorIs(t, ValidateTag(&Tag{Name: "   "}), ErrInvalidTag)
	})

	t.Run("name too long", func(t *testing.T) {
		long := make([]byte, 65)
		for i := range long {
			long[i] = 'a'
		}
		assert.ErrorIs(t, ValidateTag(&Tag{Name: string(long)}), ErrInvalidTag)
	})
}

func TestNormalizeTagName(t *testing.T) {
	assert.Equal(t, "urgent", NormalizeTagName("Urgent"))
	assert.Equal(t, "urgent", NormalizeTagName("  URGENT  "))
	assert.Equal(t, NormalizeTagName("Urgent"), NormalizeTagName("urgent"))
}
