package models

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

// The (conversation_id, platform_message_id) idempotency key is a partial
// unique index created by raw SQL at startup. A tag-declared index with the
// same name would be created first by AutoMigrate as a plain index, and the
// later CREATE UNIQUE INDEX IF NOT EXISTS would silently no-op against it.
func TestMessageTagsDoNotShadowIdempotencyIndex(t *testing.T) {
	typ := reflect.TypeOf(Message{})
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		assert.NotContains(t, field.Tag.Get("gorm"), "idx_messages_conv_mid",
			"field %s must not declare the idempotency index by name", field.Name)
	}
}
