package tracing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsCredentials(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("Authorization", "Bearer x"),
		attribute.String("http.route", "/api/invoices/:id"),
		attribute.String("note", strings.Repeat("a", 400)),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
	assert.Len(t, attrs[1].Value.AsString(), maxAttributeLength)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.EqualError(t, SafeError(errors.New("insert invoice: duplicate key value")), "insert invoice")
	assert.EqualError(t, SafeError(errors.New("boom")), "boom")
}
