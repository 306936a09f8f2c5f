package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageParts_CapsAndSniffs(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	images := []Image{
		{Data: png},
		{Data: []byte("b"), MimeType: "image/jpeg"},
		{Data: []byte("c"), MimeType: "image/jpeg"},
		{Data: []byte("d"), MimeType: "image/jpeg"},
	}

	parts := imageParts("describe", images)

	require.Len(t, parts, 1+MaxDescribeImages)
	assert.Equal(t, "describe", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
	assert.Equal(t, "image/jpeg", parts[2].InlineData.MIMEType)
}

func TestNewGeminiDescriber_RequiresKey(t *testing.T) {
	_, err := NewGeminiDescriber(context.Background(), DefaultConfig(), nil)
	assert.Error(t, err)
}
