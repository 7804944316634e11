package mediahost

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 captures PutObject/DeleteObject calls for assertions.
type fakeS3 struct {
	putInput    *s3.PutObjectInput
	deleteInput *s3.DeleteObjectInput
	putErr      error
	deleteErr   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putInput = params
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleteInput = params
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Host_Upload(t *testing.T) {
	fake := &fakeS3{}
	host := &S3Host{client: fake, bucket: "media", publicBaseURL: "https://cdn.example.com"}

	asset, err := host.Upload(context.Background(), "avatars", "me.png", strings.NewReader("data"), "image/png")
	require.NoError(t, err)
	require.NotNil(t, fake.putInput)

	assert.Equal(t, "media", *fake.putInput.Bucket)
	assert.Equal(t, "image/png", *fake.putInput.ContentType)
	assert.True(t, strings.HasPrefix(asset.PublicID, "avatars/"))
	assert.True(t, strings.HasSuffix(asset.PublicID, ".png"))
	assert.Equal(t, "https://cdn.example.com/"+asset.PublicID, asset.URL)

	body, err := io.ReadAll(fake.putInput.Body)
	require.NoError(t, err)
	assert.Equal(t, "data", string(body))
}

// The stored extension comes from the validated MIME type, not the
// client-supplied filename.
func TestS3Host_UploadExtensionFollowsMIME(t *testing.T) {
	fake := &fakeS3{}
	host := &S3Host{client: fake, bucket: "media", publicBaseURL: "https://cdn.example.com"}

	asset, err := host.Upload(context.Background(), "avatars", "avatar.exe", strings.NewReader("data"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(asset.PublicID, ".jpg"), "got %q", asset.PublicID)

	// Outside the image allow-list the filename extension is the fallback.
	asset, err = host.Upload(context.Background(), "exports", "report.csv", strings.NewReader("a,b"), "text/csv")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(asset.PublicID, ".csv"), "got %q", asset.PublicID)
}

func TestS3Host_UploadError(t *testing.T) {
	fake := &fakeS3{putErr: errors.New("bucket unavailable")}
	host := &S3Host{client: fake, bucket: "media"}

	_, err := host.Upload(context.Background(), "avatars", "me.png", strings.NewReader("x"), "image/png")
	assert.Error(t, err)
}

func TestS3Host_Delete(t *testing.T) {
	fake := &fakeS3{}
	host := &S3Host{client: fake, bucket: "media"}

	err := host.Delete(context.Background(), "avatars/2026/01/abc.png")
	require.NoError(t, err)
	require.NotNil(t, fake.deleteInput)
	assert.Equal(t, "avatars/2026/01/abc.png", *fake.deleteInput.Key)
}

func TestS3Host_DeleteEmptyIDIsNoop(t *testing.T) {
	fake := &fakeS3{deleteErr: errors.New("should not be called")}
	host := &S3Host{client: fake, bucket: "media"}

	err := host.Delete(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, fake.deleteInput)
}

func TestValidImageMagic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		mime string
		want bool
	}{
		{"valid png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, "image/png", true},
		{"valid jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg", true},
		{"valid gif", []byte("GIF89a trailer"), "image/gif", true},
		{"valid webp", []byte("RIFF????WEBPVP8 "), "image/webp", true},
		{"png claimed as jpeg", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/jpeg", false},
		{"text claimed as png", []byte("hello world, not an image"), "image/png", false},
		{"too short", []byte{0xFF}, "image/jpeg", false},
		{"unknown mime", []byte{0x89, 0x50, 0x4E, 0x47}, "application/pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidImageMagic(tt.data, tt.mime))
		})
	}
}
