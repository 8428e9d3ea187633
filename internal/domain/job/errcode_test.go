package job

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFetch(t *testing.T) {
	cases := []struct {
		err  string
		code ErrorCode
	}{
		{"video is private", ErrUnavailable},
		{"this content is not available in your region", ErrUnavailable},
		{"login required to confirm your age", ErrAgeRestricted},
		{"cannot download a live stream", ErrLiveUnsupported},
		{"context deadline exceeded", ErrNetworkOrTimeout},
		{"read tcp: connection reset by peer", ErrNetworkOrTimeout},
		{"something exploded", ErrGeneric},
	}

	for _, tc := range cases {
		code, msg := ClassifyFetch(errors.New(tc.err))
		assert.Equal(t, tc.code, code, tc.err)
		assert.NotEmpty(t, msg)
	}
}

func TestClassifyFetch_GenericKeepsMessage(t *testing.T) {
	_, msg := ClassifyFetch(errors.New("something exploded"))
	assert.Equal(t, "something exploded", msg)
}

func TestClassifyEncode_KeepsMessage(t *testing.T) {
	code, msg := ClassifyEncode(errors.New("ffmpeg failed: invalid codec"))
	assert.Equal(t, ErrEncodeFailure, code)
	assert.Contains(t, msg, "invalid codec")
}
