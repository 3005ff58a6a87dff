package social

import (
	"errors"
	"testing"

	"github.com/goliatone/go-jobportal"
	"github.com/stretchr/testify/assert"
)

func TestProviderErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ProviderError
		want string
	}{
		{"description wins", providerError("github", "emails", 403, "forbidden", "rate limited", nil), "github emails failed: rate limited"},
		{"code fallback", providerError("google", "id_token", 0, "invalid_id_token", "", nil), "google id_token failed: invalid_id_token"},
		{"cause fallback", providerError("", "user_info", 0, "", "", errors.New("eof")), "user_info failed: eof"},
		{"bare", &ProviderError{}, "provider failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrapProviderErrorKeepsDetails(t *testing.T) {
	cause := providerError("github", "token_exchange", 400, "bad_verification_code", "", nil)

	err := wrapProviderError(ErrTokenExchangeFailed, "github", "token_exchange", cause)

	assert.True(t, auth.IsCode(err, TextCodeTokenExchangeFail))
	var perr *ProviderError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad_verification_code", perr.Code)
}
