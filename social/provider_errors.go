package social

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-jobportal"
	"golang.org/x/oauth2"
)

// ProviderError describes a failed call to an identity provider. Code and
// Description carry the provider's own error fields when it sent any.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
}

func providerError(provider, operation string, status int, code, description string, err error) *ProviderError {
	return &ProviderError{
		Provider:    provider,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}

// Error renders "<provider> <operation> failed: <reason>".
func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	var b strings.Builder
	for _, part := range []string{e.Provider, e.Operation} {
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(part)
	}
	if b.Len() == 0 {
		b.WriteString("provider")
	}
	b.WriteString(" failed")

	reason := e.Description
	if reason == "" {
		reason = e.Code
	}
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	if reason != "" {
		b.WriteString(": ")
		b.WriteString(reason)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Metadata lists the non-empty fields.
func (e *ProviderError) Metadata() map[string]any {
	if e == nil {
		return nil
	}
	meta := map[string]any{}
	put := func(k, v string) {
		if v != "" {
			meta[k] = v
		}
	}
	put("provider", e.Provider)
	put("operation", e.Operation)
	put("code", e.Code)
	put("description", e.Description)
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	return meta
}

// fromRetrieveError lifts the RFC 6749 error fields out of an oauth2
// token endpoint failure.
func fromRetrieveError(provider string, err error) error {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return err
	}
	status := 0
	if rerr.Response != nil {
		status = rerr.Response.StatusCode
	}
	return providerError(provider, "token_exchange", status, rerr.ErrorCode, rerr.ErrorDescription, err)
}

// wrapProviderError clones base with err as source. Provider details take
// precedence over the provider and operation passed in.
func wrapProviderError(base *goerrors.Error, provider, operation string, err error) error {
	meta := map[string]any{"provider": provider, "operation": operation}

	var perr *ProviderError
	switch {
	case errors.As(err, &perr) && perr != nil:
		for k, v := range perr.Metadata() {
			meta[k] = v
		}
	case err != nil:
		meta["error"] = err.Error()
	}
	return auth.WithDetails(base, err, meta)
}
