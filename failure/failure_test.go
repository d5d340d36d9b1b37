package failure

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), KindInternal},
		{"typed", Forbidden(), KindForbidden},
		{"wrapped", fmt.Errorf("deal: update: %w", NotFound("deal")), KindNotFound},
		{"dispatch", Dispatch(errors.New("timeout")), KindDispatch},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("%s: expected %q got %q", tc.name, tc.want, got)
		}
	}
}

func TestErrorsIsMatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Validation("email", "invalid email"))
	if !errors.Is(err, ErrValidation) {
		t.Fatal("expected errors.Is to match ErrValidation")
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatal("validation error must not match ErrForbidden")
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("bucket missing")
	err := UploadURL(cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}
}
