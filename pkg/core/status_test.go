package core

import "testing"

func TestStatus_IsSuccess(t *testing.T) {
	if !StatusSuccess.IsSuccess() {
		t.Error("StatusSuccess.IsSuccess() = false, want true")
	}
	if StatusError.IsSuccess() {
		t.Error("StatusError.IsSuccess() = true, want false")
	}
}

func TestErrorCategory_String(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected string
	}{
		{ErrCategoryNone, "none"},
		{ErrCategoryRequest, "request"},
		{ErrCategoryResolution, "resolution"},
		{ErrCategoryBounds, "bounds"},
		{ErrCategoryTimeout, "timeout"},
		{ErrCategoryConfig, "config"},
		{ErrCategoryInternal, "internal"},
		{ErrCategoryAssertion, "assertion"},
		{ErrorCategory(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.category.String(); got != tt.expected {
			t.Errorf("ErrorCategory(%d).String() = %q, want %q", tt.category, got, tt.expected)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	ok := Success("tapped")
	if ok.Status != StatusSuccess || ok.ExecError() != nil {
		t.Errorf("Success() = %+v", ok)
	}

	failed := Failure(ErrItemNotFound)
	if failed.Status != StatusError {
		t.Errorf("Status = %s, want error", failed.Status)
	}
	if failed.ExecError().Code != "item_not_found" {
		t.Errorf("Code = %s, want item_not_found", failed.ExecError().Code)
	}
}
