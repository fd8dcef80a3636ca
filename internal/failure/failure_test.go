package failure

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"direct", New(ClassRateLimited, "slow down"), ClassRateLimited},
		{"wrapped classified", fmt.Errorf("fetch: %w", New(ClassAuthRejected, "bad key")), ClassAuthRejected},
		{"wrap helper", Wrap(ClassNetwork, errors.New("connection refused")), ClassNetwork},
		{"plain error", errors.New("something broke"), ClassUnknown},
		{"nil cause class", New(ClassServerError, "status %d", 502), ClassServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassOf(tt.err); got != tt.want {
				t.Errorf("ClassOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ClassNetwork, cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the wrapped cause")
	}
}

func TestError_Message(t *testing.T) {
	err := New(ClassDatabaseNotFound, "database %q not found", "airdata")
	want := `database_not_found: database "airdata" not found`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
