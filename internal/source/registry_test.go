package source

import (
	"context"
	"errors"
	"testing"

	"github.com/crimson-sun/clientpulse/internal/model"
)

type stubSource struct{}

func (stubSource) Load(context.Context, Config, LoadParams) (*model.Table, error) {
	return &model.Table{Columns: []string{"client_id"}}, nil
}

func TestRegisterAndGet(t *testing.T) {
	Register("stub", func() Source { return stubSource{} })
	t.Cleanup(func() { delete(registry, "stub") })

	ctor, err := Get("stub")
	if err != nil {
		t.Fatalf("Get(stub) error: %v", err)
	}
	tbl, err := ctor().Load(context.Background(), Config{}, LoadParams{})
	if err != nil || len(tbl.Columns) != 1 {
		t.Fatalf("unexpected load result: %v, %v", tbl, err)
	}

	found := false
	for _, p := range Providers() {
		if p == "stub" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Providers() = %v, missing stub", Providers())
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := Get("nope")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}
