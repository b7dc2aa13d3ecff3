package capture

import (
	"context"
	"testing"
)

func TestOptionsNormalize(t *testing.T) {
	o := Options{URL: "http://127.0.0.1:8080/", OutputPath: "out.png"}
	if err := o.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != DefaultTimeout {
		t.Errorf("Defaults not applied: %+v", o)
	}
}

func TestSnapshot_RequiresURLAndOutput(t *testing.T) {
	if err := Snapshot(context.Background(), Options{OutputPath: "x.png"}); err == nil {
		t.Error("Expected error without URL")
	}
	if err := Snapshot(context.Background(), Options{URL: "http://localhost"}); err == nil {
		t.Error("Expected error without output path")
	}
}
