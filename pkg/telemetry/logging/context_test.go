package logging

import (
	"context"
	"reflect"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithFile(ctx, "interview.yml")
	ctx = WithTool(ctx, "validate_docassemble_yaml")

	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q", got)
	}
	if got := GetFile(ctx); got != "interview.yml" {
		t.Errorf("GetFile() = %q", got)
	}
	if got := GetTool(ctx); got != "validate_docassemble_yaml" {
		t.Errorf("GetTool() = %q", got)
	}
}

func TestContextKeys_Empty(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetFile(ctx) != "" || GetTool(ctx) != "" {
		t.Error("empty context should yield empty values")
	}
}

func TestExtractContextFields(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want []any
	}{
		{
			name: "empty",
			ctx:  context.Background(),
			want: nil,
		},
		{
			name: "request only",
			ctx:  WithRequestID(context.Background(), "r"),
			want: []any{"request_id", "r"},
		},
		{
			name: "all fields",
			ctx:  WithTool(WithFile(WithRequestID(context.Background(), "r"), "f"), "t"),
			want: []any{"request_id", "r", "file", "f", "tool", "t"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractContextFields(tt.ctx)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractContextFields() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContextOverwrite(t *testing.T) {
	ctx := WithFile(context.Background(), "a.yml")
	ctx = WithFile(ctx, "b.yml")
	if got := GetFile(ctx); got != "b.yml" {
		t.Errorf("GetFile() = %q, want b.yml", got)
	}
}
