package kit

import "testing"

func TestObjectSchema(t *testing.T) {
	s := ObjectSchema(map[string]any{
		"id": map[string]any{"type": "string"},
	}, []string{"id"})

	if s["type"] != "object" {
		t.Errorf("type: got %v", s["type"])
	}
	props, ok := s["properties"].(map[string]any)
	if !ok || props["id"] == nil {
		t.Errorf("properties: got %v", s["properties"])
	}
	req, ok := s["required"].([]string)
	if !ok || len(req) != 1 || req[0] != "id" {
		t.Errorf("required: got %v", s["required"])
	}
}

func TestObjectSchema_NoRequired(t *testing.T) {
	s := ObjectSchema(map[string]any{}, nil)
	if _, present := s["required"]; present {
		t.Error("required should be omitted when empty")
	}
}
