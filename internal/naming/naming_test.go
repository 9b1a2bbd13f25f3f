package naming

import (
	"reflect"
	"testing"
)

func TestWords(t *testing.T) {
	cases := map[string][]string{
		"user_id":       {"user", "id"},
		"userId":        {"user", "Id"},
		"UserID":        {"User", "ID"},
		"HTTPServer":    {"HTTP", "Server"},
		"full-name":     {"full", "name"},
		"FULL_NAME":     {"FULL", "NAME"},
		"address2Line":  {"address2", "Line"},
		"  spaced out ": {"spaced", "out"},
		"":              nil,
	}
	for in, want := range cases {
		if got := Words(in); !reflect.DeepEqual(got, want) {
			t.Fatalf("Words(%q)=%v want %v", in, got, want)
		}
	}
}

func TestConversions(t *testing.T) {
	cases := []struct{ in, camel, snake, upper string }{
		{"full_name", "fullName", "full_name", "FULL_NAME"},
		{"fullName", "fullName", "full_name", "FULL_NAME"},
		{"FULL_NAME", "fullName", "full_name", "FULL_NAME"},
		{"UserID", "userId", "user_id", "USER_ID"},
		{"id", "id", "id", "ID"},
	}
	for _, tc := range cases {
		if got := LowerCamel(tc.in); got != tc.camel {
			t.Fatalf("LowerCamel(%q)=%q want %q", tc.in, got, tc.camel)
		}
		if got := LowerSnake(tc.in); got != tc.snake {
			t.Fatalf("LowerSnake(%q)=%q want %q", tc.in, got, tc.snake)
		}
		if got := UpperSnake(tc.in); got != tc.upper {
			t.Fatalf("UpperSnake(%q)=%q want %q", tc.in, got, tc.upper)
		}
	}
}

func TestVariants_ExcludesNameAndDuplicates(t *testing.T) {
	if got, want := Variants("full_name"), []string{"fullName", "FULL_NAME"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Variants=%v want %v", got, want)
	}
	if got, want := Variants("id"), []string{"ID"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Variants=%v want %v", got, want)
	}
}
