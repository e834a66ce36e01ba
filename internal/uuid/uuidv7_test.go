package uuid

import "testing"

func TestNew(t *testing.T) {
	a, b := New(), New()
	if a == b {
		t.Fatal("expected distinct ids")
	}
	if a[14] != '7' {
		t.Errorf("expected a version 7 id, got %s", a)
	}
	if _, err := Parse(a); err != nil {
		t.Errorf("generated id does not parse: %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"canonical", "0190a4c5-0000-7000-8000-000000000001", "0190a4c5-0000-7000-8000-000000000001", false},
		{"uppercase is lowered", "0190A4C5-0000-7000-8000-00000000000A", "0190a4c5-0000-7000-8000-00000000000a", false},
		{"braced", "{0190a4c5-0000-7000-8000-000000000001}", "", true},
		{"urn", "urn:uuid:0190a4c5-0000-7000-8000-000000000001", "", true},
		{"garbage", "not-a-uuid", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
