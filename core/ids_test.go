package core

import "testing"

func TestParseID(t *testing.T) {
	tests := []struct {
		in     string
		want   ID
		wantOK bool
	}{
		{"p1", "p1", true},
		{"  64b7f0c2e1a4  ", "64b7f0c2e1a4", true},
		{"order-1001", "order-1001", true},
		{"sku:42.a_b", "sku:42.a_b", true},
		{"", "", false},
		{"   ", "", false},
		{"undefined", "", false},
		{"null", "", false},
		{"-leading-dash", "", false},
		{"has space", "", false},
		{"a/b", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseID(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseID(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Electronics", "Electronics", true},
		{" Home & Kitchen ", "Home & Kitchen", true},
		{"", "", false},
		{"undefined", "", false},
		{"null", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseCategory(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := map[string]Algorithm{
		"":              AlgorithmHybrid,
		"hybrid":        AlgorithmHybrid,
		"Collaborative": AlgorithmCollaborative,
		"content-based": AlgorithmContent,
		"trending":      AlgorithmContent,
	}
	for in, want := range tests {
		if got := ParseAlgorithm(in); got != want {
			t.Errorf("ParseAlgorithm(%q) = %q, want %q", in, got, want)
		}
	}
}
