package llm

import "testing"

func TestResolveModel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{UIModelMini, "gpt-4o-mini"},
		{UIModelPro, "gpt-4o"},
		{"", "gpt-4o-mini"},
		{"gpt-4o", "gpt-4o-mini"}, // backend ids are not accepted from the UI
		{"rc-ultra", "gpt-4o-mini"},
	}
	for _, tc := range cases {
		if got := ResolveModel(tc.in); got != tc.want {
			t.Fatalf("ResolveModel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsPremium(t *testing.T) {
	if IsPremium(UIModelMini) {
		t.Fatalf("mini must not require entitlement")
	}
	if !IsPremium(UIModelPro) {
		t.Fatalf("pro must require entitlement")
	}
	if IsPremium("rc-ultra") {
		t.Fatalf("unknown ids resolve to the free tier")
	}
}
