package repo

import "testing"

func TestTagFilterValue(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"vip", `["vip"]`},
		{"Revendedor", `["Revendedor"]`},
		{`say "hi"`, `["say \"hi\""]`},
		{`back\slash`, `["back\\slash"]`},
	}

	for _, test := range tests {
		if got := tagFilterValue(test.tag); got != test.want {
			t.Errorf("tagFilterValue(%q) = %s, want %s", test.tag, got, test.want)
		}
	}
}
