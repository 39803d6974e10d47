package wordcount

import "testing"

func TestCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"hello world", 10},
		{"a b\nc", 3},
		{"  \t\n ", 0},
		{"伊萨卡 手记", 5},
		{"line\r\nbreak nbsp", 13},
	}
	for _, c := range cases {
		if got := Count(c.in); got != c.want {
			t.Errorf("Count(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
