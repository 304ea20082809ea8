package position

import "testing"

func TestAdd(t *testing.T) {
	cases := []struct {
		x, y, want string
	}{
		{"0", "0", "0"},
		{"1", "2", "3"},
		{"5", "5", "10"}, // 0.5 + 0.5 = 1.0, carries out to a leading "1"
		{"9", "9", "18"}, // 0.9 + 0.9 = 1.8
		{"19998", "00001", "19999"},
		{"00009", "00000", "00009"},
	}
	for _, c := range cases {
		got := Add(c.x, c.y)
		if got != c.want {
			t.Fatalf("Add(%q, %q) = %q, want %q", c.x, c.y, got, c.want)
		}
	}
}

func TestHalve(t *testing.T) {
	cases := []struct {
		x, want string
	}{
		{"0", "0"},
		{"2", "1"},
		{"3", "15"},
		{"18", "09"},
	}
	for _, c := range cases {
		got := Halve(c.x)
		if got != c.want {
			t.Fatalf("Halve(%q) = %q, want %q", c.x, got, c.want)
		}
	}
}

func TestMidpoint(t *testing.T) {
	cases := []struct {
		x, y, want string
	}{
		{"1", "2", "15"},
		{"0", "1", "05"},
	}
	for _, c := range cases {
		got := Midpoint(c.x, c.y)
		if got != c.want {
			t.Fatalf("Midpoint(%q, %q) = %q, want %q", c.x, c.y, got, c.want)
		}
	}
}

func TestMidpointIsStrictlyBetween(t *testing.T) {
	pairs := [][2]string{
		{"1", "9"},
		{"10", "11"},
		{"499", "5"},
		{Sentinel, "00000000000000000001"},
	}
	for _, p := range pairs {
		m := Midpoint(p[0], p[1])
		if !Less(p[0], m) || !Less(m, p[1]) {
			t.Fatalf("Midpoint(%q, %q) = %q, not strictly between", p[0], p[1], m)
		}
	}
}

func TestBumpAdvancesPastSentinel(t *testing.T) {
	b := Bump(Sentinel)
	if !Less(Sentinel, b) {
		t.Fatalf("Bump(Sentinel) = %q, want strictly greater than sentinel %q", b, Sentinel)
	}
	b2 := Bump(b)
	if !Less(b, b2) {
		t.Fatalf("successive Bump calls must strictly advance: %q then %q", b, b2)
	}
}

func TestLess(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"1", "2", true},
		{"2", "1", false},
		{"1", "1", false},
		{"1", "10", false},  // 0.1 == 0.10
		{"1", "15", true},   // 0.1 < 0.15
		{"15", "2", true},
	}
	for _, c := range cases {
		if got := Less(c.a, c.b); got != c.want {
			t.Fatalf("Less(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
