package products

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Blue T-Shirt", "blue-t-shirt"},
		{"special characters", "Sneakers (Limited Edition!)", "sneakers-limited-edition"},
		{"multiple spaces", "Red   Hoodie", "red-hoodie"},
		{"leading and trailing", "  Gaming Mouse  ", "gaming-mouse"},
		{"repeated hyphens", "one -- two", "one-two"},
		{"already slugged", "plain-slug", "plain-slug"},
		{"unicode stripped", "Café Brûlée", "caf-brle"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
