package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldRules(t *testing.T) {
	tests := []struct {
		name  string
		check func(string) bool
		input string
		want  bool
	}{
		{"name with surname", IsValidName, "Juan Perez", true},
		{"name padded", IsValidName, "  Ana Li  ", true},
		{"name single word", IsValidName, "Juanito", false},
		{"name too short", IsValidName, "A B", false},
		{"email plain", IsValidEmail, "juan@example.com", true},
		{"email subdomain", IsValidEmail, "ventas@mail.sieer.cl", true},
		{"email missing at", IsValidEmail, "not-an-email", false},
		{"email missing tld", IsValidEmail, "juan@example", false},
		{"email with space", IsValidEmail, "juan perez@example.com", false},
		{"phone with separators", IsValidPhone, "+56 9 8152-0994", true},
		{"phone eight digits", IsValidPhone, "12345678", true},
		{"phone seven digits", IsValidPhone, "123-4567", false},
		{"region", IsValidRegion, "Maule, Talca", true},
		{"region too short", IsValidRegion, "RM", false},
		{"description", IsValidDescription, "Casa de 3 dormitorios", true},
		{"description too short", IsValidDescription, "paneles", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.input))
		})
	}
}

func TestIsYes(t *testing.T) {
	for _, in := range []string{"si", "Sí", "SI!", "yes", "ok", "Correcto.", "dale", "s"} {
		assert.True(t, IsYes(in), in)
	}
	for _, in := range []string{"no", "No.", "NOPE", "incorrecto", "tal vez", "Juan Perez", ""} {
		assert.False(t, IsYes(in), in)
	}
}

func TestLengthCountsRunes(t *testing.T) {
	assert.Equal(t, 5, Length("ñandú"))
	assert.Equal(t, 8, CountDigits("+56 (9) 81-52 0"))
}
