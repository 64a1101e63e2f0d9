package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
		{"trim and collapse", "  Acme    Trading  ", "acme trading"},
		{"corp with period", "ACME CORP.", "acme"},
		{"inc with comma", "Acme, Inc.", "acme"},
		{"parenthesized token", "Acme (Pvt) Ltd", "acme"},
		{"sdn bhd pair", "Maju Jaya Sdn. Bhd.", "maju jaya"},
		{"sdn alone kept", "Maju Sdn Holdings", "maju sdn holdings"},
		{"tbk suffix", "Sumber Makmur Tbk", "sumber makmur"},
		{"leading pt kept", "PT Sumber Makmur", "pt sumber makmur"},
		{"token inside word kept", "Coral Incubator", "coral incubator"},
		{"symbols stripped", "O'Brien & Sons, Inc.", "obrien sons"},
		{"diacritics folded", "Café Müller GmbH", "cafe muller gmbh"},
		{"digits kept", "3M Company", "3m"},
		{"repeated tokens", "Acme Co Co Ltd.", "acme"},
		{"leading symbol before pt", "- PT Acme", "pt acme"},
		{"leading symbols before co", "&& Co. Holdings Ltd", "co holdings"},
		{"parenthesized leading pt", "(PT) Acme Ltd", "pt acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"ACME CORP.",
		"PT. Sdn. Bhd.",
		"Acme & Co.",
		"Ltd Ltd Ltd",
		"  O'Brien   &  Sons, Inc. ",
		"Café - Limited",
		"a . b , c",
		"Sdn Sdn Bhd",
		"X (Private) Limited",
		"- PT Acme",
		"&& Co. Holdings Ltd",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_NoDoubleSpaces(t *testing.T) {
	got := Normalize("Acme  -  Global  &  Partners  Ltd")
	assert.Equal(t, "acme global partners", got)
	assert.NotContains(t, got, "  ")
}

func TestTokenCore(t *testing.T) {
	assert.Equal(t, "corp", tokenCore("corp."))
	assert.Equal(t, "ltd", tokenCore("(ltd)"))
	assert.Equal(t, "a.b", tokenCore("a.b,"))
	assert.Equal(t, "", tokenCore("&"))
}
