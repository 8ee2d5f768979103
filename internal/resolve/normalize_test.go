package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeGrantees(t *testing.T) {
	tests := []struct {
		name    string
		block   string
		all     []string
		primary string
	}{
		{
			name:    "two defendants",
			block:   "GARCIA MARIA L\nGARCIA JOSE",
			all:     []string{"GARCIA MARIA L", "GARCIA JOSE"},
			primary: "GARCIA MARIA L",
		},
		{
			name:    "blank lines and padding dropped",
			block:   "  SMITH ROBERT J  \n\n   \nDOE JANE\n",
			all:     []string{"SMITH ROBERT J", "DOE JANE"},
			primary: "SMITH ROBERT J",
		},
		{
			name:    "single name no newline",
			block:   "WALKER CHRISTINE",
			all:     []string{"WALKER CHRISTINE"},
			primary: "WALKER CHRISTINE",
		},
		{
			name:    "empty block",
			block:   "",
			all:     nil,
			primary: "",
		},
		{
			name:    "whitespace only block",
			block:   "  \n \n\t\n",
			all:     nil,
			primary: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			party := NormalizeGrantees(tt.block)
			assert.Equal(t, tt.all, party.AllNames)
			assert.Equal(t, tt.primary, party.PrimaryName)
		})
	}
}

func TestSurname(t *testing.T) {
	tests := []struct {
		name    string
		primary string
		want    string
	}{
		{"plain last-first", "GARCIA MARIA L", "GARCIA"},
		{"prefix particle skipped", "DE OLIVEIRA ANDREA C", "OLIVEIRA"},
		{"van particle", "VAN DYKE VANESSA", "DYKE"},
		{"mc particle", "MC DONALD PATRICK", "DONALD"},
		{"st particle", "ST JOHN AMELIA", "JOHN"},
		{"lowercase particle still counts", "de Souza Paulo", "Souza"},
		{"single token", "MADONNA", "MADONNA"},
		{"lone particle is its own surname", "DE", "DE"},
		{"empty", "", ""},
		{"two-word particle stays lossy", "DE LA CRUZ ANA", "LA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Surname(tt.primary))
		})
	}
}

func TestQueryTokens(t *testing.T) {
	tests := []struct {
		name    string
		primary string
		surname string
		want    []string
	}{
		{
			name:    "given names kept, initial dropped",
			primary: "GARCIA MARIA L",
			surname: "GARCIA",
			want:    []string{"MARIA"},
		},
		{
			name:    "particle and surname dropped",
			primary: "DE OLIVEIRA ANDREA C",
			surname: "OLIVEIRA",
			want:    []string{"ANDREA"},
		},
		{
			name:    "repeated surname kept once removed",
			primary: "SMITH SMITH ROBERT",
			surname: "SMITH",
			want:    []string{"SMITH", "ROBERT"},
		},
		{
			name:    "two char token dropped",
			primary: "NG LI WEI",
			surname: "NG",
			want:    []string{"WEI"},
		},
		{
			name:    "nothing left",
			primary: "GARCIA J",
			surname: "GARCIA",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QueryTokens(tt.primary, tt.surname))
		})
	}
}
