package i18n

import (
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/louisbranch/turnkeeper/internal/platform/errors"
)

func TestCatalogsAreComplete(t *testing.T) {
	for _, locale := range Bundle().Locales() {
		if missing := Bundle().MissingKeys(locale); len(missing) != 0 {
			t.Fatalf("%s missing keys: %v", locale, missing)
		}
	}
}

func TestPrinterSprintf(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{locale: "en-US", want: "**Ana**, you're up! <@1>"},
		{locale: "en-GB", want: "**Ana**, you're up! <@1>"},
		{locale: "pt-BR", want: "**Ana**, sua vez! <@1>"},
		{locale: "fr", want: "**Ana**, you're up! <@1>"},
		{locale: "", want: "**Ana**, you're up! <@1>"},
	}
	for _, tt := range tests {
		got := NewPrinter(tt.locale).Sprintf(KeyTrackerHeader, "Ana", "<@1>")
		if got != tt.want {
			t.Fatalf("%s header = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestZeroPrinterUsesBaseLocale(t *testing.T) {
	var p Printer
	if got := p.Sprintf(KeyTrackerEnded); got != "Combat has ended." {
		t.Fatalf("ended = %q, want Combat has ended.", got)
	}
	if got := p.Locale(); got != "en-US" {
		t.Fatalf("locale = %q, want en-US", got)
	}
}

func TestErrorKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "no session", err: apperrors.New(apperrors.CodeCombatNoActiveSession, "x"), want: KeyErrorNoActiveSession},
		{name: "wrapped", err: fmt.Errorf("advance: %w", apperrors.New(apperrors.CodeCombatNotModerator, "x")), want: KeyErrorNotModerator},
		{name: "expired", err: apperrors.New(apperrors.CodeInteractionExpired, "x"), want: KeyErrorExpired},
		{name: "infrastructure", err: errors.New("disk full"), want: KeyErrorGeneric},
		{name: "conflict", err: apperrors.New(apperrors.CodeCombatUpdateConflict, "x"), want: KeyErrorGeneric},
		{name: "nil", err: nil, want: KeyErrorGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorKey(tt.err); got != tt.want {
				t.Fatalf("ErrorKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrinterError(t *testing.T) {
	got := NewPrinter("pt-BR").Error(errors.New("boom"))
	if got != "Algo deu errado." {
		t.Fatalf("error = %q, want Algo deu errado.", got)
	}
	got = NewPrinter("en-US").Error(apperrors.New(apperrors.CodeCombatParticipantExists, "x"))
	if got != "That character is already in combat." {
		t.Fatalf("error = %q, want That character is already in combat.", got)
	}
}

func TestTranslations(t *testing.T) {
	got := Translations(DescriptionKey("start"))
	if len(got) != 1 || got["pt-BR"] != "Iniciar combate" {
		t.Fatalf("translations = %v, want pt-BR only", got)
	}
	if got := NewPrinter("en-US").Sprintf(DescriptionKey("end")); got != "End combat" {
		t.Fatalf("en-US description = %q, want End combat", got)
	}
}
