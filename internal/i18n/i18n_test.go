package i18n

import (
	"context"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "Gradeboard" {
		t.Errorf("T(AppTitle) = %q, want 'Gradeboard'", got)
	}

	got = T(ctx, "Gather")
	if got != "Gather submissions" {
		t.Errorf("T(Gather) = %q, want 'Gather submissions'", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "AppTitle")
	if got != "Гредборд" {
		t.Errorf("T(AppTitle) = %q, want 'Гредборд'", got)
	}

	got = T(ctx, "RunAll")
	if got != "Запустить все" {
		t.Errorf("T(RunAll) = %q, want 'Запустить все'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "StudentsGathered", 1)
	if got1 != "1 student gathered." {
		t.Errorf("Tp(StudentsGathered, 1) = %q, want '1 student gathered.'", got1)
	}

	got5 := Tp(ctx, "StudentsGathered", 5)
	if got5 != "5 students gathered." {
		t.Errorf("Tp(StudentsGathered, 5) = %q, want '5 students gathered.'", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "BoardN", map[string]any{"ID": "42"})
	if got != "Board 42" {
		t.Errorf("Td(BoardN, ID=42) = %q, want 'Board 42'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}
