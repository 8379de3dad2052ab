package templates

import (
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zubairkhawar/reddit-tool/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestResolveCategory(t *testing.T) {
	cases := []struct {
		services string
		intent   string
		want     string
	}{
		{"web development, automation", "Need a Django developer for automation project", CategoryAIAutomation},
		{"website redesign", "Landing page work", CategoryWeb},
		{"data analysis, reporting", "Monthly analytics reports", CategoryData},
		{"document processing", "Extract data from PDFs", CategoryAIAutomation},
		{"voice assistant", "Phone answering bot", CategoryAIAutomation},
		{"mobile app", "iOS and Android build", CategoryMobile},
		{"", "", CategoryGeneral},
		{"gardening", "Lawn care", CategoryGeneral},
		// Short keywords only match whole words: "ai" must not fire
		// inside "email" or "maintain".
		{"email marketing", "Maintain a mailing list", CategoryGeneral},
		{"ai chatbot", "", CategoryAIAutomation},
	}
	for _, c := range cases {
		cls := &database.Classification{ServicesNeeded: c.services, Intent: c.intent}
		if got := ResolveCategory(cls); got != c.want {
			t.Errorf("ResolveCategory(%q, %q) = %q, want %q", c.services, c.intent, got, c.want)
		}
	}
}

func TestAutomationBeatsWeb(t *testing.T) {
	// A post mentioning both web and automation work resolves to the
	// automation category because its rule is checked first.
	cls := &database.Classification{
		ServicesNeeded: "web development, automation",
		Intent:         "Need a Django developer for automation project",
	}
	if got := ResolveCategory(cls); got != CategoryAIAutomation {
		t.Errorf("expected ai_automation, got %q", got)
	}
}

func TestSelectFallsBackToGeneral(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.InsertTemplate("General Offer", CategoryGeneral, "Hi there"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	catalog := NewCatalog(db, rand.New(rand.NewSource(1)))
	cls := &database.Classification{ServicesNeeded: "mobile app"}

	tmpl, err := catalog.Select(cls)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if tmpl == nil || tmpl.Category != CategoryGeneral {
		t.Errorf("expected fallback to general template, got %+v", tmpl)
	}
}

func TestSelectNilWhenCatalogEmpty(t *testing.T) {
	db := openTestDB(t)
	catalog := NewCatalog(db, rand.New(rand.NewSource(1)))

	tmpl, err := catalog.Select(&database.Classification{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if tmpl != nil {
		t.Errorf("expected nil with empty catalog, got %+v", tmpl)
	}
}

func TestSelectIgnoresInactiveTemplates(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertTemplate("Web Offer", CategoryWeb, "web text")
	if err := db.SetTemplateActive(id, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	catalog := NewCatalog(db, rand.New(rand.NewSource(1)))
	tmpl, err := catalog.Select(&database.Classification{ServicesNeeded: "website"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if tmpl != nil {
		t.Errorf("expected inactive template to be skipped, got %+v", tmpl)
	}
}

func TestFillSubstitutesPlaceholders(t *testing.T) {
	cls := &database.Classification{
		Summary:        "automating invoice processing",
		ServicesNeeded: "automation, data entry",
	}
	filled, leaked := Fill("I can help with [brief problem summary] using [tool/tech stack].", cls)
	if leaked {
		t.Fatal("expected no leak")
	}
	if !strings.Contains(filled, "automating invoice processing") {
		t.Errorf("summary not substituted: %q", filled)
	}
	if strings.Contains(filled, "[") {
		t.Errorf("placeholder left in output: %q", filled)
	}
}

func TestFillReportsLeak(t *testing.T) {
	// Empty summary leaves the summary placeholder in place.
	cls := &database.Classification{ServicesNeeded: "automation"}
	filled, leaked := Fill("Help with [brief problem summary] via [tech].", cls)
	if !leaked {
		t.Fatalf("expected leak with empty summary, got %q", filled)
	}
}

func TestFillLeavesUnknownBracketsAlone(t *testing.T) {
	cls := &database.Classification{Summary: "a thing", ServicesNeeded: "web"}
	filled, leaked := Fill("See [my portfolio] for [brief problem summary].", cls)
	if leaked {
		t.Error("unknown bracketed text is not a recognized placeholder")
	}
	if !strings.Contains(filled, "[my portfolio]") {
		t.Errorf("unknown brackets must be left intact: %q", filled)
	}
}

func TestContainsPlaceholder(t *testing.T) {
	if !ContainsPlaceholder("still has [tech] in it") {
		t.Error("expected detection of [tech]")
	}
	if ContainsPlaceholder("clean text [unrelated]") {
		t.Error("unknown brackets are not placeholders")
	}
}

func TestDefaultsCoverEveryCategory(t *testing.T) {
	seen := map[string]bool{}
	for _, tmpl := range Defaults() {
		seen[tmpl.Category] = true
		if !tmpl.IsActive {
			t.Errorf("default template %q must be active", tmpl.Name)
		}
	}
	for _, cat := range []string{CategoryAIAutomation, CategoryWeb, CategoryData, CategoryMobile, CategoryGeneral} {
		if !seen[cat] {
			t.Errorf("no default template for category %s", cat)
		}
	}
}
