package services

import (
	"context"
	"errors"
	"testing"

	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

const themeResponseJSON = `{
  "theme_options": {
    "theme1": {"theme_id": "adventure", "title": "Pochi the explorer", "description": "Pochi maps the park.", "keywords": ["adventure", "maps", "courage"]},
    "theme2": {"theme_id": "friendship", "title": "Pochi makes a friend", "description": "Pochi meets a shy bird.", "keywords": ["friendship", "birds", "sharing"]},
    "theme3": {"theme_id": "discovery", "title": "Pochi finds a seed", "description": "Pochi grows a sunflower.", "keywords": ["discovery", "plants", "patience"]}
  }
}`

const storyResponseJSON = `{
  "title": "Pochi the explorer",
  "pages": ["Pochi woke up early.", "He found an old map.", "The map led to a big tree.", "A squirrel helped him dig.", "They found a shiny acorn."]
}`

func TestProposeThemes_UsesProviderThemes(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	image := seedImage(t, db, user.ID)
	setting := seedSetting(t, db, image.ID)
	svc := newPlotService(t, db, &fakeTextGen{resp: themeResponseJSON})

	proposal, err := svc.ProposeThemes(context.Background(), setting.ID)
	if err != nil {
		t.Fatalf("ProposeThemes failed: %v", err)
	}
	if proposal.Fallback {
		t.Fatalf("expected fallback=false")
	}
	if len(proposal.ThemeOptions) != 3 {
		t.Fatalf("expected 3 themes, got %d", len(proposal.ThemeOptions))
	}
	for _, key := range types.ThemeKeys {
		theme, ok := proposal.ThemeOptions[key]
		if !ok {
			t.Fatalf("missing theme %q", key)
		}
		if theme.Title == "" {
			t.Fatalf("theme %q has empty title", key)
		}
		if len(theme.Keywords) != 3 {
			t.Fatalf("theme %q has %d keywords, want 3", key, len(theme.Keywords))
		}
	}
	if proposal.Plot.UserID != user.ID {
		t.Fatalf("plot owner = %d, want %d", proposal.Plot.UserID, user.ID)
	}
}

func TestProposeThemes_FallsBackWhenProviderFails(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	image := seedImage(t, db, user.ID)
	setting := seedSetting(t, db, image.ID)
	svc := newPlotService(t, db, &fakeTextGen{err: errors.New("quota exceeded")})

	proposal, err := svc.ProposeThemes(context.Background(), setting.ID)
	if err != nil {
		t.Fatalf("ProposeThemes failed: %v", err)
	}
	if !proposal.Fallback {
		t.Fatalf("expected fallback=true")
	}
	if len(proposal.ThemeOptions) != 3 {
		t.Fatalf("expected 3 fallback themes, got %d", len(proposal.ThemeOptions))
	}
	for key, theme := range proposal.ThemeOptions {
		if len(theme.Keywords) != 3 {
			t.Fatalf("fallback theme %q has %d keywords, want 3", key, len(theme.Keywords))
		}
	}
}

func TestProposeThemes_FallsBackOnMalformedJSON(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	image := seedImage(t, db, user.ID)
	setting := seedSetting(t, db, image.ID)
	svc := newPlotService(t, db, &fakeTextGen{resp: "here are your themes!"})

	proposal, err := svc.ProposeThemes(context.Background(), setting.ID)
	if err != nil {
		t.Fatalf("ProposeThemes failed: %v", err)
	}
	if !proposal.Fallback {
		t.Fatalf("expected fallback=true for unparseable response")
	}
}

func TestProposeThemes_UnknownSetting(t *testing.T) {
	db := newTestDB(t)
	svc := newPlotService(t, db, &fakeTextGen{resp: themeResponseJSON})
	_, err := svc.ProposeThemes(context.Background(), 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSelectTheme_FillsAllFivePages(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	image := seedImage(t, db, user.ID)
	setting := seedSetting(t, db, image.ID)
	textGen := &fakeTextGen{resp: themeResponseJSON}
	svc := newPlotService(t, db, textGen)

	if _, err := svc.ProposeThemes(context.Background(), setting.ID); err != nil {
		t.Fatalf("ProposeThemes failed: %v", err)
	}
	textGen.resp = storyResponseJSON

	selected, err := svc.SelectTheme(context.Background(), setting.ID, "theme1")
	if err != nil {
		t.Fatalf("SelectTheme failed: %v", err)
	}
	if selected.Fallback {
		t.Fatalf("expected fallback=false")
	}
	if selected.Plot.SelectedTheme != "theme1" {
		t.Fatalf("selected_theme = %q, want theme1", selected.Plot.SelectedTheme)
	}
	for n := 1; n <= 5; n++ {
		if selected.Plot.Page(n) == "" {
			t.Fatalf("page %d is empty after selection", n)
		}
	}
	stories, err := types.GeneratedStoriesFromJSON(selected.Plot.GeneratedStories)
	if err != nil {
		t.Fatalf("stories unmarshal failed: %v", err)
	}
	if _, ok := stories["theme1"]; !ok {
		t.Fatalf("story was not cached under theme1")
	}
}

func TestSelectTheme_UnknownKeyMutatesNothing(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	image := seedImage(t, db, user.ID)
	setting := seedSetting(t, db, image.ID)
	textGen := &fakeTextGen{resp: themeResponseJSON}
	svc := newPlotService(t, db, textGen)

	proposal, err := svc.ProposeThemes(context.Background(), setting.ID)
	if err != nil {
		t.Fatalf("ProposeThemes failed: %v", err)
	}

	_, err = svc.SelectTheme(context.Background(), setting.ID, "theme9")
	if !errors.Is(err, ErrThemeNotFound) {
		t.Fatalf("expected ErrThemeNotFound, got %v", err)
	}

	var reloaded types.StoryPlot
	if err := db.First(&reloaded, proposal.Plot.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.SelectedTheme != "" {
		t.Fatalf("selected_theme = %q, want empty after failed selection", reloaded.SelectedTheme)
	}
	for n := 1; n <= 5; n++ {
		if reloaded.Page(n) != "" {
			t.Fatalf("page %d = %q, want empty after failed selection", n, reloaded.Page(n))
		}
	}
}

func TestSelectTheme_FallsBackToTemplateStory(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	image := seedImage(t, db, user.ID)
	setting := seedSetting(t, db, image.ID)
	textGen := &fakeTextGen{resp: themeResponseJSON}
	svc := newPlotService(t, db, textGen)

	if _, err := svc.ProposeThemes(context.Background(), setting.ID); err != nil {
		t.Fatalf("ProposeThemes failed: %v", err)
	}
	textGen.err = errors.New("provider down")

	selected, err := svc.SelectTheme(context.Background(), setting.ID, "theme2")
	if err != nil {
		t.Fatalf("SelectTheme failed: %v", err)
	}
	if !selected.Fallback {
		t.Fatalf("expected fallback=true")
	}
	if len(selected.Story.Pages) != 5 {
		t.Fatalf("fallback story has %d pages, want 5", len(selected.Story.Pages))
	}
}

func TestSelectTheme_ReusesCachedStory(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	image := seedImage(t, db, user.ID)
	setting := seedSetting(t, db, image.ID)
	textGen := &fakeTextGen{resp: themeResponseJSON}
	svc := newPlotService(t, db, textGen)

	if _, err := svc.ProposeThemes(context.Background(), setting.ID); err != nil {
		t.Fatalf("ProposeThemes failed: %v", err)
	}
	textGen.resp = storyResponseJSON
	if _, err := svc.SelectTheme(context.Background(), setting.ID, "theme1"); err != nil {
		t.Fatalf("first SelectTheme failed: %v", err)
	}
	callsAfterFirst := textGen.calls

	// Re-selecting the same theme must not hit the provider again.
	if _, err := svc.SelectTheme(context.Background(), setting.ID, "theme1"); err != nil {
		t.Fatalf("second SelectTheme failed: %v", err)
	}
	if textGen.calls != callsAfterFirst {
		t.Fatalf("provider called %d extra times for a cached story", textGen.calls-callsAfterFirst)
	}
}

func TestStripJSONFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"Sure! ```json\n{\"a\":1}\n``` hope that helps", "{\"a\":1}"},
	}
	for _, tc := range cases {
		if got := stripJSONFences(tc.in); got != tc.want {
			t.Fatalf("stripJSONFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
