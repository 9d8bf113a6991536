package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/repos"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

func newQuestionService(t *testing.T, db *gorm.DB) QuestionService {
	t.Helper()
	log := testLog()
	return NewQuestionService(db, log, repos.NewStorySettingRepo(db, log))
}

// seedBlankSetting creates a setting with nothing filled in yet.
func seedBlankSetting(t *testing.T, db *gorm.DB) *types.StorySetting {
	t.Helper()
	user := seedUser(t, db)
	image := seedImage(t, db, user.ID)
	setting := &types.StorySetting{UploadImageID: image.ID}
	if err := db.Create(setting).Error; err != nil {
		t.Fatalf("failed to seed blank setting: %v", err)
	}
	// Column defaults may have backfilled tone/target_age; clear them so the
	// completion tests start from an empty slate.
	if err := db.Model(setting).Updates(map[string]any{"tone": "", "target_age": ""}).Error; err != nil {
		t.Fatalf("failed to blank setting: %v", err)
	}
	setting.Tone = ""
	setting.TargetAge = ""
	return setting
}

func TestGetQuestions_AlwaysReturnsFullList(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	image := seedImage(t, db, user.ID)
	setting := seedSetting(t, db, image.ID)
	svc := newQuestionService(t, db)
	ctx := context.Background()

	first, err := svc.GetQuestions(ctx, setting.ID)
	if err != nil {
		t.Fatalf("GetQuestions failed: %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("got %d questions, want 5", len(first))
	}

	// Answering a question does not shrink the list.
	if _, err := svc.SubmitAnswer(ctx, setting.ID, "tone", types.ToneFun); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	second, err := svc.GetQuestions(ctx, setting.ID)
	if err != nil {
		t.Fatalf("second GetQuestions failed: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("question list shrank from %d to %d", len(first), len(second))
	}
}

func TestSubmitAnswer_RejectsUnknownField(t *testing.T) {
	db := newTestDB(t)
	setting := seedBlankSetting(t, db)
	svc := newQuestionService(t, db)

	_, err := svc.SubmitAnswer(context.Background(), setting.ID, "favorite_color", "blue")
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestSubmitAnswer_ValidatesSelectValue(t *testing.T) {
	db := newTestDB(t)
	setting := seedBlankSetting(t, db)
	svc := newQuestionService(t, db)

	_, err := svc.SubmitAnswer(context.Background(), setting.ID, "tone", "grimdark")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGetCompletionStatus_MonotonicallyIncreases(t *testing.T) {
	db := newTestDB(t)
	setting := seedBlankSetting(t, db)
	svc := newQuestionService(t, db)
	ctx := context.Background()

	answers := []struct{ field, value string }{
		{"protagonist_name", "Pochi"},
		{"setting_place", "forest"},
		{"tone", types.ToneGentle},
		{"target_age", types.TargetAgePreschool},
	}

	last := -1.0
	for _, a := range answers {
		if _, err := svc.SubmitAnswer(ctx, setting.ID, a.field, a.value); err != nil {
			t.Fatalf("SubmitAnswer(%s) failed: %v", a.field, err)
		}
		status, err := svc.GetCompletionStatus(ctx, setting.ID)
		if err != nil {
			t.Fatalf("GetCompletionStatus failed: %v", err)
		}
		if status.CompletionPercentage < last {
			t.Fatalf("completion dropped from %v to %v after %s", last, status.CompletionPercentage, a.field)
		}
		last = status.CompletionPercentage
	}

	status, err := svc.GetCompletionStatus(ctx, setting.ID)
	if err != nil {
		t.Fatalf("final GetCompletionStatus failed: %v", err)
	}
	if !status.IsComplete {
		t.Fatalf("expected is_complete=true, missing %v", status.MissingFields)
	}
	if status.CompletionPercentage != 100 {
		t.Fatalf("completion = %v, want 100", status.CompletionPercentage)
	}
}

func TestGetCompletionStatus_ReadingLevelDoesNotCount(t *testing.T) {
	db := newTestDB(t)
	setting := seedBlankSetting(t, db)
	svc := newQuestionService(t, db)
	ctx := context.Background()

	before, err := svc.GetCompletionStatus(ctx, setting.ID)
	if err != nil {
		t.Fatalf("GetCompletionStatus failed: %v", err)
	}
	if _, err := svc.SubmitAnswer(ctx, setting.ID, "reading_level", "hiragana_only"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	after, err := svc.GetCompletionStatus(ctx, setting.ID)
	if err != nil {
		t.Fatalf("second GetCompletionStatus failed: %v", err)
	}
	if before.CompletionPercentage != after.CompletionPercentage {
		t.Fatalf("reading_level changed completion from %v to %v", before.CompletionPercentage, after.CompletionPercentage)
	}
	for _, missing := range after.MissingFields {
		if missing == "reading_level" {
			t.Fatalf("reading_level listed as missing required field")
		}
	}
}

func TestGetQuestionHistory_ListsAnsweredFields(t *testing.T) {
	db := newTestDB(t)
	setting := seedBlankSetting(t, db)
	svc := newQuestionService(t, db)
	ctx := context.Background()

	if _, err := svc.SubmitAnswer(ctx, setting.ID, "protagonist_name", "Pochi"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if _, err := svc.SubmitAnswer(ctx, setting.ID, "tone", types.ToneFun); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	history, err := svc.GetQuestionHistory(ctx, setting.ID)
	if err != nil {
		t.Fatalf("GetQuestionHistory failed: %v", err)
	}
	got := map[string]string{}
	for _, h := range history {
		got[h.Field] = h.Answer
	}
	if got["protagonist_name"] != "Pochi" {
		t.Fatalf("history protagonist_name = %q", got["protagonist_name"])
	}
	if got["tone"] != types.ToneFun {
		t.Fatalf("history tone = %q", got["tone"])
	}
}
