package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/ai"
	"github.com/xxxsen/bmark/internal/model"
	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
)

var ErrAIUnavailable = ai.ErrUnavailable

const maxSuggestNoteRunes = 1000

type AIService struct {
	classifier ai.Classifier
	timeout    time.Duration
	cache      *expirable.LRU[string, model.Tag]
}

// NewAIService wraps a classifier for tag suggestion. A nil classifier
// makes every call return ErrAIUnavailable.
func NewAIService(classifier ai.Classifier, timeout time.Duration) *AIService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AIService{
		classifier: classifier,
		timeout:    timeout,
		cache:      expirable.NewLRU[string, model.Tag](2000, nil, 2*time.Hour),
	}
}

func (s *AIService) Enabled() bool {
	return s != nil && s.classifier != nil
}

func (s *AIService) SuggestTag(ctx context.Context, title, url, note string) (model.Tag, error) {
	if !s.Enabled() {
		return model.TagNone, ErrAIUnavailable
	}
	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)
	note = truncateRunes(strings.TrimSpace(note), maxSuggestNoteRunes)
	if title == "" && url == "" {
		return model.TagNone, appErr.ErrInvalid
	}
	key := suggestKey(title, url, note)
	if tag, ok := s.cache.Get(key); ok {
		return tag, nil
	}
	logger := logutil.GetLogger(ctx).With(zap.String("url", url))
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.classifier.Classify(callCtx, buildSuggestPrompt(title, url, note))
	if err != nil {
		logger.Error("suggest tag failed", zap.Error(err))
		return model.TagNone, err
	}
	tag := matchSuggestedTag(out)
	logger.Debug("suggest tag finished", zap.String("raw", out), zap.String("tag", string(tag)))
	s.cache.Add(key, tag)
	return tag, nil
}

// noTagChoice is the reply for a bookmark that fits no category.
const noTagChoice = "None"

func buildSuggestPrompt(title, url, note string) ai.Prompt {
	choices := make([]string, 0, len(model.Tags())+1)
	for _, tag := range model.Tags() {
		choices = append(choices, string(tag))
	}
	instruction := fmt.Sprintf("Classify the bookmark into exactly one of these categories: %s. "+
		"Reply with the category name only. Reply with %s if nothing fits.",
		strings.Join(choices, ", "), noTagChoice)
	choices = append(choices, noTagChoice)

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nURL: %s\n", title, url)
	if note != "" {
		fmt.Fprintf(&b, "Note: %s\n", note)
	}
	return ai.Prompt{Instruction: instruction, Input: b.String(), Choices: choices}
}

// matchSuggestedTag maps free-form model output onto the closed tag set.
// Anything unrecognised becomes the absent tag.
func matchSuggestedTag(raw string) model.Tag {
	raw = strings.Trim(strings.TrimSpace(raw), "\"'`.*")
	if tag, ok := model.ParseTag(raw); ok {
		return tag
	}
	lower := strings.ToLower(raw)
	for _, tag := range model.Tags() {
		if strings.Contains(lower, strings.ToLower(string(tag))) {
			return tag
		}
	}
	return model.TagNone
}

func suggestKey(title, url, note string) string {
	sum := sha256.Sum256([]byte(title + "\x00" + url + "\x00" + note))
	return hex.EncodeToString(sum[:])
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
