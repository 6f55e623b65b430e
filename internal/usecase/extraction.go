package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
	"github.com/user/poll-extractor/pkg/metrics"
	"github.com/user/poll-extractor/pkg/utils"
)

// Extractor turns a rendered activity page into question records.
type Extractor struct {
	baseURL  string
	loadWait time.Duration
	rules    []ClassificationRule
}

// NewExtractor creates an Extractor using the default classification rules.
func NewExtractor(baseURL string, loadWait time.Duration) *Extractor {
	return &Extractor{
		baseURL:  baseURL,
		loadWait: loadWait,
		rules:    DefaultClassificationRules(),
	}
}

// Extract loads the activity's questions page and classifies its images.
// An empty slice means no question images were found on the page.
func (e *Extractor) Extract(ctx context.Context, b repository.Browser, ref entity.ActivityRef) ([]entity.QuestionRecord, error) {
	pageURL := utils.ActivityQuestionsURL(e.baseURL, ref.ActivityID)
	slog.Info("Extracting questions", "activity_id", ref.ActivityID, "url", pageURL)

	if err := b.Navigate(ctx, pageURL); err != nil {
		return nil, fmt.Errorf("%w: loading %s: %v", entity.ErrScraping, pageURL, err)
	}
	if err := settle(ctx, e.loadWait); err != nil {
		return nil, err
	}

	candidates, err := ReadCandidates(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("%w: reading images of activity %s: %v", entity.ErrScraping, ref.ActivityID, err)
	}

	classified := Classify(candidates, e.rules)
	records := BuildQuestionRecords(classified, ref)
	metrics.QuestionsExtracted.Add(float64(len(records)))

	slog.Info("Classified question images",
		"activity_id", ref.ActivityID, "images", len(candidates), "questions", len(records))
	return records, nil
}

// ReadCandidates reads every image element on the current page.
func ReadCandidates(ctx context.Context, b repository.Browser) ([]entity.QuestionImageCandidate, error) {
	images, err := b.FindAll(ctx, "img")
	if err != nil {
		return nil, err
	}
	pageURL, _ := b.CurrentURL(ctx)

	candidates := make([]entity.QuestionImageCandidate, 0, len(images))
	for _, img := range images {
		c, err := readCandidate(ctx, img, pageURL)
		if err != nil {
			slog.Debug("Skipping unreadable image element", "error", err)
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func readCandidate(ctx context.Context, img repository.Element, pageURL string) (entity.QuestionImageCandidate, error) {
	src, err := img.Property(ctx, "currentSrc")
	if err != nil {
		return entity.QuestionImageCandidate{}, err
	}
	if src == "" {
		raw, _, err := img.Attribute(ctx, "src")
		if err != nil {
			return entity.QuestionImageCandidate{}, err
		}
		src = raw
		if src != "" && pageURL != "" {
			if abs, err := utils.ToAbsoluteURL(pageURL, src); err == nil {
				src = abs
			}
		}
	}

	alt, _, err := img.Attribute(ctx, "alt")
	if err != nil {
		return entity.QuestionImageCandidate{}, err
	}
	width, err := attrOr(ctx, img, "width", "0")
	if err != nil {
		return entity.QuestionImageCandidate{}, err
	}
	height, err := attrOr(ctx, img, "height", "0")
	if err != nil {
		return entity.QuestionImageCandidate{}, err
	}

	return entity.QuestionImageCandidate{
		RawSourceURL: src,
		AltText:      alt,
		Width:        width,
		Height:       height,
	}, nil
}

func attrOr(ctx context.Context, el repository.Element, name, fallback string) (string, error) {
	v, ok, err := el.Attribute(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return fallback, nil
	}
	return v, nil
}

// BuildQuestionRecords converts classified images 1:1 into question records.
func BuildQuestionRecords(classified []ClassifiedImage, ref entity.ActivityRef) []entity.QuestionRecord {
	name := ref.DisplayName
	if name == "" {
		name = fmt.Sprintf("Activity %s...", ref.ShortID())
	}

	records := make([]entity.QuestionRecord, 0, len(classified))
	for _, ci := range classified {
		records = append(records, entity.QuestionRecord{
			QuestionNumber:   ci.QuestionNumber,
			QuestionText:     fmt.Sprintf("Question %d", ci.QuestionNumber),
			QuestionImageURL: ci.Candidate.RawSourceURL,
			ImageAlt:         ci.Candidate.AltText,
			ImageDimensions:  fmt.Sprintf("%sx%s", ci.Candidate.Width, ci.Candidate.Height),
			ActivityID:       ref.ActivityID,
			ActivityName:     name,
		})
	}
	return records
}
