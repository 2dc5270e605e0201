package worker

import (
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/feedworks/feedsync/internal/feed"
)

// storyValidation is the explicit per-story outcome: either a valid story
// or a skip with its reason. Callers collect both instead of relying on
// catch-and-continue around a loop body.
type storyValidation struct {
	Story feed.Story
	Err   error
}

// validateFeed checks the normalized feed and filters its stories. A
// feed-level failure is fatal to the sync attempt and is annotated with the
// feed's identity for diagnostics. A story-level failure only drops that
// story: one malformed entry must not lose the rest of the feed's updates.
func (s *Service) validateFeed(normalized *feed.NormalizedFeed) (*feed.NormalizedFeed, error) {
	if err := checkFeed(normalized); err != nil {
		return nil, fmt.Errorf("%w, feed url=%q link=%q title=%q",
			err, normalized.URL, normalized.Link, normalized.Title)
	}
	kept := make([]feed.Story, 0, len(normalized.Storys))
	for _, outcome := range validateStorys(normalized.Storys) {
		if outcome.Err != nil {
			s.logger.Error("story dropped",
				zap.String("feed_url", normalized.URL),
				zap.String("story_link", outcome.Story.Link),
				zap.String("story_title", outcome.Story.Title),
				zap.Error(outcome.Err))
			continue
		}
		kept = append(kept, outcome.Story)
	}
	normalized.Storys = kept
	return normalized, nil
}

func checkFeed(normalized *feed.NormalizedFeed) error {
	if normalized.URL == "" {
		return errors.New("feed url is empty")
	}
	if !isHTTPURL(normalized.URL) {
		return fmt.Errorf("feed url %q is not a valid http url", normalized.URL)
	}
	if normalized.ResponseStatus == 0 {
		return errors.New("feed response status is missing")
	}
	return nil
}

func validateStorys(storys []feed.Story) []storyValidation {
	outcomes := make([]storyValidation, 0, len(storys))
	for _, story := range storys {
		outcomes = append(outcomes, storyValidation{Story: story, Err: checkStory(story)})
	}
	return outcomes
}

func checkStory(story feed.Story) error {
	if story.Ident == "" {
		return errors.New("story ident is empty")
	}
	if story.Link != "" && !isHTTPURL(story.Link) {
		return fmt.Errorf("story link %q is not a valid http url", story.Link)
	}
	if story.Title == "" && story.Summary == "" && story.Content == "" {
		return errors.New("story has no title and no content")
	}
	if story.DTPublished.IsZero() {
		return errors.New("story publish time is missing")
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
