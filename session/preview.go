// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"

	"github.com/cineclub/cineforum/models"
)

// Preview assembles the admin projection: current winner, vote tally,
// slot counts, and commitment headcounts. Read-only, no transaction.
func (s *Store) Preview(ctx context.Context, sessionID string) (models.Preview, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return models.Preview{}, err
	}

	tally, err := s.Tally(ctx, sessionID)
	if err != nil {
		return models.Preview{}, err
	}

	counts, err := s.SlotCounts(ctx, sessionID)
	if err != nil {
		return models.Preview{}, err
	}

	preview := models.Preview{
		Tally:      tally,
		SlotCounts: counts,
	}

	if sess.WinnerID != nil {
		preview.WinnerID = *sess.WinnerID
		for _, c := range sess.Candidates {
			if c.ID == *sess.WinnerID {
				preview.WinnerTitle = c.Title
				break
			}
		}
	}

	viewers, err := s.Committed(ctx, sessionID, models.CommitView)
	if err != nil {
		return models.Preview{}, err
	}
	debaters, err := s.Committed(ctx, sessionID, models.CommitDebate)
	if err != nil {
		return models.Preview{}, err
	}
	preview.Viewers = len(viewers)
	preview.Debaters = len(debaters)

	return preview, nil
}
