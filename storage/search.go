package storage

import (
	"time"

	"github.com/sahilm/fuzzy"
)

// TranscriptMatch is one ranked search hit inside a saved transcript.
type TranscriptMatch struct {
	TranscriptID string
	Handle       string
	TurnIndex    int
	Prompt       string
	Preview      string
	Timestamp    time.Time
	Score        int
}

// SearchIndex ranks turns across all saved transcripts against a query.
type SearchIndex struct {
	storage *TranscriptStorage
}

func NewSearchIndex(storage *TranscriptStorage) *SearchIndex {
	return &SearchIndex{storage: storage}
}

// turnCandidate ties one searchable string back to its transcript and turn.
type turnCandidate struct {
	transcriptID string
	handle       string
	turnIndex    int
	turn         SavedTurn
	text         string
}

type candidateSource []turnCandidate

func (cs candidateSource) String(i int) string { return cs[i].text }
func (cs candidateSource) Len() int            { return len(cs) }

// SearchAll fuzzy-matches the query against every turn's prompt and response
// across all saved transcripts. Results come back highest score first.
func (si *SearchIndex) SearchAll(query string) ([]TranscriptMatch, error) {
	if query == "" {
		return []TranscriptMatch{}, nil
	}

	transcriptList, err := si.storage.List()
	if err != nil {
		return nil, err
	}

	var candidates candidateSource
	for _, meta := range transcriptList {
		transcript, err := si.storage.Load(meta.ID)
		if err != nil {
			continue
		}

		for i, turn := range transcript.Turns {
			candidates = append(candidates, turnCandidate{
				transcriptID: transcript.ID,
				handle:       transcript.Handle,
				turnIndex:    i,
				turn:         turn,
				text:         turn.Prompt + " " + turn.FinalText,
			})
		}
	}

	results := fuzzy.FindFrom(query, candidates)

	matches := make([]TranscriptMatch, 0, len(results))
	for _, result := range results {
		c := candidates[result.Index]

		preview := c.turn.FinalText
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}

		matches = append(matches, TranscriptMatch{
			TranscriptID: c.transcriptID,
			Handle:       c.handle,
			TurnIndex:    c.turnIndex,
			Prompt:       c.turn.Prompt,
			Preview:      preview,
			Timestamp:    c.turn.EndedAt,
			Score:        result.Score,
		})
	}

	return matches, nil
}
