package domain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

func newDraft(agg AggregateType, aggID int64, evtType EventType, partition string, payload interface{}) OutboxDraft {
	body, _ := json.Marshal(payload)
	id := strconv.FormatInt(aggID, 10)
	if partition == "" {
		partition = id
	}
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: agg,
		AggregateID:   id,
		EventType:     evtType,
		PartitionKey:  partition,
		Headers:       json.RawMessage(`{}`),
		Payload:       body,
		OccurredAt:    time.Now(),
	}
}

// NewMatchEvent creates a match lifecycle event (credited, submitted, approved, disputed).
// Match events are partitioned by season so consumers see them in commit order.
func NewMatchEvent(evtType EventType, m *Match) OutboxDraft {
	return newDraft(AggregateMatch, m.ID, evtType, strconv.FormatInt(m.SeasonID, 10), m)
}

// NewPlayerPromotedEvent creates the event for a tier promotion.
func NewPlayerPromotedEvent(p Promotion, matchID int64) OutboxDraft {
	return newDraft(AggregatePlayer, p.PlayerID, EventPlayerPromoted, "", map[string]interface{}{
		"player_id": p.PlayerID,
		"from":      p.From,
		"to":        p.To,
		"date":      FormatDate(p.Date),
		"match_id":  matchID,
	})
}

// NewSeasonStartedEvent creates the event for a new active season.
func NewSeasonStartedEvent(s *Season, archived int) OutboxDraft {
	return newDraft(AggregateSeason, s.ID, EventSeasonStarted, "", map[string]interface{}{
		"season_id": s.ID,
		"title":     s.Title,
		"prev_id":   s.PrevID,
		"archived":  archived,
	})
}

// NewSeasonKickedEvent creates the event for a season seeding run.
func NewSeasonKickedEvent(seasonID int64, mode KickMode, seeded int) OutboxDraft {
	return newDraft(AggregateSeason, seasonID, EventSeasonKicked, "", map[string]interface{}{
		"season_id": seasonID,
		"mode":      mode,
		"seeded":    seeded,
	})
}
