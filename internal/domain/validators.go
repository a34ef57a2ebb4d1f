package domain

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._\-]{3,32}$`)
)

// ValidateEmail checks if an email address is valid.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateUsername checks the shared player/admin username format.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-32 letters, digits, dots, dashes or underscores")
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

// ValidateDateRange checks that start does not come after end.
func ValidateDateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if Day(start).After(Day(end)) {
		return fmt.Errorf("start date %s is after end date %s", FormatDate(start), FormatDate(end))
	}
	return nil
}

// ValidateTitle checks a season title.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("season title is required")
	}
	return nil
}

// ValidateOverride checks a tournament qualification override.
func ValidateOverride(v int) error {
	if v < OverrideDisqualify || v > OverrideQualify {
		return fmt.Errorf("tournament override must be -1, 0 or 1, got %d", v)
	}
	return nil
}

// CheckPromotionOrder reports ordering problems in a player's promotion dates:
// a date for a higher tier must not precede the date for a lower one.
func CheckPromotionOrder(p *Player) []string {
	var problems []string
	for i := 0; i < len(RankedTiers); i++ {
		hi := p.PromotionDate(RankedTiers[i])
		if hi == nil {
			continue
		}
		for j := i + 1; j < len(RankedTiers); j++ {
			lo := p.PromotionDate(RankedTiers[j])
			if lo != nil && hi.Before(*lo) {
				problems = append(problems, fmt.Sprintf("%s promotion %s precedes %s promotion %s",
					RankedTiers[i], FormatDate(*hi), RankedTiers[j], FormatDate(*lo)))
			}
		}
	}
	return problems
}

// WarnPromotionOrder logs promotion-order problems without failing.
func WarnPromotionOrder(logger *slog.Logger, p *Player) {
	for _, problem := range CheckPromotionOrder(p) {
		logger.Warn("inconsistent promotion history", "player_id", p.ID, "problem", problem)
	}
}
