// Package report renders ladder standings as spreadsheets.
package report

import (
	"fmt"
	"io"

	"github.com/atttc/ladder/internal/domain"
	"github.com/xuri/excelize/v2"
)

// TierStandings is one tier's active players, highest points first.
type TierStandings struct {
	Tier    domain.Tier
	Players []domain.Player
}

var standingsHeader = []interface{}{
	"Rank", "Player", "Points", "Initial", "Wins", "Losses",
	"A W-L", "B W-L", "C W-L", "Qualified",
}

var matchesHeader = []interface{}{
	"Date", "Tier", "Challenger", "Opponent", "Score", "Winner", "Challenger Pts", "Opponent Pts", "Notes",
}

// WriteStandings writes one sheet per tier followed by a Matches sheet when
// matches is non-empty. Tiers with no players still get a header-only sheet.
func WriteStandings(w io.Writer, tiers []TierStandings, matches []domain.Match) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	first := f.GetSheetName(f.GetActiveSheetIndex())
	for i, ts := range tiers {
		sheet := "Tier " + string(ts.Tier)
		if i == 0 {
			if err := f.SetSheetName(first, sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := writeRows(f, sheet, bold, standingsHeader, standingsRows(ts.Players)); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "B", "B", 28); err != nil {
			return fmt.Errorf("set width: %w", err)
		}
	}

	if len(matches) > 0 {
		sheet := "Matches"
		if len(tiers) == 0 {
			if err := f.SetSheetName(first, sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := writeRows(f, sheet, bold, matchesHeader, matchRows(matches)); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "C", "D", 20); err != nil {
			return fmt.Errorf("set width: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, headerStyle int, header []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func standingsRows(players []domain.Player) [][]interface{} {
	rows := make([][]interface{}, 0, len(players))
	rank := 0
	for i, p := range players {
		if i == 0 || p.Points != players[i-1].Points {
			rank = i + 1
		}
		qualified := ""
		if p.TournamentQualified {
			qualified = "yes"
		}
		rows = append(rows, []interface{}{
			rank, p.FullName(), p.Points, p.InitialPoints, p.Wins, p.Losses,
			record(p.A), record(p.B), record(p.C), qualified,
		})
	}
	return rows
}

func matchRows(matches []domain.Match) [][]interface{} {
	rows := make([][]interface{}, 0, len(matches))
	for _, m := range matches {
		winner := m.ChallengerName
		if m.WinnerID == m.OpponentID {
			winner = m.OpponentName
		}
		rows = append(rows, []interface{}{
			domain.FormatDate(m.Date), string(m.Tier), m.ChallengerName, m.OpponentName,
			Score(m.ChallengerGames, m.OpponentGames), winner,
			m.ChallengerPoints, m.OpponentPoints, notes(m),
		})
	}
	return rows
}

func record(r domain.TierRecord) string {
	return fmt.Sprintf("%d-%d", r.Wins, r.Losses)
}

// Score renders games as "6-3 4-6 6-2" from the challenger's side.
func Score(challenger, opponent []int) string {
	s := ""
	for i := range challenger {
		if i >= len(opponent) {
			break
		}
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%d-%d", challenger[i], opponent[i])
	}
	return s
}

func notes(m domain.Match) string {
	switch {
	case m.Forfeited:
		return "forfeit"
	case m.Retired:
		return "retired"
	case m.Tournament:
		return "tournament"
	}
	return ""
}
