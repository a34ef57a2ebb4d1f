package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/infra"
	"github.com/atttc/ladder/internal/report"
	"github.com/urfave/cli/v2"
)

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					cfg, err := infra.LoadConfig()
					if err != nil {
						return err
					}
					return infra.RunMigrations(cfg.DSN(), logger)
				},
			},
			{
				Name:  "down",
				Usage: "roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := infra.LoadConfig()
					if err != nil {
						return err
					}
					return infra.MigrateDown(cfg.DSN(), c.Int("steps"), logger)
				},
			},
		},
	}
}

func newAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "admin accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create an admin account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"LADDER_ADMIN_PASSWORD"}},
				},
				Action: withEnv(func(c *cli.Context, e *env) error {
					a, err := e.app.Accounts.CreateAccount(c.Context, c.String("username"), c.String("password"))
					if err != nil {
						return err
					}
					fmt.Fprintf(e.out, "created admin %q (id %d)\n", a.Username, a.ID)
					return nil
				}),
			},
			{
				Name:  "list",
				Usage: "list admin accounts",
				Action: withEnv(func(c *cli.Context, e *env) error {
					accounts, err := e.app.Accounts.ListAccounts(c.Context)
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tUSERNAME\tCREATED")
					for _, a := range accounts {
						fmt.Fprintf(tw, "%d\t%s\t%s\n", a.ID, a.Username, domain.FormatDate(a.CreatedAt))
					}
					return tw.Flush()
				}),
			},
		},
	}
}

func newSeasonCommand() *cli.Command {
	return &cli.Command{
		Name:  "season",
		Usage: "season lifecycle",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list seasons, newest first",
				Action: withEnv(func(c *cli.Context, e *env) error {
					seasons, err := e.app.Ladder.Seasons(c.Context)
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tTITLE\tSTART\tEND\tACTIVE\tKICKED")
					for _, s := range seasons {
						fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%t\n",
							s.ID, s.Title, dateOrDash(s.StartDate), dateOrDash(s.EndDate), s.Active, s.Kicked)
					}
					return tw.Flush()
				}),
			},
			{
				Name:      "start",
				Usage:     "start a new season and archive the current standings",
				ArgsUsage: "TITLE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "start", Usage: "first day (YYYY-MM-DD or a phrase like \"next monday\")"},
					&cli.StringFlag{Name: "end", Usage: "last day"},
					&cli.StringFlag{Name: "tournament", Usage: "tournament day, defaults to the last day"},
					&cli.BoolFlag{Name: "keep-roster", Usage: "leave players active"},
				},
				Action: withEnv(func(c *cli.Context, e *env) error {
					title := strings.Join(c.Args().Slice(), " ")
					if title == "" {
						return cli.Exit("season title is required", 2)
					}
					now := time.Now()
					params := domain.StartSeasonParams{Title: title, KeepRosterActive: c.Bool("keep-roster")}
					start, err := optionalDay(c.String("start"), now)
					if err != nil {
						return err
					}
					end, err := optionalDay(c.String("end"), now)
					if err != nil {
						return err
					}
					if start != nil {
						params.StartDate = *start
					}
					if end != nil {
						params.EndDate = *end
					}
					if params.TournamentDate, err = optionalDay(c.String("tournament"), now); err != nil {
						return err
					}

					season, err := e.app.Ladder.StartSeason(c.Context, params)
					if err != nil {
						return err
					}
					fmt.Fprintf(e.out, "started season %d %q\n", season.ID, season.Title)
					return nil
				}),
			},
			{
				Name:  "kick",
				Usage: "seed the active season from its predecessor's standings",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "prior", Usage: "prior season id, defaults to the active season's predecessor"},
					&cli.StringSliceFlag{Name: "tier", Value: cli.NewStringSlice("A", "B", "C")},
					&cli.StringFlag{Name: "mode", Value: string(domain.KickSet), Usage: "set or clear"},
				},
				Action: withEnv(func(c *cli.Context, e *env) error {
					params := domain.KickParams{
						PriorSeasonID: c.Int64("prior"),
						Mode:          domain.KickMode(c.String("mode")),
					}
					for _, s := range c.StringSlice("tier") {
						t, err := domain.ParseTier(s)
						if err != nil {
							return err
						}
						params.Tiers = append(params.Tiers, t)
					}
					if params.PriorSeasonID == 0 {
						prior, err := predecessor(c, e)
						if err != nil {
							return err
						}
						params.PriorSeasonID = prior
					}

					res, err := e.app.Ladder.KickSeason(c.Context, params)
					if err != nil {
						return err
					}
					if !res.Applied {
						fmt.Fprintf(e.out, "season %d already kicked, nothing changed\n", res.SeasonID)
						return nil
					}
					tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "TIER\tPLAYER\tSEED")
					for _, tr := range res.Tiers {
						for _, p := range tr.Current {
							fmt.Fprintf(tw, "%s\t%s %s\t%d\n", tr.Tier, p.FirstName, p.LastName, tr.SeedPoints[p.ID])
						}
					}
					return tw.Flush()
				}),
			},
			{
				Name:  "tournament",
				Usage: "show or change the active season's tournament settings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date"},
					&cli.IntFlag{Name: "min-matches"},
					&cli.IntFlag{Name: "min-opponents"},
				},
				Action: withEnv(func(c *cli.Context, e *env) error {
					params, err := e.app.Ladder.TournamentParameters(c.Context)
					if err != nil {
						return err
					}
					if c.IsSet("date") || c.IsSet("min-matches") || c.IsSet("min-opponents") {
						if c.IsSet("date") {
							if params.StartDate, err = optionalDay(c.String("date"), time.Now()); err != nil {
								return err
							}
						}
						if c.IsSet("min-matches") {
							params.MinMatches = c.Int("min-matches")
						}
						if c.IsSet("min-opponents") {
							params.MinOpponents = c.Int("min-opponents")
						}
						if _, err := e.app.Ladder.SetTournamentParameters(c.Context, *params); err != nil {
							return err
						}
					}
					fmt.Fprintf(e.out, "tournament %s: %d matches, %d opponents\n",
						dateOrDash(params.StartDate), params.MinMatches, params.MinOpponents)
					return nil
				}),
			},
		},
	}
}

// predecessor returns the active season's previous season id.
func predecessor(c *cli.Context, e *env) (int64, error) {
	seasons, err := e.app.Ladder.Seasons(c.Context)
	if err != nil {
		return 0, err
	}
	for _, s := range seasons {
		if !s.Active {
			continue
		}
		if s.PrevID == nil {
			return 0, cli.Exit("the active season has no predecessor; pass --prior", 2)
		}
		return *s.PrevID, nil
	}
	return 0, cli.Exit("no active season", 2)
}

func newTierCommand() *cli.Command {
	return &cli.Command{
		Name:  "tier",
		Usage: "show the tier a player held on a date",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "player", Required: true},
			&cli.StringFlag{Name: "date", Value: "today"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			on, err := parseDay(c.String("date"), time.Now())
			if err != nil {
				return err
			}
			tier, err := e.app.Ladder.TierOnDate(c.Context, c.Int64("player"), on)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "player %d was in tier %s on %s\n", c.Int64("player"), tier, domain.FormatDate(on))
			return nil
		}),
	}
}

func newTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue a report access token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Value: domain.TokenReport},
			&cli.StringFlag{Name: "since", Usage: "earliest match date the token may see"},
			&cli.StringFlag{Name: "expires", Required: true, Usage: "last valid day"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			now := time.Now()
			since, err := optionalDay(c.String("since"), now)
			if err != nil {
				return err
			}
			expires, err := parseDay(c.String("expires"), now)
			if err != nil {
				return err
			}
			tok, err := e.app.Accounts.NewToken(c.Context, c.String("type"), since, expires)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, tok.Token)
			return nil
		}),
	}
}

func newExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write current standings to an xlsx workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true},
			&cli.StringFlag{Name: "tier", Usage: "one tier only"},
			&cli.BoolFlag{Name: "matches", Usage: "add a sheet of this season's matches"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			tiers := domain.RankedTiers
			var only domain.Tier
			if s := c.String("tier"); s != "" {
				t, err := domain.ParseTier(s)
				if err != nil {
					return err
				}
				only = t
				tiers = []domain.Tier{t}
			}

			sheets := make([]report.TierStandings, 0, len(tiers))
			for _, t := range tiers {
				players, err := e.app.Ladder.Standings(c.Context, t)
				if err != nil {
					return err
				}
				sheets = append(sheets, report.TierStandings{Tier: t, Players: players})
			}
			var matches []domain.Match
			if c.Bool("matches") {
				var err error
				if matches, err = e.app.Ladder.RecentMatches(c.Context, only, nil); err != nil {
					return err
				}
			}

			f, err := os.Create(c.String("out"))
			if err != nil {
				return err
			}
			if err := report.WriteStandings(f, sheets, matches); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		}),
	}
}

func newAuditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "replay the active season's matches and compare with stored counters",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the full result as JSON"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			res, err := e.app.Ladder.Audit(c.Context)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				enc := json.NewEncoder(e.out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(e.out, "season %d: %d players, %d matches\n", res.SeasonID, res.Players, res.Matches)
				for _, inv := range res.Invariants {
					status := "ok"
					if !inv.Passed {
						status = "FAIL"
					}
					fmt.Fprintf(e.out, "  %-4s %s", status, inv.Name)
					if inv.Detail != "" {
						fmt.Fprintf(e.out, ": %s", inv.Detail)
					}
					fmt.Fprintln(e.out)
				}
			}
			if !res.AllPassed {
				return cli.Exit("ledger drift detected", 3)
			}
			return nil
		}),
	}
}

func newEventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "ladder events on Kafka",
		Subcommands: []*cli.Command{
			{
				Name:      "tail",
				Usage:     "print events from a topic until interrupted",
				ArgsUsage: "TOPIC",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "group", Value: "ladderctl"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := infra.LoadConfig()
					if err != nil {
						return err
					}
					topic := c.Args().First()
					if topic == "" {
						topic = cfg.KafkaTopicPrefix + ".match.credited"
					}
					consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, topic, c.String("group"), cfg.KafkaEnabled, logger)
					if !consumer.Enabled() {
						return cli.Exit("kafka is disabled; set KAFKA_ENABLED=true", 2)
					}
					defer consumer.Close()

					for {
						msg, err := consumer.ReadMessage(c.Context)
						if err != nil {
							if c.Context.Err() != nil {
								return nil
							}
							return err
						}
						fmt.Fprintf(c.App.Writer, "%s %s %s\n", msg.Time.Format(time.RFC3339), msg.Key, msg.Value)
					}
				},
			},
		},
	}
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return domain.FormatDate(*t)
}
