// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/danielhkuo/urna/db"
	"github.com/danielhkuo/urna/models"
	"github.com/danielhkuo/urna/tally"
	"github.com/danielhkuo/urna/voting"
)

type options struct {
	envFile      string
	databaseURL  string
	databaseType string
	electionID   int64
	circuitID    int64
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, opts.databaseType, opts.databaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err, "driver", opts.databaseType)
		os.Exit(1)
	}
	defer conn.Close()

	if opts.circuitID != 0 {
		err = circuitReport(ctx, os.Stdout, conn, opts.circuitID)
	} else {
		err = electionReport(ctx, os.Stdout, conn, opts.electionID)
	}
	if err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("tally", flag.ContinueOnError)

	fs.StringVar(&opts.envFile, "env", ".env", "Path to a .env file (optional)")
	fs.StringVar(&opts.databaseURL, "d", "", "Database URL")
	fs.StringVar(&opts.databaseType, "t", "", "Database type (postgres, pgx or sqlite)")
	fs.Int64Var(&opts.electionID, "e", 0, "Election id (default: the active election)")
	fs.Int64Var(&opts.circuitID, "c", 0, "Report a single circuit instead of the election")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return opts, fmt.Errorf("failed to load %s: %w", opts.envFile, err)
		}
	}

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		return opts, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if opts.databaseType == "" {
		opts.databaseType = os.Getenv("DATABASE_TYPE")
		if opts.databaseType == "" {
			opts.databaseType = db.DriverPostgres
		}
	}
	return opts, nil
}

func electionReport(ctx context.Context, out io.Writer, conn *sql.DB, electionID int64) error {
	if electionID == 0 {
		election, err := voting.ActiveElection(ctx, conn, time.Now())
		if err != nil {
			return err
		}
		electionID = election.ID
	}

	res, err := tally.ElectionResults(ctx, conn, electionID)
	if err != nil {
		return err
	}

	color.New(color.FgCyan, color.Bold).Fprintf(out, "\n=== %s ===\n", res.Election.Name)
	fmt.Fprintf(out, "Window: %s to %s (closes %s)\n",
		res.Election.StartsAt.Local().Format(time.DateTime),
		res.Election.EndsAt.Local().Format(time.DateTime),
		humanize.Time(res.Election.EndsAt))
	fmt.Fprintf(out, "Voters: %s of %s (%.2f%%)\n",
		humanize.Comma(int64(res.TotalVoters)), humanize.Comma(int64(res.TotalCitizens)), res.Participation)
	fmt.Fprintf(out, "Circuits: %d open, %d closed\n", res.OpenCircuits, res.ClosedCircuits)

	if res.Final == nil {
		color.Yellow("\nResults are sealed until every circuit is closed.")
		return nil
	}

	final := res.Final
	printSummary(out, final.Summary)

	color.New(color.FgYellow).Fprintln(out, "\nLists")
	printLists(out, final.Lists)

	if final.WinningList != nil {
		color.New(color.FgGreen, color.Bold).Fprintf(out, "\nWinner: list %d (%s) with %s votes\n",
			final.WinningList.ListNumber, final.WinningList.PartyName, humanize.Comma(int64(final.WinningList.Votes)))
	}

	color.New(color.FgYellow).Fprintln(out, "\nBy department")
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Department", "Voters", "Assigned", "Participation", "Leading list"})
	for _, d := range final.ByDepartment {
		leading := "-"
		if len(d.Lists) > 0 {
			leading = fmt.Sprintf("%d (%s)", d.Lists[0].ListNumber, d.Lists[0].PartyName)
		}
		table.Append([]string{
			d.DepartmentName,
			humanize.Comma(int64(d.Voters)),
			humanize.Comma(int64(d.AssignedCitizens)),
			fmt.Sprintf("%.2f%%", d.Participation),
			leading,
		})
	}
	table.Render()
	return nil
}

func circuitReport(ctx context.Context, out io.Writer, conn *sql.DB, circuitID int64) error {
	res, err := tally.CircuitResults(ctx, conn, circuitID)
	if err != nil {
		return err
	}

	color.New(color.FgCyan, color.Bold).Fprintf(out, "\n=== Circuit %d, %s ===\n",
		res.Circuit.ID, res.Circuit.Establishment.Name)
	printSummary(out, res.Summary)

	color.New(color.FgYellow).Fprintln(out, "\nLists")
	printLists(out, res.ByList)

	color.New(color.FgYellow).Fprintln(out, "\nParties")
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Party", "Votes", "%"})
	for _, p := range res.ByParty {
		table.Append([]string{p.PartyName, humanize.Comma(int64(p.Votes)), fmt.Sprintf("%.2f", p.Percentage)})
	}
	table.Render()

	color.New(color.FgYellow).Fprintln(out, "\nCandidates")
	table = tablewriter.NewWriter(out)
	table.SetHeader([]string{"Candidate", "Party", "Votes", "%"})
	for _, c := range res.ByCandidate {
		table.Append([]string{c.CandidateName, c.PartyName, humanize.Comma(int64(c.Votes)), fmt.Sprintf("%.2f", c.Percentage)})
	}
	table.Render()
	return nil
}

func printSummary(out io.Writer, s models.ResultSummary) {
	color.New(color.FgYellow).Fprintln(out, "\nBallots")
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Total", "Ordinary", "Blank", "Annulled", "Observed"})
	table.Append([]string{
		humanize.Comma(int64(s.Total)),
		humanize.Comma(int64(s.Ordinary)),
		humanize.Comma(int64(s.Blank)),
		humanize.Comma(int64(s.Annulled)),
		humanize.Comma(int64(s.Observed)),
	})
	table.Render()
}

func printLists(out io.Writer, lists []models.ListResult) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"List", "Party", "Votes", "%"})
	for _, l := range lists {
		table.Append([]string{
			strconv.Itoa(l.ListNumber),
			l.PartyName,
			humanize.Comma(int64(l.Votes)),
			fmt.Sprintf("%.2f", l.Percentage),
		})
	}
	table.Render()
}
