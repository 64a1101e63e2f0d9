package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-match/internal/match"
	"github.com/sells-group/intake-match/internal/resolve"
)

// promptDecider asks a person on a terminal. Closed input cancels the
// session.
type promptDecider struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPromptDecider(in io.Reader, out io.Writer) *promptDecider {
	return &promptDecider{in: bufio.NewScanner(in), out: out}
}

// ChooseCandidate implements resolve.Decider.
func (p *promptDecider) ChooseCandidate(ctx context.Context, s resolve.Session) (resolve.Action, string, error) {
	fmt.Fprintf(p.out, "\nIntake: %s\n", s.Intake.SearchTerm())

	ids := p.printGroups(s.Groups())
	if len(ids) == 0 {
		fmt.Fprintln(p.out, "  no matching customers")
	}

	for {
		var prompt string
		if len(ids) > 0 {
			prompt = fmt.Sprintf("select 1-%d, n = new customer, c = cancel: ", len(ids))
		} else {
			prompt = "n = new customer, c = cancel: "
		}
		answer, ok, err := p.ask(ctx, prompt)
		if err != nil {
			return "", "", err
		}
		if !ok {
			return resolve.ActionCancel, "", nil
		}

		switch answer {
		case "n", "new":
			return resolve.ActionCreate, "", nil
		case "c", "cancel":
			return resolve.ActionCancel, "", nil
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(ids) {
			return resolve.ActionSelect, ids[n-1], nil
		}
		fmt.Fprintf(p.out, "  %q is not a choice\n", answer)
	}
}

// ConfirmChanges implements resolve.Decider.
func (p *promptDecider) ConfirmChanges(ctx context.Context, s resolve.Session) (resolve.Action, error) {
	if s.Selected != nil {
		fmt.Fprintf(p.out, "\n%s differs from the intake:\n", s.Selected.CompanyName)
	}
	if s.Changes != nil {
		for _, f := range s.Changes.ChangedFields {
			fmt.Fprintf(p.out, "  %-14s %q -> %q\n", f, s.Changes.OldValues[f], s.Changes.NewValues[f])
		}
	}

	for {
		answer, ok, err := p.ask(ctx, "u = update, k = keep existing, c = cancel: ")
		if err != nil {
			return "", err
		}
		if !ok {
			return resolve.ActionCancel, nil
		}
		switch answer {
		case "u", "update":
			return resolve.ActionUpdate, nil
		case "k", "keep":
			return resolve.ActionKeep, nil
		case "c", "cancel":
			return resolve.ActionCancel, nil
		}
		fmt.Fprintf(p.out, "  %q is not a choice\n", answer)
	}
}

// printGroups lists results by match type, numbered across groups, and
// returns the customer id for each number.
func (p *promptDecider) printGroups(g match.Groups) []string {
	var ids []string
	for _, grp := range []struct {
		title   string
		results []match.Result
	}{
		{"Exact", g.Exact},
		{"Partial", g.Partial},
		{"Similar", g.Fuzzy},
	} {
		if len(grp.results) == 0 {
			continue
		}
		fmt.Fprintf(p.out, "  %s:\n", grp.title)
		for _, r := range grp.results {
			ids = append(ids, r.Customer.ID)
			fmt.Fprintf(p.out, "  [%d] %s (%s, %d, %s)\n",
				len(ids), r.Customer.CompanyName, r.Type, r.Score, r.Confidence)
		}
	}
	return ids
}

// ask prints prompt and reads one trimmed, lower-cased line. ok is false at
// end of input.
func (p *promptDecider) ask(ctx context.Context, prompt string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	fmt.Fprint(p.out, prompt)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", false, eris.Wrap(err, "prompt: read input")
		}
		return "", false, nil
	}
	return strings.ToLower(strings.TrimSpace(p.in.Text())), true, nil
}
