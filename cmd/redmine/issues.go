package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/randalmurphal/redmine/redmine"
)

func (a *app) issuesCmd() *cobra.Command {
	var (
		limit  int
		all    bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List the newest issues of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := a.projectOrDefault()
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}

			var issues []redmine.Document
			if all {
				issues, err = client.IterateIssues(project, limit).All(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				doc, err := client.GetNewIssues(cmd.Context(), project, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(a.out, doc)
				}
				issues = documents(doc["issues"])
			}

			if asJSON {
				return writeJSON(a.out, issues)
			}
			return writeIssueTable(a.out, issues)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", redmine.DefaultIssueLimit, "issues per request")
	cmd.Flags().BoolVar(&all, "all", false, "page through every issue")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON")
	return cmd
}

func (a *app) issueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue ID",
		Short: "Show an issue with its attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIssueID(args[0])
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}

			doc, err := client.GetIssueData(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(a.out, doc)
		},
	}
}

// issueFlags holds the optional update fields shared by several commands.
type issueFlags struct {
	notes    string
	statusID int
	assignTo string
}

func (f *issueFlags) bind(fs *pflag.FlagSet, withAssign bool) {
	fs.StringVarP(&f.notes, "notes", "m", "", "journal note to add")
	fs.IntVar(&f.statusID, "status", 0, "new status id")
	if withAssign {
		fs.StringVar(&f.assignTo, "assign-to", "", "user id to assign")
	}
}

// notesAndStatus returns pointers only for the flags the user set.
func (f *issueFlags) notesAndStatus(fs *pflag.FlagSet) (notes *string, status *int) {
	if fs.Changed("notes") {
		notes = redmine.String(f.notes)
	}
	if fs.Changed("status") {
		status = redmine.Int(f.statusID)
	}
	return notes, status
}

func (a *app) updateCmd() *cobra.Command {
	var f issueFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Add a note, change the status or reassign an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIssueID(args[0])
			if err != nil {
				return err
			}

			opts := redmine.UpdateOptions{}
			opts.Notes, opts.StatusID = f.notesAndStatus(cmd.Flags())
			if cmd.Flags().Changed("assign-to") {
				opts.AssignedToID = redmine.String(f.assignTo)
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.UpdateIssue(cmd.Context(), id, opts); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated issue #%d\n", id)
			return nil
		},
	}

	f.bind(cmd.Flags(), true)
	return cmd
}

func (a *app) assignAuthorCmd() *cobra.Command {
	var f issueFlags

	cmd := &cobra.Command{
		Use:   "assign-author ID",
		Short: "Assign an issue back to its author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIssueID(args[0])
			if err != nil {
				return err
			}

			opts := redmine.AssignOptions{}
			opts.Notes, opts.StatusID = f.notesAndStatus(cmd.Flags())

			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.AssignToAuthor(cmd.Context(), id, opts); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Assigned issue #%d to its author\n", id)
			return nil
		},
	}

	f.bind(cmd.Flags(), false)
	return cmd
}

func parseIssueID(s string) (int, error) {
	s = trimHash(s)
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid issue id %q: %w", s, redmine.ErrIssueIDInvalid)
	}
	return id, nil
}

func trimHash(s string) string {
	if len(s) > 0 && s[0] == '#' {
		return s[1:]
	}
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeIssueTable(w io.Writer, issues []redmine.Document) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tASSIGNEE\tSUBJECT")
	for _, issue := range issues {
		fmt.Fprintf(tw, "%v\t%s\t%s\t%v\n",
			issue["id"], nestedName(issue, "status"), nestedName(issue, "assigned_to"), issue["subject"])
	}
	return tw.Flush()
}

// nestedName reads doc[key]["name"], as Redmine renders status and users.
func nestedName(doc redmine.Document, key string) string {
	m, ok := doc[key].(map[string]any)
	if !ok {
		return "-"
	}
	name, _ := m["name"].(string)
	return name
}

func documents(v any) []redmine.Document {
	items, _ := v.([]any)
	docs := make([]redmine.Document, 0, len(items))
	for _, item := range items {
		if doc, ok := item.(map[string]any); ok {
			docs = append(docs, doc)
		}
	}
	return docs
}
