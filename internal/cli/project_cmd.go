package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alexanderramin/sitepilot/internal/console"
	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/repository"
	"github.com/alexanderramin/sitepilot/internal/wizard"
	"github.com/spf13/cobra"
)

// resolveProject accepts a full ID or a unique ID prefix among the owner's
// projects.
func resolveProject(ctx context.Context, app *App, owner, input string) (*domain.Project, error) {
	if input == "" {
		return nil, fmt.Errorf("project ID is required")
	}
	p, err := app.Projects.GetByID(ctx, input)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	projects, err := app.Projects.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	var matches []*domain.Project
	for _, p := range projects {
		if strings.HasPrefix(p.ID, input) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("project not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("project ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

func newProjectCmd(app *App) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Inspect and remove projects",
	}
	cmd.PersistentFlags().StringVar(&owner, "owner", defaultUser(), "Owner whose projects to use")

	cmd.AddCommand(
		newProjectListCmd(app, &owner),
		newProjectShowCmd(app, &owner),
		newProjectRemoveCmd(app, &owner),
	)
	return cmd
}

func newProjectListCmd(app *App, owner *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := app.Projects.ListByOwner(cmd.Context(), *owner)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects found.")
				return nil
			}
			fmt.Fprintln(out, formatProjectList(projects))
			return nil
		},
	}
}

func formatProjectList(projects []*domain.Project) string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		next := console.StyleGreen.Render("done")
		if step, ok := wizard.NextStep(p.Progress); ok {
			next = step.String()
		}
		rows = append(rows, []string{
			shortID(p.ID),
			p.DisplayName(),
			console.ProgressBar(p.Progress.CompletedCount(), domain.CheckpointsTotal, 11),
			next,
		})
	}
	return console.RenderTable([]string{"ID", "SITE", "PROGRESS", "NEXT"}, rows)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newProjectShowCmd(app *App, owner *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show project details and step progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := resolveProject(ctx, app, *owner, args[0])
			if err != nil {
				return err
			}
			var articles []*domain.Article
			if app.Articles != nil {
				if articles, err = app.Articles.ListByProject(ctx, p.ID); err != nil {
					return err
				}
			}
			writeProject(cmd.OutOrStdout(), p, articles)
			return nil
		},
	}
}

func writeProject(out io.Writer, p *domain.Project, articles []*domain.Article) {
	fmt.Fprintln(out, console.Header(p.DisplayName()))
	fmt.Fprintf(out, "%s %s\n", console.Dim("id:      "), p.ID)
	fmt.Fprintf(out, "%s %s\n", console.Dim("site:    "), p.SiteURL)
	fmt.Fprintf(out, "%s %s\n", console.Dim("owner:   "), p.OwnerID)
	fmt.Fprintf(out, "%s %s\n", console.Dim("progress:"), console.ProgressBar(p.Progress.CompletedCount(), domain.CheckpointsTotal, 11))
	fmt.Fprintln(out)

	next, incomplete := wizard.NextStep(p.Progress)
	for _, s := range wizard.Steps() {
		mark := console.Dim("·")
		switch {
		case p.Progress.Done(s.Flag):
			mark = console.StyleGreen.Render("✓")
		case incomplete && s.Number == next.Number:
			mark = console.StyleYellow.Render("→")
		}
		fmt.Fprintf(out, "  %s %s\n", mark, s)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %d sitemap, %d internal, %d external links\n", console.Dim("links:   "),
		len(p.SitemapLinks), len(p.InternalLinks), len(p.ExternalLinks))
	if p.CMS != nil {
		fmt.Fprintf(out, "%s %s\n", console.Dim("cms:     "), p.CMS.Endpoint)
	}
	if len(p.ContentPlan) > 0 {
		fmt.Fprintf(out, "%s %d entries, %d per week\n", console.Dim("plan:    "), len(p.ContentPlan), p.PublishFrequency)
	}
	fmt.Fprintf(out, "%s %d\n", console.Dim("articles:"), len(articles))
}

func newProjectRemoveCmd(app *App, owner *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove"},
		Short:   "Delete a project with its articles and images",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := resolveProject(ctx, app, *owner, args[0])
			if err != nil {
				return err
			}
			if !yes {
				if !app.interactive() {
					return fmt.Errorf("refusing to delete %s without --yes in a non-interactive session", p.DisplayName())
				}
				ok, err := app.confirm(fmt.Sprintf("Delete project %s and all of its articles?", p.DisplayName()))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			if err := app.Projects.Delete(ctx, p.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed project %s\n", p.DisplayName())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}
