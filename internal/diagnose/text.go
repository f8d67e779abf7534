package diagnose

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/farxc/pgben-schema/internal/store"
)

var constraintOrder = []store.ConstraintKind{
	store.ConstraintPrimaryKey,
	store.ConstraintForeignKey,
	store.ConstraintUnique,
	store.ConstraintCheck,
	store.ConstraintExclusion,
	store.ConstraintTrigger,
}

// WriteText renders the report as aligned plain-text sections.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	section(tw, "MIGRATIONS")
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATE\tEXECUTED AT")
	for _, m := range r.Migrations {
		state, executed := "pending", "-"
		switch {
		case m.Orphan:
			state = "orphan"
		case m.Applied:
			state = "applied"
		}
		if m.ExecutedAt != nil {
			executed = m.ExecutedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.Version, m.Name, state, executed)
	}

	section(tw, "EXTENSIONS")
	for _, e := range r.Extensions {
		fmt.Fprintf(tw, "%s\t%s\n", e.Name, e.Version)
	}

	section(tw, "ENUMS")
	for _, e := range r.Enums {
		fmt.Fprintf(tw, "%s\t%s\t%d column(s)\n", e.Name, strings.Join(e.Labels, ", "), len(e.Usages))
	}

	section(tw, "TABLES")
	fmt.Fprintln(tw, "NAME\tROWS (EST.)\tRLS\tSOFT DELETE")
	for _, t := range r.Tables {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", t.Name, t.EstimatedRows, yesNo(t.RLSEnabled), yesNo(t.SoftDelete))
	}

	byKind := make(map[store.ConstraintKind][]store.Constraint)
	for _, c := range r.Constraints {
		byKind[c.Kind] = append(byKind[c.Kind], c)
	}
	for _, kind := range constraintOrder {
		list := byKind[kind]
		if len(list) == 0 {
			continue
		}
		section(tw, "CONSTRAINTS: "+kind.String())
		for _, c := range list {
			if kind == store.ConstraintForeignKey {
				fmt.Fprintf(tw, "%s\t%s\t-> %s\tON DELETE %s\n", c.Table, c.Name, c.ReferencedTable, c.OnDelete)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Table, c.Name, c.Definition)
		}
	}

	section(tw, "TRIGGERS")
	for _, t := range r.Triggers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s()\n", t.Table, t.Name, t.Timing, t.Function)
	}

	section(tw, "POLICIES")
	for _, p := range r.Policies {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Table, p.Name, p.Command)
	}

	problems := r.Problems()
	section(tw, fmt.Sprintf("PROBLEMS (%d)", len(problems)))
	for _, p := range problems {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Kind, p.Object, p.Detail)
	}

	return tw.Flush()
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n== %s ==\n", title)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
