package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/2beens/gymplanner/internal/plan"
)

func (a *app) showCmd() *cobra.Command {
	var template int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the weekly plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openLocal()
			if err != nil {
				return err
			}
			t, err := a.selectedTemplate(s.model, template)
			if err != nil {
				return err
			}

			snapshot := s.model.Snapshot()
			out := cmd.OutOrStdout()
			if template == 0 {
				for i, tmpl := range snapshot.Templates {
					marker := " "
					if i == t {
						marker = ">"
					}
					printf(out, "%s %d. %s\n", marker, i+1, tmpl.Name)
				}
				printf(out, "\n")
			}
			printTemplate(out, t, snapshot.Templates[t], plan.WeekdayIndex(time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&template, "template", "t", 0, "template number (default: selected)")
	return cmd
}

func (a *app) templateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage workout templates",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add NAME",
			Short: "Add a template and select it",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var count int
				err := a.mutate(cmd, func(m *plan.Model) error {
					added, err := m.AddTemplate(strings.Join(args, " "))
					if err != nil {
						return err
					}
					count = len(m.Snapshot().Templates)
					printf(cmd.OutOrStdout(), "added template %d: %s\n", count, added.Name)
					return nil
				})
				if err != nil {
					return err
				}
				return a.selectTemplate(count - 1)
			},
		},
		&cobra.Command{
			Use:   "rename NUMBER NAME",
			Short: "Rename a template",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				index, err := parseIndex("template", args[0])
				if err != nil {
					return err
				}
				return a.mutate(cmd, func(m *plan.Model) error {
					return m.RenameTemplate(index, strings.Join(args[1:], " "))
				})
			},
		},
		&cobra.Command{
			Use:   "delete NUMBER",
			Short: "Delete a template; the last one cannot be deleted",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				index, err := parseIndex("template", args[0])
				if err != nil {
					return err
				}
				if err := a.mutate(cmd, func(m *plan.Model) error {
					return m.DeleteTemplate(index)
				}); err != nil {
					return err
				}
				return a.selectTemplate(0)
			},
		},
		&cobra.Command{
			Use:   "select NUMBER",
			Short: "Select the template other commands work on",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				index, err := parseIndex("template", args[0])
				if err != nil {
					return err
				}
				s, err := a.openLocal()
				if err != nil {
					return err
				}
				if err := s.model.SelectTemplate(index); err != nil {
					return err
				}
				return a.selectTemplate(index)
			},
		},
	)
	return cmd
}

func (a *app) selectTemplate(index int) error {
	a.prefs.Template = index
	return a.savePrefs()
}

// planTarget holds the --template flag of the plan editing commands.
type planTarget struct {
	template int
}

func (p *planTarget) bind(cmd *cobra.Command) {
	cmd.PersistentFlags().IntVarP(&p.template, "template", "t", 0, "template number (default: selected)")
}

func (a *app) dayCmd() *cobra.Command {
	var target planTarget
	cmd := &cobra.Command{
		Use:   "day",
		Short: "Edit a day of the selected template",
	}
	target.bind(cmd)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "rest DAY on|off",
			Short: "Mark a day as rest day",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := parseDay(args[0])
				if err != nil {
					return err
				}
				isRest, err := parseOnOff(args[1])
				if err != nil {
					return err
				}
				return a.mutate(cmd, func(m *plan.Model) error {
					t, err := a.selectedTemplate(m, target.template)
					if err != nil {
						return err
					}
					return m.SetRestDay(t, d, isRest)
				})
			},
		},
		&cobra.Command{
			Use:   "name DAY [NAME]",
			Short: "Name a day, e.g. \"Push\"; no name resets it",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := parseDay(args[0])
				if err != nil {
					return err
				}
				return a.mutate(cmd, func(m *plan.Model) error {
					t, err := a.selectedTemplate(m, target.template)
					if err != nil {
						return err
					}
					return m.SetDayName(t, d, strings.Join(args[1:], " "))
				})
			},
		},
	)
	return cmd
}

func parseOnOff(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "on", "yes", "true":
		return true, nil
	case "off", "no", "false":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", raw)
}

func (a *app) exerciseCmd() *cobra.Command {
	var target planTarget
	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "Plan exercises on a day",
	}
	target.bind(cmd)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add DAY EXERCISE_ID [NAME]",
			Short: "Add an exercise from the library (or any id with a name)",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := parseDay(args[0])
				if err != nil {
					return err
				}
				id, name := args[1], strings.Join(args[2:], " ")
				return a.mutate(cmd, func(m *plan.Model) error {
					t, err := a.selectedTemplate(m, target.template)
					if err != nil {
						return err
					}
					if name == "" {
						ex, ok := a.library(cmd.Context(), m.Snapshot()).Lookup(id)
						if !ok {
							return fmt.Errorf("exercise %s not in the library, give it a name", id)
						}
						name = ex.Name
					}
					return m.AddExercise(t, d, id, name)
				})
			},
		},
		&cobra.Command{
			Use:   "remove DAY NUMBER",
			Short: "Remove an exercise from a day",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := parseDay(args[0])
				if err != nil {
					return err
				}
				e, err := parseIndex("exercise", args[1])
				if err != nil {
					return err
				}
				return a.mutate(cmd, func(m *plan.Model) error {
					t, err := a.selectedTemplate(m, target.template)
					if err != nil {
						return err
					}
					return m.RemoveExercise(t, d, e)
				})
			},
		},
	)
	return cmd
}

func (a *app) setCmd() *cobra.Command {
	var target planTarget
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Edit the sets of a planned exercise",
	}
	target.bind(cmd)

	// dayAndExercise parses the DAY EXERCISE_NUMBER prefix shared by all set commands
	dayAndExercise := func(args []string) (int, int, error) {
		d, err := parseDay(args[0])
		if err != nil {
			return 0, 0, err
		}
		e, err := parseIndex("exercise", args[1])
		return d, e, err
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add DAY EXERCISE",
			Short: "Add a set, copying the last one",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, e, err := dayAndExercise(args)
				if err != nil {
					return err
				}
				return a.mutate(cmd, func(m *plan.Model) error {
					t, err := a.selectedTemplate(m, target.template)
					if err != nil {
						return err
					}
					return m.AddSet(t, d, e)
				})
			},
		},
		&cobra.Command{
			Use:   "remove DAY EXERCISE",
			Short: "Remove the last set",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, e, err := dayAndExercise(args)
				if err != nil {
					return err
				}
				return a.mutate(cmd, func(m *plan.Model) error {
					t, err := a.selectedTemplate(m, target.template)
					if err != nil {
						return err
					}
					return m.RemoveSet(t, d, e)
				})
			},
		},
		&cobra.Command{
			Use:   "update DAY EXERCISE SET weight|reps VALUE",
			Short: "Set the weight or reps of a set",
			Args:  cobra.ExactArgs(5),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, e, err := dayAndExercise(args)
				if err != nil {
					return err
				}
				set, err := parseIndex("set", args[2])
				if err != nil {
					return err
				}
				field := plan.SetField(strings.ToLower(args[3]))
				return a.mutate(cmd, func(m *plan.Model) error {
					t, err := a.selectedTemplate(m, target.template)
					if err != nil {
						return err
					}
					stored, err := m.UpdateSet(t, d, e, set, field, args[4])
					if err != nil {
						return err
					}
					if args[4] != strconv.FormatFloat(stored, 'f', -1, 64) {
						printf(cmd.OutOrStdout(), "stored %s as %s\n", field, formatFloat(stored))
					}
					return nil
				})
			},
		},
	)
	return cmd
}
