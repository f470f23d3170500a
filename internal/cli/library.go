package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2beens/gymplanner/internal/catalog"
	"github.com/2beens/gymplanner/internal/plan"
)

func (a *app) favCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fav",
		Short: "Manage favorite exercises",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle EXERCISE_ID",
		Short: "Star or un-star an exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd, func(m *plan.Model) error {
				starred, err := m.ToggleFavorite(args[0])
				if err != nil {
					return err
				}
				if starred {
					printf(cmd.OutOrStdout(), "%s added to favorites\n", args[0])
				} else {
					printf(cmd.OutOrStdout(), "%s removed from favorites\n", args[0])
				}
				return nil
			})
		},
	})
	return cmd
}

func (a *app) customCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "custom",
		Short: "Manage custom exercises",
	}

	var fields plan.CustomExerciseFields
	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a custom exercise",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields.Name = strings.Join(args, " ")
			return a.mutate(cmd, func(m *plan.Model) error {
				added, err := m.AddCustomExercise(fields)
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "added %s [%s]\n", added.Name, added.ID)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&fields.Target, "target", "", "target muscle (default \"custom\")")
	addCmd.Flags().StringVar(&fields.BodyPart, "body-part", "", "library category, e.g. chest (default \"custom\")")
	addCmd.Flags().StringVar(&fields.GifURL, "gif", "", "gif url or data url")

	cmd.AddCommand(
		addCmd,
		&cobra.Command{
			Use:   "delete EXERCISE_ID",
			Short: "Delete a custom exercise",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.mutate(cmd, func(m *plan.Model) error {
					return m.DeleteCustomExercise(args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "submit EXERCISE_ID",
			Short: "Submit a custom exercise for the shared library",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id := a.prefs.Identity()
				if !id.Present() {
					return errors.New("sign in to submit exercises")
				}
				return a.mutate(cmd, func(m *plan.Model) error {
					return m.SubmitCustomExercise(args[0], id.Username)
				})
			},
		},
	)
	return cmd
}

func (a *app) libraryCmd() *cobra.Command {
	var filter catalog.Filter
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Browse the exercise library",
		Long:  "Categories: " + strings.Join(catalog.Categories, ", ") + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openLocal()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			entries := a.library(cmd.Context(), s.model.Snapshot()).List(filter)
			if len(entries) == 0 {
				printf(out, "no exercises\n")
				return nil
			}
			for _, e := range entries {
				star := " "
				if e.Favorite {
					star = "*"
				}
				printf(out, "%s %-8s %s (%s)\n", star, e.ID, e.Name, e.Target)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter.Category, "category", "c", catalog.CategoryFavorites, "library category")
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "filter by name")
	return cmd
}
