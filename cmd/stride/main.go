package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stride/internal/app"
	"stride/internal/db"
	"stride/internal/domain"
	"stride/internal/engine"
	"stride/internal/migrate"
	"stride/internal/repo"
	"stride/internal/rules"
	"stride/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "stride",
	Short: "Stride CLI",
	Long: `Stride keeps long-term intent connected to daily work.
Core concepts:
- Workspace: your .stride directory holding the database.
- Drivers: the deep reasons behind what you do (health, learning, family).
- Milestones: concrete checkpoints under a driver, optionally dated.
- Actions: the daily work items; statuses flow planned -> in-progress -> completed, with deferred as a parking lot and rolled-over as habit history.
- Habits: actions with a recurrence pattern; 'stride habits run' materializes the instances that are due.
- Orphans: milestones or actions whose parent vanished; 'stride orphans' finds them.
- Event log: diary of changes, view with 'stride log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("STRIDE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("user-id", "local-user", "user identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user-id", rootCmd.PersistentFlags().Lookup("user-id"))
}

func registerCommands() {
	rootCmd.AddCommand(driverCmd())
	rootCmd.AddCommand(milestoneCmd())
	rootCmd.AddCommand(actionCmd())
	rootCmd.AddCommand(habitsCmd())
	rootCmd.AddCommand(orphansCmd())
	rootCmd.AddCommand(onboardCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func userID() string {
	return viper.GetString("user-id")
}

func driverCmd() *cobra.Command {
	drv := &cobra.Command{
		Use:   "driver",
		Short: "Manage drivers",
		Long:  "Drivers are the deep reasons behind your work. Milestones hang off them; deleting one cascades through its whole subtree.",
	}
	drv.AddCommand(driverCreateCmd())
	drv.AddCommand(driverListCmd())
	drv.AddCommand(driverShowCmd())
	drv.AddCommand(driverUpdateCmd())
	drv.AddCommand(driverDeleteCmd())
	return drv
}

func driverCreateCmd() *cobra.Command {
	var title, desc string
	var inactive bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				return fmt.Errorf("--title required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.DriverCreateOptions{
					UserID:      userID(),
					Title:       title,
					Description: desc,
				}
				if inactive {
					active := false
					opts.Active = &active
				}
				d, err := e.CreateDriver(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create as inactive")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func driverListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drivers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListDrivers(ctx, userID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Active", "Archived"})
				for _, d := range items {
					tw.AppendRow(table.Row{d.ID, d.Title, d.Active, d.Archived})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func driverShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a driver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				d, err := r.GetDriver(ctx, userID(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	return cmd
}

func driverUpdateCmd() *cobra.Command {
	var title, desc string
	var active, archived bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a driver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.DriverUpdateOptions{UserID: userID(), ID: args[0]}
				if cmd.Flags().Changed("title") {
					opts.Title = &title
				}
				if cmd.Flags().Changed("description") {
					opts.Description = &desc
				}
				if cmd.Flags().Changed("active") {
					opts.Active = &active
				}
				if cmd.Flags().Changed("archived") {
					opts.Archived = &archived
				}
				d, err := e.UpdateDriver(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().BoolVar(&active, "active", true, "active flag")
	cmd.Flags().BoolVar(&archived, "archived", false, "archived flag")
	return cmd
}

func driverDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a driver and its subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				impact, err := e.DriverImpact(ctx, userID(), args[0])
				if err != nil {
					return err
				}
				if !yes {
					fmt.Printf("Deleting driver %s removes %d milestone(s) and %d action(s). Re-run with --yes to confirm.\n",
						impact.DriverID, impact.Milestones, impact.Actions)
					return nil
				}
				deleted, err := e.DeleteDriver(ctx, userID(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(deleted)
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the cascading delete")
	return cmd
}

func milestoneCmd() *cobra.Command {
	ms := &cobra.Command{
		Use:   "milestone",
		Short: "Manage milestones",
	}
	ms.AddCommand(milestoneCreateCmd())
	ms.AddCommand(milestoneListCmd())
	ms.AddCommand(milestoneShowCmd())
	ms.AddCommand(milestoneUpdateCmd())
	ms.AddCommand(milestoneDeleteCmd())
	return ms
}

func milestoneCreateCmd() *cobra.Command {
	var driverID, title, desc, target string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a milestone",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.CreateMilestone(ctx, engine.MilestoneCreateOptions{
					UserID:      userID(),
					DriverID:    driverID,
					Title:       title,
					Description: desc,
					TargetDate:  target,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&driverID, "driver", "", "driver id")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&target, "target-date", "", "target date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("driver")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func milestoneListCmd() *cobra.Command {
	var driverID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List milestones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var items []domain.Milestone
				var err error
				if driverID != "" {
					items, err = r.ListMilestonesByDriver(ctx, userID(), driverID)
				} else {
					items, err = r.ListMilestones(ctx, userID())
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Driver", "Title", "Target"})
				for _, m := range items {
					target := ""
					if m.TargetDate != nil {
						target = *m.TargetDate
					}
					tw.AppendRow(table.Row{m.ID, m.DriverID, m.Title, target})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&driverID, "driver", "", "filter by driver id")
	return cmd
}

func milestoneShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				m, err := r.GetMilestone(ctx, userID(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	return cmd
}

func milestoneUpdateCmd() *cobra.Command {
	var title, desc, target string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.MilestoneUpdateOptions{UserID: userID(), ID: args[0]}
				if cmd.Flags().Changed("title") {
					opts.Title = &title
				}
				if cmd.Flags().Changed("description") {
					opts.Description = &desc
				}
				if cmd.Flags().Changed("target-date") {
					opts.TargetDate = &target
				}
				m, err := e.UpdateMilestone(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&target, "target-date", "", "target date (YYYY-MM-DD, empty clears)")
	return cmd
}

func milestoneDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteMilestone(ctx, userID(), args[0])
			})
		},
	}
	return cmd
}

func actionCmd() *cobra.Command {
	act := &cobra.Command{
		Use:   "action",
		Short: "Manage actions",
		Long:  "Actions are the daily work items. Statuses flow planned -> in-progress -> completed; deferred parks an action and rolled-over is where habit history ends up.",
	}
	act.AddCommand(actionCreateCmd())
	act.AddCommand(actionListCmd())
	act.AddCommand(actionShowCmd())
	act.AddCommand(actionUpdateCmd())
	act.AddCommand(actionMoveCmd())
	act.AddCommand(actionDeleteCmd())
	return act
}

func actionCreateCmd() *cobra.Command {
	var milestoneID, title, desc, trigger, freq, endDate string
	var estimate, dayOfMonth int
	var daysOfWeek []int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an action",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.ActionCreateOptions{
				UserID:      userID(),
				MilestoneID: milestoneID,
				Title:       title,
				Description: desc,
				Trigger:     trigger,
			}
			if cmd.Flags().Changed("estimate") {
				opts.EstimatedMinutes = &estimate
			}
			if freq != "" {
				p := &domain.RecurrencePattern{Frequency: freq, DaysOfWeek: daysOfWeek}
				if cmd.Flags().Changed("day-of-month") {
					p.DayOfMonth = &dayOfMonth
				}
				if endDate != "" {
					p.EndDate = &endDate
				}
				opts.Recurrence = p
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CreateAction(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&milestoneID, "milestone", "", "milestone id")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&trigger, "trigger", "", "habit trigger cue")
	cmd.Flags().IntVar(&estimate, "estimate", 0, "estimated minutes")
	cmd.Flags().StringVar(&freq, "every", "", "recurrence frequency (daily, weekly, monthly)")
	cmd.Flags().IntSliceVar(&daysOfWeek, "on-days", nil, "weekly days (0=Sunday .. 6=Saturday)")
	cmd.Flags().IntVar(&dayOfMonth, "day-of-month", 0, "monthly day (1-31, clamped to shorter months)")
	cmd.Flags().StringVar(&endDate, "until", "", "recurrence end date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("milestone")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func actionListCmd() *cobra.Command {
	var milestoneID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var items []domain.Action
				var err error
				if milestoneID != "" {
					items, err = r.ListActionsByMilestone(ctx, userID(), milestoneID)
				} else {
					items, err = r.ListActions(ctx, userID())
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Habit", "Milestone"})
				for _, a := range items {
					habit := ""
					if a.Recurrence != nil {
						habit = a.Recurrence.Frequency
					}
					tw.AppendRow(table.Row{a.ID, a.Title, a.Status, habit, a.MilestoneID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&milestoneID, "milestone", "", "filter by milestone id")
	return cmd
}

func actionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				a, err := r.GetAction(ctx, userID(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	return cmd
}

func actionUpdateCmd() *cobra.Command {
	var title, desc, trigger string
	var estimate int
	var clearRecurrence bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an action",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.ActionUpdateOptions{
					UserID:          userID(),
					ID:              args[0],
					ClearRecurrence: clearRecurrence,
				}
				if cmd.Flags().Changed("title") {
					opts.Title = &title
				}
				if cmd.Flags().Changed("description") {
					opts.Description = &desc
				}
				if cmd.Flags().Changed("trigger") {
					opts.Trigger = &trigger
				}
				if cmd.Flags().Changed("estimate") {
					opts.EstimatedMinutes = &estimate
				}
				a, err := e.UpdateAction(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&trigger, "trigger", "", "habit trigger cue")
	cmd.Flags().IntVar(&estimate, "estimate", 0, "estimated minutes")
	cmd.Flags().BoolVar(&clearRecurrence, "stop-recurring", false, "drop the recurrence pattern")
	return cmd
}

func actionMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Apply one lifecycle transition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.MoveAction(ctx, userID(), args[0], args[1])
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	return cmd
}

func actionDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteAction(ctx, userID(), args[0])
			})
		},
	}
	return cmd
}

func habitsCmd() *cobra.Command {
	habits := &cobra.Command{
		Use:   "habits",
		Short: "Recurring actions",
	}
	habits.AddCommand(habitsRunCmd())
	return habits
}

func habitsRunCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Materialize due habit instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().UTC()
			if date != "" {
				parsed, err := rules.ParseDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				day = parsed
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				spawned, err := e.RunHabits(ctx, userID(), day)
				if err != nil {
					return err
				}
				if len(spawned) == 0 && !viper.GetBool("json") {
					fmt.Println("No habits due.")
					return nil
				}
				return printJSONOrTable(spawned)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "run as of this date (YYYY-MM-DD)")
	return cmd
}

func orphansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Scan the hierarchy for broken links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				report, err := e.DetectOrphans(ctx, userID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report)
				}
				total := len(report.OrphanedDrivers) + len(report.OrphanedMilestones) + len(report.OrphanedActions)
				if total == 0 {
					fmt.Println("Hierarchy is healthy.")
					return nil
				}
				for _, d := range report.OrphanedDrivers {
					fmt.Printf("driver %s (%s): no milestones\n", d.ID, d.Title)
				}
				for _, m := range report.OrphanedMilestones {
					fmt.Printf("milestone %s (%s): driver %s missing\n", m.ID, m.Title, m.DriverID)
				}
				for _, a := range report.OrphanedActions {
					fmt.Printf("action %s (%s): milestone %s missing\n", a.ID, a.Title, a.MilestoneID)
				}
				return nil
			})
		},
	}
	return cmd
}

func onboardCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Generate the starter hierarchy for a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := app.ResolveOnboardingConfig(workspace, configPath)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				batch, err := e.Onboard(ctx, userID(), cfg)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(batch)
				}
				fmt.Printf("Onboarded %s with %d driver(s), %d milestone(s), %d action(s).\n",
					userID(), len(batch.Drivers), len(batch.Milestones), len(batch.Actions))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "onboarding template YAML (defaults to the built-in template)")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, userID(), evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind filter")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id filter")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath, configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := app.ResolveOnboardingConfig(workspace, configPath)
			if err != nil {
				return err
			}
			e := engine.New(conn)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("STRIDE_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("STRIDE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg, Onboarding: cfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Stride API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().StringVar(&configPath, "config", "", "onboarding template YAML")
	return cmd
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	e := engine.New(conn)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
