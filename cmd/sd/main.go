package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"staffdesk/internal/app"
	"staffdesk/internal/config"
	"staffdesk/internal/db"
	"staffdesk/internal/domain"
	"staffdesk/internal/engine"
	"staffdesk/internal/notify"
	"staffdesk/internal/readiness"
	"staffdesk/internal/repo"
	"staffdesk/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "sd",
	Short: "Staffdesk CLI",
	Long: `Staffdesk manages employees, departments, and projects with an
approval workflow and a weighted readiness checklist.

- Workspace: your .staffdesk directory holding the database; the config
  lives in staffdesk.yml or in the database after 'sd config import'.
- Employees and departments: the directory, with parent and child
  departments and per-employee skills.
- Projects: carry an approval status (draft, in_review, approved,
  rejected), a readiness checklist scored by weighted tasks, and an
  append-only status history and timeline.
- Approval: 'sd approval <action>' runs request/approve/reject/reset;
  disallowed moves are quiet no-ops and reject needs a comment.
- Comments: reviewer notes per project section that resolve and reopen
  without ever being deleted.
- Assignments: who works on what, at what allocation percentage.`,
}

func main() {
	cobra.OnInitialize(initViper)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initViper() {
	viper.SetEnvPrefix("STAFFDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Int("actor-id", 0, "acting employee id")
	rootCmd.PersistentFlags().String("actor-name", "", "acting employee name")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("actor-name", rootCmd.PersistentFlags().Lookup("actor-name"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(employeeCmd())
	rootCmd.AddCommand(departmentCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(checklistCmd())
	rootCmd.AddCommand(approvalCmd())
	rootCmd.AddCommand(commentCmd())
	rootCmd.AddCommand(assignmentCmd())
	rootCmd.AddCommand(analyticsCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(serveCmd())
}

func actorID() *int {
	id := viper.GetInt("actor-id")
	if id <= 0 {
		return nil
	}
	return &id
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	appCtx, err := app.Open(ctx, viper.GetString("workspace"), "")
	if err != nil {
		return err
	}
	defer appCtx.Close()
	return fn(ctx, appCtx.Engine)
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func initCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if name == "" {
				name = "staffdesk"
			}
			appCtx, err := app.Open(cmd.Context(), workspace, name)
			if err != nil {
				return err
			}
			defer appCtx.Close()
			path := config.Path(workspace)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := os.WriteFile(path, []byte(config.GenerateDefault(name)), 0o644); err != nil {
					return err
				}
				fmt.Println("wrote", path)
			}
			fmt.Println("workspace ready:", db.Path(workspace))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "workspace name")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configImportCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSON(e.Config)
			})
		},
	}
}

func configImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate a config file and store it in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = config.Path(viper.GetString("workspace"))
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			if _, err := config.FromYAML(data); err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Repo.UpsertAppConfig(ctx, string(data)); err != nil {
					return err
				}
				fmt.Println("config imported")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "config file (default staffdesk.yml in workspace)")
	return cmd
}

func employeeCmd() *cobra.Command {
	emp := &cobra.Command{Use: "employee", Short: "Manage employees"}
	emp.AddCommand(employeeCreateCmd())
	emp.AddCommand(employeeListCmd())
	emp.AddCommand(employeeShowCmd())
	emp.AddCommand(employeeUpdateCmd())
	return emp
}

func employeeCreateCmd() *cobra.Command {
	var opts engine.EmployeeCreateOptions
	var deptID int
	var skills []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if deptID > 0 {
					opts.DeptID = &deptID
				}
				opts.Skills = skills
				emp, err := e.CreateEmployee(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(emp)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "full name (required)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email (required)")
	cmd.Flags().IntVar(&deptID, "dept-id", 0, "child department id")
	cmd.Flags().StringVar(&opts.Role, "role", "", "role title")
	cmd.Flags().StringVar(&opts.ContactNo, "contact", "", "contact number")
	cmd.Flags().StringVar(&opts.Location, "location", "", "location")
	cmd.Flags().StringVar(&opts.About, "about", "", "short bio")
	cmd.Flags().StringSliceVar(&skills, "skill", nil, "skill (repeatable)")
	return cmd
}

func employeeListCmd() *cobra.Command {
	var deptID int
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var dept *int
				if deptID > 0 {
					dept = &deptID
				}
				items, err := e.Repo.ListEmployees(ctx, dept, activeOnly)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Role", "Active"})
				for _, emp := range items {
					tw.AppendRow(table.Row{emp.EmployeeID, emp.Name, emp.Email, emp.Role, emp.IsActive})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&deptID, "dept-id", 0, "filter by child department")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "active employees only")
	return cmd
}

func employeeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <employee-id>",
		Short: "Show employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid employee id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				emp, err := e.Repo.GetEmployee(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(emp)
			})
		},
	}
}

func employeeUpdateCmd() *cobra.Command {
	var name, email, role, contact, location, about string
	var deptID int
	var active, inactive bool
	cmd := &cobra.Command{
		Use:   "update <employee-id>",
		Short: "Update employee fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid employee id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var upd repo.EmployeeUpdate
				if cmd.Flags().Changed("name") {
					upd.Name = &name
				}
				if cmd.Flags().Changed("email") {
					upd.Email = &email
				}
				if cmd.Flags().Changed("role") {
					upd.Role = &role
				}
				if cmd.Flags().Changed("contact") {
					upd.ContactNo = &contact
				}
				if cmd.Flags().Changed("location") {
					upd.Location = &location
				}
				if cmd.Flags().Changed("about") {
					upd.About = &about
				}
				if cmd.Flags().Changed("dept-id") {
					upd.DeptID = &deptID
				}
				if active {
					t := true
					upd.IsActive = &t
				}
				if inactive {
					f := false
					upd.IsActive = &f
				}
				if err := e.Repo.UpdateEmployee(ctx, id, upd); err != nil {
					return err
				}
				emp, err := e.Repo.GetEmployee(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(emp)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&role, "role", "", "role title")
	cmd.Flags().StringVar(&contact, "contact", "", "contact number")
	cmd.Flags().StringVar(&location, "location", "", "location")
	cmd.Flags().StringVar(&about, "about", "", "short bio")
	cmd.Flags().IntVar(&deptID, "dept-id", 0, "child department id")
	cmd.Flags().BoolVar(&active, "activate", false, "mark active")
	cmd.Flags().BoolVar(&inactive, "deactivate", false, "mark inactive")
	return cmd
}

func departmentCmd() *cobra.Command {
	dept := &cobra.Command{Use: "department", Short: "Manage departments"}
	dept.AddCommand(departmentAddCmd())
	dept.AddCommand(departmentListCmd())
	return dept
}

func departmentAddCmd() *cobra.Command {
	var name, description string
	var parentID int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a department (child when --parent is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if parentID > 0 {
					d, err := e.CreateDepartmentChild(ctx, parentID, name, description)
					if err != nil {
						return err
					}
					return printJSON(d)
				}
				d, err := e.CreateDepartmentParent(ctx, name, description)
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "department name (required)")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().IntVar(&parentID, "parent", 0, "parent department id")
	return cmd
}

func departmentListCmd() *cobra.Command {
	var parentID int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List departments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if parentID > 0 {
					items, err := e.Repo.ListDepartmentChildren(ctx, &parentID)
					if err != nil {
						return err
					}
					return printJSON(items)
				}
				parents, err := e.Repo.ListDepartmentParents(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(parents)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Description"})
				for _, d := range parents {
					tw.AppendRow(table.Row{d.DepartmentID, d.Name, d.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&parentID, "parent", 0, "list children of this parent")
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	prj.AddCommand(projectHistoryCmd())
	prj.AddCommand(projectTimelineCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var name, client, start, end, status string
	var leadID int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.ProjectCreateOptions{
					ProjectName: name,
					ClientName:  client,
					Status:      status,
				}
				if start != "" {
					opts.StartDate = &start
				}
				if end != "" {
					opts.EndDate = &end
				}
				if leadID > 0 {
					opts.LeadByEmpID = &leadID
				}
				p, err := e.CreateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name (required)")
	cmd.Flags().StringVar(&client, "client", "", "client name")
	cmd.Flags().StringVar(&start, "start", "", "start date YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "end date YYYY-MM-DD")
	cmd.Flags().IntVar(&leadID, "lead", 0, "lead employee id")
	cmd.Flags().StringVar(&status, "status", "", "delivery status (draft, active, completed, on_hold)")
	return cmd
}

func projectListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListProjects(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Client", "Status", "Approval", "Readiness"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ProjectID, p.ProjectName, p.ClientName, p.Status, p.ApprovalStatus, fmt.Sprintf("%d%%", p.ReadinessScore)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by approval status")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show project with checklist, history, timeline and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				detail, err := e.GetProjectDetail(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(detail)
				}
				p := detail.Project
				fmt.Printf("Project %d: %s\n", p.ProjectID, p.ProjectName)
				fmt.Printf("Approval: %s", p.ApprovalStatus)
				if p.ApprovalReason != "" {
					fmt.Printf(" (%s)", p.ApprovalReason)
				}
				fmt.Println()
				fmt.Printf("Readiness: %d%% (%d done, %d remaining)\n",
					detail.Checklist.Percent, detail.Checklist.CompletedItems, detail.Checklist.RemainingItems)
				if len(detail.History) > 0 {
					fmt.Println("History:")
					for _, h := range detail.History {
						fmt.Printf("  %s  %s -> %s  %s\n", h.ChangedAt, h.PreviousStatus, h.Status, h.Comment)
					}
				}
				if len(detail.Comments) > 0 {
					fmt.Println("Comments:")
					for _, c := range detail.Comments {
						state := "open"
						if c.Resolved {
							state = "resolved"
						}
						fmt.Printf("  [%s/%s] %s: %s\n", c.Section, state, c.Severity, c.Comment)
					}
				}
				return nil
			})
		},
	}
}

func projectUpdateCmd() *cobra.Command {
	var name, client, start, end, status string
	var leadID, progress int
	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Update project fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var upd repo.ProjectUpdate
				if cmd.Flags().Changed("name") {
					upd.ProjectName = &name
				}
				if cmd.Flags().Changed("client") {
					upd.ClientName = &client
				}
				if cmd.Flags().Changed("start") {
					upd.StartDate = &start
				}
				if cmd.Flags().Changed("end") {
					upd.EndDate = &end
				}
				if cmd.Flags().Changed("lead") {
					upd.LeadByEmpID = &leadID
				}
				if cmd.Flags().Changed("status") {
					upd.Status = &status
				}
				if cmd.Flags().Changed("progress") {
					upd.Progress = &progress
				}
				if err := e.Repo.UpdateProject(ctx, id, upd); err != nil {
					return err
				}
				p, err := e.Repo.GetProject(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&client, "client", "", "client name")
	cmd.Flags().StringVar(&start, "start", "", "start date")
	cmd.Flags().StringVar(&end, "end", "", "end date")
	cmd.Flags().IntVar(&leadID, "lead", 0, "lead employee id")
	cmd.Flags().StringVar(&status, "status", "", "delivery status")
	cmd.Flags().IntVar(&progress, "progress", 0, "progress percent")
	return cmd
}

func projectHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <project-id>",
		Short: "Show approval status history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListStatusHistory(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"At", "From", "To", "By", "Comment"})
				for _, h := range items {
					tw.AppendRow(table.Row{h.ChangedAt, h.PreviousStatus, h.Status, h.ChangedByName, h.Comment})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func projectTimelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <project-id>",
		Short: "Show project timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListTimeline(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func checklistCmd() *cobra.Command {
	cl := &cobra.Command{Use: "checklist", Short: "Manage readiness checklists"}
	cl.AddCommand(checklistShowCmd())
	cl.AddCommand(checklistSetCmd())
	return cl
}

func checklistShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show checklist state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				state, err := e.ChecklistState(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(state)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Task", "Status", "Notes"})
				for _, item := range state.Items {
					tw.AppendRow(table.Row{item.TaskID, item.Status, item.Notes})
				}
				tw.Render()
				fmt.Printf("Readiness: %d%%\n", state.Percent)
				return nil
			})
		},
	}
}

func checklistSetCmd() *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "set <project-id>",
		Short: "Set checklist item statuses",
		Long:  "Merge status updates into the checklist, e.g. sd checklist set 5001 --item scope=done --item budget=in_progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			if len(sets) == 0 {
				return fmt.Errorf("at least one --item task=status is required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				state, err := e.ChecklistState(ctx, id)
				if err != nil {
					return err
				}
				items := readiness.ItemsByTask(state.Items)
				for _, pair := range sets {
					task, status, ok := strings.Cut(pair, "=")
					if !ok || task == "" || status == "" {
						return fmt.Errorf("invalid --item %q, expected task=status", pair)
					}
					cur := items[task]
					cur.Status = status
					items[task] = cur
				}
				updated, err := e.UpdateChecklist(ctx, id, items)
				if err != nil {
					return err
				}
				return printJSON(updated)
			})
		},
	}
	cmd.Flags().StringSliceVar(&sets, "item", nil, "task=status (repeatable)")
	return cmd
}

func approvalCmd() *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:       "approval <action> <project-id>",
		Short:     "Run an approval action (request, approve, reject, reset)",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"request", "approve", "reject", "reset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[1])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, changed, err := e.ApplyApproval(ctx, engine.ApprovalOptions{
					ProjectID: id,
					Action:    args[0],
					ActorID:   actorID(),
					ActorName: viper.GetString("actor-name"),
					Comment:   comment,
				})
				if err != nil {
					return err
				}
				if !changed {
					fmt.Printf("no change: project %d stays %s\n", p.ProjectID, p.ApprovalStatus)
					return nil
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "comment (required for reject)")
	return cmd
}

func commentCmd() *cobra.Command {
	cmt := &cobra.Command{Use: "comment", Short: "Manage reviewer comments"}
	cmt.AddCommand(commentAddCmd())
	cmt.AddCommand(commentListCmd())
	cmt.AddCommand(commentResolveCmd())
	return cmt
}

func commentAddCmd() *cobra.Command {
	var section, text, severity string
	cmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Add a reviewer comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.AddComment(ctx, engine.CommentOptions{
					ProjectID:    id,
					Section:      section,
					Comment:      text,
					Severity:     severity,
					ReviewerID:   actorID(),
					ReviewerName: viper.GetString("actor-name"),
				})
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "section (overview, team, contact, approval)")
	cmd.Flags().StringVar(&text, "text", "", "comment text")
	cmd.Flags().StringVar(&severity, "severity", "info", "severity (info, warning, critical)")
	return cmd
}

func commentListCmd() *cobra.Command {
	var section string
	var resolved, open bool
	cmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List reviewer comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var filter *bool
				if resolved {
					t := true
					filter = &t
				}
				if open {
					f := false
					filter = &f
				}
				items, err := e.Repo.ListComments(ctx, id, section, filter)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "filter by section")
	cmd.Flags().BoolVar(&resolved, "resolved", false, "resolved comments only")
	cmd.Flags().BoolVar(&open, "open", false, "open comments only")
	return cmd
}

func commentResolveCmd() *cobra.Command {
	var reopen bool
	cmd := &cobra.Command{
		Use:   "resolve <comment-id>",
		Short: "Resolve (or reopen with --reopen) a reviewer comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.ResolveComment(ctx, args[0], !reopen, actorID())
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
	cmd.Flags().BoolVar(&reopen, "reopen", false, "reopen instead of resolve")
	return cmd
}

func assignmentCmd() *cobra.Command {
	asn := &cobra.Command{Use: "assignment", Short: "Manage project assignments"}
	asn.AddCommand(assignmentAddCmd())
	asn.AddCommand(assignmentListCmd())
	asn.AddCommand(assignmentReleaseCmd())
	return asn
}

func assignmentAddCmd() *cobra.Command {
	var opts engine.AssignmentCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Assign an employee to a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CreateAssignment(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(a)
			})
		},
	}
	cmd.Flags().IntVar(&opts.ProjectID, "project", 0, "project id (required)")
	cmd.Flags().IntVar(&opts.EmpID, "employee", 0, "employee id (required)")
	cmd.Flags().StringVar(&opts.Role, "role", "", "role on the project")
	cmd.Flags().IntVar(&opts.AllocationPct, "allocation", 100, "allocation percent 1-100")
	cmd.Flags().StringVar(&opts.AssignedDate, "date", "", "assignment date YYYY-MM-DD")
	return cmd
}

func assignmentListCmd() *cobra.Command {
	var projectID, empID int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var prj, emp *int
				if projectID > 0 {
					prj = &projectID
				}
				if empID > 0 {
					emp = &empID
				}
				items, err := e.Repo.ListAssignments(ctx, prj, emp)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Project", "Employee", "Role", "Alloc", "Active"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.EmpProjectID, a.ProjectID, a.EmpID, a.Role, fmt.Sprintf("%d%%", a.AllocationPct), a.IsActive})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&projectID, "project", 0, "filter by project")
	cmd.Flags().IntVar(&empID, "employee", 0, "filter by employee")
	return cmd
}

func assignmentReleaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release <assignment-id>",
		Short: "Deactivate an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid assignment id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Repo.ReleaseAssignment(ctx, id); err != nil {
					return err
				}
				a, err := e.Repo.GetAssignment(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(a)
			})
		},
	}
}

func analyticsCmd() *cobra.Command {
	an := &cobra.Command{Use: "analytics", Short: "Reports"}
	an.AddCommand(analyticsReadinessCmd())
	an.AddCommand(analyticsAllocationsCmd())
	return an
}

func analyticsReadinessCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Readiness recomputed from checklist items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				report, err := e.Readiness(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Approval", "Stored", "Computed", "Done", "Remaining"})
				for _, row := range report.Projects {
					tw.AppendRow(table.Row{row.ProjectID, row.ProjectName, row.ApprovalStatus, row.StoredScore, row.ComputedScore, row.CompletedItems, row.RemainingItems})
				}
				tw.Render()
				fmt.Printf("Average: %d%%, drifted: %d\n", report.AveragePercent, report.DriftedCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by approval status")
	return cmd
}

func analyticsAllocationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allocations",
		Short: "Allocation totals per employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rows, err := e.Allocations(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Employee", "Name", "Assignments", "Total", "Overallocated"})
				for _, row := range rows {
					tw.AppendRow(table.Row{row.EmpID, row.Name, row.Assignments, fmt.Sprintf("%d%%", row.TotalPct), row.Overallocated})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyDeleteCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var actor, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key (the raw key is printed once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actor == "" {
				return fmt.Errorf("--actor is required")
			}
			raw := make([]byte, 24)
			if _, err := rand.Read(raw); err != nil {
				return err
			}
			rawKey := "sdk_" + hex.EncodeToString(raw)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec := domain.APIKey{
					ID:        uuid.New().String(),
					ActorID:   actor,
					Name:      name,
					KeyHash:   repo.HashAPIKey(rawKey),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := e.Repo.InsertAPIKey(ctx, rec); err != nil {
					return err
				}
				fmt.Println("api key (store it now, it is not recoverable):")
				fmt.Println(rawKey)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor id the key authenticates as")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListAPIKeys(ctx, actor)
				if err != nil {
					return err
				}
				for i := range items {
					items[i].KeyHash = ""
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "filter by actor id")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Repo.DeleteAPIKey(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	var employees, projects int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the workspace with sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				result, err := e.Seed(ctx, employees, projects)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
	cmd.Flags().IntVar(&employees, "employees", 20, "number of employees")
	cmd.Flags().IntVar(&projects, "projects", 5, "number of projects")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowLegacy bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := app.Open(cmd.Context(), viper.GetString("workspace"), "")
			if err != nil {
				return err
			}
			defer appCtx.Close()
			e := appCtx.Engine
			if len(appCtx.Config.Notifications.Webhooks) > 0 {
				e.Notifier = notify.NewDispatcher(appCtx.Config.Notifications.Webhooks)
			}
			authCfg := server.AuthConfig{
				JWTSecret:              os.Getenv("STAFFDESK_JWT_SECRET"),
				AllowLegacyActorHeader: allowLegacy,
			}
			if authCfg.JWTSecret == "" && !allowLegacy {
				return fmt.Errorf("STAFFDESK_JWT_SECRET is required unless --allow-legacy-actor-header is set")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
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
			fmt.Printf("Serving Staffdesk API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowLegacy, "allow-legacy-actor-header", false, "accept X-Actor-Id header auth")
	return cmd
}
