package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"zentari/internal/domain"
	"zentari/internal/repository"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskEnableCmd)
	taskCmd.AddCommand(taskDisableCmd)

	taskAddCmd.Flags().String("topic", "", "Short title shown to players")
	taskAddCmd.Flags().String("description", "", "Task description")
	taskAddCmd.Flags().String("link", "", "URL the player opens")
	taskAddCmd.Flags().String("image", "", "Image URL")
	taskAddCmd.Flags().Int64("power", 0, "Power credited on completion")
	taskAddCmd.Flags().Duration("delay", 30*time.Second, "Wait between initiation and completion")
	taskAddCmd.Flags().Duration("expires-in", 0, "Deactivate after this long (0 = never)")
	_ = taskAddCmd.MarkFlagRequired("topic")
	_ = taskAddCmd.MarkFlagRequired("power")

	taskListCmd.Flags().Bool("active", false, "Only list active tasks")
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage rewarded tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a task",
	Args:  cobra.NoArgs,
	RunE:  runTaskAdd,
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	topic, _ := cmd.Flags().GetString("topic")
	description, _ := cmd.Flags().GetString("description")
	link, _ := cmd.Flags().GetString("link")
	image, _ := cmd.Flags().GetString("image")
	power, _ := cmd.Flags().GetInt64("power")
	delay, _ := cmd.Flags().GetDuration("delay")
	expiresIn, _ := cmd.Flags().GetDuration("expires-in")

	if power <= 0 {
		return fmt.Errorf("--power must be positive")
	}
	if delay < 0 {
		return fmt.Errorf("--delay must not be negative")
	}

	t := &domain.Task{
		Topic:           topic,
		Description:     description,
		ImageURL:        image,
		Link:            link,
		Power:           power,
		IsActive:        true,
		CompletionDelay: int(delay / time.Second),
	}
	if expiresIn > 0 {
		at := time.Now().UTC().Add(expiresIn)
		t.ExpiresAt = &at
	}

	pool, err := openPool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.NewTaskRepository(pool).Create(cmd.Context(), t); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "task %d created: %s (+%d power, %ds delay)\n", t.ID, t.Topic, t.Power, t.CompletionDelay)
	return nil
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE:  runTaskList,
}

func runTaskList(cmd *cobra.Command, args []string) error {
	activeOnly, _ := cmd.Flags().GetBool("active")

	pool, err := openPool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	tasks, err := repository.NewTaskRepository(pool).List(cmd.Context(), activeOnly)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTOPIC\tPOWER\tDELAY\tACTIVE\tEXPIRES")
	for _, t := range tasks {
		expires := "-"
		if t.ExpiresAt != nil {
			expires = t.ExpiresAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%ds\t%t\t%s\n", t.ID, t.Topic, t.Power, t.CompletionDelay, t.IsActive, expires)
	}
	return w.Flush()
}

var taskEnableCmd = &cobra.Command{
	Use:   "enable TASK_ID",
	Short: "Make a task available again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTaskActive(cmd, args[0], true)
	},
}

var taskDisableCmd = &cobra.Command{
	Use:   "disable TASK_ID",
	Short: "Withdraw a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTaskActive(cmd, args[0], false)
	},
}

func setTaskActive(cmd *cobra.Command, rawID string, active bool) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", rawID)
	}

	pool, err := openPool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.NewTaskRepository(pool).SetActive(cmd.Context(), id, active); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "task %d active=%t\n", id, active)
	return nil
}
