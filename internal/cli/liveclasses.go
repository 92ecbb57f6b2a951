package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kavindurs8/studifynew-sub001/internal/liveclasses"
	"github.com/kavindurs8/studifynew-sub001/internal/models"
)

// actionFlags are shared by the approval commands.
type actionFlags struct {
	admin string
	notes string
	at    string
}

func (f *actionFlags) register(cmd *cobra.Command, withTime bool) {
	cmd.Flags().StringVar(&f.admin, "admin", "", "id of the acting administrator")
	cmd.Flags().StringVar(&f.notes, "notes", "", "administrator notes")
	_ = cmd.MarkFlagRequired("admin")
	if withTime {
		cmd.Flags().StringVar(&f.at, "at", "", "start time, RFC3339 (e.g. 2026-05-01T14:00:00Z)")
		_ = cmd.MarkFlagRequired("at")
	}
}

func (f *actionFlags) adminID() (uuid.UUID, error) {
	id, err := uuid.Parse(f.admin)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --admin %q", f.admin)
	}
	return id, nil
}

func (f *actionFlags) startTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, f.at)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want RFC3339", f.at)
	}
	return t, nil
}

func NewListCmd(deps *Dependencies) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live classes by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := models.LiveClassStatus(status)
			if !s.Valid() {
				return fmt.Errorf("invalid --status %q", status)
			}
			list, err := deps.LiveClasses.List(cmd.Context(), liveclasses.ListFilter{Status: &s})
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No live classes found")
				return nil
			}
			for _, lc := range list {
				when := "-"
				if lc.ScheduledAt != nil {
					when = lc.ScheduledAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-16s  %-20s  %s\n", lc.ID, lc.Status, when, lc.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", string(models.LiveClassPendingApproval), "status filter")
	return cmd
}

func NewApproveCmd(deps *Dependencies) *cobra.Command {
	var f actionFlags
	cmd := &cobra.Command{
		Use:   "approve <live-class-id>",
		Short: "Approve a pending live class and create its meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			admin, err := f.adminID()
			if err != nil {
				return err
			}
			at, err := f.startTime()
			if err != nil {
				return err
			}
			lc, err := deps.LiveClasses.Approve(cmd.Context(), id, liveclasses.ApproveInput{AdminID: admin, ScheduledAt: at, Notes: f.notes})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lc)
		},
	}
	f.register(cmd, true)
	return cmd
}

func NewRejectCmd(deps *Dependencies) *cobra.Command {
	var f actionFlags
	cmd := &cobra.Command{
		Use:   "reject <live-class-id>",
		Short: "Reject a pending live class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			admin, err := f.adminID()
			if err != nil {
				return err
			}
			lc, err := deps.LiveClasses.Reject(cmd.Context(), id, liveclasses.RejectInput{AdminID: admin, Notes: f.notes})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lc)
		},
	}
	f.register(cmd, false)
	return cmd
}

func NewRescheduleCmd(deps *Dependencies) *cobra.Command {
	var f actionFlags
	cmd := &cobra.Command{
		Use:   "reschedule <live-class-id>",
		Short: "Move a scheduled live class and its meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			admin, err := f.adminID()
			if err != nil {
				return err
			}
			at, err := f.startTime()
			if err != nil {
				return err
			}
			lc, err := deps.LiveClasses.Reschedule(cmd.Context(), id, liveclasses.RescheduleInput{AdminID: admin, ScheduledAt: at, Notes: f.notes})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lc)
		},
	}
	f.register(cmd, true)
	return cmd
}

func NewCancelCmd(deps *Dependencies) *cobra.Command {
	var f actionFlags
	cmd := &cobra.Command{
		Use:   "cancel <live-class-id>",
		Short: "Cancel a live class; its meeting is deleted best effort",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			admin, err := f.adminID()
			if err != nil {
				return err
			}
			lc, err := deps.LiveClasses.Cancel(cmd.Context(), id, liveclasses.CancelInput{AdminID: admin, Notes: f.notes})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lc)
		},
	}
	f.register(cmd, false)
	return cmd
}
