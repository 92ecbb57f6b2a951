// Package cli implements the admin command line: bootstrap admins and run the live class
// approval actions without the web console.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kavindurs8/studifynew-sub001/internal/liveclasses"
	"github.com/kavindurs8/studifynew-sub001/internal/models"
)

// LiveClasses is the approval workflow the commands drive.
type LiveClasses interface {
	List(ctx context.Context, f liveclasses.ListFilter) ([]models.LiveClassSession, error)
	Approve(ctx context.Context, id uuid.UUID, in liveclasses.ApproveInput) (*models.LiveClassSession, error)
	Reject(ctx context.Context, id uuid.UUID, in liveclasses.RejectInput) (*models.LiveClassSession, error)
	Reschedule(ctx context.Context, id uuid.UUID, in liveclasses.RescheduleInput) (*models.LiveClassSession, error)
	Cancel(ctx context.Context, id uuid.UUID, in liveclasses.CancelInput) (*models.LiveClassSession, error)
}

// Users creates accounts.
type Users interface {
	Create(ctx context.Context, email, passwordHash, fullName string, role models.Role, verified bool) (*models.User, error)
}

var _ LiveClasses = (*liveclasses.Service)(nil)

type Dependencies struct {
	LiveClasses LiveClasses
	Users       Users
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Studify administration",
		Long:          "Create administrator accounts and approve, reject, reschedule or cancel live classes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewCreateAdminCmd(deps))
	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewApproveCmd(deps))
	rootCmd.AddCommand(NewRejectCmd(deps))
	rootCmd.AddCommand(NewRescheduleCmd(deps))
	rootCmd.AddCommand(NewCancelCmd(deps))

	return rootCmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid live class id %q", s)
	}
	return id, nil
}
