package cli

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/dto"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
)

// startCommand creates the 'start' command
func (b *RootBuilder) startCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start [user-id...]",
		Short: "Start triage for users (default: every configured user)",
		Long: `Fetch unread mail, summarize, prioritize and draft replies, then pause at
the first draft awaiting approval. A user with an unfinished run is re-entered
at the publish gate instead of starting over.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			users := args
			if len(users) == 0 {
				users = b.cfg.Users()
			}
			if len(users) == 0 {
				return b.fail(fmt.Errorf("no user given and none configured under 'users'"))
			}

			svc, err := b.open()
			if err != nil {
				return b.fail(err)
			}
			for _, userID := range users {
				result, err := svc.Triage().Start(cmd.Context(), dto.StartRequest{UserID: userID})
				if err != nil {
					return b.fail(err)
				}
				if err := b.presenter.PresentSuccess("Triage started", result); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// decideCommand creates the 'decide' command
func (b *RootBuilder) decideCommand() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "decide <user-id> [approve|reject|save]",
		Short: "Decide on the draft currently awaiting approval",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := requireArg(args, 0, "user-id")
			if err != nil {
				return b.fail(err)
			}
			svc, err := b.open()
			if err != nil {
				return b.fail(err)
			}

			decision := ""
			if len(args) > 1 {
				decision = args[1]
			}
			if decision == "" {
				if !interactive {
					return b.fail(fmt.Errorf("decision is required (approve, reject or save), or pass --interactive"))
				}
				state, err := svc.Triage().Status(cmd.Context(), userID)
				if err != nil {
					return b.fail(err)
				}
				if !state.AwaitingDecision {
					return b.presenter.PresentSuccess("Nothing awaiting a decision", state)
				}
				d := state.Drafts[state.Cursor]
				label := fmt.Sprintf("[%s] %s → %s", d.Priority, d.Subject, d.Recipient)

				choices := approval.Choices()
				items := make([]string, len(choices))
				for i, c := range choices {
					items[i] = c.Label()
				}
				idx, err := b.selectDecision(label, items)
				if err != nil {
					return b.fail(err)
				}
				decision = choices[idx].String()
			}

			result, err := svc.Triage().Decide(cmd.Context(), dto.DecideRequest{UserID: userID, Decision: decision})
			if err != nil {
				return b.fail(err)
			}
			return b.presenter.PresentSuccess("Decision applied", result)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Pick the decision from a menu")
	return cmd
}

// callbackCommand creates the 'callback' command
func (b *RootBuilder) callbackCommand() *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "callback <approval-id> <decision>",
		Short: "Resolve an approval request by id, as an approval button would",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := b.open()
			if err != nil {
				return b.fail(err)
			}
			result, err := svc.Triage().HandleCallback(cmd.Context(), dto.CallbackRequest{
				ApprovalID: args[0],
				Decision:   args[1],
				ActorID:    actor,
			})
			if err != nil {
				return b.fail(err)
			}
			return b.presenter.PresentSuccess("Callback handled", result)
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "cli", "Who made the decision")
	return cmd
}

// statusCommand creates the 'status' command
func (b *RootBuilder) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <user-id>",
		Short: "Show the stored triage run for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := b.open()
			if err != nil {
				return b.fail(err)
			}
			state, err := svc.Triage().Status(cmd.Context(), args[0])
			if err != nil {
				return b.fail(err)
			}
			return b.presenter.PresentSuccess("Triage status", state)
		},
	}
}

// resetCommand creates the 'reset' command
func (b *RootBuilder) resetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <user-id>",
		Short: "Discard the stored triage run for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := b.open()
			if err != nil {
				return b.fail(err)
			}
			if err := svc.Triage().Reset(cmd.Context(), args[0]); err != nil {
				return b.fail(err)
			}
			return b.presenter.PresentSuccess("Run discarded", map[string]string{"user_id": args[0]})
		},
	}
}

// historyCommand creates the 'history' command
func (b *RootBuilder) historyCommand() *cobra.Command {
	var filter app.JournalFilter

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show step history from the run journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := b.open()
			if err != nil {
				return b.fail(err)
			}
			entries, skipped, err := svc.History(filter)
			if err != nil {
				return b.fail(err)
			}
			if skipped > 0 {
				app.GetLogger().Warn("skipped %d unreadable journal lines", skipped)
			}
			return b.presenter.PresentSuccess("Run history", entries)
		},
	}

	cmd.Flags().StringVar(&filter.UserID, "user", "", "Only entries for this user")
	cmd.Flags().StringVar(&filter.RunID, "run", "", "Only entries for this run")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 50, "Show at most the last n entries (0 for all)")
	return cmd
}

func promptSelect(label string, items []string) (int, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  len(items),
	}
	idx, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt || err == promptui.ErrEOF {
			return 0, fmt.Errorf("decision cancelled")
		}
		return 0, fmt.Errorf("prompt failed: %w", err)
	}
	return idx, nil
}

