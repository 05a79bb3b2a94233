package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/prompts"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage versioned LLM prompt templates",
	Long:  "Commands for listing, inspecting, editing, and activating the prompt templates used for CV extraction and summarization.",
}

// -- prompts list --

var promptsListType string

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored prompt versions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		pm := prompts.NewManager(st)
		list, err := pm.List(ctx, model.PromptType(promptsListType))
		if err != nil {
			return eris.Wrap(err, "prompts list")
		}

		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "Geen prompts gevonden. Draai `match-cli migrate` om de standaardprompts te laden.")
			return nil
		}

		formatPrompts(os.Stdout, list)
		return nil
	},
}

// -- prompts show --

var promptsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the full content of one prompt version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Errorf("invalid prompt id %q", args[0])
		}

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := prompts.NewManager(st).Get(ctx, id)
		if err != nil {
			return eris.Wrap(err, "prompts show")
		}
		return printJSON(p)
	},
}

// -- prompts create --

var (
	promptsCreateType    string
	promptsCreateFile    string
	promptsCreateContent string
)

var promptsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Store a new prompt version and activate it",
	Long:  "Stores the given content as the next version of a prompt type and makes it the active one. The previously active version becomes its parent.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		content := promptsCreateContent
		if promptsCreateFile != "" {
			if content != "" {
				return eris.New("use either --file or --content, not both")
			}
			data, err := os.ReadFile(promptsCreateFile)
			if err != nil {
				return eris.Wrapf(err, "read %s", promptsCreateFile)
			}
			content = string(data)
		}
		if content == "" {
			return eris.New("provide prompt content via --file or --content")
		}

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := prompts.NewManager(st).NewVersion(ctx, model.PromptType(promptsCreateType), content)
		if err != nil {
			return eris.Wrap(err, "prompts create")
		}

		zap.L().Info("prompt version created",
			zap.Int64("id", p.ID),
			zap.String("type", string(p.Type)),
			zap.Int("version", p.Version))
		return printJSON(p)
	},
}

// -- prompts activate --

var promptsActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Make an existing prompt version the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Errorf("invalid prompt id %q", args[0])
		}

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := prompts.NewManager(st).Activate(ctx, id); err != nil {
			return eris.Wrap(err, "prompts activate")
		}
		zap.L().Info("prompt activated", zap.Int64("id", id))
		return nil
	},
}

func init() {
	promptsListCmd.Flags().StringVar(&promptsListType, "type", "", "filter by prompt type (cv_extract, profile_summary, vacancy_summary)")

	promptsCreateCmd.Flags().StringVar(&promptsCreateType, "type", "", "prompt type (cv_extract, profile_summary, vacancy_summary)")
	promptsCreateCmd.Flags().StringVar(&promptsCreateFile, "file", "", "read prompt content from this file")
	promptsCreateCmd.Flags().StringVar(&promptsCreateContent, "content", "", "prompt content as a literal string")
	_ = promptsCreateCmd.MarkFlagRequired("type")

	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
	promptsCmd.AddCommand(promptsCreateCmd)
	promptsCmd.AddCommand(promptsActivateCmd)
	rootCmd.AddCommand(promptsCmd)
}

// formatPrompts writes a tabular list of prompt versions to w.
func formatPrompts(out io.Writer, list []model.Prompt) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTYPE\tVERSIE\tACTIEF\tOUDER\tAANGEMAAKT")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t------\t-----\t----------")

	for _, p := range list {
		active := "nee"
		if p.Active {
			active = "ja"
		}
		parent := "-"
		if p.ParentID != nil {
			parent = strconv.FormatInt(*p.ParentID, 10)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			p.ID,
			p.Type,
			p.Version,
			active,
			parent,
			p.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
