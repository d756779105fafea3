package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/repository"
	"github.com/PolarWolf314/lockbox/internal/store"
	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/workflows"
)

var (
	listSearch string
	listTag    string
	listType   string
	listJSON   bool
)

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "only credentials whose title, notes or tags contain text")
	listCmd.Flags().StringVar(&listTag, "tag", "", "only credentials with this tag")
	listCmd.Flags().StringVar(&listType, "type", "", "only credentials of this type")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON array")
	RootCmd.AddCommand(listCmd)
}

func resetListCommandState() {
	listSearch = ""
	listTag = ""
	listType = ""
	listJSON = false
}

var listCmd = &cobra.Command{
	Use:   "list <archive>",
	Short: "List the credentials in a repository",
	Long: `Lists the credentials in a repository. Sensitive values are never shown.

Examples:
  lockbox list ~/vault.lbx
  lockbox list ~/vault.lbx --tag work
  lockbox list ~/vault.lbx --search git --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting list command")
		path := args[0]

		env, err := loadEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load configuration: %v", err)
		}
		defer env.Flush()

		password, err := readPassphrase("Passphrase: ")
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read passphrase: %v", err)
		}
		defer wipe(password)

		spinner, cleanup := startSpinner("Decrypting repository...", verbose)
		defer cleanup()

		result, err := workflows.List(cmd.Context(), env, workflows.ListOptions{
			Target: workflows.Target{Path: path, Password: password},
			Query:  repository.Query{Text: listSearch, Tag: listTag, Type: listType},
		})
		if err != nil {
			spinner.FinalMSG = formatRepositoryError(env, path, err)
			return reported(err)
		}
		Logger.Debugf("Loaded %d credentials (%s layout)", result.Metadata.CredentialCount, result.Layout)

		spinner.FinalMSG = ""
		cleanup()

		if listJSON {
			data, err := json.MarshalIndent(result.Credentials, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal credentials to JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if len(result.Credentials) == 0 {
			fmt.Println("No credentials found.")
			return nil
		}
		printCredentialTable(result.Credentials)
		return nil
	},
}

func printCredentialTable(creds []store.Credential) {
	for _, c := range creds {
		tags := ""
		if len(c.Tags) > 0 {
			tags = ui.Muted.Sprint(strings.Join(c.Tags, ", "))
		}
		fmt.Printf("%-24s  %-28s  %-10s  %-14s  %s\n",
			ui.Highlight.Sprint(c.ID), c.Title, c.CredentialType, humanize.Time(c.UpdatedAt), tags)
	}
}
