package cmd

import (
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/store"
	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/utils"
	"github.com/PolarWolf314/lockbox/internal/workflows"
)

var (
	showReveal bool
	showLast   int
)

func init() {
	showCmd.Flags().BoolVar(&showReveal, "reveal", false, "print sensitive values")
	showCmd.Flags().IntVar(&showLast, "last", 0, "print only the last N characters of sensitive values")
	RootCmd.AddCommand(showCmd)
}

func resetShowCommandState() {
	showReveal = false
	showLast = 0
}

var showCmd = &cobra.Command{
	Use:   "show <archive> <id>",
	Short: "Show one credential",
	Long: `Shows one credential. Sensitive values are redacted unless --reveal is
given; --last N shows only their final N characters.

Examples:
  lockbox show ~/vault.lbx github
  lockbox show ~/vault.lbx bank-card --last 4
  lockbox show ~/vault.lbx github --reveal`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting show command")
		path, id := args[0], args[1]

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

		c, err := workflows.Show(cmd.Context(), env, workflows.ShowOptions{
			Target: workflows.Target{Path: path, Password: password},
			ID:     id,
			Reveal: showReveal || showLast > 0,
		})
		if err != nil {
			spinner.FinalMSG = formatRepositoryError(env, path, err)
			return reported(err)
		}

		if showLast > 0 && !showReveal {
			for name, f := range c.Fields {
				if f.Sensitive {
					f.Value = utils.Mask(f.Value, showLast)
					c.Fields[name] = f
				}
			}
		}

		spinner.FinalMSG = formatCredential(*c)
		return nil
	},
}

func formatCredential(c store.Credential) string {
	pairs := [][2]string{
		{"id", ui.Highlight.Sprint(c.ID)},
		{"title", c.Title},
		{"type", c.CredentialType},
	}
	if len(c.Tags) > 0 {
		pairs = append(pairs, [2]string{"tags", strings.Join(c.Tags, ", ")})
	}
	pairs = append(pairs,
		[2]string{"created", c.CreatedAt.Format("2006-01-02 15:04:05")},
		[2]string{"updated", humanize.Time(c.UpdatedAt)},
	)

	names := make([]string, 0, len(c.Fields))
	for name := range c.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := c.Fields[name]
		value := f.Value
		if f.Sensitive {
			value = ui.Secret.Sprint(value)
		}
		pairs = append(pairs, [2]string{name, value})
	}

	out := ui.KeyValue(pairs)
	if c.Notes != "" {
		out += "\n" + c.Notes + "\n"
	}
	return strings.TrimRight(out, "\n")
}
