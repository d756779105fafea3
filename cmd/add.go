package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/lockbox/internal/store"
	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/workflows"
)

var (
	addID      string
	addTitle   string
	addType    string
	addNotes   string
	addTags    []string
	addFields  []string
	addSecrets []string
)

func init() {
	addCmd.Flags().StringVar(&addID, "id", "", "credential id (generated when empty)")
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "credential title")
	addCmd.Flags().StringVar(&addType, "type", "login", "credential type")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "free-form notes")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "tag (repeatable)")
	addCmd.Flags().StringArrayVarP(&addFields, "field", "f", nil, "field as name=value or name:type=value (repeatable)")
	addCmd.Flags().StringArrayVar(&addSecrets, "secret", nil, "sensitive field as name=value (repeatable)")
	_ = addCmd.MarkFlagRequired("title")
	RootCmd.AddCommand(addCmd)
}

func resetAddCommandState() {
	addID = ""
	addTitle = ""
	addType = "login"
	addNotes = ""
	addTags = nil
	addFields = nil
	addSecrets = nil
}

var addCmd = &cobra.Command{
	Use:   "add <archive>",
	Short: "Add a credential",
	Long: `Adds a credential and saves the repository.

Fields are given as name=value, optionally with a field type as
name:type=value. Fields of type password, cvv, totpsecret and
creditcardnumber are sensitive; --secret marks any field sensitive.

Examples:
  lockbox add ~/vault.lbx --title GitHub -f username=octocat --secret password=hunter22
  lockbox add ~/vault.lbx --id bank --title "Bank card" --type card -f number:creditcardnumber=4111111111111111`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting add command")
		path := args[0]

		cred, err := credentialFromFlags()
		if err != nil {
			return err
		}

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

		spinner, cleanup := startSpinner("Adding credential...", verbose)
		defer cleanup()

		result, err := workflows.Add(cmd.Context(), env, workflows.AddOptions{
			Target:     workflows.Target{Path: path, Password: password},
			Credential: cred,
		})
		if err != nil {
			spinner.FinalMSG = formatRepositoryError(env, path, err)
			return reported(err)
		}

		spinner.FinalMSG = fmt.Sprintf("%s Added %s (%d credentials)%s",
			ui.Success.Sprint("✓"), ui.Highlight.Sprint(result.ID), result.Count, copyBackNotice(result.SaveOutcome))
		return nil
	},
}

func credentialFromFlags() (store.Credential, error) {
	cred := store.Credential{
		ID:             addID,
		Title:          addTitle,
		CredentialType: addType,
		Notes:          addNotes,
		Tags:           addTags,
		Fields:         map[string]store.Field{},
	}

	for _, raw := range addFields {
		name, field, err := parseFieldFlag(raw)
		if err != nil {
			return store.Credential{}, err
		}
		cred.Fields[name] = field
	}
	for _, raw := range addSecrets {
		name, field, err := parseFieldFlag(raw)
		if err != nil {
			return store.Credential{}, err
		}
		if field.FieldType == store.FieldText {
			field.FieldType = store.FieldPassword
		}
		field.Sensitive = true
		cred.Fields[name] = field
	}
	return cred, nil
}

// parseFieldFlag parses "name=value" or "name:type=value".
func parseFieldFlag(raw string) (string, store.Field, error) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok || key == "" {
		return "", store.Field{}, fmt.Errorf("invalid field %q: expected name=value", raw)
	}

	name, typ, typed := strings.Cut(key, ":")
	field := store.Field{Value: value, FieldType: store.FieldText}
	if typed {
		field.FieldType = store.FieldType(strings.ToLower(typ))
		field.Sensitive = field.FieldType.DefaultSensitive()
	}
	return name, field, nil
}
