package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alapierre/bahsig/common"
	"github.com/alapierre/bahsig/config"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string

	cfg     *config.Config
	log     *zap.Logger
	secrets SecretReader
}

// NewRootCommand builds the bahsig command tree reading secrets from the terminal.
func NewRootCommand() *cobra.Command {
	return newRootCommand(NewTerminalSecretReader())
}

func newRootCommand(secrets SecretReader) *cobra.Command {
	a := &app{secrets: secrets}

	root := &cobra.Command{
		Use:   "bahsig",
		Short: "Sign and verify ISO 20022 business application headers",
		Long: `bahsig embeds an XML-DSig signature into the AppHdr of an ISO 20022 message.
The signature covers the header, the Document payload and its own KeyInfo, which
identifies the signing certificate by subject key identifier.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a YAML or TOML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(a.signCommand())
	root.AddCommand(a.verifyCommand())
	root.AddCommand(a.keyIDCommand())
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	log, err := common.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.cfg = cfg
	a.log = log.With(zap.String("command", cmd.Name()))
	return nil
}

// Execute runs the bahsig command line.
func Execute() error {
	return NewRootCommand().Execute()
}

// override replaces *target with the flag value when the flag was given explicitly.
func override(cmd *cobra.Command, name string, target *string) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetString(name)
	}
}
