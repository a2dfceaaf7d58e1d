package cli

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alapierre/bahsig/bah"
)

func (a *app) keyIDCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyid --in <signed.xml>",
		Short: "Print the subject key identifier of the signing certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")

			doc, err := readDocument(cmd, in)
			if err != nil {
				return err
			}
			v, err := bah.NewVerifier(a.cfg.Signature.Schema)
			if err != nil {
				return err
			}
			ski, err := v.KeyIdentifier(doc)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "hex: %s\nbase64: %s\n", hex.EncodeToString(ski), base64.StdEncoding.EncodeToString(ski))
			return nil
		},
	}

	cmd.Flags().String("in", "-", "Signed message (- for stdin)")
	return cmd
}
