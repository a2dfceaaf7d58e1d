package cli

import (
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alapierre/bahsig/bah"
	"github.com/alapierre/bahsig/common"
	"github.com/alapierre/bahsig/signer"
)

// ErrVerificationFailed is returned when a message carries an invalid signature.
var ErrVerificationFailed = errors.New("signature verification failed")

func (a *app) verifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify --in <signed.xml> (--cert <cert.pem> | --pubkey <key.pem> | --certs <bundle.pem>)",
		Short: "Verify the signature of a signed message",
		Long: `The verify command checks the signature embedded in the AppHdr of the message.
With --certs the verification certificate is selected from a PEM bundle by the
subject key identifier advertised in the signature.`,
		RunE: a.runVerify,
	}

	cmd.Flags().String("in", "-", "Signed message (- for stdin)")
	cmd.Flags().String("cert", "", "PEM certificate of the signer")
	cmd.Flags().String("pubkey", "", "PEM public key of the signer")
	cmd.Flags().String("certs", "", "PEM bundle searched by subject key identifier")
	cmd.MarkFlagsMutuallyExclusive("cert", "pubkey", "certs")
	return cmd
}

func (a *app) runVerify(cmd *cobra.Command, _ []string) error {
	in, _ := cmd.Flags().GetString("in")

	doc, err := readDocument(cmd, in)
	if err != nil {
		return err
	}
	v, err := bah.NewVerifier(a.cfg.Signature.Schema, bah.WithLogger(a.log))
	if err != nil {
		return err
	}
	pub, err := a.verificationKey(cmd, v, doc)
	if err != nil {
		return err
	}

	ok, err := v.Verify(doc, pub)
	if err != nil {
		return fmt.Errorf("failed to verify %s: %w", in, err)
	}
	if !ok {
		a.log.Debug("rejected message", common.XML("message", doc.Root()))
		return ErrVerificationFailed
	}

	fmt.Fprintln(cmd.OutOrStdout(), "signature valid")
	return nil
}

// verificationKey resolves the public key from flags, falling back to the configuration.
func (a *app) verificationKey(cmd *cobra.Command, v *bah.Verifier, doc *etree.Document) (crypto.PublicKey, error) {
	var cert, pubkey, bundle string
	override(cmd, "cert", &cert)
	override(cmd, "pubkey", &pubkey)
	override(cmd, "certs", &bundle)

	if cert == "" && pubkey == "" && bundle == "" {
		pubkey = a.cfg.Keys.PublicKey
		bundle = a.cfg.Keys.Certificates
		if pubkey == "" && bundle == "" {
			cert = a.cfg.Keys.Certificate
		}
	}

	switch {
	case cert != "":
		return signer.LoadPublicKey(cert)
	case pubkey != "":
		return signer.LoadPublicKey(pubkey)
	case bundle != "":
		certs, err := signer.LoadCertificates(bundle)
		if err != nil {
			return nil, err
		}
		ski, err := v.KeyIdentifier(doc)
		if err != nil {
			return nil, err
		}
		selected := bah.SelectCertificate(ski, certs)
		if selected == nil {
			return nil, fmt.Errorf("no certificate in %s matches subject key identifier %s", bundle, hex.EncodeToString(ski))
		}
		a.log.Debug("verification certificate selected", zap.String("subject", selected.Subject.String()))
		return selected.PublicKey, nil
	}
	return nil, errors.New("one of --cert, --pubkey or --certs is required")
}
