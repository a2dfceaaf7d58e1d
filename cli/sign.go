package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alapierre/bahsig/bah"
	"github.com/alapierre/bahsig/signer"
)

func (a *app) signCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign --in <message.xml> --out <signed.xml>",
		Short: "Sign the business application header of a message",
		Long: `The sign command appends a signature element to the AppHdr of the message and
writes the signed message. The key is loaded from PEM files or, when a PKCS#11
module is configured, from a hardware token.`,
		RunE: a.runSign,
	}

	cmd.Flags().String("in", "-", "Message to sign (- for stdin)")
	cmd.Flags().String("out", "-", "Signed message (- for stdout)")
	cmd.Flags().String("key", "", "PEM private key")
	cmd.Flags().String("cert", "", "PEM certificate chain, leaf first")
	cmd.Flags().String("p12", "", "PKCS#12 keystore holding key and certificate")
	cmd.Flags().String("passphrase", "", "Passphrase of an encrypted PKCS#8 key or a PKCS#12 keystore")
	cmd.Flags().String("pkcs11-module", "", "PKCS#11 module path")
	cmd.Flags().String("pin", "", "PKCS#11 user PIN")
	cmd.Flags().Uint("slot", 0, "PKCS#11 slot index")
	return cmd
}

func (a *app) runSign(cmd *cobra.Command, _ []string) error {
	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")

	key, err := a.keyMaterial(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := key.Close(); err != nil {
			a.log.Warn("failed to release signing key", zap.Error(err))
		}
	}()

	if leaf, err := signer.Leaf(key); err == nil {
		a.log.Debug("signing key loaded", zap.String("subject", leaf.Subject.String()), zap.String("serial", leaf.SerialNumber.String()))
	}

	doc, err := readDocument(cmd, in)
	if err != nil {
		return err
	}

	s, err := bah.NewSigner(a.cfg.Signature, bah.WithLogger(a.log))
	if err != nil {
		return err
	}
	if _, err := s.Sign(doc, key); err != nil {
		return fmt.Errorf("failed to sign %s: %w", in, err)
	}

	a.log.Info("message signed", zap.String("in", in), zap.String("out", out))
	return writeDocument(cmd, out, doc)
}

// keyMaterial opens the configured signing key, prompting for missing secrets.
func (a *app) keyMaterial(cmd *cobra.Command) (signer.Signer, error) {
	keys := a.cfg.Keys
	override(cmd, "key", &keys.PrivateKey)
	override(cmd, "cert", &keys.Certificate)
	override(cmd, "p12", &keys.PKCS12)
	override(cmd, "passphrase", &keys.Passphrase)
	override(cmd, "pkcs11-module", &keys.Pkcs11.Module)
	override(cmd, "pin", &keys.Pkcs11.Pin)
	if cmd.Flags().Changed("slot") {
		keys.Pkcs11.Slot, _ = cmd.Flags().GetUint("slot")
	}

	if keys.Pkcs11.Module != "" {
		if keys.Pkcs11.Pin == "" {
			pin, err := a.secrets.ReadSecret("PKCS#11 PIN")
			if err != nil {
				return nil, err
			}
			keys.Pkcs11.Pin = string(pin)
		}
		return signer.NewPkcs11Signer(signer.Pkcs11Config{
			Pkcs11ModulePath: keys.Pkcs11.Module,
			Pin:              keys.Pkcs11.Pin,
			SlotNumber:       keys.Pkcs11.Slot,
			Logger:           a.log,
		})
	}

	if keys.PKCS12 != "" {
		key, err := signer.NewPKCS12Signer(keys.PKCS12, keys.Passphrase)
		if errors.Is(err, signer.ErrPassphraseRequired) {
			passphrase, perr := a.secrets.ReadSecret("Password for " + keys.PKCS12)
			if perr != nil {
				return nil, perr
			}
			key, err = signer.NewPKCS12Signer(keys.PKCS12, string(passphrase))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load signing key: %w", err)
		}
		return key, nil
	}

	if keys.PrivateKey == "" || keys.Certificate == "" {
		return nil, errors.New("a private key and certificate, a PKCS#12 keystore or a PKCS#11 module are required")
	}

	key, err := signer.NewX509KeyStoreSignerWithPassphrase(keys.PrivateKey, keys.Certificate, []byte(keys.Passphrase))
	if errors.Is(err, signer.ErrPassphraseRequired) {
		passphrase, perr := a.secrets.ReadSecret("Passphrase for " + keys.PrivateKey)
		if perr != nil {
			return nil, perr
		}
		key, err = signer.NewX509KeyStoreSignerWithPassphrase(keys.PrivateKey, keys.Certificate, passphrase)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}
	return key, nil
}
