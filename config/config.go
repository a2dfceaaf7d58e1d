package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/alapierre/bahsig/bah"
	"github.com/alapierre/bahsig/common"
	"github.com/alapierre/bahsig/xmlsig"
)

// EnvPrefix prefixes environment overrides, e.g. BAHSIG_KEYS_PIN.
const EnvPrefix = "BAHSIG"

// Config is the complete bahsig configuration.
type Config struct {
	Signature bah.Config       `mapstructure:"signature"`
	Keys      KeysConfig       `mapstructure:"keys"`
	Log       common.LogConfig `mapstructure:"log"`
}

// KeysConfig locates the signing and verification key material.
type KeysConfig struct {
	PrivateKey   string       `mapstructure:"private_key"`
	Certificate  string       `mapstructure:"certificate"`
	PKCS12       string       `mapstructure:"pkcs12"`
	Passphrase   string       `mapstructure:"passphrase"`
	PublicKey    string       `mapstructure:"public_key"`
	Certificates string       `mapstructure:"certificates"` // PEM bundle searched by subject key identifier
	Pkcs11       Pkcs11Config `mapstructure:"pkcs11"`
}

type Pkcs11Config struct {
	Module string `mapstructure:"module"`
	Pin    string `mapstructure:"pin"`
	Slot   uint   `mapstructure:"slot"`
}

// Load reads configuration from path and the environment. An empty path
// reads the environment only. Missing settings keep their defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(algorithmHook()))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Signature.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so that environment variables are picked
// up by Unmarshal even when the file does not mention them.
func setDefaults(v *viper.Viper) {
	sig := bah.DefaultConfig()

	v.SetDefault("signature.signature_method", string(sig.SignatureMethod))
	v.SetDefault("signature.canonicalization_method", string(sig.CanonicalizationMethod))
	v.SetDefault("signature.enveloped_transform", string(sig.EnvelopedTransform))
	for name, ref := range map[string]bah.ReferenceConfig{"header": sig.Header, "document": sig.Document, "key_info": sig.KeyInfo} {
		v.SetDefault("signature."+name+".digest_method", string(ref.DigestMethod))
		v.SetDefault("signature."+name+".transform", string(ref.Transform))
	}
	v.SetDefault("signature.prefix", sig.Prefix)
	v.SetDefault("signature.include_issuer_serial", sig.IncludeIssuerSerial)
	v.SetDefault("signature.schema.header_tag", sig.Schema.HeaderTag)
	v.SetDefault("signature.schema.document_tag", sig.Schema.DocumentTag)
	v.SetDefault("signature.schema.signature_tag", sig.Schema.SignatureTag)
	v.SetDefault("signature.schema.signature_prefix", sig.Schema.SignaturePrefix)
	v.SetDefault("signature.schema.signature_namespace", sig.Schema.SignatureNamespace)

	for _, key := range []string{"private_key", "certificate", "pkcs12", "passphrase", "public_key", "certificates", "pkcs11.module", "pkcs11.pin"} {
		v.SetDefault("keys."+key, "")
	}
	v.SetDefault("keys.pkcs11.slot", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.output_path", "stderr")
}

// algorithmHook accepts short algorithm names such as "rsa-sha256" or
// "exc-c14n" in place of the full identifiers.
func algorithmHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(xmlsig.AlgorithmID(""))
	return func(_, to reflect.Type, data any) (any, error) {
		s, ok := data.(string)
		if !ok || to != target {
			return data, nil
		}
		if id, ok := xmlsig.LookupAlgorithm(s); ok {
			return string(id), nil
		}
		return s, nil
	}
}
