package keystore

import (
	"fmt"

	"github.com/sirosfoundation/go-digipost/internal/config"
)

// NewSigner loads the signing key described by the configuration
func NewSigner(cfg *config.SigningConfig) (Signer, error) {
	switch cfg.Mode {
	case "pem":
		return LoadPEM(cfg.PEM.KeyFile, cfg.PEM.CertFile)
	case "pkcs12":
		return LoadPKCS12(cfg.PKCS12.File, cfg.PKCS12.Password)
	case "pkcs11":
		return newPKCS11Signer(cfg)
	default:
		return nil, fmt.Errorf("unknown signing mode: %s", cfg.Mode)
	}
}

func newPKCS11Signer(cfg *config.SigningConfig) (Signer, error) {
	p11cfg := &PKCS11Config{
		ModulePath: cfg.PKCS11.ModulePath,
		SlotLabel:  cfg.PKCS11.SlotLabel,
		PIN:        cfg.PKCS11.PIN,
		KeyLabel:   cfg.PKCS11.KeyLabel,
	}
	if cfg.PKCS11.SlotID > 0 {
		slotID := cfg.PKCS11.SlotID
		p11cfg.SlotID = &slotID
	}
	return OpenPKCS11(p11cfg)
}
