package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-digipost/internal/config"
	"github.com/sirosfoundation/go-digipost/internal/keystore"
	"github.com/sirosfoundation/go-digipost/pkg/digipost"
	"github.com/sirosfoundation/go-digipost/pkg/security"
	"github.com/sirosfoundation/go-digipost/pkg/transport"
)

// app carries the state shared by all commands of one invocation
type app struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
	signer keystore.Signer
	client *digipost.Client
}

// Execute runs the command line
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:               "digipost",
		Short:             "Send letters through the Digipost gateway",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "digipost.yaml", "configuration file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "environment file loaded before the configuration")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json (overrides config)")

	root.AddCommand(
		sendCmd(a),
		identifyCmd(a),
		senderInfoCmd(a),
		documentStatusCmd(a),
	)
	return root
}

func (a *app) setup(stderr io.Writer) error {
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", a.envFile, err)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(stderr, cfg.Logging)
	slog.SetDefault(a.logger)

	a.signer, err = keystore.NewSigner(&cfg.Signing)
	if err != nil {
		return fmt.Errorf("loading signing key: %w", err)
	}
	info := keystore.Describe(a.signer)
	a.logger.Debug("Signing key loaded",
		"mode", cfg.Signing.Mode,
		"algorithm", info.Algorithm,
		"size", info.KeySize,
		"subject", info.CertificateSubject,
		"not_after", info.NotAfter)

	a.client, err = newClient(cfg, a.signer, a.logger)
	if err != nil {
		a.signer.Close()
		return err
	}
	return nil
}

// run wraps a command so that the client and key are released however it ends
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer func() {
			if err := a.close(); err != nil {
				a.logger.Warn("Failed to release resources", "error", err)
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) close() error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.signer != nil {
		errs = append(errs, a.signer.Close())
	}
	return errors.Join(errs...)
}

func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(w),
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func newClient(cfg *config.Config, signer keystore.Signer, logger *slog.Logger) (*digipost.Client, error) {
	httpsConfig := transport.DefaultHTTPSConfig()
	httpsConfig.Timeout = cfg.Gateway.Timeout
	httpsConfig.RateLimit = cfg.Gateway.RateLimit
	httpsConfig.RateBurst = cfg.Gateway.RateBurst

	clientConfig := &digipost.ClientConfig{
		BaseURL:                  cfg.Gateway.BaseURL,
		UserID:                   cfg.Gateway.UserID,
		Key:                      signer,
		HTTPSConfig:              httpsConfig,
		VerifierOptions:          []security.Option{security.WithClockSkew(cfg.Gateway.ClockSkew)},
		EntryPointTTL:            cfg.Cache.EntryPointTTL,
		SenderInfoTTL:            cfg.Cache.SenderInfoTTL,
		PrintKeyTTL:              cfg.Cache.PrintKeyTTL,
		SendWindow:               cfg.Delivery.SendWindow,
		DisableContentValidation: cfg.Delivery.DisableContentValidation,
		Logger:                   logger,
	}
	if cfg.Gateway.CABundle != "" {
		roots, err := keystore.LoadCertPool(cfg.Gateway.CABundle)
		if err != nil {
			return nil, err
		}
		clientConfig.CertificateRoots = roots
	}

	return digipost.NewClient(clientConfig)
}
