package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ifuryst/pagemill/internal/models"
	"github.com/ifuryst/pagemill/internal/service"
)

var (
	genLocations []string
	genServices  []string
	genMaxPages  int
	genPublish   bool

	scanScope      string
	scanServiceKey string
	scanZip        string
	scanPageIDs    []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run a generation job in the foreground",
	RunE:  runGenerate,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a health scan in the foreground",
	RunE:  runScan,
}

var importCmd = &cobra.Command{
	Use:   "import [catalog.yaml]",
	Short: "Import locations and services from a YAML catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Studio login helpers",
}

var authSecretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a TOTP secret for auth.totp_secret",
	Args:  cobra.NoArgs,
	RunE:  runAuthSecret,
}

func init() {
	authCmd.AddCommand(authSecretCmd)

	generateCmd.Flags().StringSliceVarP(&genLocations, "location", "l", nil, "location id, slug or zip (repeatable)")
	generateCmd.Flags().StringSliceVarP(&genServices, "service", "s", nil, "service id, key or slug (repeatable)")
	generateCmd.Flags().IntVar(&genMaxPages, "max-pages", 0, "cap on pages to generate")
	generateCmd.Flags().BoolVar(&genPublish, "publish", false, "publish pages immediately")

	scanCmd.Flags().StringVar(&scanScope, "scope", models.ScanScopeAll, "all, serviceKey, zip or pageIds")
	scanCmd.Flags().StringVar(&scanServiceKey, "service-key", "", "service key for the serviceKey scope")
	scanCmd.Flags().StringVar(&scanZip, "zip", "", "zip for the zip scope")
	scanCmd.Flags().StringSliceVar(&scanPageIDs, "page-id", nil, "page id for the pageIds scope (repeatable)")
}

type commandEnv struct {
	logger   *zap.Logger
	services *service.Services
}

func setup() (*commandEnv, error) {
	cfg, appLogger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	services, err := service.NewServices(cfg, db, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	return &commandEnv{logger: appLogger, services: services}, nil
}

// waitForJobs blocks until background jobs finish, stopping them on SIGINT/SIGTERM.
func (e *commandEnv) waitForJobs() error {
	done := make(chan struct{})
	go func() {
		e.services.Runner.Wait()
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-done:
		return e.services.Close(context.Background())
	case <-quit:
		e.logger.Info("Interrupted, stopping jobs...")
		return e.services.Close(context.Background())
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	sel := &service.Selection{
		LocationRefs: genLocations,
		ServiceRefs:  genServices,
		Publish:      genPublish,
		MaxPages:     genMaxPages,
	}
	job, err := env.services.Generation.Submit(cmd.Context(), sel)
	if err != nil {
		return err
	}

	if err := env.waitForJobs(); err != nil {
		return err
	}

	final, err := env.services.Generation.Get(context.Background(), job.ID)
	if err != nil {
		return err
	}
	return printJSON(final)
}

func runScan(cmd *cobra.Command, _ []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	job, err := env.services.Scan.Submit(cmd.Context(), models.ScanInput{
		Scope:      scanScope,
		ServiceKey: scanServiceKey,
		Zip:        scanZip,
		PageIDs:    scanPageIDs,
	})
	if err != nil {
		return err
	}

	if err := env.waitForJobs(); err != nil {
		return err
	}

	final, err := env.services.Scan.Get(context.Background(), job.ID)
	if err != nil {
		return err
	}
	return printJSON(final)
}

func runImport(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	result, err := env.services.Catalog.ImportCatalog(cmd.Context(), f)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runAuthSecret(cmd *cobra.Command, _ []string) error {
	secret, err := service.NewAuthService(zap.NewNop(), "", nil, nil).GenerateSecret()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), secret)
	return nil
}
